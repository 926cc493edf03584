package necsus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	appErrors "remindbot/internal/pkg/errors"
	"remindbot/internal/pkg/logger"
)

const messagePath = "/api/actions/message"

// Client posts bot messages into NeCSuS chatrooms.
type Client struct {
	baseURL string
	botName string
	http    *http.Client
	log     logger.Logger
}

// message is the wire format of the chat-message action.
type message struct {
	Author string `json:"author"`
	Room   string `json:"room"`
	Text   string `json:"text"`
}

// NewClient creates a chat client for the given NeCSuS server.
func NewClient(baseURL, botName string, log logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		botName: botName,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

// BotName returns the author name used for outbound messages.
func (c *Client) BotName() string {
	return c.botName
}

// PostMessage sends a message to a chatroom as the bot.
func (c *Client) PostMessage(ctx context.Context, room, text string) error {
	body, err := json.Marshal(message{Author: c.botName, Room: room, Text: text})
	if err != nil {
		return fmt.Errorf("%w: failed to encode message: %v", appErrors.ErrDelivery, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagePath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: failed to build request: %v", appErrors.ErrDelivery, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", appErrors.ErrDelivery, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: chat server returned %s", appErrors.ErrDelivery, resp.Status)
	}
	c.log.Debug(fmt.Sprintf("Posted message to room %q", room))
	return nil
}
