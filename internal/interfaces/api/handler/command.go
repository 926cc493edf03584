package handler

import (
	"errors"
	"fmt"
	"net/http"

	"remindbot/internal/application/dto"
	"remindbot/internal/application/service"
	appErrors "remindbot/internal/pkg/errors"
	"remindbot/internal/pkg/logger"
	"remindbot/internal/pkg/text"

	"github.com/labstack/echo/v4"
)

// CommandHandler handles the webhook commands posted by the chat platform.
type CommandHandler struct {
	reminderService service.ReminderService
	botName         string
	log             logger.Logger
}

// NewCommandHandler creates a new CommandHandler.
func NewCommandHandler(reminderService service.ReminderService, botName string, log logger.Logger) *CommandHandler {
	return &CommandHandler{
		reminderService: reminderService,
		botName:         botName,
		log:             log,
	}
}

// answer sends the bot's reply in the shape the chat platform expects.
func (h *CommandHandler) answer(c echo.Context, status int, answerText string) error {
	return c.JSON(status, dto.Answer{Text: answerText, Author: h.botName})
}

// HandleSchedule registers a reminder at a specified time.
func (h *CommandHandler) HandleSchedule(c echo.Context) error {
	var req dto.CommandRequest
	if err := c.Bind(&req); err != nil {
		h.log.Warn(fmt.Sprintf("Malformed schedule request: %v", err))
		return c.String(http.StatusBadRequest, "Invalid request body")
	}

	answerText, err := h.reminderService.Schedule(c.Request().Context(), req.Params.Task, req.Params.Datetime, req.Room)
	if err != nil {
		switch {
		case errors.Is(err, appErrors.ErrParse):
			return h.answer(c, http.StatusBadRequest,
				fmt.Sprintf("Sorry, I don't understand when '%s' is.", req.Params.Datetime))
		case errors.Is(err, appErrors.ErrAlreadyExists):
			return h.answer(c, http.StatusOK,
				fmt.Sprintf("You already have a reminder to %s.", text.Depersonalise(req.Params.Task)))
		default:
			h.log.Error("Failed to schedule reminder", err)
			return h.answer(c, http.StatusInternalServerError, "Sorry, something went wrong setting that reminder.")
		}
	}
	return h.answer(c, http.StatusOK, answerText)
}

// HandleList displays the full list of scheduled reminders.
func (h *CommandHandler) HandleList(c echo.Context) error {
	answerText, err := h.reminderService.List(c.Request().Context())
	if err != nil {
		h.log.Error("Failed to list reminders", err)
		return h.answer(c, http.StatusInternalServerError, "Sorry, something went wrong listing your reminders.")
	}
	return h.answer(c, http.StatusOK, answerText)
}

// HandleRemove removes a scheduled reminder from the list.
func (h *CommandHandler) HandleRemove(c echo.Context) error {
	var req dto.CommandRequest
	if err := c.Bind(&req); err != nil {
		h.log.Warn(fmt.Sprintf("Malformed remove request: %v", err))
		return c.String(http.StatusBadRequest, "Invalid request body")
	}

	answerText, err := h.reminderService.Remove(c.Request().Context(), req.Params.Task)
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return h.answer(c, http.StatusOK, "I can't find that reminder")
		}
		h.log.Error("Failed to remove reminder", err)
		return h.answer(c, http.StatusInternalServerError, "Sorry, something went wrong removing that reminder.")
	}
	return h.answer(c, http.StatusOK, answerText)
}

// HandleClear clears the full list of scheduled reminders.
func (h *CommandHandler) HandleClear(c echo.Context) error {
	answerText, err := h.reminderService.Clear(c.Request().Context())
	if err != nil {
		h.log.Error("Failed to clear reminders", err)
		return h.answer(c, http.StatusInternalServerError, "Sorry, something went wrong clearing your reminders.")
	}
	return h.answer(c, http.StatusOK, answerText)
}
