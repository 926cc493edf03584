package dto

// CommandParams carries the free-text parameters of a chat command.
type CommandParams struct {
	Task     string `json:"task"`
	Datetime string `json:"datetime"`
}

// CommandRequest is the JSON body NeCSuS posts for every bot command.
type CommandRequest struct {
	Room   string        `json:"room"`
	Params CommandParams `json:"params"`
}

// Answer is the JSON response sent back to the chat platform.
type Answer struct {
	Text   string `json:"text"`
	Author string `json:"author"`
	Room   string `json:"room,omitempty"`
}
