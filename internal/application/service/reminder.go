package service

import (
	"context"
	"time"

	"remindbot/internal/domain/entity"
)

// DateParser converts free-text datetime input into an absolute instant in
// the bot's timezone. Fuzzy-parsing heuristics live behind this interface,
// not in the services.
type DateParser interface {
	Parse(text string) (time.Time, error)
}

// Notifier delivers a message to a chatroom on behalf of the bot.
type Notifier interface {
	PostMessage(ctx context.Context, room, text string) error
}

// ReminderService exposes the bot's operations in domain terms and renders
// the confirmation sentences sent back to the chatroom.
type ReminderService interface {
	// Schedule registers a reminder for the task at the free-text time and
	// returns the confirmation sentence.
	Schedule(ctx context.Context, task, datetime, room string) (string, error)
	// List renders the pending reminders, in run order.
	List(ctx context.Context) (string, error)
	// Remove cancels the reminder for the task. Returns ErrNotFound when
	// no such reminder is pending.
	Remove(ctx context.Context, task string) (string, error)
	// Clear cancels every pending reminder and reports how many.
	Clear(ctx context.Context) (string, error)
	// HandleFire delivers the reminder message when a job fires.
	HandleFire(ctx context.Context, payload entity.Payload) error
}
