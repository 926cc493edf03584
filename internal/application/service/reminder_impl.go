package service

import (
	"context"
	"fmt"
	"strings"

	"remindbot/internal/domain/entity"
	"remindbot/internal/pkg/clock"
	appErrors "remindbot/internal/pkg/errors"
	"remindbot/internal/pkg/logger"
	"remindbot/internal/pkg/text"
)

type reminderService struct {
	schedulerSvc SchedulerService
	parser       DateParser
	notifier     Notifier
	clk          *clock.Clock
	log          logger.Logger
}

// fireHandlerSetter is implemented by scheduler implementations that take
// their fire handler after construction (dependency injection workaround
// for the scheduler->reminder cycle).
type fireHandlerSetter interface {
	SetFireHandler(handler func(ctx context.Context, payload entity.Payload) error)
}

// NewReminderService creates a new instance of ReminderService and wires
// itself in as the scheduler's fire handler.
func NewReminderService(
	schedulerSvc SchedulerService,
	parser DateParser,
	notifier Notifier,
	clk *clock.Clock,
	log logger.Logger,
) (ReminderService, error) {
	setter, ok := schedulerSvc.(fireHandlerSetter)
	if !ok {
		return nil, fmt.Errorf("%w: SchedulerService does not accept a fire handler", appErrors.ErrInternalServer)
	}

	rs := &reminderService{
		schedulerSvc: schedulerSvc,
		parser:       parser,
		notifier:     notifier,
		clk:          clk,
		log:          log,
	}
	setter.SetFireHandler(rs.HandleFire)
	log.Info("Fire handler set for SchedulerService.")
	return rs, nil
}

// Schedule parses the requested time, registers the job and returns the
// confirmation sentence.
func (s *reminderService) Schedule(ctx context.Context, task, datetime, room string) (string, error) {
	fireAt, err := s.parser.Parse(datetime)
	if err != nil {
		s.log.Warn(fmt.Sprintf("Could not parse datetime %q for task %q", datetime, task))
		return "", err
	}

	job := &entity.Job{
		ID:     task,
		FireAt: fireAt,
		Text:   task,
		Room:   room,
	}
	if err := s.schedulerSvc.Schedule(ctx, job); err != nil {
		return "", err
	}

	return fmt.Sprintf("Okay, I will remind you to %s at %s",
		text.Depersonalise(task), s.clk.FormatTimeDate(fireAt)), nil
}

// List renders the pending reminders in run order.
func (s *reminderService) List(ctx context.Context) (string, error) {
	jobs, err := s.schedulerSvc.List(ctx)
	if err != nil {
		return "", err
	}

	if len(jobs) == 0 {
		return "You don't have any reminders.", nil
	}

	var builder strings.Builder
	builder.WriteString("Here are your reminders:<ul>")
	for _, job := range jobs {
		builder.WriteString(fmt.Sprintf("<li>%s at %s</li>",
			text.Depersonalise(job.Text), s.clk.FormatTimeDate(job.FireAt)))
	}
	builder.WriteString("</ul>")
	return builder.String(), nil
}

// Remove cancels the reminder for the task.
func (s *reminderService) Remove(ctx context.Context, task string) (string, error) {
	job, err := s.schedulerSvc.Cancel(ctx, task)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Okay, I won't remind you to %s at %s.",
		text.Depersonalise(job.Text), s.clk.FormatTimeDate(job.FireAt)), nil
}

// Clear cancels every pending reminder.
func (s *reminderService) Clear(ctx context.Context) (string, error) {
	count, err := s.schedulerSvc.Clear(ctx)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Okay, I've removed all %s reminders.",
		text.NumberToWord(int(count))), nil
}

// HandleFire posts the reminder message into its chatroom.
func (s *reminderService) HandleFire(ctx context.Context, payload entity.Payload) error {
	message := fmt.Sprintf("Remember to %s!", text.Depersonalise(payload.Text))
	if err := s.notifier.PostMessage(ctx, payload.Room, message); err != nil {
		s.log.Error(fmt.Sprintf("Failed to deliver reminder to room %q", payload.Room), err)
		return err
	}
	s.log.Info(fmt.Sprintf("Delivered reminder to room %q", payload.Room))
	return nil
}
