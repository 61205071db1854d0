// Package notify is the local-notification boundary. The engine only needs to
// schedule and cancel prompts; delivery belongs to the platform layer.
package notify

import (
	"context"
	"strings"

	"github.com/quillhealth/quill/internal/journal"
	"go.uber.org/zap"
)

const identifierPrefix = "quill-reminder:"

// Identifier encodes a reminder id into a notification identifier so the
// reminder is recoverable from the delivered notification.
func Identifier(reminderID string) string {
	return identifierPrefix + reminderID
}

// ParseIdentifier recovers the reminder id from a notification identifier.
func ParseIdentifier(identifier string) (string, bool) {
	if !strings.HasPrefix(identifier, identifierPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(identifier, identifierPrefix)
	if id == "" {
		return "", false
	}
	return id, true
}

// Scheduler schedules and cancels local notifications for reminders.
type Scheduler interface {
	Schedule(ctx context.Context, reminder journal.LogReminder) error
	Cancel(ctx context.Context, reminderID string) error
}

// LogScheduler records schedule/cancel calls in the log instead of delivering
// notifications. It backs the CLI, where there is no notification surface.
type LogScheduler struct {
	Logger *zap.Logger
}

// Schedule logs the would-be notification.
func (s LogScheduler) Schedule(_ context.Context, reminder journal.LogReminder) error {
	if s.Logger != nil {
		s.Logger.Info("reminder scheduled",
			zap.String("identifier", Identifier(reminder.ID)),
			zap.Time("fires_at", reminder.ReminderDate),
			zap.Duration("interval", reminder.Interval))
	}
	return nil
}

// Cancel logs the cancellation.
func (s LogScheduler) Cancel(_ context.Context, reminderID string) error {
	if s.Logger != nil {
		s.Logger.Info("reminder cancelled", zap.String("identifier", Identifier(reminderID)))
	}
	return nil
}
