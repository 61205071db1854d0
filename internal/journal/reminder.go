package journal

import (
	"fmt"
	"time"
)

// LogReminder schedules a prompt to log again. A zero Interval makes the
// reminder one-shot; a positive Interval makes it recurring. Template is the
// Loggable written (with a fresh id and timestamp) when the reminder is
// completed.
type LogReminder struct {
	ID           string
	ReminderDate time.Time
	Interval     time.Duration
	Template     Loggable
}

// Recurring reports whether the reminder repeats after completion.
func (r LogReminder) Recurring() bool {
	return r.Interval > 0
}

// NextOccurrence returns the reminder advanced by one interval. It must only
// be called on recurring reminders.
func (r LogReminder) NextOccurrence() LogReminder {
	advanced := r
	advanced.ReminderDate = r.ReminderDate.Add(r.Interval)
	return advanced
}

// Validate checks the reminder identifier, date and template entry.
func (r LogReminder) Validate() error {
	if _, err := NewLogID(r.ID); err != nil {
		return err
	}
	if r.ReminderDate.IsZero() {
		return fmt.Errorf("journal: reminder %q has no date", r.ID)
	}
	if r.Interval < 0 {
		return fmt.Errorf("journal: reminder %q has negative interval", r.ID)
	}
	return r.Template.Validate()
}
