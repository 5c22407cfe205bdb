package models

import "time"

const (
	// ReminderLead is how long before the target the advance notice goes out.
	ReminderLead = time.Hour
	// FollowupDelay is how long after the target the completion check goes out.
	FollowupDelay = 15 * time.Minute
)

// Task is a one-off reminder scheduled from a chat request.
type Task struct {
	TaskID       int64     `json:"task_id"`
	ChatID       int64     `json:"chat_id"`
	Description  string    `json:"description"`
	TargetAt     time.Time `json:"target_at"`
	ReminderAt   time.Time `json:"reminder_at"` // TargetAt - ReminderLead
	FollowupAt   time.Time `json:"followup_at"` // TargetAt + FollowupDelay
	ReminderSent bool      `json:"reminder_sent"`
	FollowupSent bool      `json:"followup_sent"`
	Completed    bool      `json:"completed"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewTask builds an unsaved task with its derived reminder and follow-up times.
func NewTask(chatID int64, description string, target, now time.Time) *Task {
	return &Task{
		ChatID:      chatID,
		Description: description,
		TargetAt:    target,
		ReminderAt:  target.Add(-ReminderLead),
		FollowupAt:  target.Add(FollowupDelay),
		CreatedAt:   now,
	}
}

// ReminderDue reports whether the advance notice should be sent at now.
func (t *Task) ReminderDue(now time.Time) bool {
	return !t.ReminderSent && !t.Completed && !t.ReminderAt.After(now)
}

// FollowupDue reports whether the completion check should be sent at now.
// A follow-up never becomes due before its reminder has gone out.
func (t *Task) FollowupDue(now time.Time) bool {
	return !t.FollowupSent && t.ReminderSent && !t.Completed && !t.FollowupAt.After(now)
}

// Finished reports whether the task needs no further sends.
func (t *Task) Finished() bool {
	return t.Completed || t.FollowupSent
}
