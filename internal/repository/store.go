package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hray3182/coachline/internal/models"
)

var (
	ErrNotFound = errors.New("task not found")
	// ErrReminderNotSent is returned when a follow-up is marked before its reminder.
	ErrReminderNotSent = errors.New("reminder not sent yet")
)

// TaskStore persists one-off tasks. Every method is a single atomic operation.
type TaskStore interface {
	// Create assigns TaskID and stores the task as given.
	Create(ctx context.Context, task *models.Task) error
	Get(ctx context.Context, taskID int64) (*models.Task, error)
	DueReminders(ctx context.Context, now time.Time) ([]*models.Task, error)
	DueFollowups(ctx context.Context, now time.Time) ([]*models.Task, error)
	MarkReminderSent(ctx context.Context, taskID int64) error
	// UnmarkReminderSent clears the flag of a task whose follow-up has not gone out.
	UnmarkReminderSent(ctx context.Context, taskID int64) error
	MarkFollowupSent(ctx context.Context, taskID int64) error
	MarkCompleted(ctx context.Context, taskID int64) error
	// ListFor returns incomplete tasks by ascending target, or with includeCompleted
	// the latest limit tasks by descending target. A limit <= 0 returns them all.
	ListFor(ctx context.Context, chatID int64, includeCompleted bool, limit int) ([]*models.Task, error)
	CountPending(ctx context.Context, chatID int64) (int, error)
	// Prune deletes finished tasks whose target is before the cutoff.
	Prune(ctx context.Context, before time.Time) (int, error)
}

// RecipientStore persists the single active recipient.
type RecipientStore interface {
	LoadRecipient(ctx context.Context) (chatID int64, ok bool, err error)
	SaveRecipient(ctx context.Context, chatID int64) error
}
