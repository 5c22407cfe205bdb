// Package tasks owns the one-off task lifecycle: pending, reminder sent,
// follow-up sent, completed.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hray3182/coachline/internal/clock"
	"github.com/hray3182/coachline/internal/format"
	"github.com/hray3182/coachline/internal/models"
	"github.com/hray3182/coachline/internal/notify"
	"github.com/hray3182/coachline/internal/repository"
)

var (
	// ErrPastTime is returned for a target that is not in the future.
	ErrPastTime = errors.New("target time is not in the future")
	// ErrStore wraps every persistence failure.
	ErrStore = errors.New("task store failure")
)

type Manager struct {
	store        repository.TaskStore
	notifier     notify.Notifier
	clock        clock.Clock
	historyLimit int
}

func NewManager(store repository.TaskStore, notifier notify.Notifier, c clock.Clock, historyLimit int) *Manager {
	return &Manager{
		store:        store,
		notifier:     notifier,
		clock:        c,
		historyLimit: historyLimit,
	}
}

// Create stores a new task. A target less than ReminderLead away is stored with
// its reminder already sent and the notice goes out before Create returns. If
// that send fails the flag is cleared again so the checker retries it.
func (m *Manager) Create(ctx context.Context, chatID int64, description string, target time.Time) (*models.Task, error) {
	now := m.clock.Now()
	if !target.After(now) {
		return nil, ErrPastTime
	}

	task := models.NewTask(chatID, description, target, now)
	immediate := target.Sub(now) < models.ReminderLead
	task.ReminderSent = immediate

	if err := m.store.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("%w: create: %v", ErrStore, err)
	}
	log.Printf("[tasks] created task %d for %d at %s", task.TaskID, chatID, target.Format(time.RFC3339))

	if !immediate {
		return task, nil
	}

	if err := m.notifier.Send(ctx, chatID, format.TaskReminder(task, now)); err != nil {
		log.Printf("[tasks] immediate reminder for task %d failed, leaving it to the checker: %v", task.TaskID, err)
		if err := m.store.UnmarkReminderSent(ctx, task.TaskID); err != nil {
			log.Printf("[tasks] failed to clear reminder flag of task %d: %v", task.TaskID, err)
		} else {
			task.ReminderSent = false
		}
	}
	return task, nil
}

// List returns the chat's incomplete tasks, soonest first.
func (m *Manager) List(ctx context.Context, chatID int64) ([]*models.Task, error) {
	tasks, err := m.store.ListFor(ctx, chatID, false, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", ErrStore, err)
	}
	return tasks, nil
}

// History returns the chat's most recent tasks, latest target first.
func (m *Manager) History(ctx context.Context, chatID int64) ([]*models.Task, error) {
	tasks, err := m.store.ListFor(ctx, chatID, true, m.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: history: %v", ErrStore, err)
	}
	return tasks, nil
}

// Complete marks a task done. Nothing in the chat flow calls it yet.
func (m *Manager) Complete(ctx context.Context, taskID int64) error {
	if err := m.store.MarkCompleted(ctx, taskID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: complete: %v", ErrStore, err)
	}
	return nil
}

func (m *Manager) PendingCount(ctx context.Context, chatID int64) (int, error) {
	n, err := m.store.CountPending(ctx, chatID)
	if err != nil {
		return 0, fmt.Errorf("%w: count: %v", ErrStore, err)
	}
	return n, nil
}
