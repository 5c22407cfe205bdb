// Package scheduler runs the background loops: the daily prompt scheduler, the
// task reminder checker and the retention job.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hray3182/coachline/internal/clock"
	"github.com/hray3182/coachline/internal/format"
	"github.com/hray3182/coachline/internal/notify"
	"github.com/hray3182/coachline/internal/repository"
	"github.com/hray3182/coachline/internal/state"
)

// Checker polls the task store and sends due reminders and follow-ups. A flag is
// set only after the message went out, so a failed send is retried next tick.
type Checker struct {
	store    repository.TaskStore
	notifier notify.Notifier
	clock    clock.Clock
	state    *state.State
	interval time.Duration
	notifyCh chan struct{}
}

func NewChecker(store repository.TaskStore, notifier notify.Notifier, c clock.Clock, st *state.State, interval time.Duration) *Checker {
	return &Checker{
		store:    store,
		notifier: notifier,
		clock:    c,
		state:    st,
		interval: interval,
		notifyCh: make(chan struct{}, 1),
	}
}

// Notify triggers an immediate check. Non-blocking if a check is already pending.
func (c *Checker) Notify() {
	select {
	case c.notifyCh <- struct{}{}:
	default:
	}
}

func (c *Checker) Run(ctx context.Context) {
	log.Printf("[checker] started, interval %s", c.interval)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.safeTick(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("[checker] stopped")
			return
		case <-ticker.C:
			c.safeTick(ctx)
		case <-c.notifyCh:
			c.safeTick(ctx)
		}
	}
}

func (c *Checker) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			n := c.state.RecordError()
			log.Printf("[checker] tick panicked (errors=%d): %v", n, r)
		}
	}()
	if err := c.Tick(ctx); err != nil {
		n := c.state.RecordError()
		log.Printf("[checker] tick failed (errors=%d): %v", n, err)
	}
}

// Tick sends every due reminder, then every due follow-up.
func (c *Checker) Tick(ctx context.Context) error {
	now := c.clock.Now()

	reminders, err := c.store.DueReminders(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to get due reminders: %w", err)
	}
	for _, task := range reminders {
		if err := c.notifier.Send(ctx, task.ChatID, format.TaskReminder(task, now)); err != nil {
			c.state.RecordError()
			log.Printf("[checker] failed to send reminder for task %d: %v", task.TaskID, err)
			continue
		}
		if err := c.store.MarkReminderSent(ctx, task.TaskID); err != nil {
			log.Printf("[checker] failed to mark reminder of task %d: %v", task.TaskID, err)
			continue
		}
		c.state.RecordSent(fmt.Sprintf("reminder: %s", task.Description), now)
		log.Printf("[checker] sent reminder for task %d to %d", task.TaskID, task.ChatID)
	}

	followups, err := c.store.DueFollowups(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to get due follow-ups: %w", err)
	}
	for _, task := range followups {
		if err := c.notifier.Send(ctx, task.ChatID, format.TaskFollowup(task)); err != nil {
			c.state.RecordError()
			log.Printf("[checker] failed to send follow-up for task %d: %v", task.TaskID, err)
			continue
		}
		if err := c.store.MarkFollowupSent(ctx, task.TaskID); err != nil {
			log.Printf("[checker] failed to mark follow-up of task %d: %v", task.TaskID, err)
			continue
		}
		c.state.RecordSent(fmt.Sprintf("follow-up: %s", task.Description), now)
		log.Printf("[checker] sent follow-up for task %d to %d", task.TaskID, task.ChatID)
	}
	return nil
}
