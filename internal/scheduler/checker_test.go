package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hray3182/coachline/internal/clock"
	"github.com/hray3182/coachline/internal/models"
	"github.com/hray3182/coachline/internal/notify"
	"github.com/hray3182/coachline/internal/repository"
	"github.com/hray3182/coachline/internal/state"
)

var base = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func newStore(t *testing.T) *repository.BoltStore {
	t.Helper()
	store, err := repository.NewBoltStore(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func addTask(t *testing.T, store repository.TaskStore, desc string, target time.Time) *models.Task {
	t.Helper()
	task := models.NewTask(7, desc, target, base)
	require.NoError(t, store.Create(context.Background(), task))
	return task
}

func TestChecker_ReminderThenFollowup(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	rec := &notify.Recorder{}
	c := clock.NewManual(base)
	checker := NewChecker(store, rec, c, state.New(), 30*time.Second)

	task := addTask(t, store, "dentist", base.Add(3*time.Hour))

	require.NoError(t, checker.Tick(ctx))
	assert.Empty(t, rec.Sent(), "reminder window not open yet")

	c.Set(base.Add(2 * time.Hour))
	require.NoError(t, checker.Tick(ctx))
	require.Len(t, rec.Sent(), 1)
	assert.Contains(t, rec.Sent()[0].Text, "Task Reminder")

	got, err := store.Get(ctx, task.TaskID)
	require.NoError(t, err)
	assert.True(t, got.ReminderSent)
	assert.False(t, got.FollowupSent)

	c.Set(base.Add(3*time.Hour + 15*time.Minute))
	require.NoError(t, checker.Tick(ctx))
	require.Len(t, rec.Sent(), 2)
	assert.Contains(t, rec.Sent()[1].Text, "Did you finish: dentist?")

	got, err = store.Get(ctx, task.TaskID)
	require.NoError(t, err)
	assert.True(t, got.FollowupSent)

	require.NoError(t, checker.Tick(ctx))
	assert.Len(t, rec.Sent(), 2, "nothing is sent twice")
}

func TestChecker_OverdueTaskGetsReminderBeforeFollowup(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	rec := &notify.Recorder{}
	checker := NewChecker(store, rec, clock.NewManual(base.Add(5*time.Hour)), state.New(), 30*time.Second)

	addTask(t, store, "overdue", base.Add(time.Hour))

	require.NoError(t, checker.Tick(ctx))
	sent := rec.Sent()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[0].Text, "Task Reminder")
	assert.Contains(t, sent[1].Text, "Quick Check-in")
}

func TestChecker_FailedSendLeavesFlagUnset(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	rec := &notify.Recorder{}
	st := state.New()
	checker := NewChecker(store, rec, clock.NewManual(base.Add(2*time.Hour)), st, 30*time.Second)

	task := addTask(t, store, "dentist", base.Add(3*time.Hour))

	rec.FailWith(errors.New("telegram down"))
	require.NoError(t, checker.Tick(ctx))

	got, err := store.Get(ctx, task.TaskID)
	require.NoError(t, err)
	assert.False(t, got.ReminderSent)
	assert.Equal(t, 1, st.Snapshot().ErrorCount)

	rec.FailWith(nil)
	require.NoError(t, checker.Tick(ctx))
	got, err = store.Get(ctx, task.TaskID)
	require.NoError(t, err)
	assert.True(t, got.ReminderSent)
	assert.Len(t, rec.Sent(), 1)
}

func TestChecker_CompletedTasksAreSkipped(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	rec := &notify.Recorder{}
	checker := NewChecker(store, rec, clock.NewManual(base.Add(5*time.Hour)), state.New(), 30*time.Second)

	task := addTask(t, store, "done already", base.Add(2*time.Hour))
	require.NoError(t, store.MarkCompleted(ctx, task.TaskID))

	require.NoError(t, checker.Tick(ctx))
	assert.Empty(t, rec.Sent())
}

type failingStore struct {
	repository.TaskStore
}

func (failingStore) DueReminders(ctx context.Context, now time.Time) ([]*models.Task, error) {
	return nil, errors.New("store offline")
}

func TestChecker_StoreErrorIsCountedNotFatal(t *testing.T) {
	st := state.New()
	checker := NewChecker(failingStore{}, &notify.Recorder{}, clock.NewManual(base), st, 30*time.Second)

	assert.Error(t, checker.Tick(context.Background()))
	checker.safeTick(context.Background())
	assert.Equal(t, 1, st.Snapshot().ErrorCount)
}

type panickingStore struct {
	repository.TaskStore
}

func (panickingStore) DueReminders(ctx context.Context, now time.Time) ([]*models.Task, error) {
	panic("corrupt row")
}

func TestChecker_PanicIsRecovered(t *testing.T) {
	st := state.New()
	checker := NewChecker(panickingStore{}, &notify.Recorder{}, clock.NewManual(base), st, 30*time.Second)

	assert.NotPanics(t, func() { checker.safeTick(context.Background()) })
	assert.Equal(t, 1, st.Snapshot().ErrorCount)
}

func TestChecker_NotifyTriggersTick(t *testing.T) {
	store := newStore(t)
	rec := &notify.Recorder{}
	c := clock.NewManual(base)
	checker := NewChecker(store, rec, c, state.New(), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go checker.Run(ctx)

	addTask(t, store, "soon", base.Add(30*time.Minute))
	checker.Notify()

	require.Eventually(t, func() bool { return len(rec.Sent()) == 1 }, 2*time.Second, 10*time.Millisecond)
}
