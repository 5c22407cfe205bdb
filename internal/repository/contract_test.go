package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hray3182/coachline/internal/models"
)

var base = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

type storeFactory func(t *testing.T) TaskStore

func runTaskStoreContract(t *testing.T, newStore storeFactory) {
	t.Run("CreateAssignsMonotonicIDs", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		a := models.NewTask(1, "first", base.Add(3*time.Hour), base)
		b := models.NewTask(1, "second", base.Add(4*time.Hour), base)
		require.NoError(t, s.Create(ctx, a))
		require.NoError(t, s.Create(ctx, b))

		assert.NotZero(t, a.TaskID)
		assert.Greater(t, b.TaskID, a.TaskID)

		got, err := s.Get(ctx, a.TaskID)
		require.NoError(t, err)
		assert.Equal(t, "first", got.Description)
		assert.True(t, got.TargetAt.Equal(a.TargetAt))
		assert.True(t, got.ReminderAt.Equal(a.TargetAt.Add(-time.Hour)))
		assert.True(t, got.FollowupAt.Equal(a.TargetAt.Add(15*time.Minute)))
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(context.Background(), 9999)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("DueRemindersVisibility", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		due := models.NewTask(1, "due", base.Add(30*time.Minute), base.Add(-time.Hour))
		later := models.NewTask(1, "later", base.Add(3*time.Hour), base)
		sent := models.NewTask(1, "sent", base.Add(20*time.Minute), base.Add(-time.Hour))
		sent.ReminderSent = true
		done := models.NewTask(1, "done", base.Add(10*time.Minute), base.Add(-time.Hour))
		done.Completed = true
		for _, task := range []*models.Task{due, later, sent, done} {
			require.NoError(t, s.Create(ctx, task))
		}

		tasks, err := s.DueReminders(ctx, base)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, due.TaskID, tasks[0].TaskID)
		for _, task := range tasks {
			assert.False(t, task.ReminderAt.After(base))
			assert.False(t, task.ReminderSent)
		}

		// The window opens exactly one hour before the target.
		tasks, err = s.DueReminders(ctx, base.Add(2*time.Hour))
		require.NoError(t, err)
		assert.Len(t, tasks, 2)
	})

	t.Run("DueFollowupsNeedReminder", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		target := base.Add(-30 * time.Minute)
		noReminder := models.NewTask(1, "no reminder", target, base.Add(-2*time.Hour))
		withReminder := models.NewTask(1, "with reminder", target, base.Add(-2*time.Hour))
		withReminder.ReminderSent = true
		require.NoError(t, s.Create(ctx, noReminder))
		require.NoError(t, s.Create(ctx, withReminder))

		tasks, err := s.DueFollowups(ctx, base)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, withReminder.TaskID, tasks[0].TaskID)

		assert.ErrorIs(t, s.MarkFollowupSent(ctx, noReminder.TaskID), ErrReminderNotSent)

		require.NoError(t, s.MarkFollowupSent(ctx, withReminder.TaskID))
		tasks, err = s.DueFollowups(ctx, base)
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})

	t.Run("MarkReminderSentIdempotent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		task := models.NewTask(1, "twice", base.Add(30*time.Minute), base)
		require.NoError(t, s.Create(ctx, task))

		require.NoError(t, s.MarkReminderSent(ctx, task.TaskID))
		once, err := s.Get(ctx, task.TaskID)
		require.NoError(t, err)

		require.NoError(t, s.MarkReminderSent(ctx, task.TaskID))
		twice, err := s.Get(ctx, task.TaskID)
		require.NoError(t, err)

		assert.Equal(t, once.ReminderSent, twice.ReminderSent)
		assert.Equal(t, once.FollowupSent, twice.FollowupSent)
		assert.Equal(t, once.Completed, twice.Completed)
		assert.True(t, twice.ReminderSent)

		assert.ErrorIs(t, s.MarkReminderSent(ctx, 424242), ErrNotFound)
	})

	t.Run("UnmarkReminderSent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		task := models.NewTask(1, "retry", base.Add(30*time.Minute), base)
		task.ReminderSent = true
		require.NoError(t, s.Create(ctx, task))

		require.NoError(t, s.UnmarkReminderSent(ctx, task.TaskID))
		tasks, err := s.DueReminders(ctx, base)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
	})

	t.Run("MarkCompletedHidesFromQueries", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		task := models.NewTask(1, "finish", base.Add(30*time.Minute), base)
		require.NoError(t, s.Create(ctx, task))
		require.NoError(t, s.MarkCompleted(ctx, task.TaskID))
		require.NoError(t, s.MarkCompleted(ctx, task.TaskID))

		tasks, err := s.DueReminders(ctx, base.Add(time.Hour))
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})

	t.Run("ListFor", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for i := 0; i < 12; i++ {
			task := models.NewTask(7, "task", base.Add(time.Duration(i+2)*time.Hour), base)
			if i == 3 {
				task.Completed = true
			}
			require.NoError(t, s.Create(ctx, task))
		}
		require.NoError(t, s.Create(ctx, models.NewTask(8, "other chat", base.Add(2*time.Hour), base)))

		open, err := s.ListFor(ctx, 7, false, 10)
		require.NoError(t, err)
		require.Len(t, open, 11)
		for i := 1; i < len(open); i++ {
			assert.False(t, open[i].TargetAt.Before(open[i-1].TargetAt), "ascending by target")
			assert.False(t, open[i].Completed)
		}

		recent, err := s.ListFor(ctx, 7, true, 10)
		require.NoError(t, err)
		require.Len(t, recent, 10)
		assert.True(t, recent[0].TargetAt.Equal(base.Add(13*time.Hour)))
		for i := 1; i < len(recent); i++ {
			assert.False(t, recent[i].TargetAt.After(recent[i-1].TargetAt), "descending by target")
		}

		all, err := s.ListFor(ctx, 7, true, 0)
		require.NoError(t, err)
		assert.Len(t, all, 12, "limit 0 means no limit")

		all, err = s.ListFor(ctx, 7, true, -1)
		require.NoError(t, err)
		assert.Len(t, all, 12)

		count, err := s.CountPending(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, 11, count)
	})

	t.Run("Prune", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		old := models.NewTask(1, "old", base.Add(-40*24*time.Hour), base.Add(-41*24*time.Hour))
		old.ReminderSent = true
		old.FollowupSent = true
		oldOpen := models.NewTask(1, "old but open", base.Add(-40*24*time.Hour), base.Add(-41*24*time.Hour))
		recent := models.NewTask(1, "recent", base.Add(-time.Hour), base.Add(-2*time.Hour))
		recent.ReminderSent = true
		recent.FollowupSent = true
		for _, task := range []*models.Task{old, oldOpen, recent} {
			require.NoError(t, s.Create(ctx, task))
		}

		n, err := s.Prune(ctx, base.Add(-30*24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, err = s.Get(ctx, old.TaskID)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.Get(ctx, oldOpen.TaskID)
		assert.NoError(t, err)
	})

	t.Run("ConcurrentMarks", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		var ids []int64
		for i := 0; i < 20; i++ {
			task := models.NewTask(1, "c", base.Add(30*time.Minute), base)
			require.NoError(t, s.Create(ctx, task))
			ids = append(ids, task.TaskID)
		}

		var wg sync.WaitGroup
		for _, id := range ids {
			wg.Add(2)
			go func(id int64) {
				defer wg.Done()
				assert.NoError(t, s.MarkReminderSent(ctx, id))
			}(id)
			go func(id int64) {
				defer wg.Done()
				assert.NoError(t, s.MarkReminderSent(ctx, id))
			}(id)
		}
		wg.Wait()

		tasks, err := s.DueReminders(ctx, base.Add(time.Hour))
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})
}
