package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hray3182/coachline/internal/clock"
	"github.com/hray3182/coachline/internal/models"
	"github.com/hray3182/coachline/internal/notify"
	"github.com/hray3182/coachline/internal/state"
)

func kolkata(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	return loc
}

func newDaily(t *testing.T, events []models.RecurringEvent, start time.Time) (*Daily, *state.State, *notify.Recorder, *clock.Manual) {
	t.Helper()
	st := state.New()
	rec := &notify.Recorder{}
	c := clock.NewManual(start)
	d, err := NewDaily(events, st, rec, c, 10*time.Second)
	require.NoError(t, err)
	return d, st, rec, c
}

// runTicks advances the clock in 10s steps until end, ticking each time.
func runTicks(t *testing.T, d *Daily, c *clock.Manual, end time.Time) {
	t.Helper()
	for !c.Now().After(end) {
		require.NoError(t, d.Tick(context.Background()))
		c.Advance(10 * time.Second)
	}
}

func TestNewDaily_RejectsCoarseInterval(t *testing.T) {
	c := clock.NewManual(time.Now())
	for _, interval := range []time.Duration{0, -time.Second, time.Minute, 2 * time.Minute} {
		_, err := NewDaily(models.DefaultSchedule(), state.New(), &notify.Recorder{}, c, interval)
		assert.ErrorIs(t, err, ErrInterval, interval.String())
	}
}

func TestDaily_FiresOncePerDayDuringItsMinute(t *testing.T) {
	loc := kolkata(t)
	events := []models.RecurringEvent{{Name: "lunch", TimeOfDay: "13:00", Title: "Lunch"}}
	d, st, rec, c := newDaily(t, events, time.Date(2024, 1, 1, 12, 58, 0, 0, loc))
	st.SetRecipient(7)

	runTicks(t, d, c, time.Date(2024, 1, 1, 13, 5, 0, 0, loc))

	sent := rec.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, int64(7), sent[0].ChatID)
	assert.Contains(t, sent[0].Text, "Lunch")
	assert.True(t, st.Fired("lunch"))
}

func TestDaily_FiresAgainAfterMidnight(t *testing.T) {
	loc := kolkata(t)
	events := []models.RecurringEvent{{Name: "morning_routine", TimeOfDay: "08:00", Title: "Morning"}}
	d, st, rec, c := newDaily(t, events, time.Date(2024, 1, 1, 7, 59, 0, 0, loc))
	st.SetRecipient(7)

	runTicks(t, d, c, time.Date(2024, 1, 1, 8, 2, 0, 0, loc))
	require.Len(t, rec.Sent(), 1)

	c.Set(time.Date(2024, 1, 1, 23, 59, 30, 0, loc))
	runTicks(t, d, c, time.Date(2024, 1, 2, 0, 1, 0, 0, loc))
	assert.False(t, st.Fired("morning_routine"))

	c.Set(time.Date(2024, 1, 2, 7, 59, 0, 0, loc))
	runTicks(t, d, c, time.Date(2024, 1, 2, 8, 2, 0, 0, loc))
	assert.Len(t, rec.Sent(), 2)
}

func TestDaily_MidnightEventFiresOnce(t *testing.T) {
	loc := kolkata(t)
	events := []models.RecurringEvent{{Name: "midnight", TimeOfDay: "00:00", Title: "Midnight"}}
	d, st, rec, c := newDaily(t, events, time.Date(2024, 1, 1, 23, 59, 0, 0, loc))
	st.SetRecipient(7)

	runTicks(t, d, c, time.Date(2024, 1, 2, 0, 1, 0, 0, loc))
	assert.Len(t, rec.Sent(), 1)
}

func TestDaily_MidnightClearsWorkoutFlag(t *testing.T) {
	loc := kolkata(t)
	d, st, _, c := newDaily(t, nil, time.Date(2024, 1, 1, 23, 59, 50, 0, loc))
	st.SetWorkoutDone(true)

	require.NoError(t, d.Tick(context.Background()))
	assert.True(t, st.WorkoutDone())

	c.Advance(10 * time.Second)
	require.NoError(t, d.Tick(context.Background()))
	assert.False(t, st.WorkoutDone())
}

func TestDaily_NoRecipientSendsNothing(t *testing.T) {
	loc := kolkata(t)
	events := []models.RecurringEvent{{Name: "lunch", TimeOfDay: "13:00", Title: "Lunch"}}
	d, st, rec, c := newDaily(t, events, time.Date(2024, 1, 1, 13, 0, 0, 0, loc))

	runTicks(t, d, c, time.Date(2024, 1, 1, 13, 1, 0, 0, loc))
	assert.Empty(t, rec.Sent())
	assert.False(t, st.Fired("lunch"))

	snap := st.Snapshot()
	assert.False(t, snap.LastCheck.IsZero())
	assert.Equal(t, "lunch", snap.NextEvent)
}

func TestDaily_FailedSendIsRetriedWithinTheMinute(t *testing.T) {
	loc := kolkata(t)
	events := []models.RecurringEvent{{Name: "snack", TimeOfDay: "16:30", Title: "Snack"}}
	d, st, rec, c := newDaily(t, events, time.Date(2024, 1, 1, 16, 30, 0, 0, loc))
	st.SetRecipient(7)

	rec.FailWith(errors.New("telegram down"))
	assert.Error(t, d.Tick(context.Background()))
	assert.False(t, st.Fired("snack"))

	rec.FailWith(nil)
	c.Advance(10 * time.Second)
	require.NoError(t, d.Tick(context.Background()))
	assert.True(t, st.Fired("snack"))
	assert.Len(t, rec.Sent(), 1)
}

func TestDaily_SkippedMinuteIsNotCaughtUp(t *testing.T) {
	loc := kolkata(t)
	events := []models.RecurringEvent{{Name: "lunch", TimeOfDay: "13:00", Title: "Lunch"}}
	d, st, rec, c := newDaily(t, events, time.Date(2024, 1, 1, 12, 59, 50, 0, loc))
	st.SetRecipient(7)

	require.NoError(t, d.Tick(context.Background()))
	c.Set(time.Date(2024, 1, 1, 13, 1, 0, 0, loc))
	require.NoError(t, d.Tick(context.Background()))
	assert.Empty(t, rec.Sent())
}

func TestDaily_Fire(t *testing.T) {
	loc := kolkata(t)
	d, st, rec, _ := newDaily(t, models.DefaultSchedule(), time.Date(2024, 1, 1, 10, 0, 0, 0, loc))

	event, ok := models.Lookup(d.Events(), "night_craving")
	require.True(t, ok)
	require.NoError(t, d.Fire(context.Background(), 9, event))

	require.Len(t, rec.Sent(), 1)
	assert.Equal(t, int64(9), rec.Sent()[0].ChatID)
	assert.Contains(t, st.Snapshot().LastSent, "night_craving")
	assert.False(t, st.Fired("night_craving"))
}

func TestDaily_RunStopsOnCancel(t *testing.T) {
	loc := kolkata(t)
	d, st, _, _ := newDaily(t, nil, time.Date(2024, 1, 1, 10, 0, 0, 0, loc))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return st.Snapshot().Running }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, st.Snapshot().Running)
}
