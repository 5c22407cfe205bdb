package assistant

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hray3182/coachline/internal/clock"
	"github.com/hray3182/coachline/internal/format"
	"github.com/hray3182/coachline/internal/notify"
	"github.com/hray3182/coachline/internal/parser"
	"github.com/hray3182/coachline/internal/repository"
	"github.com/hray3182/coachline/internal/state"
	"github.com/hray3182/coachline/internal/tasks"
)

type kickCounter struct{ n int }

func (k *kickCounter) Notify() { k.n++ }

type fixture struct {
	assistant *Assistant
	store     *repository.BoltStore
	notifier  *notify.Recorder
	state     *state.State
	kicks     *kickCounter
	loc       *time.Location
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	store, err := repository.NewBoltStore(filepath.Join(t.TempDir(), "coachline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	c := clock.NewManual(now)
	rec := &notify.Recorder{}
	st := state.New()
	kicks := &kickCounter{}
	p := parser.New(parser.NewWhenResolver(), c, now.Location())
	m := tasks.NewManager(store, rec, c, 10)

	return &fixture{
		assistant: New(st, store, p, m, kicks),
		store:     store,
		notifier:  rec,
		state:     st,
		kicks:     kicks,
		loc:       now.Location(),
	}
}

func kolkata(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	return loc
}

func TestActivateAndRestoreRecipient(t *testing.T) {
	f := newFixture(t, time.Date(2024, 1, 1, 10, 0, 0, 0, kolkata(t)))
	ctx := context.Background()

	require.NoError(t, f.assistant.Restore(ctx))
	_, ok := f.state.Recipient()
	assert.False(t, ok)

	require.NoError(t, f.assistant.ActivateRecipient(ctx, 99))

	fresh := state.New()
	restored := New(fresh, f.store, nil, nil, nil)
	require.NoError(t, restored.Restore(ctx))
	id, ok := fresh.Recipient()
	assert.True(t, ok)
	assert.Equal(t, int64(99), id)
}

func TestOnUserText_CreatesTask(t *testing.T) {
	loc := kolkata(t)
	f := newFixture(t, time.Date(2024, 1, 1, 10, 0, 0, 0, loc))

	out := f.assistant.OnUserText(context.Background(), 7, "remind me to call doctor at 5 PM tomorrow")
	require.Equal(t, KindTask, out.Kind, out.Reply)
	require.NotNil(t, out.Task)
	assert.Equal(t, "call doctor", out.Task.Description)
	assert.True(t, out.Task.TargetAt.Equal(time.Date(2024, 1, 2, 17, 0, 0, 0, loc)))
	assert.False(t, out.Task.ReminderSent)
	assert.Contains(t, out.Reply, "Task Scheduled")
	assert.Empty(t, f.notifier.Sent())

	st := f.assistant.Status(context.Background())
	assert.Zero(t, st.Pending, "no recipient yet")
}

func TestOnUserText_NearTaskSendsNow(t *testing.T) {
	loc := kolkata(t)
	f := newFixture(t, time.Date(2024, 1, 1, 10, 0, 0, 0, loc))

	out := f.assistant.OnUserText(context.Background(), 7, "remind me to take pills in 30 minutes")
	require.Equal(t, KindTask, out.Kind, out.Reply)
	assert.True(t, out.Task.ReminderSent)
	assert.Len(t, f.notifier.Sent(), 1)
	assert.Zero(t, f.kicks.n)
}

func TestOnUserText_FailedImmediateSendKicksChecker(t *testing.T) {
	loc := kolkata(t)
	f := newFixture(t, time.Date(2024, 1, 1, 10, 0, 0, 0, loc))
	f.notifier.FailWith(errors.New("telegram down"))

	out := f.assistant.OnUserText(context.Background(), 7, "remind me to take pills in 30 minutes")
	require.Equal(t, KindTask, out.Kind, out.Reply)
	assert.False(t, out.Task.ReminderSent)
	assert.Equal(t, 1, f.kicks.n)
}

func TestOnUserText_ParseFailure(t *testing.T) {
	f := newFixture(t, time.Date(2024, 1, 1, 10, 0, 0, 0, kolkata(t)))

	out := f.assistant.OnUserText(context.Background(), 7, "remind me to buy milk")
	assert.Equal(t, KindTaskFailed, out.Kind)
	assert.Equal(t, format.ParseFailureReply, out.Reply)
	assert.ErrorIs(t, out.Err, parser.ErrNoTime)
}

func TestOnUserText_Workout(t *testing.T) {
	f := newFixture(t, time.Date(2024, 1, 1, 10, 0, 0, 0, kolkata(t)))

	out := f.assistant.OnUserText(context.Background(), 7, "Workout done 💪")
	assert.Equal(t, KindWorkout, out.Kind)
	assert.True(t, f.state.WorkoutDone())
}

func TestOnUserText_Ignored(t *testing.T) {
	f := newFixture(t, time.Date(2024, 1, 1, 10, 0, 0, 0, kolkata(t)))

	out := f.assistant.OnUserText(context.Background(), 7, "how much paneer can I eat?")
	assert.Equal(t, KindIgnored, out.Kind)
	assert.Empty(t, out.Reply)
	assert.Equal(t, "ignored", out.Kind.String())
}

func TestStatus_CountsPendingForRecipient(t *testing.T) {
	loc := kolkata(t)
	f := newFixture(t, time.Date(2024, 1, 1, 10, 0, 0, 0, loc))
	ctx := context.Background()
	require.NoError(t, f.assistant.ActivateRecipient(ctx, 7))

	f.assistant.OnUserText(ctx, 7, "remind me to stretch at 6 PM")
	f.assistant.OnUserText(ctx, 7, "remind me to sleep at 10 PM")
	f.assistant.OnUserText(ctx, 8, "remind me to other at 10 PM")

	st := f.assistant.Status(ctx)
	assert.Equal(t, 2, st.Pending)
	assert.Equal(t, int64(7), st.Recipient)
}
