package scheduler

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
	"github.com/hray3182/coachline/internal/rrule"
	"github.com/hray3182/coachline/internal/state"
)

// ErrInterval is returned for a daily tick interval that could skip a minute.
var ErrInterval = errors.New("daily scheduler interval must be between 0 and 1m")

// Daily sends each recurring prompt once per civil day, during its exact minute.
type Daily struct {
	events   []models.RecurringEvent
	state    *state.State
	notifier notify.Notifier
	clock    clock.Clock
	interval time.Duration

	lastMinute string
}

func NewDaily(events []models.RecurringEvent, st *state.State, notifier notify.Notifier, c clock.Clock, interval time.Duration) (*Daily, error) {
	if interval <= 0 || interval >= time.Minute {
		return nil, fmt.Errorf("%w, got %s", ErrInterval, interval)
	}
	st.SeedDay(c.Now().Format(time.DateOnly))
	return &Daily{
		events:   events,
		state:    st,
		notifier: notifier,
		clock:    c,
		interval: interval,
	}, nil
}

func (d *Daily) Run(ctx context.Context) {
	d.state.SetRunning(true)
	defer d.state.SetRunning(false)

	log.Printf("[daily] started at %s, interval %s", d.clock.Now().Format(time.DateTime), d.interval)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.safeTick(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("[daily] stopped")
			return
		case <-ticker.C:
			d.safeTick(ctx)
		}
	}
}

func (d *Daily) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			n := d.state.RecordError()
			log.Printf("[daily] tick panicked (errors=%d): %v", n, r)
		}
	}()
	if err := d.Tick(ctx); err != nil {
		n := d.state.RecordError()
		log.Printf("[daily] tick failed (errors=%d): %v", n, err)
	}
}

// Tick runs one pass: day rollover, then any event due this minute that has not
// fired today. Nothing is sent while there is no recipient.
func (d *Daily) Tick(ctx context.Context) error {
	now := d.clock.Now()
	current := now.Format("15:04")

	next, hasNext := rrule.NextEvent(d.events, now)
	d.state.Checked(now, next.Event.Name, next.At)
	if current != d.lastMinute {
		d.lastMinute = current
		d.logSnapshot(now, next, hasNext)
	}

	if d.state.ResetDay(now.Format(time.DateOnly)) {
		log.Printf("[daily] new day %s, cleared fired set and workout flag", now.Format(time.DateOnly))
	}

	chatID, ok := d.state.Recipient()
	if !ok {
		return nil
	}

	var errs []error
	for _, event := range d.events {
		if event.TimeOfDay != current || d.state.Fired(event.Name) {
			continue
		}
		log.Printf("[daily] trigger %s at %s", event.Name, current)
		if err := d.Fire(ctx, chatID, event); err != nil {
			errs = append(errs, err)
			continue
		}
		d.state.MarkFired(event.Name)
	}
	return errors.Join(errs...)
}

// Fire sends the prompt for event to chatID right away.
func (d *Daily) Fire(ctx context.Context, chatID int64, event models.RecurringEvent) error {
	now := d.clock.Now()
	if err := d.notifier.Send(ctx, chatID, format.MealPrompt(event, now)); err != nil {
		return fmt.Errorf("failed to send %s: %w", event.Name, err)
	}
	d.state.RecordSent(fmt.Sprintf("%s at %s", event.Name, now.Format("03:04:05 PM MST")), now)
	log.Printf("[daily] sent %s to %d", event.Name, chatID)
	return nil
}

func (d *Daily) Events() []models.RecurringEvent {
	return d.events
}

func (d *Daily) logSnapshot(now time.Time, next rrule.Occurrence, hasNext bool) {
	snap := d.state.Snapshot()
	recipient := "NONE"
	if snap.HasRecipient {
		recipient = fmt.Sprintf("%d", snap.Recipient)
	}
	nextLine := "none"
	if hasNext {
		nextLine = fmt.Sprintf("%s in %s (%s)", next.Event.Name, format.Duration(next.At.Sub(now)), next.Event.TimeOfDay)
	}
	log.Printf("[daily] %s chat=%s next=%s fired_today=%d", now.Format("15:04"), recipient, nextLine, len(snap.FiredToday))
}
