package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	rcron "github.com/robfig/cron/v3"

	"github.com/hray3182/coachline/internal/clock"
	"github.com/hray3182/coachline/internal/repository"
)

// Retention deletes finished tasks older than a number of days on a cron schedule.
type Retention struct {
	store repository.TaskStore
	clock clock.Clock
	days  int
	cron  *rcron.Cron
}

// NewRetention schedules the prune job in loc. Zero days disables pruning.
func NewRetention(store repository.TaskStore, c clock.Clock, loc *time.Location, days int, schedule string) (*Retention, error) {
	r := &Retention{
		store: store,
		clock: c,
		days:  days,
		cron:  rcron.New(rcron.WithLocation(loc)),
	}
	if days == 0 {
		return r, nil
	}

	_, err := r.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := r.Prune(ctx); err != nil {
			log.Printf("[retention] prune failed: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid PRUNE_SCHEDULE %q: %w", schedule, err)
	}
	return r, nil
}

// Prune removes finished tasks whose target is more than the retention window ago.
func (r *Retention) Prune(ctx context.Context) (int, error) {
	if r.days == 0 {
		return 0, nil
	}
	cutoff := r.clock.Now().AddDate(0, 0, -r.days)
	n, err := r.store.Prune(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	log.Printf("[retention] pruned %d tasks finished before %s", n, cutoff.Format(time.DateOnly))
	return n, nil
}

func (r *Retention) Run(ctx context.Context) {
	if r.days == 0 {
		log.Println("[retention] disabled")
		return
	}
	r.cron.Start()
	log.Printf("[retention] started, keeping %d days", r.days)

	<-ctx.Done()
	stopCtx := r.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		log.Printf("[retention] stop timeout waiting for running prune")
	}
	log.Println("[retention] stopped")
}
