package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// bareHourRe matches an hour with no minutes or meridiem, which when leaves alone.
var bareHourRe = regexp.MustCompile(`(?i)^(?:at\s+)?(\d{1,2})(?:\s*o'clock)?$`)

// Resolution is a date-time found in a phrase.
type Resolution struct {
	Time time.Time
	// HasZone is set when the phrase named its own zone or offset. Without it the
	// wall clock of Time is read in the civil zone.
	HasZone bool
}

// Resolver turns a natural-language time phrase into a date-time relative to ref.
type Resolver interface {
	Resolve(phrase string, ref time.Time, preferFuture bool) (Resolution, bool, error)
}

// WhenResolver resolves English phrases with olebedev/when.
type WhenResolver struct {
	w *when.Parser
}

func NewWhenResolver() *WhenResolver {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &WhenResolver{w: w}
}

func (r *WhenResolver) Resolve(phrase string, ref time.Time, preferFuture bool) (Resolution, bool, error) {
	res, err := r.w.Parse(phrase, ref)
	if err != nil {
		return Resolution{}, false, fmt.Errorf("failed to resolve %q: %w", phrase, err)
	}
	if res == nil {
		if t, ok := resolveBareHour(phrase, ref); ok {
			return Resolution{Time: t}, true, nil
		}
		return Resolution{}, false, nil
	}

	t := res.Time
	// A bare clock time that already passed today means the next one.
	if preferFuture && !t.After(ref) && sameDate(t, ref) && !mentionsDay(phrase) {
		t = t.AddDate(0, 0, 1)
	}
	return Resolution{Time: t}, true, nil
}

// resolveBareHour reads "at 9" as the nearest future 9:00 or 21:00.
func resolveBareHour(phrase string, ref time.Time) (time.Time, bool) {
	m := bareHourRe.FindStringSubmatch(strings.TrimSpace(phrase))
	if m == nil {
		return time.Time{}, false
	}
	hour, err := strconv.Atoi(m[1])
	if err != nil || hour > 23 {
		return time.Time{}, false
	}

	hours := []int{hour}
	if hour >= 1 && hour <= 12 {
		hours = []int{hour % 12, hour%12 + 12}
	}

	var best time.Time
	for _, h := range hours {
		t := time.Date(ref.Year(), ref.Month(), ref.Day(), h, 0, 0, 0, ref.Location())
		if !t.After(ref) {
			t = t.AddDate(0, 0, 1)
		}
		if best.IsZero() || t.Before(best) {
			best = t
		}
	}
	return best, true
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
