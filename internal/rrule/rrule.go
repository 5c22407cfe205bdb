package rrule

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/hray3182/coachline/internal/models"
)

// ParseRRule parses an RFC 5545 RRULE string anchored at dtstart in loc.
func ParseRRule(ruleStr string, dtstart time.Time, loc *time.Location) (*rrule.RRule, error) {
	ruleStr = strings.TrimPrefix(ruleStr, "RRULE:")

	opt, err := rrule.StrToROption(ruleStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RRULE: %w", err)
	}

	// Keep the wall clock of dtstart and pin it to the civil zone.
	opt.Dtstart = time.Date(
		dtstart.Year(), dtstart.Month(), dtstart.Day(),
		dtstart.Hour(), dtstart.Minute(), dtstart.Second(), 0,
		loc,
	)
	return rrule.NewRRule(*opt)
}

// RRuleBuilder creates an RRULE string from components
type RRuleBuilder struct {
	Freq     rrule.Frequency
	Interval int
	ByHour   []int
	ByMinute []int
}

func (b *RRuleBuilder) String() string {
	freqMap := map[rrule.Frequency]string{
		rrule.HOURLY:  "HOURLY",
		rrule.DAILY:   "DAILY",
		rrule.WEEKLY:  "WEEKLY",
		rrule.MONTHLY: "MONTHLY",
		rrule.YEARLY:  "YEARLY",
	}
	parts := []string{fmt.Sprintf("FREQ=%s", freqMap[b.Freq])}

	if b.Interval > 1 {
		parts = append(parts, fmt.Sprintf("INTERVAL=%d", b.Interval))
	}
	if len(b.ByHour) > 0 {
		parts = append(parts, "BYHOUR="+joinInts(b.ByHour))
	}
	if len(b.ByMinute) > 0 {
		parts = append(parts, "BYMINUTE="+joinInts(b.ByMinute))
	}
	parts = append(parts, "BYSECOND=0")

	return strings.Join(parts, ";")
}

func joinInts(values []int) string {
	s := make([]string, len(values))
	for i, v := range values {
		s[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(s, ",")
}

// DailyRuleString returns the RRULE for an HH:MM time of day.
func DailyRuleString(timeOfDay string) (string, error) {
	t, err := time.Parse("15:04", timeOfDay)
	if err != nil {
		return "", fmt.Errorf("invalid time of day %q: %w", timeOfDay, err)
	}
	b := RRuleBuilder{
		Freq:     rrule.DAILY,
		ByHour:   []int{t.Hour()},
		ByMinute: []int{t.Minute()},
	}
	return b.String(), nil
}

// NextOccurrence returns the first firing of event strictly after the given time.
func NextOccurrence(event models.RecurringEvent, after time.Time) (time.Time, error) {
	ruleStr, err := DailyRuleString(event.TimeOfDay)
	if err != nil {
		return time.Time{}, err
	}

	loc := after.Location()
	// Anchor one day back so an occurrence later today is never skipped.
	anchor := time.Date(after.Year(), after.Month(), after.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -1)
	rule, err := ParseRRule(ruleStr, anchor, loc)
	if err != nil {
		return time.Time{}, err
	}

	next := rule.After(after, false)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("no occurrence of %s after %s", event.Name, after.Format(time.RFC3339))
	}
	return next, nil
}

// Occurrence pairs an event with its next firing time.
type Occurrence struct {
	Event models.RecurringEvent
	At    time.Time
}

// UpcomingToday lists the events still to fire on now's civil date, earliest first.
func UpcomingToday(events []models.RecurringEvent, now time.Time) []Occurrence {
	var upcoming []Occurrence
	for _, e := range events {
		next, err := NextOccurrence(e, now)
		if err != nil {
			continue
		}
		if next.Year() == now.Year() && next.YearDay() == now.YearDay() {
			upcoming = append(upcoming, Occurrence{Event: e, At: next})
		}
	}
	sort.Slice(upcoming, func(i, j int) bool { return upcoming[i].At.Before(upcoming[j].At) })
	return upcoming
}

// NextEvent returns the soonest event after now, wrapping to tomorrow if needed.
func NextEvent(events []models.RecurringEvent, now time.Time) (Occurrence, bool) {
	var best Occurrence
	found := false
	for _, e := range events {
		next, err := NextOccurrence(e, now)
		if err != nil {
			continue
		}
		if !found || next.Before(best.At) {
			best = Occurrence{Event: e, At: next}
			found = true
		}
	}
	return best, found
}

// HumanReadable returns an English description of a daily rule.
func HumanReadable(event models.RecurringEvent) string {
	return "every day at " + event.TimeOfDay
}
