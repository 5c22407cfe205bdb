// Package parser extracts a task description and a target date-time from free text
// such as "remind me to call doctor at 5 PM tomorrow".
package parser

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/hray3182/coachline/internal/clock"
)

var (
	ErrEmptyText = errors.New("empty reminder text")
	// ErrNoTime means no date-time could be resolved from the text.
	ErrNoTime = errors.New("could not understand the time")
)

const fallbackDescription = "Reminder"

// Longest first so "remind me to" wins over "remind me".
var triggerPrefixes = []string{
	"please remind me to",
	"remind me to",
	"reminder to",
	"remind me",
	"reminder:",
	"reminder",
	"remind",
}

var (
	keywordRe      = regexp.MustCompile(`(?i)\b(at|on|tomorrow|today|tonight|next|in)\b`)
	dayQualifierRe = regexp.MustCompile(`(?i)\b(tomorrow|tmr|next|monday|tuesday|wednesday|thursday|friday|saturday|sunday|` +
		`january|february|march|april|may|june|july|august|september|october|november|december|days?|weeks?|months?)\b|\d{1,4}[/-]\d{1,2}`)
	clockTokenRe = regexp.MustCompile(`(?i)^\d{1,2}([:.]\d{2})?(am|pm|a\.m\.|p\.m\.|h)?$`)
	workoutRe    = regexp.MustCompile(`(?i)\b(workout|work out|exercise|gym|training)\b.*\b(done|finished|complete|completed)\b|` +
		`\b(done|finished|completed|did)\b.*\b(my )?(workout|exercise|gym|training)\b`)
)

// particles can stand in a temporal run but cannot anchor one: "log in at 9am"
// keeps "in" with the task.
var particles = map[string]bool{"at": true, "on": true, "in": true, "this": true, "a": true, "an": true}

var triggerRe = regexp.MustCompile(`(?i)\b(?:please remind me to|remind me to|reminder to|remind me|reminder:|reminder|remind)(?:\b|\s|$)`)

var temporalWords = map[string]bool{
	"at": true, "on": true, "in": true, "next": true, "this": true,
	"today": true, "tonight": true, "tomorrow": true, "tmr": true,
	"am": true, "pm": true, "a.m.": true, "p.m.": true, "o'clock": true,
	"noon": true, "midnight": true, "morning": true, "afternoon": true, "evening": true, "night": true,
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true, "friday": true, "saturday": true, "sunday": true,
	"minute": true, "minutes": true, "min": true, "mins": true, "hour": true, "hours": true, "hr": true, "hrs": true,
	"day": true, "days": true, "week": true, "weeks": true, "month": true, "months": true,
	"a": true, "an": true, "half": true,
}

// Parser is the task-request parser. It is safe for concurrent use.
type Parser struct {
	resolver Resolver
	clock    clock.Clock
	loc      *time.Location
}

func New(resolver Resolver, c clock.Clock, loc *time.Location) *Parser {
	return &Parser{resolver: resolver, clock: c, loc: loc}
}

// Result is a parsed task request.
type Result struct {
	Description string
	Target      time.Time
	TimePhrase  string
}

// Parse extracts the task description and target time from raw text.
func (p *Parser) Parse(raw string) (Result, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Result{}, ErrEmptyText
	}

	body := stripTrigger(text)
	description, phrase := splitPhrase(body)

	now := p.clock.Now().In(p.loc)
	res, ok, err := p.resolver.Resolve(phrase, now, true)
	if err != nil {
		return Result{}, errors.Join(ErrNoTime, err)
	}
	if !ok {
		return Result{}, ErrNoTime
	}

	target := p.normalize(res)
	target = correctPast(target, now, phrase)

	description = cleanDescription(description)
	if isDegenerate(description) {
		description = recoverDescription(text, phrase)
	}

	return Result{Description: description, Target: target, TimePhrase: phrase}, nil
}

// IsTaskRequest reports whether text asks for a reminder.
func IsTaskRequest(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	if strings.Contains(lower, "remind me") {
		return true
	}
	for _, prefix := range triggerPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// IsWorkoutDone reports whether text says today's workout is done.
func IsWorkoutDone(text string) bool {
	return workoutRe.MatchString(text)
}

func (p *Parser) normalize(res Resolution) time.Time {
	t := res.Time
	if !res.HasZone {
		t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, p.loc)
	}
	t = t.In(p.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, p.loc)
}

// correctPast moves a bare time of day that is not in the future to its next
// occurrence: today if still ahead, otherwise tomorrow.
func correctPast(target, now time.Time, phrase string) time.Time {
	if target.After(now) || mentionsDay(phrase) {
		return target
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), target.Hour(), target.Minute(), 0, 0, now.Location())
	if today.After(now) {
		return today
	}
	return today.AddDate(0, 0, 1)
}

func mentionsDay(phrase string) bool {
	return dayQualifierRe.MatchString(phrase)
}

// stripTrigger drops everything up to and including the first trigger, so
// "can you remind me to stretch" becomes "stretch".
func stripTrigger(text string) string {
	loc := triggerRe.FindStringIndex(text)
	if loc == nil {
		return text
	}
	return strings.TrimSpace(text[loc[1]:])
}

// splitPhrase cuts text at the rightmost temporal keyword, then widens the time
// phrase leftward while the words in between are all temporal and include a real
// time token, so that "call doctor at 5 PM tomorrow" splits before "at" rather
// than "tomorrow" while "log in at 9am" keeps "log in".
func splitPhrase(text string) (description, phrase string) {
	matches := keywordRe.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text, text
	}

	i := len(matches) - 1
	boundary := matches[i][0]
	for i > 0 {
		prev := matches[i-1][0]
		if !anchoredRun(text[prev:boundary]) {
			break
		}
		boundary = prev
		i--
	}

	return strings.TrimSpace(text[:boundary]), strings.TrimSpace(text[boundary:])
}

// anchoredRun reports whether every word of segment is temporal and at least one
// of them is more than a particle.
func anchoredRun(segment string) bool {
	anchored := false
	for _, word := range strings.Fields(strings.ToLower(segment)) {
		word = strings.Trim(word, ",!?;")
		switch {
		case word == "":
		case clockTokenRe.MatchString(word):
			anchored = true
		case temporalWords[word]:
			if !particles[word] {
				anchored = true
			}
		default:
			return false
		}
	}
	return anchored
}

func cleanDescription(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, " ,.;:!-")
	return strings.TrimSpace(s)
}

func isDegenerate(s string) bool {
	return len([]rune(strings.TrimSpace(s))) < 3
}

// recoverDescription takes whatever precedes the time phrase's first word in the
// original text.
func recoverDescription(text, phrase string) string {
	fields := strings.Fields(phrase)
	if len(fields) == 0 {
		return fallbackDescription
	}
	loc := regexp.MustCompile(`(?i)(^|\s)` + regexp.QuoteMeta(fields[0])).FindStringIndex(text)
	if loc == nil || loc[0] == 0 {
		return fallbackDescription
	}
	idx := loc[0]
	candidate := cleanDescription(stripTrigger(strings.TrimSpace(text[:idx])))
	if isDegenerate(candidate) || IsTaskRequest(candidate) {
		return fallbackDescription
	}
	return candidate
}
