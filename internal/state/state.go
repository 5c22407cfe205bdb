// Package state holds the in-memory runtime state shared by the chat handlers and
// the background loops.
package state

import (
	"sort"
	"sync"
	"time"
)

// State is safe for concurrent use.
type State struct {
	mu sync.RWMutex

	recipient    int64
	hasRecipient bool

	fired     map[string]bool
	firedDate string

	workoutDone bool
	running     bool

	lastCheck  time.Time
	lastSent   string
	lastSentAt time.Time
	errorCount int
	nextEvent  string
	nextAt     time.Time
}

func New() *State {
	return &State{fired: make(map[string]bool)}
}

// Snapshot is a point-in-time copy for status displays.
type Snapshot struct {
	Recipient    int64
	HasRecipient bool
	FiredToday   []string
	WorkoutDone  bool
	Running      bool
	LastCheck    time.Time
	ErrorCount   int
	NextEvent    string
	NextAt       time.Time
	LastSent     string
	LastSentAt   time.Time
}

func (s *State) SetRecipient(chatID int64) {
	s.mu.Lock()
	s.recipient = chatID
	s.hasRecipient = true
	s.mu.Unlock()
}

func (s *State) Recipient() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recipient, s.hasRecipient
}

func (s *State) Fired(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fired[name]
}

// MarkFired records a confirmed send of the named event for the current day.
func (s *State) MarkFired(name string) {
	s.mu.Lock()
	s.fired[name] = true
	s.mu.Unlock()
}

// RecordSent remembers the last message that went out, for status displays.
func (s *State) RecordSent(what string, at time.Time) {
	s.mu.Lock()
	s.lastSent = what
	s.lastSentAt = at
	s.mu.Unlock()
}

// ResetDay clears the fired set and the workout flag the first time it is called
// for a given date. Later calls for the same date do nothing.
func (s *State) ResetDay(date string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.firedDate == date {
		return false
	}
	s.firedDate = date
	s.fired = make(map[string]bool)
	s.workoutDone = false
	return true
}

// SeedDay sets the current date without clearing anything, so a process that
// starts at 00:00 does not treat its first tick as a new day.
func (s *State) SeedDay(date string) {
	s.mu.Lock()
	if s.firedDate == "" {
		s.firedDate = date
	}
	s.mu.Unlock()
}

func (s *State) SetWorkoutDone(done bool) {
	s.mu.Lock()
	s.workoutDone = done
	s.mu.Unlock()
}

func (s *State) WorkoutDone() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.workoutDone
}

func (s *State) SetRunning(running bool) {
	s.mu.Lock()
	s.running = running
	s.mu.Unlock()
}

// Checked records a scheduler pass and the next event it expects.
func (s *State) Checked(at time.Time, nextEvent string, nextAt time.Time) {
	s.mu.Lock()
	s.lastCheck = at
	s.nextEvent = nextEvent
	s.nextAt = nextAt
	s.mu.Unlock()
}

// RecordError bumps the loop error counter and returns the new value.
func (s *State) RecordError() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorCount++
	return s.errorCount
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fired := make([]string, 0, len(s.fired))
	for name := range s.fired {
		fired = append(fired, name)
	}
	sort.Strings(fired)

	return Snapshot{
		Recipient:    s.recipient,
		HasRecipient: s.hasRecipient,
		FiredToday:   fired,
		WorkoutDone:  s.workoutDone,
		Running:      s.running,
		LastCheck:    s.lastCheck,
		ErrorCount:   s.errorCount,
		NextEvent:    s.nextEvent,
		NextAt:       s.nextAt,
		LastSent:     s.lastSent,
		LastSentAt:   s.lastSentAt,
	}
}
