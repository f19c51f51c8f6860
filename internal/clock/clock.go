// Package clock supplies the engine's notion of "now". Components take a
// Clock explicitly instead of reading process-wide time so that tests and
// the debug time controls can simulate the passage of days without touching
// the system clock.
package clock

import (
	"sync"
	"time"

	"github.com/kalambet/tend/internal/schedule"
)

// Clock provides the current moment. Today is the calendar date used for
// all scheduling decisions; Now is the full timestamp recorded on
// interactions.
type Clock interface {
	Today() time.Time
	Now() time.Time
}

// System reads the real wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

func (System) Today() time.Time { return schedule.DateOf(time.Now().UTC()) }

// Simulator is a Clock whose date can be overridden for one simulated
// session. Until Set is called (and after Reset) it delegates to a fallback
// clock. Safe for concurrent use, but an instance represents a single
// session: every component in that session must share it so schedule
// computation, overdue classification and interaction recording all observe
// the same simulated date.
type Simulator struct {
	mu       sync.Mutex
	fallback Clock
	override time.Time
	active   bool
}

// NewSimulator returns a Simulator delegating to fallback, or to the system
// clock when fallback is nil.
func NewSimulator(fallback Clock) *Simulator {
	if fallback == nil {
		fallback = System{}
	}
	return &Simulator{fallback: fallback}
}

// Set overrides the simulated date. Time-of-day is discarded.
func (s *Simulator) Set(d time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.override = schedule.DateOf(d)
	s.active = true
}

// Advance moves the simulated date forward by the given number of days,
// starting from today when no override is active.
func (s *Simulator) Advance(days int) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		s.override = s.fallback.Today()
		s.active = true
	}
	s.override = s.override.AddDate(0, 0, days)
	return s.override
}

// Reset restores the fallback clock.
func (s *Simulator) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	s.override = time.Time{}
}

// Overridden reports whether a simulated date is active, and which.
func (s *Simulator) Overridden() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.override, s.active
}

func (s *Simulator) Today() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return s.override
	}
	return s.fallback.Today()
}

// Now returns midnight of the simulated date while an override is active,
// so timestamps recorded during a simulation land on the simulated day.
func (s *Simulator) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return s.override
	}
	return s.fallback.Now()
}

// Fixed is a Clock pinned to a single date, for tests.
type Fixed struct {
	Date time.Time
}

func (f Fixed) Today() time.Time { return schedule.DateOf(f.Date) }

func (f Fixed) Now() time.Time { return f.Date }
