package clock

import (
	"sync"
	"time"
)

// Clock supplies the current instant to services, so tests can control time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystem returns a Clock backed by time.Now, normalized to UTC.
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// Fixed is a manually controlled Clock. The zero value is not usable;
// construct with NewFixed.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixed returns a Clock pinned at t until advanced.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{now: t.UTC()}
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward by d. Tests use this to cross lock
// expiries without sleeping.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}
