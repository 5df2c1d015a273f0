// Package testutil holds deterministic stand-ins for time, request ids and
// the season context, shared by tests and the scenario harness.
package testutil

import (
	"sync"
	"time"

	"github.com/roach88/dataview/internal/season"
)

// Epoch is the instant FixedClock starts at unless told otherwise: a
// Tuesday of week 6 of the 2024 regular season.
var Epoch = time.Date(2024, 10, 15, 12, 0, 0, 0, time.UTC)

// Season returns the season context tests compile against.
func Season() season.Context {
	return season.Context{Year: 2024, Week: 6, Phase: season.PhaseRegular, Now: Epoch}
}

// FixedClock is a manually advanced clock. Safe for concurrent use.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock creates a clock reading start; a zero start means Epoch.
func NewFixedClock(start time.Time) *FixedClock {
	if start.IsZero() {
		start = Epoch
	}
	return &FixedClock{now: start.UTC()}
}

// Now returns the current reading.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to t.
func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.UTC()
}
