// Package season models the league/season context the data-view compiler
// consumes: the current season year and week, the season phase and the
// request time. Dynamic year and week tokens in column parameters are
// resolved against this context exactly once, during normalization.
package season

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Phase is the part of the NFL calendar the league is in.
type Phase string

const (
	PhaseOffseason  Phase = "offseason"
	PhasePreseason  Phase = "preseason"
	PhaseRegular    Phase = "regular_season"
	PhasePostseason Phase = "postseason"
)

// ParsePhase accepts the canonical names plus a few common spellings.
func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "offseason", "off":
		return PhaseOffseason, nil
	case "preseason", "pre":
		return PhasePreseason, nil
	case "regular_season", "regular", "reg":
		return PhaseRegular, nil
	case "postseason", "post":
		return PhasePostseason, nil
	}
	return "", fmt.Errorf("unknown season phase %q", s)
}

// InSeason reports whether games are being played that change stats.
func (p Phase) InSeason() bool {
	return p == PhaseRegular || p == PhasePostseason
}

// Context is the externally supplied season state.
type Context struct {
	Year  int
	Week  int
	Phase Phase
	// Now is the request time. It is an input so compilation stays a pure
	// function of its arguments.
	Now time.Time
}

// Validate checks the context is usable for token expansion.
func (c Context) Validate() error {
	if c.Year < 1920 || c.Year > 2200 {
		return fmt.Errorf("season year %d out of range", c.Year)
	}
	if c.Week < 0 || c.Week > 22 {
		return fmt.Errorf("season week %d out of range", c.Week)
	}
	if _, err := ParsePhase(string(c.Phase)); err != nil {
		return err
	}
	return nil
}

// LastCompletedYear is the most recent season with final stats available.
// Before the regular season starts the current year has no games yet.
func (c Context) LastCompletedYear() int {
	if c.Phase.InSeason() {
		return c.Year
	}
	return c.Year - 1
}

// Provider supplies the current season context.
type Provider interface {
	Current(ctx context.Context) (Context, error)
}

// Static is a Provider returning a fixed context; Now is filled from Clock
// when zero.
type Static struct {
	Context Context
	Clock   func() time.Time
}

// Current implements Provider.
func (s Static) Current(context.Context) (Context, error) {
	c := s.Context
	if c.Now.IsZero() {
		clock := s.Clock
		if clock == nil {
			clock = time.Now
		}
		c.Now = clock().UTC()
	}
	return c, c.Validate()
}
