// Package config loads dataview configuration from CUE.
//
// The embedded schema carries every default; a user file is unified with it,
// checked for concreteness and decoded. Cross-field rules CUE cannot express
// compactly (limit ordering, duration syntax) are checked in Go afterwards.
package config

import (
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/dataview/internal/compiler"
	"github.com/roach88/dataview/internal/season"
)

//go:embed schema.cue
var schemaSource string

// Config is the decoded, validated configuration.
type Config struct {
	Listen   string
	Database Database
	LogLevel slog.Level

	DefaultLimit int
	MaxLimit     int

	// Season is nil unless the file pins one.
	Season *season.Context

	TTL compiler.TTLPolicy
}

// Database selects the executor backing `run` and the results endpoint.
type Database struct {
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

// Error is a configuration error, positioned when CUE reports one.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// file mirrors schema.cue for decoding.
type file struct {
	Listen   string   `json:"listen"`
	Database Database `json:"database"`
	Log      struct {
		Level string `json:"level"`
	} `json:"log"`
	Limits struct {
		Default int `json:"default"`
		Max     int `json:"max"`
	} `json:"limits"`
	Season *struct {
		Year  int    `json:"year"`
		Week  int    `json:"week"`
		Phase string `json:"phase"`
	} `json:"season,omitempty"`
	CacheTTL map[string]string `json:"cache_ttl"`
}

// Default returns the configuration with no user file applied.
func Default() *Config {
	cfg, err := Parse(nil, "")
	if err != nil {
		panic(fmt.Sprintf("config: embedded schema: %v", err))
	}
	return cfg
}

// Load reads and parses the CUE file at path. An empty path yields the
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Parse(nil, "")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data, path)
}

// Parse unifies src with the schema and decodes the result. filename is used
// in error positions.
func Parse(src []byte, filename string) (*Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	v := schema.LookupPath(cue.ParsePath("#Config"))

	if len(src) > 0 {
		user := ctx.CompileBytes(src, cue.Filename(filename))
		if err := user.Err(); err != nil {
			return nil, formatCUEError(err)
		}
		v = v.Unify(user)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var f file
	if err := v.Decode(&f); err != nil {
		return nil, formatCUEError(err)
	}
	return f.build()
}

func (f *file) build() (*Config, error) {
	cfg := &Config{
		Listen:       f.Listen,
		Database:     f.Database,
		DefaultLimit: f.Limits.Default,
		MaxLimit:     f.Limits.Max,
	}
	if cfg.DefaultLimit > cfg.MaxLimit {
		return nil, &Error{Field: "limits", Message: fmt.Sprintf("default %d exceeds max %d", cfg.DefaultLimit, cfg.MaxLimit)}
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(f.Log.Level)); err != nil {
		return nil, &Error{Field: "log.level", Message: err.Error()}
	}

	if f.Season != nil {
		phase, err := season.ParsePhase(f.Season.Phase)
		if err != nil {
			return nil, &Error{Field: "season.phase", Message: err.Error()}
		}
		cfg.Season = &season.Context{Year: f.Season.Year, Week: f.Season.Week, Phase: phase}
	}

	bands := []struct {
		name string
		dst  *time.Duration
	}{
		{"live_market", &cfg.TTL.LiveMarket},
		{"in_season", &cfg.TTL.InSeason},
		{"off_season", &cfg.TTL.OffSeason},
		{"season_aggregate", &cfg.TTL.SeasonAggregate},
		{"projection", &cfg.TTL.Projection},
		{"historical", &cfg.TTL.Historical},
		{"static", &cfg.TTL.Static},
	}
	for _, b := range bands {
		d, err := time.ParseDuration(f.CacheTTL[b.name])
		if err != nil {
			return nil, &Error{Field: "cache_ttl." + b.name, Message: err.Error()}
		}
		if d <= 0 {
			return nil, &Error{Field: "cache_ttl." + b.name, Message: "must be positive"}
		}
		*b.dst = d
	}
	return cfg, nil
}

// CompilerOptions returns the compiler settings the configuration carries.
func (c *Config) CompilerOptions() []compiler.Option {
	return []compiler.Option{
		compiler.WithLimits(c.DefaultLimit, c.MaxLimit),
		compiler.WithTTLPolicy(c.TTL),
	}
}

// Logger returns a text logger on w at the configured level.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: c.LogLevel}))
}

// formatCUEError returns the first CUE error with its source position.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	e := &Error{Message: strings.TrimSpace(first.Error())}
	if pos := errors.Positions(first); len(pos) > 0 {
		e.Pos = pos[0]
	}
	return e
}
