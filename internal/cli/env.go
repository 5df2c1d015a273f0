package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/dataview/internal/compiler"
	"github.com/roach88/dataview/internal/config"
	"github.com/roach88/dataview/internal/registry"
	"github.com/roach88/dataview/internal/season"
	"github.com/roach88/dataview/internal/store"
)

// newFormatter builds the formatter every command writes through.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// loadConfig reads the --config file, or the defaults when none is given.
func loadConfig(opts *RootOptions, f *OutputFormatter) (*config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}
	return cfg, nil
}

// newLogger logs to w at the configured level, or Debug with --verbose.
func newLogger(opts *RootOptions, cfg *config.Config, w io.Writer) *slog.Logger {
	if opts.Verbose {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return cfg.Logger(w)
}

// newCompiler builds a compiler over the built-in registry with the
// configured limits and TTL bands.
func newCompiler(cfg *config.Config, logger *slog.Logger) *compiler.Compiler {
	opts := append(cfg.CompilerOptions(), compiler.WithLogger(logger))
	return compiler.New(registry.Default(), opts...)
}

// readRequest reads a request from path, or stdin when path is "-". Files
// ending in .yaml or .yml are YAML, anything else JSON; stdin is sniffed.
func readRequest(path string, stdin io.Reader) (compiler.Request, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return compiler.Request{}, fmt.Errorf("reading request: %w", err)
	}

	yamlInput := false
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		yamlInput = true
	case "":
		trimmed := bytes.TrimSpace(data)
		yamlInput = len(trimmed) > 0 && trimmed[0] != '{'
	}
	if yamlInput {
		return compiler.ParseRequestYAML(data)
	}
	return compiler.ParseRequestJSON(data)
}

// DatabaseFlags override the configured database.
type DatabaseFlags struct {
	Driver string
	DSN    string
}

func (d *DatabaseFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&d.Driver, "driver", "", "database driver (sqlite3|postgres), overrides config")
	cmd.Flags().StringVar(&d.DSN, "db", "", "database DSN or SQLite path, overrides config")
}

// open connects to the database named by the flags, falling back to cfg.
func (d *DatabaseFlags) open(ctx context.Context, cfg *config.Config) (store.Executor, error) {
	driver, dsn := cfg.Database.Driver, cfg.Database.DSN
	if d.Driver != "" {
		driver = d.Driver
	}
	if d.DSN != "" {
		dsn = d.DSN
	}
	return store.Open(ctx, driver, dsn)
}

// SeasonFlags pin the season context from the command line.
type SeasonFlags struct {
	Year  int
	Week  int
	Phase string
	Now   string // RFC 3339
}

func (s *SeasonFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&s.Year, "year", 0, "current season year")
	cmd.Flags().IntVar(&s.Week, "week", 0, "current season week")
	cmd.Flags().StringVar(&s.Phase, "phase", "regular_season", "season phase")
	cmd.Flags().StringVar(&s.Now, "now", "", "request time (RFC 3339), defaults to the wall clock")
}

// resolve picks the season context: --year first, then the configured
// season, then season_state from the database. provider may be nil.
func (s *SeasonFlags) resolve(ctx context.Context, cfg *config.Config, provider season.Provider) (season.Context, error) {
	var now time.Time
	if s.Now != "" {
		t, err := time.Parse(time.RFC3339, s.Now)
		if err != nil {
			return season.Context{}, fmt.Errorf("--now: %w", err)
		}
		now = t.UTC()
	}

	switch {
	case s.Year != 0:
		phase, err := season.ParsePhase(s.Phase)
		if err != nil {
			return season.Context{}, fmt.Errorf("--phase: %w", err)
		}
		provider = season.Static{Context: season.Context{Year: s.Year, Week: s.Week, Phase: phase, Now: now}}
	case cfg.Season != nil:
		sc := *cfg.Season
		sc.Now = now
		provider = season.Static{Context: sc}
	case provider == nil:
		return season.Context{}, fmt.Errorf("no season context: pass --year, set season in the config, or use --db")
	}

	sc, err := provider.Current(ctx)
	if err != nil {
		return season.Context{}, err
	}
	if !now.IsZero() {
		sc.Now = now
	}
	return sc, nil
}
