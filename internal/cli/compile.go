package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/dataview/internal/compiler"
	"github.com/roach88/dataview/internal/season"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Season   SeasonFlags
	Database DatabaseFlags
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile [request-file]",
		Short: "Compile a data-view request to SQL",
		Long: `Compile a data-view request (JSON or YAML) into one SQL query and its
cache metadata. The request is read from stdin when no file is given.

The season context comes from --year/--week/--phase, the config file's
season block, or the season_state table of the database given with --db.

Examples:
  dataview compile view.json --year 2024 --week 6
  dataview compile view.yaml --config dataview.cue --format json
  cat view.json | dataview compile --db dataview.db`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			return runCompile(opts, path, cmd)
		},
	}

	opts.Season.register(cmd)
	cmd.Flags().StringVar(&opts.Database.DSN, "db", "", "read the season from this database's season_state")
	cmd.Flags().StringVar(&opts.Database.Driver, "driver", "", "database driver for --db (sqlite3|postgres)")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	cfg, err := loadConfig(opts.RootOptions, f)
	if err != nil {
		return err
	}
	logger := newLogger(opts.RootOptions, cfg, cmd.ErrOrStderr())

	req, err := readRequest(path, cmd.InOrStdin())
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeBadRequest, err.Error(), nil)
	}

	var provider season.Provider
	if opts.Database.DSN != "" {
		exec, err := opts.Database.open(cmd.Context(), cfg)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
		}
		defer exec.Close()
		provider = exec
	}
	sc, err := opts.Season.resolve(cmd.Context(), cfg, provider)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeNoSeason, err.Error(), nil)
	}
	f.VerboseLog("season %d week %d (%s)", sc.Year, sc.Week, sc.Phase)

	res, err := newCompiler(cfg, logger).Compile(req, sc)
	if err != nil {
		return compileFailure(f, err)
	}

	if opts.Format == "json" {
		return f.Success(res)
	}
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, res.Query)
	fmt.Fprintf(w, "-- cache_ttl: %d\n", res.Metadata.CacheTTL)
	if res.Metadata.CacheExpireAt != nil {
		fmt.Fprintf(w, "-- cache_expire_at: %d\n", *res.Metadata.CacheExpireAt)
	}
	fmt.Fprintf(w, "-- hash: %s\n", res.Hash)
	return nil
}

// CompileErrorDetails locates a compile error in the request.
type CompileErrorDetails struct {
	ColumnID string `json:"column_id,omitempty"`
	Param    string `json:"param,omitempty"`
}

// compileFailure reports a Compile error. Request mistakes exit with
// ExitFailure; anything else is an internal error.
func compileFailure(f *OutputFormatter, err error) error {
	var ce *compiler.CompileError
	if !errors.As(err, &ce) {
		return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	var details any
	if ce.ColumnID != "" || ce.Param != "" {
		details = CompileErrorDetails{ColumnID: ce.ColumnID, Param: ce.Param}
	}
	return f.Fail(ExitFailure, string(ce.Code), ce.Message, details)
}
