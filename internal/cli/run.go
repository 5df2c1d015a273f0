package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/dataview/internal/compiler"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Season   SeasonFlags
	Database DatabaseFlags
}

// RunResult is the JSON output of the run command.
type RunResult struct {
	Query    string                 `json:"query"`
	Hash     string                 `json:"hash"`
	Metadata compiler.CacheMetadata `json:"data_view_metadata"`
	Columns  []string               `json:"columns"`
	Rows     [][]any                `json:"rows"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run [request-file]",
		Short: "Compile a request and execute it",
		Long: `Compile a data-view request and run the query against a database. The
season context is read from the database's season_state unless --year or
the config file pins it.

Examples:
  dataview run view.json --db dataview.db
  dataview run view.yaml --driver postgres --db postgres://localhost/league`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			return runRun(opts, path, cmd)
		},
	}

	opts.Season.register(cmd)
	opts.Database.register(cmd)

	return cmd
}

func runRun(opts *RunOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	cfg, err := loadConfig(opts.RootOptions, f)
	if err != nil {
		return err
	}
	logger := newLogger(opts.RootOptions, cfg, cmd.ErrOrStderr())
	ctx := cmd.Context()

	req, err := readRequest(path, cmd.InOrStdin())
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeBadRequest, err.Error(), nil)
	}

	exec, err := opts.Database.open(ctx, cfg)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
	}
	defer exec.Close()

	sc, err := opts.Season.resolve(ctx, cfg, exec)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeNoSeason, err.Error(), nil)
	}

	res, err := newCompiler(cfg, logger).Compile(req, sc)
	if err != nil {
		return compileFailure(f, err)
	}
	f.VerboseLog("%s", res.Query)

	rows, err := exec.Query(ctx, res.Query)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeQueryFailed, err.Error(), nil)
	}

	if opts.Format == "json" {
		return f.Success(RunResult{
			Query:    res.Query,
			Hash:     res.Hash,
			Metadata: res.Metadata,
			Columns:  rows.Columns,
			Rows:     rows.Rows,
		})
	}

	w := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(rows.Columns, "\t"))
	for _, row := range rows.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatCell(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "(%d rows, cache_ttl %d ms)\n", len(rows.Rows), res.Metadata.CacheTTL)
	return nil
}

func formatCell(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprint(v)
}
