package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/dataview/internal/season"
	"github.com/roach88/dataview/internal/server"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen   string
	Database DatabaseFlags
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the data-view HTTP API",
		Long: `Serve POST /data-views/compile, POST /data-views/results and
GET /columns. Results run against the configured database, which also
supplies the season context unless the config file pins one.

Stops gracefully on SIGINT or SIGTERM.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address, overrides config")
	opts.Database.register(cmd)

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	cfg, err := loadConfig(opts.RootOptions, f)
	if err != nil {
		return err
	}
	logger := newLogger(opts.RootOptions, cfg, cmd.ErrOrStderr())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exec, err := opts.Database.open(ctx, cfg)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
	}
	defer exec.Close()

	var seasons season.Provider = exec
	if cfg.Season != nil {
		seasons = season.Static{Context: *cfg.Season}
	}

	addr := cfg.Listen
	if opts.Listen != "" {
		addr = opts.Listen
	}

	srv := server.New(newCompiler(cfg, logger), seasons,
		server.WithExecutor(exec),
		server.WithLogger(logger),
	)
	logger.Info("serving", "addr", addr, "driver", cfg.Database.Driver)
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		return WrapExitError(ExitCommandError, "server failed", err)
	}
	return nil
}
