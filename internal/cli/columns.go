package cli

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/dataview/internal/registry"
)

// ColumnsOptions holds flags for the columns command.
type ColumnsOptions struct {
	*RootOptions
	Source string
}

// NewColumnsCommand creates the columns command.
func NewColumnsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ColumnsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "columns",
		Short: "List the column catalog",
		Long: `List every column a data view can request, with its source, value
kind, cache volatility class and parameters.

Examples:
  dataview columns
  dataview columns --source play-events --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runColumns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Source, "source", "", "only list columns of this source")

	return cmd
}

func runColumns(opts *ColumnsOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	if opts.Source != "" && !slices.Contains(registry.Sources, registry.Source(opts.Source)) {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("unknown source %q", opts.Source), registry.Sources)
	}

	infos := []registry.ColumnInfo{}
	for _, d := range registry.Default().List() {
		if opts.Source != "" && d.Source != registry.Source(opts.Source) {
			continue
		}
		infos = append(infos, d.Info())
	}

	if opts.Format == "json" {
		return f.Success(infos)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tSOURCE\tKIND\tVOLATILITY\tPARAMS")
	for _, info := range infos {
		names := make([]string, len(info.Params))
		for i, p := range info.Params {
			names[i] = string(p.Name)
			if p.Required {
				names[i] += "*"
			}
		}
		kind := string(info.Kind)
		if kind == "" {
			kind = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", info.ID, info.Source, kind, info.Volatility, strings.Join(names, ","))
	}
	return tw.Flush()
}
