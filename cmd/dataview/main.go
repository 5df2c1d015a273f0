// Command dataview compiles and serves player data views.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/dataview/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
