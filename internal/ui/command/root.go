// Package command builds the indexchan CLI's cobra command tree: scan,
// clean, annotate, export, init, stats, watch, and rpc, each operating on
// a single project directory's `.index-chan/` state.
package command

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	cherrors "indexchan/internal/core/errors"
	"indexchan/internal/shared/version"
)

// Execute runs the root command, returning the process exit code the
// caller's main() should pass to os.Exit.
func Execute(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		code := cherrors.ExitCode(err)
		fmt.Fprintln(os.Stderr, err.Error())
		return code
	}
	return 0
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "indexchan",
		Short:         "Static code intelligence: entity graph, reachability, and context extraction",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var verbose bool
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
	cobra.OnInitialize(func() {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	})

	root.AddCommand(
		newScanCmd(),
		newCleanCmd(),
		newAnnotateCmd(),
		newExportCmd(),
		newInitCmd(),
		newStatsCmd(),
		newWatchCmd(),
		newRPCCmd(),
	)
	return root
}

func targetDir(args []string) string {
	if len(args) == 0 {
		return "."
	}
	return args[0]
}
