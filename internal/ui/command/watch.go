package command

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"indexchan/internal/core/indexer"
)

func newWatchCmd() *cobra.Command {
	var dashboard bool

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Keep the index store refreshed as files change",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine(targetDir(args))
			if err != nil {
				return err
			}

			if dashboard {
				return runWatchDashboard(eng)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			return eng.Watch(ctx, func(res indexer.ScanResult, scanErr error) {
				if scanErr != nil {
					slog.Error("scan failed", "error", scanErr)
					return
				}
				fmt.Fprintf(out, "rescanned: %d files, %d dead entities\n", len(res.Files), len(res.Analysis.Dead))
			})
		},
	}

	cmd.Flags().BoolVar(&dashboard, "dashboard", false, "render a live terminal dashboard instead of plain log lines")
	return cmd
}
