package command

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"indexchan/internal/core/indexer"
)

func newCleanCmd() *cobra.Command {
	var auto, safeOnly, dryRun bool

	cmd := &cobra.Command{
		Use:   "clean [dir]",
		Short: "Remove dead entities the reachability analyzer classifies as safe",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine(targetDir(args))
			if err != nil {
				return err
			}
			scan, err := eng.Scan()
			if err != nil {
				return err
			}

			if !auto && !dryRun {
				preview, err := eng.Clean(scan, indexer.CleanOptions{SafeOnly: safeOnly, DryRun: true})
				if err != nil {
					return err
				}
				if len(preview.Removed) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "nothing to remove")
					return nil
				}
				if !confirmClean(cmd, len(preview.Removed)) {
					fmt.Fprintln(cmd.OutOrStdout(), "aborted")
					return nil
				}
			}

			result, err := eng.Clean(scan, indexer.CleanOptions{Auto: auto, SafeOnly: safeOnly, DryRun: dryRun})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			verb := "removed"
			if dryRun {
				verb = "would remove"
			}
			fmt.Fprintf(out, "%s %d entities, skipped %d needing review\n", verb, len(result.Removed), len(result.Skipped))
			if result.BackupID != "" {
				fmt.Fprintf(out, "backup: %s\n", result.BackupID)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&auto, "auto", false, "remove without prompting")
	cmd.Flags().BoolVar(&safeOnly, "safe-only", false, "restrict removal to DEFINITELY_SAFE entities")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be removed without writing")
	return cmd
}

func confirmClean(cmd *cobra.Command, count int) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "remove %d entities? [y/N] ", count)
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
