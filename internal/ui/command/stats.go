package command

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [dir]",
		Short: "Print aggregate counts from the index store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine(targetDir(args))
			if err != nil {
				return err
			}
			stats, err := eng.Stats()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "files: %d\nentities: %d\nreferences: %d\nunresolved: %d\n",
				stats.Files, stats.Entities, stats.References, stats.Unresolved)
			for tier, n := range stats.DeadByTier {
				fmt.Fprintf(out, "dead[%s]: %d\n", tier, n)
			}
			return nil
		},
	}
}
