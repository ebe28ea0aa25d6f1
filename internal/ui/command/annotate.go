package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"indexchan/internal/core/indexer"
)

func newAnnotateCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "annotate [dir]",
		Short: "Insert suppression comments above PROBABLY_SAFE and NEEDS_REVIEW entities",
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
			result, err := eng.Annotate(scan, indexer.AnnotateOptions{DryRun: dryRun})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			total := 0
			for file, n := range result.Annotated {
				total += n
				fmt.Fprintf(out, "%s: %d\n", file, n)
			}
			verb := "annotated"
			if dryRun {
				verb = "would annotate"
			}
			fmt.Fprintf(out, "%s %d entities across %d files\n", verb, total, len(result.Annotated))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be annotated without writing")
	return cmd
}
