package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"indexchan/internal/core/indexer"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [dir]",
		Short: "Create .index-chan/ with a default config and .indexchanignore",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := targetDir(args)
			if err := indexer.Init(dir); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "initialized %s/%s\n", dir, indexer.StateDirName)
			return nil
		},
	}
}
