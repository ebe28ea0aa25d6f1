package command

import (
	"os"

	"github.com/spf13/cobra"

	cherrors "indexchan/internal/core/errors"
)

func newExportCmd() *cobra.Command {
	var outPath, format string

	cmd := &cobra.Command{
		Use:   "export [dir]",
		Short: "Write the entity/reference graph to a file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outPath == "" {
				return cherrors.New(cherrors.CodeInput, "export requires -o/--output")
			}
			eng, err := openEngine(targetDir(args))
			if err != nil {
				return err
			}
			scan, err := eng.Scan()
			if err != nil {
				return err
			}
			rendered, err := eng.Export(scan, format)
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, []byte(rendered), 0o644); err != nil {
				return cherrors.Wrap(err, cherrors.CodeIO, "write export file")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output file path")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "export format: graphml, dot, json, or sarif")
	return cmd
}
