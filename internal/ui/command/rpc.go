package command

import (
	"github.com/spf13/cobra"

	"indexchan/internal/rpc"
)

func newRPCCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rpc",
		Short: "Serve the JSON-RPC-over-stdio interface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rpc.NewStdio().Serve()
		},
	}
}
