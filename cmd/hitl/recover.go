package main

import (
	"github.com/spf13/cobra"
)

func newRecoverCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "recover <run-id>",
		Short: "Continue a run that failed after a decision was applied",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, err := opts.newService(cmd.Context())
			if err != nil {
				return err
			}
			defer srv.Close()
			result, err := srv.Recover(cmd.Context(), args[0])
			return writeResult(cmd, result, err)
		},
	}
}
