package main

import (
	"github.com/spf13/cobra"
)

func newRunCommand(opts *options) *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the demo agent run until it completes or needs review",
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv, err := opts.newService(cmd.Context())
			if err != nil {
				return err
			}
			defer srv.Close()
			result, err := srv.Start(cmd.Context(), runID)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), newRunView(result))
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "run id (generated when empty)")
	return cmd
}
