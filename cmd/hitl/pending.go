package main

import (
	"github.com/spf13/cobra"
	"github.com/viant/hitl/service/approval"
)

func newPendingCommand(opts *options) *cobra.Command {
	var runIDs, tools []string
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List interrupts awaiting a decision",
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv, err := opts.newService(cmd.Context())
			if err != nil {
				return err
			}
			defer srv.Close()
			var filters []approval.PendingFilter
			if len(runIDs) > 0 {
				filters = append(filters, approval.WithRunID(runIDs...))
			}
			if len(tools) > 0 {
				filters = append(filters, approval.WithTool(tools...))
			}
			pending, err := approval.ListPending(cmd.Context(), srv, filters...)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), pending)
		},
	}
	cmd.Flags().StringSliceVar(&runIDs, "run-id", nil, "only interrupts of these runs")
	cmd.Flags().StringSliceVar(&tools, "tool", nil, "only interrupts of these tools")
	return cmd
}
