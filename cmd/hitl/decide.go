package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/viant/hitl/model"
)

func newDecideCommand(opts *options) *cobra.Command {
	var arguments, reason, reviewer string
	cmd := &cobra.Command{
		Use:   "decide <checkpoint-id> <approve|edit|reject>",
		Short: "Resolve an interrupt and continue its run",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			decisionType, err := model.ParseDecisionType(args[1])
			if err != nil {
				return err
			}
			decision := &model.Decision{Type: decisionType, Reason: reason, Reviewer: reviewer}
			if arguments != "" {
				if err = json.Unmarshal([]byte(arguments), &decision.Arguments); err != nil {
					return fmt.Errorf("invalid --args: %w", err)
				}
			}
			srv, err := opts.newService(cmd.Context())
			if err != nil {
				return err
			}
			defer srv.Close()
			result, err := srv.Continue(cmd.Context(), args[0], decision)
			return writeResult(cmd, result, err)
		},
	}
	cmd.Flags().StringVar(&arguments, "args", "", "replacement arguments as JSON (edit)")
	cmd.Flags().StringVar(&reason, "reason", "", "rejection reason")
	cmd.Flags().StringVar(&reviewer, "reviewer", "", "reviewer recorded on the decision")
	return cmd
}
