package main

import (
	"github.com/spf13/cobra"
	"github.com/viant/hitl/policy"
	"gopkg.in/yaml.v3"
)

func newPoliciesCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "policies",
		Short: "Print the effective review policies",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			registry, err := cfg.Policy.Registry()
			if err != nil {
				return err
			}
			encoder := yaml.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent(2)
			if err = encoder.Encode(policy.ToConfig(registry, cfg.Policy.Prefix())); err != nil {
				return err
			}
			return encoder.Close()
		},
	}
}
