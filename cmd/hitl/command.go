package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
	"github.com/viant/hitl"
	"github.com/viant/hitl/model"
	"github.com/viant/hitl/service/runner"
	"github.com/viant/hitl/service/tool/demo"
)

type options struct {
	configPath string
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "hitl",
		Short:         "Human-in-the-loop approval gate for tool-invoking agents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file (HITL_* env vars override)")
	root.AddCommand(
		newServeCommand(opts),
		newRunCommand(opts),
		newPendingCommand(opts),
		newDecideCommand(opts),
		newRecoverCommand(opts),
		newPoliciesCommand(opts),
	)
	return root
}

// loadConfig falls back to the demo policies when the file defines none.
func (o *options) loadConfig() (*hitl.Config, error) {
	cfg, err := hitl.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Policy == nil || len(cfg.Policy.InterruptOn) == 0 {
		prefix := ""
		if cfg.Policy != nil {
			prefix = cfg.Policy.DescriptionPrefix
		}
		cfg.Policy = demo.Policies()
		if prefix != "" {
			cfg.Policy.DescriptionPrefix = prefix
		}
	}
	return cfg, nil
}

// newService builds the service with the demo tools and script so that
// decisions continue demo runs.
func (o *options) newService(ctx context.Context) (*hitl.Service, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	tools, err := demo.Registry()
	if err != nil {
		return nil, err
	}
	return hitl.New(ctx, hitl.WithConfig(cfg), hitl.WithExecutor(tools), hitl.WithReasoner(demoScript()))
}

func demoScript() runner.Script {
	return runner.Script{
		{Name: "read_data", Arguments: map[string]interface{}{"query": "SELECT * FROM users"}},
		{Name: "write_file", Arguments: map[string]interface{}{"file_path": "report.txt", "content": "user report"}},
		{Name: "execute_sql", Arguments: map[string]interface{}{"query": "DELETE FROM users WHERE inactive"}},
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// writeResult prints whatever part of a run completed before returning err;
// a decision that was applied is reported even when the run failed after it.
func writeResult(cmd *cobra.Command, result *runner.Result, err error) error {
	if result == nil {
		return err
	}
	if werr := writeJSON(cmd.OutOrStdout(), newRunView(result)); werr != nil && err == nil {
		return werr
	}
	return err
}

type runView struct {
	RunID        string         `json:"runId"`
	Status       runner.Status  `json:"status"`
	CheckpointID string         `json:"checkpointId,omitempty"`
	Description  string         `json:"description,omitempty"`
	Steps        []*model.Step  `json:"steps,omitempty"`
	Resumed      *model.Outcome `json:"resumed,omitempty"`
}

func newRunView(r *runner.Result) *runView {
	return &runView{
		RunID:        r.RunID,
		Status:       r.Status,
		CheckpointID: r.CheckpointID,
		Description:  r.Description,
		Steps:        r.Steps,
		Resumed:      r.Resumed,
	}
}
