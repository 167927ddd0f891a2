package model

// OutcomeKind tells the run loop what to do after a resume.
type OutcomeKind string

const (
	// OutcomeExecute runs Outcome.Call, which carries the final arguments.
	OutcomeExecute OutcomeKind = "execute"
	// OutcomeAborted feeds Outcome.Reason back to the run as a rejection.
	OutcomeAborted OutcomeKind = "aborted"
)

// Outcome is the result of resuming a pending interrupt with a decision.
type Outcome struct {
	Kind     OutcomeKind `json:"kind"`
	Call     *ToolCall   `json:"call"`
	Reason   string      `json:"reason,omitempty"`
	Reviewer string      `json:"reviewer,omitempty"`
	// RunStatus and RunError report where the continued run stopped when a
	// run loop applied the outcome.
	RunStatus string `json:"run_status,omitempty"`
	RunError  string `json:"run_error,omitempty"`
	// Checkpoint is the consumed checkpoint; its steps seed the continued run.
	Checkpoint *Checkpoint `json:"-"`
}

// Executes reports whether the outcome runs the tool.
func (o *Outcome) Executes() bool { return o != nil && o.Kind == OutcomeExecute }
