package model

import "time"

// CheckpointVersion is the current checkpoint layout version.
const CheckpointVersion = 1

// PendingInterrupt is a suspended tool call awaiting a decision.
type PendingInterrupt struct {
	Call        *ToolCall `json:"call"`
	Policy      Policy    `json:"policy"`
	Description string    `json:"description"`
}

// Clone returns a deep copy of the interrupt.
func (p *PendingInterrupt) Clone() *PendingInterrupt {
	if p == nil {
		return nil
	}
	ret := *p
	ret.Call = p.Call.Clone()
	ret.Policy.Allowed = append([]DecisionType(nil), p.Policy.Allowed...)
	return &ret
}

// StepStatus describes how a run step ended.
type StepStatus string

const (
	StepExecuted StepStatus = "executed"
	StepRejected StepStatus = "rejected"
	StepFailed   StepStatus = "failed"
)

// Step is a completed tool call of a run together with its result.
type Step struct {
	CallID    string                 `json:"callId"`
	ToolName  string                 `json:"toolName"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
	Output    string                 `json:"output,omitempty"`
	Status    StepStatus             `json:"status"`
	Error     string                 `json:"error,omitempty"`
	Reviewer  string                 `json:"reviewer,omitempty"`
}

// Clone returns a deep copy of the step.
func (s *Step) Clone() *Step {
	if s == nil {
		return nil
	}
	ret := *s
	ret.Arguments = CloneArguments(s.Arguments)
	return &ret
}

// Checkpoint is the durable snapshot of a suspended run. A checkpoint without
// a pending call holds a stalled run: one that failed after its last decision
// was applied. Error then carries the failure.
type Checkpoint struct {
	ID         string            `json:"id"`
	RunID      string            `json:"runId"`
	Version    int               `json:"v"`
	Steps      []*Step           `json:"steps,omitempty"`
	Pending    *PendingInterrupt `json:"pending,omitempty"`
	ActionHash string            `json:"actionHash,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	ExpiresAt  *time.Time        `json:"expiresAt,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Clone returns a deep copy of the checkpoint.
func (c *Checkpoint) Clone() *Checkpoint {
	if c == nil {
		return nil
	}
	ret := *c
	ret.Pending = c.Pending.Clone()
	if c.Steps != nil {
		ret.Steps = make([]*Step, len(c.Steps))
		for i, step := range c.Steps {
			ret.Steps[i] = step.Clone()
		}
	}
	if c.ExpiresAt != nil {
		expiresAt := *c.ExpiresAt
		ret.ExpiresAt = &expiresAt
	}
	return &ret
}

// ToolName returns the pending call's tool name or "" when nothing is pending.
func (c *Checkpoint) ToolName() string {
	if c == nil || c.Pending == nil || c.Pending.Call == nil {
		return ""
	}
	return c.Pending.Call.Name
}

// IsExpired reports whether the optional decision deadline has passed.
func (c *Checkpoint) IsExpired(now time.Time) bool {
	return c != nil && c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// IsStalled reports whether the checkpoint holds a stalled run.
func (c *Checkpoint) IsStalled() bool { return c != nil && c.Pending == nil }
