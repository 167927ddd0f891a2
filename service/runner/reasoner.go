package runner

import (
	"context"
	"fmt"

	"github.com/viant/hitl/model"
)

// Run is the state a Reasoner sees.
type Run struct {
	ID    string
	Steps []*model.Step
}

// LastStep returns the most recent step or nil.
func (r *Run) LastStep() *model.Step {
	if len(r.Steps) == 0 {
		return nil
	}
	return r.Steps[len(r.Steps)-1]
}

// Reasoner proposes the next tool call of a run; a nil call ends the run.
type Reasoner interface {
	Next(ctx context.Context, run *Run) (*model.ToolCall, error)
}

// ReasonerFunc adapts a function to Reasoner.
type ReasonerFunc func(ctx context.Context, run *Run) (*model.ToolCall, error)

// Next calls f.
func (f ReasonerFunc) Next(ctx context.Context, run *Run) (*model.ToolCall, error) {
	return f(ctx, run)
}

// Script is a Reasoner replaying a fixed list of calls: the n-th step of a
// run is calls[n]. The position is derived from the run's steps only, so a
// run resumed in another process continues where it stopped.
type Script []*model.ToolCall

// Next returns the call following the recorded steps.
func (s Script) Next(_ context.Context, run *Run) (*model.ToolCall, error) {
	index := len(run.Steps)
	if index >= len(s) {
		return nil, nil
	}
	ret := s[index].Clone()
	if ret.ID == "" {
		ret.ID = fmt.Sprintf("call-%d", index+1)
	}
	return ret, nil
}
