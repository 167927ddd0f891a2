package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/viant/hitl/internal/idgen"
	"github.com/viant/hitl/model"
	"github.com/viant/hitl/service/gate"
	"github.com/viant/hitl/service/resume"
	"github.com/viant/hitl/service/tool"
	"go.uber.org/zap"
)

// ErrMaxSteps terminates a run that exceeds its step bound.
var ErrMaxSteps = errors.New("max steps exceeded")

// Status is the state a run returns in.
type Status string

const (
	Completed Status = "completed"
	Suspended Status = "suspended"
	// Stalled runs failed after a decision was applied; Recover continues them.
	Stalled Status = "stalled"
	// Failed runs reached their step bound.
	Failed Status = "failed"
)

// Result reports where a run stopped.
type Result struct {
	RunID  string
	Status Status
	// CheckpointID is set when Status is Suspended or Stalled, Description
	// when it is Suspended.
	CheckpointID string
	Description  string
	Steps        []*model.Step
	// Resumed is the outcome Continue applied.
	Resumed *model.Outcome
}

// Service is the agent run loop.
type Service struct {
	gate     *gate.Service
	resume   *resume.Service
	executor tool.Executor
	reasoner Reasoner
	maxSteps int
	logger   *zap.Logger
}

// Start begins a new run; an empty runID gets a generated one.
func (s *Service) Start(ctx context.Context, runID string) (*Result, error) {
	if runID == "" {
		runID = idgen.New()
	}
	s.logger.Info("run started", zap.String("run_id", runID))
	return s.loop(ctx, &Run{ID: runID})
}

// Continue resumes a suspended run with a decision and runs it until it
// completes or suspends again. Approved and edited calls execute with their
// final arguments; a rejection is recorded as a rejected step the reasoner
// can react to. Once the decision is applied the returned Result is non-nil
// and carries it in Resumed, even when the continued run fails. A decided
// call that could not run is suspended again under the same checkpoint id;
// a failure after it ran stalls the run (see Recover). Either way the error
// is returned alongside the Result.
func (s *Service) Continue(ctx context.Context, checkpointID string, decision *model.Decision) (*Result, error) {
	outcome, err := s.resume.Resume(ctx, checkpointID, decision)
	if err != nil {
		return nil, err
	}
	cp := outcome.Checkpoint
	run := &Run{ID: cp.RunID, Steps: cp.Steps}
	if outcome.Executes() {
		step, err := s.execute(ctx, outcome.Call)
		if err != nil {
			result, err := s.resuspend(ctx, run, outcome.Call, err)
			result.Resumed = outcome
			return result, err
		}
		step.Reviewer = outcome.Reviewer
		run.Steps = append(run.Steps, step)
	} else {
		run.Steps = append(run.Steps, &model.Step{
			CallID:    outcome.Call.ID,
			ToolName:  outcome.Call.Name,
			Arguments: model.CloneArguments(outcome.Call.Arguments),
			Status:    model.StepRejected,
			Error:     rejection(outcome.Reason),
			Reviewer:  outcome.Reviewer,
		})
	}
	s.logger.Info("run continued",
		zap.String("run_id", run.ID),
		zap.String("checkpoint_id", checkpointID),
		zap.String("outcome", string(outcome.Kind)))
	result, err := s.loop(ctx, run)
	if err != nil {
		result = s.stall(ctx, run, result, err)
	}
	result.Resumed = outcome
	return result, err
}

// Recover continues a stalled run from its recorded steps. A run that is not
// stalled, or was recovered by another caller, yields model.ErrNotFound.
func (s *Service) Recover(ctx context.Context, runID string) (*Result, error) {
	cp, err := s.resume.Recover(ctx, runID)
	if err != nil {
		return nil, err
	}
	run := &Run{ID: runID, Steps: cp.Steps}
	result, err := s.loop(ctx, run)
	if err != nil {
		return s.stall(ctx, run, result, err), err
	}
	return result, nil
}

func (s *Service) loop(ctx context.Context, run *Run) (*Result, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(run.Steps) >= s.maxSteps {
			return &Result{RunID: run.ID, Status: Failed, Steps: run.Steps}, fmt.Errorf("%w: run %s reached %d steps", ErrMaxSteps, run.ID, s.maxSteps)
		}
		call, err := s.reasoner.Next(ctx, run)
		if err != nil {
			return nil, fmt.Errorf("run %s: reasoner: %w", run.ID, err)
		}
		if call == nil {
			s.logger.Info("run completed", zap.String("run_id", run.ID), zap.Int("steps", len(run.Steps)))
			return &Result{RunID: run.ID, Status: Completed, Steps: run.Steps}, nil
		}
		if call.RunID == "" {
			call.RunID = run.ID
		}
		if call.ID == "" {
			call.ID = idgen.New()
		}
		verdict, err := s.gate.Submit(ctx, call, run.Steps...)
		if err != nil {
			return nil, err
		}
		if verdict.IsSuspended() {
			return &Result{
				RunID:        run.ID,
				Status:       Suspended,
				CheckpointID: verdict.CheckpointID,
				Description:  verdict.Description,
				Steps:        run.Steps,
			}, nil
		}
		step, err := s.execute(ctx, call)
		if err != nil {
			return nil, err
		}
		run.Steps = append(run.Steps, step)
	}
}

// execute runs a sanctioned call. Tool failures become failed steps; only a
// cancelled context aborts the run.
func (s *Service) execute(ctx context.Context, call *model.ToolCall) (*model.Step, error) {
	output, err := s.executor.Execute(ctx, call.Name, call.Arguments)
	step := &model.Step{
		CallID:    call.ID,
		ToolName:  call.Name,
		Arguments: model.CloneArguments(call.Arguments),
		Output:    output,
		Status:    model.StepExecuted,
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		step.Status = model.StepFailed
		step.Error = err.Error()
		s.logger.Warn("tool failed", zap.String("run_id", call.RunID), zap.String("tool", call.Name), zap.Error(err))
	}
	return step, nil
}

// resuspend puts a decided call that never completed back in front of
// reviewers. Persistence outlives the run context, which may be the reason
// the call failed.
func (s *Service) resuspend(ctx context.Context, run *Run, call *model.ToolCall, cause error) (*Result, error) {
	verdict, err := s.gate.Submit(context.WithoutCancel(ctx), call, run.Steps...)
	if err != nil {
		s.logger.Error("decided call not suspended again",
			zap.String("run_id", run.ID),
			zap.String("call_id", call.ID),
			zap.Error(err))
		return &Result{RunID: run.ID, Steps: run.Steps}, errors.Join(cause, err)
	}
	if !verdict.IsSuspended() {
		return s.stall(ctx, run, nil, cause), cause
	}
	s.logger.Warn("decided call suspended again",
		zap.String("run_id", run.ID),
		zap.String("call_id", call.ID),
		zap.String("checkpoint_id", verdict.CheckpointID),
		zap.Error(cause))
	return &Result{
		RunID:        run.ID,
		Status:       Suspended,
		CheckpointID: verdict.CheckpointID,
		Description:  verdict.Description,
		Steps:        run.Steps,
	}, cause
}

// stall persists the steps of a run that failed after a decision was applied.
// Reaching the step bound is final and is not stalled.
func (s *Service) stall(ctx context.Context, run *Run, result *Result, cause error) *Result {
	if result == nil {
		result = &Result{RunID: run.ID, Steps: run.Steps}
	}
	if errors.Is(cause, ErrMaxSteps) {
		return result
	}
	id, err := s.resume.Stall(context.WithoutCancel(ctx), run.ID, run.Steps, cause)
	if err != nil {
		s.logger.Error("run state not persisted", zap.String("run_id", run.ID), zap.Error(err))
		return result
	}
	result.Status = Stalled
	result.CheckpointID = id
	return result
}

func rejection(reason string) string {
	if reason == "" {
		return "rejected by reviewer"
	}
	return "rejected by reviewer: " + reason
}

// New creates a run loop; gate, resume controller, executor and reasoner are
// required.
func New(options ...Option) (*Service, error) {
	ret := &Service{maxSteps: DefaultMaxSteps, logger: zap.NewNop()}
	for _, option := range options {
		option(ret)
	}
	switch {
	case ret.gate == nil:
		return nil, fmt.Errorf("%w: runner requires a gate", model.ErrConfig)
	case ret.resume == nil:
		return nil, fmt.Errorf("%w: runner requires a resume controller", model.ErrConfig)
	case ret.executor == nil:
		return nil, fmt.Errorf("%w: runner requires a tool executor", model.ErrConfig)
	case ret.reasoner == nil:
		return nil, fmt.Errorf("%w: runner requires a reasoner", model.ErrConfig)
	}
	return ret, nil
}
