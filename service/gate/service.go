package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/viant/hitl/internal/clock"
	"github.com/viant/hitl/internal/idgen"
	"github.com/viant/hitl/metrics"
	"github.com/viant/hitl/model"
	"github.com/viant/hitl/policy"
	"github.com/viant/hitl/service/approval"
	"github.com/viant/hitl/service/checkpoint"
	"github.com/viant/hitl/service/dao"
	"github.com/viant/hitl/tracing"
	"go.uber.org/zap"
)

// Action tells the caller how to continue after Submit.
type Action string

const (
	// Proceed executes the call now.
	Proceed Action = "proceed"
	// Suspended stops the run until the checkpoint is resumed.
	Suspended Action = "suspended"
)

// Result is the gate verdict on one call.
type Result struct {
	Action Action
	// Call is the submitted call; set for Proceed.
	Call *model.ToolCall
	// CheckpointID identifies the suspension; set for Suspended.
	CheckpointID string
	// Description is the reviewer message; set for Suspended.
	Description string
}

// IsSuspended reports whether the run must stop.
func (r *Result) IsSuspended() bool { return r != nil && r.Action == Suspended }

// Service routes proposed tool calls through their review policy.
type Service struct {
	store    checkpoint.Store
	registry *policy.Registry
	prefix   string
	logger   *zap.Logger
	metrics  *metrics.Metrics
	notifier approval.Notifier
	attempts uint
	delay    time.Duration
	ttl      time.Duration
}

// Submit decides whether call may run. history holds the completed steps of
// the run and is stored with the checkpoint so that the run can continue in
// another process. Submitting the same (run id, call id) again while it is
// suspended returns the same checkpoint id without writing a second
// checkpoint.
func (s *Service) Submit(ctx context.Context, call *model.ToolCall, history ...*model.Step) (result *Result, err error) {
	if call == nil || call.Name == "" || call.ID == "" {
		return nil, fmt.Errorf("gate: tool call requires id and name")
	}
	ctx, span := tracing.StartSpan(ctx, "hitl.gate.submit", tracing.KindInternal)
	span.WithAttributes(map[string]string{"tool": call.Name, "run_id": call.RunID, "call_id": call.ID})
	defer func() { tracing.EndSpan(span, err) }()

	p := s.policyFor(ctx, call.Name)
	if !p.RequiresReview() {
		s.metrics.Submission(call.Name, string(Proceed))
		return &Result{Action: Proceed, Call: call}, nil
	}

	cp, err := s.newCheckpoint(call, p, history)
	if err != nil {
		s.metrics.Submission(call.Name, "error")
		return nil, err
	}
	created, err := s.create(ctx, cp)
	if err != nil {
		s.metrics.Submission(call.Name, "error")
		s.metrics.Storage("create")
		return nil, fmt.Errorf("%w: suspend %s call %s: %v", model.ErrStorage, call.Name, call.ID, err)
	}
	fields := []zap.Field{
		zap.String("run_id", call.RunID),
		zap.String("call_id", call.ID),
		zap.String("tool", call.Name),
		zap.String("checkpoint_id", cp.ID),
		zap.String("policy", p.String()),
	}
	if !created {
		stored, err := s.suspended(ctx, cp)
		if err != nil {
			s.metrics.Submission(call.Name, "error")
			return nil, err
		}
		s.metrics.Submission(call.Name, string(Suspended))
		s.logger.Debug("tool call already suspended", fields...)
		return &Result{Action: Suspended, CheckpointID: stored.ID, Description: stored.Pending.Description}, nil
	}
	s.metrics.Submission(call.Name, string(Suspended))
	s.logger.Info("tool call suspended", fields...)
	s.notify(ctx, &approval.Event{Topic: approval.TopicInterruptCreated, Data: approval.NewInterrupt(cp)})
	return &Result{Action: Suspended, CheckpointID: cp.ID, Description: cp.Pending.Description}, nil
}

// PolicyFor returns the effective policy of a tool.
func (s *Service) PolicyFor(ctx context.Context, toolName string) model.Policy {
	return s.policyFor(ctx, toolName)
}

func (s *Service) policyFor(ctx context.Context, toolName string) model.Policy {
	if registry := policy.FromContext(ctx); registry != nil {
		return registry.PolicyFor(toolName)
	}
	return s.registry.PolicyFor(toolName)
}

func (s *Service) newCheckpoint(call *model.ToolCall, p model.Policy, history []*model.Step) (*model.Checkpoint, error) {
	pending := call.Clone()
	hash, err := model.ActionHash(pending)
	if err != nil {
		return nil, fmt.Errorf("gate: hash %s call %s: %w", call.Name, call.ID, err)
	}
	ret := &model.Checkpoint{
		ID:      idgen.CheckpointID(call.RunID, call.ID),
		RunID:   call.RunID,
		Version: model.CheckpointVersion,
		Pending: &model.PendingInterrupt{
			Call:        pending,
			Policy:      p,
			Description: Describe(s.prefix, p, call),
		},
		ActionHash: hash,
		CreatedAt:  clock.Now(),
	}
	for _, step := range history {
		ret.Steps = append(ret.Steps, step.Clone())
	}
	if s.ttl > 0 {
		expiresAt := ret.CreatedAt.Add(s.ttl)
		ret.ExpiresAt = &expiresAt
	}
	return ret, nil
}

// create persists cp and reports whether this call wrote it.
func (s *Service) create(ctx context.Context, cp *model.Checkpoint) (bool, error) {
	created := false
	err := retry.New(
		retry.Context(ctx),
		retry.Attempts(s.attempts),
		retry.Delay(s.delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, dao.ErrInvalidID) && !errors.Is(err, dao.ErrNilEntity)
		}),
	).Do(func() error {
		err := s.store.Create(ctx, cp)
		switch {
		case err == nil:
			created = true
			return nil
		case errors.Is(err, dao.ErrAlreadyExists):
			return nil
		}
		s.logger.Warn("checkpoint write failed", zap.String("checkpoint_id", cp.ID), zap.Error(err))
		return err
	})
	return created, err
}

// suspended returns the stored checkpoint a resubmitted call collided with.
// The reviewer sees the stored call, so a resubmit with other arguments is
// refused rather than silently dropped.
func (s *Service) suspended(ctx context.Context, cp *model.Checkpoint) (*model.Checkpoint, error) {
	stored, err := s.store.Load(ctx, cp.ID)
	if err != nil {
		s.metrics.Storage("load")
		return nil, fmt.Errorf("%w: load suspended %s call %s: %v", model.ErrStorage, cp.ToolName(), cp.Pending.Call.ID, err)
	}
	if stored.IsStalled() || stored.ActionHash != cp.ActionHash {
		return nil, fmt.Errorf("%w: %s call %s is already suspended with different arguments", model.ErrPolicyViolation, cp.ToolName(), cp.Pending.Call.ID)
	}
	return stored, nil
}

func (s *Service) notify(ctx context.Context, event *approval.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.logger.Warn("approval event not delivered", zap.String("topic", event.Topic), zap.Error(err))
	}
}

// New creates a gate. A store is required.
func New(options ...Option) (*Service, error) {
	ret := &Service{
		registry: policy.NewRegistry(),
		prefix:   policy.DefaultDescriptionPrefix,
		logger:   zap.NewNop(),
		attempts: 1,
	}
	for _, option := range options {
		option(ret)
	}
	if ret.store == nil {
		return nil, fmt.Errorf("%w: gate requires a checkpoint store", model.ErrConfig)
	}
	return ret, nil
}
