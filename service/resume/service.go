package resume

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/viant/hitl/internal/clock"
	"github.com/viant/hitl/metrics"
	"github.com/viant/hitl/model"
	"github.com/viant/hitl/service/approval"
	"github.com/viant/hitl/service/checkpoint"
	"github.com/viant/hitl/service/dao"
	"github.com/viant/hitl/service/messaging"
	"github.com/viant/hitl/tracing"
	"go.uber.org/zap"
)

// Service resumes suspended calls with reviewer decisions.
type Service struct {
	store     checkpoint.Store
	logger    *zap.Logger
	metrics   *metrics.Metrics
	notifiers approval.Notifiers
	queue     messaging.Queue[approval.Event]
}

var _ approval.Service = (*Service)(nil)

// Resume applies decision to checkpoint id. Approve and edit return an
// OutcomeExecute carrying the call to run (edit replaces the arguments
// only); reject returns OutcomeAborted with the reason.
func (s *Service) Resume(ctx context.Context, id string, decision *model.Decision) (outcome *model.Outcome, err error) {
	ctx, span := tracing.StartSpan(ctx, "hitl.resume", tracing.KindInternal)
	span.WithAttributes(map[string]string{"checkpoint_id": id})
	defer func() { tracing.EndSpan(span, err) }()

	decisionType := "invalid"
	if decision != nil {
		decisionType = string(decision.Type)
	}
	cp, err := s.load(ctx, id)
	if err != nil {
		s.metrics.Decision(decisionType, result(err))
		return nil, err
	}
	if err = validate(cp, decision); err != nil {
		s.metrics.Decision(decisionType, result(err))
		s.logger.Info("decision refused",
			zap.String("checkpoint_id", id),
			zap.String("decision", decisionType),
			zap.String("policy", cp.Pending.Policy.String()),
			zap.Error(err))
		return nil, err
	}

	outcome = newOutcome(cp, decision)
	if err = s.consume(ctx, id); err != nil {
		s.metrics.Decision(decisionType, result(err))
		return nil, err
	}
	s.metrics.Decision(decisionType, string(outcome.Kind))
	s.metrics.Pending(cp.ToolName(), clock.Since(cp.CreatedAt).Seconds())
	s.logResolution(cp, decision, outcome)

	decidedAt := decision.DecidedAt
	if decidedAt.IsZero() {
		decidedAt = clock.Now()
	}
	record := &approval.Record{
		CheckpointID: cp.ID,
		RunID:        cp.RunID,
		CallID:       outcome.Call.ID,
		Tool:         outcome.Call.Name,
		Decision:     decision.Type,
		Reason:       decision.Reason,
		Reviewer:     decision.Reviewer,
		DecidedAt:    decidedAt,
	}
	if outcome.Executes() {
		record.Arguments = model.CloneArguments(outcome.Call.Arguments)
	}
	s.notify(ctx, &approval.Event{Topic: approval.TopicDecisionCreated, Data: record})
	return outcome, nil
}

// Abandon discards a pending interrupt without running its tool.
func (s *Service) Abandon(ctx context.Context, id string) (err error) {
	ctx, span := tracing.StartSpan(ctx, "hitl.abandon", tracing.KindInternal)
	span.WithAttributes(map[string]string{"checkpoint_id": id})
	defer func() { tracing.EndSpan(span, err) }()

	cp, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err = s.consume(ctx, id); err != nil {
		s.metrics.Decision("abandon", result(err))
		return err
	}
	s.metrics.Decision("abandon", "abandoned")
	s.logger.Info("interrupt abandoned",
		zap.String("checkpoint_id", id),
		zap.String("run_id", cp.RunID),
		zap.String("tool", cp.ToolName()))
	record := &approval.Record{CheckpointID: cp.ID, RunID: cp.RunID, Tool: cp.ToolName(), DecidedAt: clock.Now()}
	if cp.Pending != nil && cp.Pending.Call != nil {
		record.CallID = cp.Pending.Call.ID
	}
	s.notify(ctx, &approval.Event{Topic: approval.TopicInterruptAbandoned, Data: record})
	return nil
}

// Decide is Resume under its reviewer-facing name.
func (s *Service) Decide(ctx context.Context, id string, decision *model.Decision) (*model.Outcome, error) {
	return s.Resume(ctx, id, decision)
}

// Pending returns the reviewer view of one checkpoint.
func (s *Service) Pending(ctx context.Context, id string) (*approval.Interrupt, error) {
	cp, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return approval.NewInterrupt(cp), nil
}

// ListPending returns every pending interrupt, oldest first.
func (s *Service) ListPending(ctx context.Context) ([]*approval.Interrupt, error) {
	return s.List(ctx)
}

// List returns pending interrupts matching store parameters (see
// checkpoint.ByRunID and checkpoint.ByTool), oldest first.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*approval.Interrupt, error) {
	checkpoints, err := s.store.List(ctx, parameters...)
	if err != nil {
		s.metrics.Storage("list")
		return nil, fmt.Errorf("%w: list checkpoints: %v", model.ErrStorage, err)
	}
	ret := make([]*approval.Interrupt, 0, len(checkpoints))
	for _, cp := range checkpoints {
		if cp.IsStalled() {
			continue
		}
		ret = append(ret, approval.NewInterrupt(cp))
	}
	sort.Slice(ret, func(i, j int) bool {
		if ret[i].CreatedAt.Equal(ret[j].CreatedAt) {
			return ret[i].ID < ret[j].ID
		}
		return ret[i].CreatedAt.Before(ret[j].CreatedAt)
	})
	return ret, nil
}

// Queue returns the event queue configured with WithQueue.
func (s *Service) Queue() messaging.Queue[approval.Event] { return s.queue }

func (s *Service) load(ctx context.Context, id string) (*model.Checkpoint, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty checkpoint id", model.ErrNotFound)
	}
	cp, err := s.store.Load(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, dao.ErrNotFound):
		return nil, fmt.Errorf("%w: checkpoint %s", model.ErrNotFound, id)
	default:
		s.metrics.Storage("load")
		return nil, fmt.Errorf("%w: load checkpoint %s: %v", model.ErrStorage, id, err)
	}
	if cp.IsStalled() {
		return nil, fmt.Errorf("%w: checkpoint %s is not awaiting a decision", model.ErrNotFound, id)
	}
	if err = verify(cp); err != nil {
		s.metrics.Storage("verify")
		return nil, fmt.Errorf("%w: checkpoint %s: %v", model.ErrStorage, id, err)
	}
	return cp, nil
}

// consume deletes the checkpoint; only the caller whose delete succeeds owns
// the outcome.
func (s *Service) consume(ctx context.Context, id string) error {
	err := s.store.Delete(ctx, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, dao.ErrNotFound):
		return fmt.Errorf("%w: checkpoint %s already resumed", model.ErrNotFound, id)
	}
	s.metrics.Storage("delete")
	return fmt.Errorf("%w: delete checkpoint %s: %v", model.ErrStorage, id, err)
}

func (s *Service) logResolution(cp *model.Checkpoint, decision *model.Decision, outcome *model.Outcome) {
	fields := []zap.Field{
		zap.String("checkpoint_id", cp.ID),
		zap.String("run_id", cp.RunID),
		zap.String("tool", cp.ToolName()),
		zap.String("decision", string(decision.Type)),
		zap.String("outcome", string(outcome.Kind)),
	}
	if decision.Reviewer != "" {
		fields = append(fields, zap.String("reviewer", decision.Reviewer))
	}
	s.logger.Info("interrupt resolved", fields...)
	if decision.Type != model.DecisionEdit || !s.logger.Core().Enabled(zap.DebugLevel) {
		return
	}
	diff, err := ArgumentsDiff(cp.Pending.Call.Arguments, outcome.Call.Arguments)
	if err != nil {
		s.logger.Debug("arguments diff unavailable", zap.String("checkpoint_id", cp.ID), zap.Error(err))
		return
	}
	s.logger.Debug("arguments edited", zap.String("checkpoint_id", cp.ID), zap.String("diff", diff))
}

func (s *Service) notify(ctx context.Context, event *approval.Event) {
	if len(s.notifiers) == 0 {
		return
	}
	if err := s.notifiers.Notify(ctx, event); err != nil {
		s.logger.Warn("approval event not delivered", zap.String("topic", event.Topic), zap.Error(err))
	}
}

// verify accepts only current-version checkpoints whose pending call still
// matches the hash taken at suspension.
func verify(cp *model.Checkpoint) error {
	if cp.Version != model.CheckpointVersion {
		return fmt.Errorf("unsupported checkpoint version %d", cp.Version)
	}
	if cp.Pending.Call == nil {
		return fmt.Errorf("no pending call")
	}
	if cp.ActionHash == "" {
		return fmt.Errorf("missing action hash")
	}
	hash, err := model.ActionHash(cp.Pending.Call)
	if err != nil {
		return err
	}
	if hash != cp.ActionHash {
		return fmt.Errorf("pending call does not match its action hash")
	}
	return nil
}

func validate(cp *model.Checkpoint, decision *model.Decision) error {
	if decision == nil {
		return fmt.Errorf("%w: missing decision", model.ErrPolicyViolation)
	}
	p := cp.Pending.Policy
	if !p.Allows(decision.Type) {
		return fmt.Errorf("%w: %q is not allowed by %s", model.ErrPolicyViolation, decision.Type, p)
	}
	if decision.Type == model.DecisionEdit && decision.Arguments == nil {
		return fmt.Errorf("%w: edit requires arguments", model.ErrPolicyViolation)
	}
	return nil
}

func newOutcome(cp *model.Checkpoint, decision *model.Decision) *model.Outcome {
	ret := &model.Outcome{
		Call:       cp.Pending.Call.Clone(),
		Reviewer:   decision.Reviewer,
		Checkpoint: cp,
	}
	switch decision.Type {
	case model.DecisionApprove:
		ret.Kind = model.OutcomeExecute
	case model.DecisionEdit:
		ret.Kind = model.OutcomeExecute
		ret.Call.Arguments = model.CloneArguments(decision.Arguments)
	default:
		ret.Kind = model.OutcomeAborted
		ret.Reason = decision.Reason
	}
	return ret
}

func result(err error) string {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	case errors.Is(err, model.ErrPolicyViolation):
		return "policy_violation"
	}
	return "error"
}

// New creates a resume controller. A store is required.
func New(options ...Option) (*Service, error) {
	ret := &Service{logger: zap.NewNop()}
	for _, option := range options {
		option(ret)
	}
	if ret.store == nil {
		return nil, fmt.Errorf("%w: resume requires a checkpoint store", model.ErrConfig)
	}
	return ret, nil
}
