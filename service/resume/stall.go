package resume

import (
	"context"
	"errors"
	"fmt"

	"github.com/viant/hitl/internal/clock"
	"github.com/viant/hitl/internal/idgen"
	"github.com/viant/hitl/model"
	"github.com/viant/hitl/service/dao"
	"go.uber.org/zap"
)

// StalledID returns the key holding the stalled state of a run. Calls always
// carry an id, so the key never collides with a suspended call.
func StalledID(runID string) string { return idgen.CheckpointID(runID, "") }

// Stall records the steps of a run that failed after its interrupt was
// consumed. The record has no pending call: reviewers never see it and
// Recover hands the steps back to the run loop. A later stall of the same
// run replaces the record.
func (s *Service) Stall(ctx context.Context, runID string, steps []*model.Step, cause error) (string, error) {
	cp := &model.Checkpoint{
		ID:        StalledID(runID),
		RunID:     runID,
		Version:   model.CheckpointVersion,
		CreatedAt: clock.Now(),
	}
	if cause != nil {
		cp.Error = cause.Error()
	}
	for _, step := range steps {
		cp.Steps = append(cp.Steps, step.Clone())
	}
	if err := s.store.Save(ctx, cp); err != nil {
		s.metrics.Storage("save")
		return "", fmt.Errorf("%w: stall run %s: %v", model.ErrStorage, runID, err)
	}
	s.logger.Warn("run stalled",
		zap.String("run_id", runID),
		zap.String("checkpoint_id", cp.ID),
		zap.Int("steps", len(cp.Steps)),
		zap.String("cause", cp.Error))
	return cp.ID, nil
}

// Stalled returns the stalled state of a run without consuming it.
func (s *Service) Stalled(ctx context.Context, runID string) (*model.Checkpoint, error) {
	id := StalledID(runID)
	cp, err := s.store.Load(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, dao.ErrNotFound):
		return nil, fmt.Errorf("%w: run %s is not stalled", model.ErrNotFound, runID)
	default:
		s.metrics.Storage("load")
		return nil, fmt.Errorf("%w: load stalled run %s: %v", model.ErrStorage, runID, err)
	}
	if !cp.IsStalled() || cp.Version != model.CheckpointVersion {
		s.metrics.Storage("verify")
		return nil, fmt.Errorf("%w: checkpoint %s is not a stalled run", model.ErrStorage, id)
	}
	return cp, nil
}

// Recover consumes the stalled state of a run. Only one caller gets the
// steps; the others see model.ErrNotFound.
func (s *Service) Recover(ctx context.Context, runID string) (*model.Checkpoint, error) {
	cp, err := s.Stalled(ctx, runID)
	if err != nil {
		return nil, err
	}
	if err = s.consume(ctx, cp.ID); err != nil {
		return nil, err
	}
	s.logger.Info("run recovered", zap.String("run_id", runID), zap.Int("steps", len(cp.Steps)))
	return cp, nil
}
