package approval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/viant/hitl/internal/clock"
	"github.com/viant/hitl/model"
	"go.uber.org/zap"
)

// DecisionFunc decides what to do with a pending interrupt. Returning nil
// leaves the interrupt pending.
type DecisionFunc func(i *Interrupt) *model.Decision

// AutoOption customises AutoDecider.
type AutoOption func(*autoConfig)

type autoConfig struct {
	logger *zap.Logger
}

// WithLogger reports decision failures other than a lost race.
func WithLogger(logger *zap.Logger) AutoOption {
	return func(c *autoConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// AutoDecider starts a goroutine that polls ListPending and applies fn to
// every interrupt. It returns stop(); call it (or cancel ctx) to exit.
func AutoDecider(ctx context.Context,
	svc Service,
	fn DecisionFunc,
	interval time.Duration, options ...AutoOption) (stop func()) {

	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	cfg := &autoConfig{logger: zap.NewNop()}
	for _, option := range options {
		option(cfg)
	}
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				pending, err := svc.ListPending(ctx)
				if err != nil {
					cfg.logger.Warn("list pending interrupts", zap.Error(err))
					continue
				}
				for _, interrupt := range pending {
					decision := fn(interrupt)
					if decision == nil {
						continue
					}
					decide(ctx, svc, interrupt, decision, cfg.logger)
				}
			}
		}
	}()
	return func() { close(done) }
}

func decide(ctx context.Context, svc Service, interrupt *Interrupt, decision *model.Decision, logger *zap.Logger) {
	_, err := svc.Decide(ctx, interrupt.ID, decision)
	switch {
	case err == nil, errors.Is(err, model.ErrNotFound):
		return
	case errors.Is(err, model.ErrPolicyViolation) && decision.Type == model.DecisionReject:
		// the policy does not accept reject; abandoning is the only way to stop the call
		if err = svc.Abandon(ctx, interrupt.ID); err == nil || errors.Is(err, model.ErrNotFound) {
			return
		}
	}
	logger.Warn("auto decision failed",
		zap.String("checkpoint_id", interrupt.ID),
		zap.String("decision", string(decision.Type)),
		zap.Error(err))
}

// AutoApprove automatically approves all pending interrupts.
func AutoApprove(ctx context.Context,
	svc Service,
	interval time.Duration, options ...AutoOption) func() {
	return AutoDecider(ctx, svc,
		func(*Interrupt) *model.Decision { return model.Approve().By("auto") }, interval, options...)
}

// AutoReject automatically rejects all pending interrupts with the given
// reason. Interrupts whose policy does not accept reject are abandoned.
func AutoReject(ctx context.Context,
	svc Service,
	reason string,
	interval time.Duration, options ...AutoOption) func() {
	return AutoDecider(ctx, svc,
		func(*Interrupt) *model.Decision { return model.Reject(reason).By("auto") }, interval, options...)
}

// AutoExpire rejects interrupts whose deadline has passed.
func AutoExpire(ctx context.Context,
	svc Service,
	reason string,
	interval time.Duration, options ...AutoOption) func() {
	return AutoDecider(ctx, svc, func(i *Interrupt) *model.Decision {
		if i.ExpiresAt == nil || !clock.Now().After(*i.ExpiresAt) {
			return nil
		}
		return model.Reject(reason).By("expiry")
	}, interval, options...)
}

// PendingFilter selects interrupts in ListPending.
type PendingFilter func(i *Interrupt) bool

// WithRunID selects interrupts of the given runs.
func WithRunID(runIDs ...string) PendingFilter {
	return func(i *Interrupt) bool { return contains(runIDs, i.RunID) }
}

// WithTool selects interrupts of the given tools.
func WithTool(tools ...string) PendingFilter {
	return func(i *Interrupt) bool { return contains(tools, i.Tool) }
}

// ListPending returns pending interrupts matching every filter, oldest first.
func ListPending(ctx context.Context, svc Service, filters ...PendingFilter) ([]*Interrupt, error) {
	pending, err := svc.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	ret := make([]*Interrupt, 0, len(pending))
outer:
	for _, interrupt := range pending {
		for _, filter := range filters {
			if !filter(interrupt) {
				continue outer
			}
		}
		ret = append(ret, interrupt)
	}
	sortByCreation(ret)
	return ret, nil
}

// WaitForDecision consumes svc's event queue until the decision or
// abandonment of checkpoint id arrives, or timeout elapses. Other events are
// acknowledged and dropped, so use a dedicated queue consumer.
func WaitForDecision(ctx context.Context, svc Service, id string, timeout time.Duration) (*Record, error) {
	queue := svc.Queue()
	if queue == nil {
		return nil, fmt.Errorf("approval service has no event queue")
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	for {
		msg, err := queue.Consume(ctx)
		if err != nil {
			return nil, fmt.Errorf("waiting for decision on %s: %w", id, err)
		}
		event := msg.T()
		_ = msg.Ack()
		if event.Topic != TopicDecisionCreated && event.Topic != TopicInterruptAbandoned {
			continue
		}
		if record, ok := event.Data.(*Record); ok && record.CheckpointID == id {
			return record, nil
		}
	}
}

func contains(candidates []string, value string) bool {
	for _, candidate := range candidates {
		if candidate == value {
			return true
		}
	}
	return false
}

func sortByCreation(interrupts []*Interrupt) {
	sort.Slice(interrupts, func(i, j int) bool {
		a, b := interrupts[i], interrupts[j]
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}
