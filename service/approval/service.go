package approval

import (
	"context"

	"github.com/viant/hitl/model"
	"github.com/viant/hitl/service/messaging"
)

// Service defines the reviewer-facing operations on pending interrupts.
type Service interface {
	// ListPending returns every suspended interrupt.
	ListPending(ctx context.Context) ([]*Interrupt, error)
	// Pending returns one interrupt or model.ErrNotFound.
	Pending(ctx context.Context, id string) (*Interrupt, error)
	// Decide resolves an interrupt; see model.ErrPolicyViolation and
	// model.ErrNotFound.
	Decide(ctx context.Context, id string, decision *model.Decision) (*model.Outcome, error)
	// Abandon discards an interrupt without running the tool.
	Abandon(ctx context.Context, id string) error
	// Queue returns the event feed, or nil when none is configured.
	Queue() messaging.Queue[Event]
}
