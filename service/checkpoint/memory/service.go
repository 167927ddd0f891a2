package memory

import (
	"context"

	"github.com/viant/hitl/model"
	"github.com/viant/hitl/service/checkpoint"
	"github.com/viant/hitl/service/dao"
	"github.com/viant/hitl/service/dao/store"
)

// Service implements an in-memory checkpoint store. All operations are
// thread-safe and return copies so that callers mutating a loaded checkpoint
// never change the stored one.
type Service struct {
	records *store.MemoryStore[string, model.Checkpoint]
}

var _ checkpoint.Store = (*Service)(nil)

// Save persists (a clone of) the supplied checkpoint.
func (s *Service) Save(ctx context.Context, c *model.Checkpoint) error {
	if err := validate(c); err != nil {
		return err
	}
	return s.records.Save(ctx, c)
}

// Create persists the checkpoint unless its id is already stored.
func (s *Service) Create(ctx context.Context, c *model.Checkpoint) error {
	if err := validate(c); err != nil {
		return err
	}
	return s.records.Create(ctx, c)
}

// Load retrieves a copy of the checkpoint or dao.ErrNotFound.
func (s *Service) Load(ctx context.Context, id string) (*model.Checkpoint, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	return s.records.Load(ctx, id)
}

// Delete removes a checkpoint or reports dao.ErrNotFound.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	return s.records.Delete(ctx, id)
}

// List returns copies of checkpoints matching the parameters.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*model.Checkpoint, error) {
	return s.records.List(ctx, parameters...)
}

func validate(c *model.Checkpoint) error {
	if c == nil {
		return dao.ErrNilEntity
	}
	if c.ID == "" {
		return dao.ErrInvalidID
	}
	return nil
}

// New constructor.
func New() *Service {
	return &Service{
		records: store.NewMemoryStore[string, model.Checkpoint](checkpoint.Key,
			store.WithClone[string, model.Checkpoint]((*model.Checkpoint).Clone),
			store.WithFields[string, model.Checkpoint](checkpoint.Fields),
		),
	}
}
