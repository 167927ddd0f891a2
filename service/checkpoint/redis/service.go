// Package redis provides a checkpoint store shared through Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/viant/hitl/model"
	"github.com/viant/hitl/service/checkpoint"
	"github.com/viant/hitl/service/dao"
	"github.com/viant/hitl/service/dao/criteria"
)

// DefaultPrefix namespaces checkpoint keys.
const DefaultPrefix = "hitl:checkpoint:"

// Service keeps each checkpoint as a JSON string under prefix+id and tracks
// ids in the prefix+"index" set for listing. SETNX provides insert-if-absent
// and the DEL reply count provides exactly-once deletion.
type Service struct {
	client redis.UniversalClient
	prefix string
}

var _ checkpoint.Store = (*Service)(nil)

// Option customises the store.
type Option func(*Service)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(s *Service) { s.prefix = prefix }
}

// Save stores or replaces a checkpoint.
func (s *Service) Save(ctx context.Context, c *model.Checkpoint) error {
	payload, err := encode(c)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(c.ID), payload, 0)
		pipe.SAdd(ctx, s.indexKey(), c.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save checkpoint %s: %w", c.ID, err)
	}
	return nil
}

// Create stores a checkpoint unless its id is already stored.
func (s *Service) Create(ctx context.Context, c *model.Checkpoint) error {
	payload, err := encode(c)
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, s.key(c.ID), payload, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to create checkpoint %s: %w", c.ID, err)
	}
	if !ok {
		return dao.ErrAlreadyExists
	}
	if err = s.client.SAdd(ctx, s.indexKey(), c.ID).Err(); err != nil {
		return fmt.Errorf("failed to index checkpoint %s: %w", c.ID, err)
	}
	return nil
}

// Load retrieves a checkpoint or dao.ErrNotFound.
func (s *Service) Load(ctx context.Context, id string) (*model.Checkpoint, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	payload, err := s.client.Get(ctx, s.key(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, dao.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint %s: %w", id, err)
	}
	return decode(payload)
}

// Delete removes a checkpoint or reports dao.ErrNotFound.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	deleted, err := s.client.Del(ctx, s.key(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint %s: %w", id, err)
	}
	if deleted == 0 {
		return dao.ErrNotFound
	}
	if err = s.client.SRem(ctx, s.indexKey(), id).Err(); err != nil {
		return fmt.Errorf("failed to unindex checkpoint %s: %w", id, err)
	}
	return nil
}

// List returns checkpoints matching the parameters. Index entries whose key
// has disappeared are skipped.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*model.Checkpoint, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	var ret []*model.Checkpoint
	for _, value := range values {
		payload, ok := value.(string)
		if !ok {
			continue
		}
		c, err := decode(payload)
		if err != nil {
			return nil, err
		}
		if criteria.Match(checkpoint.Fields(c), parameters) {
			ret = append(ret, c)
		}
	}
	return ret, nil
}

func (s *Service) key(id string) string { return s.prefix + id }

func (s *Service) indexKey() string { return s.prefix + "index" }

func encode(c *model.Checkpoint) (string, error) {
	if c == nil {
		return "", dao.ErrNilEntity
	}
	if c.ID == "" {
		return "", dao.ErrInvalidID
	}
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	return string(data), nil
}

func decode(payload string) (*model.Checkpoint, error) {
	ret := &model.Checkpoint{}
	if err := json.Unmarshal([]byte(payload), ret); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return ret, nil
}

// New creates a store over an existing client; the caller owns the client.
func New(client redis.UniversalClient, options ...Option) *Service {
	ret := &Service{client: client, prefix: DefaultPrefix}
	for _, option := range options {
		option(ret)
	}
	return ret
}
