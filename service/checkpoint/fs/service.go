package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"
	"github.com/viant/hitl/model"
	"github.com/viant/hitl/service/checkpoint"
	"github.com/viant/hitl/service/dao"
	"github.com/viant/hitl/service/dao/criteria"
)

const fileExt = ".json"

// Service implements a filesystem-based checkpoint store, one JSON document
// per checkpoint. Any afs supported location can be used as base URL.
//
// Create and Delete are linearizable within one Service instance; processes
// sharing a directory should use the sqlite, postgres or redis backend.
type Service struct {
	baseURL string
	fs      afs.Service
	mu      sync.RWMutex
}

var _ checkpoint.Store = (*Service)(nil)

// Save persists a checkpoint, overwriting any previous version.
func (s *Service) Save(ctx context.Context, c *model.Checkpoint) error {
	if err := validate(c); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upload(ctx, c)
}

// Create persists a checkpoint unless its id is already stored.
func (s *Service) Create(ctx context.Context, c *model.Checkpoint) error {
	if err := validate(c); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	exists, err := s.fs.Exists(ctx, s.checkpointURL(c.ID))
	if err != nil {
		return fmt.Errorf("failed to check if checkpoint exists: %w", err)
	}
	if exists {
		return dao.ErrAlreadyExists
	}
	return s.upload(ctx, c)
}

// Load retrieves a checkpoint from the filesystem.
func (s *Service) Load(ctx context.Context, id string) (*model.Checkpoint, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	URL := s.checkpointURL(id)
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to check if checkpoint exists: %w", err)
	}
	if !exists {
		return nil, dao.ErrNotFound
	}
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}
	return decode(URL, data)
}

// Delete removes a checkpoint from the filesystem.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	URL := s.checkpointURL(id)
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return fmt.Errorf("failed to check if checkpoint exists: %w", err)
	}
	if !exists {
		return dao.ErrNotFound
	}
	if err := s.fs.Delete(ctx, URL); err != nil {
		return fmt.Errorf("failed to delete checkpoint file: %w", err)
	}
	return nil
}

// List returns checkpoints matching the parameters.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*model.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objects, err := s.fs.List(ctx, s.baseURL, option.NewRecursive(false))
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoint files: %w", err)
	}
	var ret []*model.Checkpoint
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), fileExt) {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			return nil, fmt.Errorf("failed to read checkpoint file %s: %w", object.URL(), err)
		}
		c, err := decode(object.URL(), data)
		if err != nil {
			return nil, err
		}
		if criteria.Match(checkpoint.Fields(c), parameters) {
			ret = append(ret, c)
		}
	}
	return ret, nil
}

func (s *Service) upload(ctx context.Context, c *model.Checkpoint) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	URL := s.checkpointURL(c.ID)
	if err = s.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save checkpoint to file %s: %w", URL, err)
	}
	return nil
}

func (s *Service) checkpointURL(id string) string {
	return url.Join(s.baseURL, path.Base(id)+fileExt)
}

func decode(URL string, data []byte) (*model.Checkpoint, error) {
	ret := &model.Checkpoint{}
	if err := json.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint %s: %w", URL, err)
	}
	return ret, nil
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

// New creates a filesystem checkpoint store rooted at baseURL.
func New(baseURL string) (*Service, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	fs := afs.New()
	baseURL = url.Normalize(baseURL, file.Scheme)
	ctx := context.Background()
	exists, _ := fs.Exists(ctx, baseURL)
	if !exists {
		if err := fs.Create(ctx, baseURL, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
		}
	}
	return &Service{baseURL: baseURL, fs: fs}, nil
}
