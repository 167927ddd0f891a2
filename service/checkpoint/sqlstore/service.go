// Package sqlstore implements a database/sql checkpoint store shared by the
// sqlite and postgres backends.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/viant/hitl/model"
	"github.com/viant/hitl/service/checkpoint"
	"github.com/viant/hitl/service/dao"
)

// Table is the checkpoint table name.
const Table = "hitl_checkpoints"

var columns = map[string]string{
	checkpoint.ParamRunID: "run_id",
	checkpoint.ParamTool:  "tool_name",
}

// Service stores each checkpoint as a row with its JSON document in the
// payload column. Create relies on the primary key for insert-if-absent and
// Delete on the affected row count.
type Service struct {
	db      *sql.DB
	dialect Dialect
}

var _ checkpoint.Store = (*Service)(nil)

// Save inserts or replaces a checkpoint.
func (s *Service) Save(ctx context.Context, c *model.Checkpoint) error {
	args, err := rowArgs(c)
	if err != nil {
		return err
	}
	query := s.insert() + " ON CONFLICT (id) DO UPDATE SET run_id = excluded.run_id, tool_name = excluded.tool_name, created_at_unix = excluded.created_at_unix, payload = excluded.payload"
	if _, err = s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save checkpoint %s: %w", c.ID, err)
	}
	return nil
}

// Create inserts a checkpoint unless its id is already stored.
func (s *Service) Create(ctx context.Context, c *model.Checkpoint) error {
	args, err := rowArgs(c)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, s.insert()+" ON CONFLICT (id) DO NOTHING", args...)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint %s: %w", c.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to create checkpoint %s: %w", c.ID, err)
	}
	if affected == 0 {
		return dao.ErrAlreadyExists
	}
	return nil
}

// Load retrieves a checkpoint or dao.ErrNotFound.
func (s *Service) Load(ctx context.Context, id string) (*model.Checkpoint, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	var payload string
	query := "SELECT payload FROM " + Table + " WHERE id = " + s.dialect.Placeholder(1)
	err := s.db.QueryRowContext(ctx, query, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
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
	query := "DELETE FROM " + Table + " WHERE id = " + s.dialect.Placeholder(1)
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint %s: %w", id, err)
	}
	if affected == 0 {
		return dao.ErrNotFound
	}
	return nil
}

// List returns checkpoints matching the parameters, oldest first.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*model.Checkpoint, error) {
	query := strings.Builder{}
	query.WriteString("SELECT payload FROM " + Table)
	var args []interface{}
	var conditions []string
	for _, parameter := range parameters {
		if parameter == nil {
			continue
		}
		column, ok := columns[parameter.Name]
		if !ok {
			continue
		}
		values := parameter.Values()
		if len(values) == 0 {
			conditions = append(conditions, "1 = 0")
			continue
		}
		placeholders := make([]string, len(values))
		for i, value := range values {
			args = append(args, value)
			placeholders[i] = s.dialect.Placeholder(len(args))
		}
		conditions = append(conditions, column+" IN ("+strings.Join(placeholders, ", ")+")")
	}
	if len(conditions) > 0 {
		query.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	query.WriteString(" ORDER BY created_at_unix, id")

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	defer rows.Close()
	var ret []*model.Checkpoint
	for rows.Next() {
		var payload string
		if err = rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint: %w", err)
		}
		c, err := decode(payload)
		if err != nil {
			return nil, err
		}
		ret = append(ret, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	return ret, nil
}

// Close closes the underlying database.
func (s *Service) Close() error {
	return s.db.Close()
}

func (s *Service) insert() string {
	p := s.dialect.Placeholder
	return "INSERT INTO " + Table + " (id, run_id, tool_name, created_at_unix, payload) VALUES (" +
		strings.Join([]string{p(1), p(2), p(3), p(4), p(5)}, ", ") + ")"
}

func rowArgs(c *model.Checkpoint) ([]interface{}, error) {
	if c == nil {
		return nil, dao.ErrNilEntity
	}
	if c.ID == "" {
		return nil, dao.ErrInvalidID
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	return []interface{}{c.ID, c.RunID, c.ToolName(), c.CreatedAt.Unix(), string(payload)}, nil
}

func decode(payload string) (*model.Checkpoint, error) {
	ret := &model.Checkpoint{}
	if err := json.Unmarshal([]byte(payload), ret); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return ret, nil
}

// New opens dsn with the dialect's driver and creates the schema.
func New(ctx context.Context, dialect Dialect, dsn string) (*Service, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("missing %s dsn", dialect.Driver)
	}
	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, err
	}
	ret, err := NewWithDB(ctx, dialect, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return ret, nil
}

// NewWithDB wraps an open database and creates the schema.
func NewWithDB(ctx context.Context, dialect Dialect, db *sql.DB) (*Service, error) {
	if _, err := db.ExecContext(ctx, dialect.Schema); err != nil {
		return nil, fmt.Errorf("failed to migrate %s: %w", Table, err)
	}
	return &Service{db: db, dialect: dialect}, nil
}
