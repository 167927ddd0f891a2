// Package sqlite provides a checkpoint store backed by an embedded SQLite
// database, suitable for resuming runs across processes on one host.
package sqlite

import (
	"context"

	_ "github.com/glebarez/go-sqlite"
	"github.com/viant/hitl/service/checkpoint/sqlstore"
)

// Dialect is the SQLite statement dialect.
var Dialect = sqlstore.Dialect{
	Driver:      "sqlite",
	Placeholder: sqlstore.Question,
	Schema: `
CREATE TABLE IF NOT EXISTS hitl_checkpoints (
  id TEXT PRIMARY KEY,
  run_id TEXT NOT NULL,
  tool_name TEXT NOT NULL,
  created_at_unix INTEGER NOT NULL,
  payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_hitl_checkpoints_run ON hitl_checkpoints(run_id);
`,
}

// New opens the database at dsn, e.g. "file:hitl.db?_pragma=busy_timeout(5000)".
func New(ctx context.Context, dsn string) (*sqlstore.Service, error) {
	return sqlstore.New(ctx, Dialect, dsn)
}
