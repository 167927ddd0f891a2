// Package demo provides three placeholder tools and their review policy,
// used by the CLI demo run and in tests.
package demo

import (
	"context"
	"fmt"

	"github.com/viant/hitl/policy"
	"github.com/viant/hitl/service/tool"
)

// DefaultLimit is the read_data row limit when none is given.
const DefaultLimit = 10

// WriteFileInput are write_file arguments.
type WriteFileInput struct {
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
}

// ExecuteSQLInput are execute_sql arguments.
type ExecuteSQLInput struct {
	Query string `json:"query"`
}

// ReadDataInput are read_data arguments.
type ReadDataInput struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// Tools returns write_file, execute_sql and read_data. None of them has side
// effects; each reports what it would have done.
func Tools() []*tool.Tool {
	return []*tool.Tool{
		tool.New("write_file", "Write content to a file", func(_ context.Context, in *WriteFileInput) (string, error) {
			return fmt.Sprintf("File written to %s successfully", in.FilePath), nil
		}),
		tool.New("execute_sql", "Execute a SQL query", func(_ context.Context, in *ExecuteSQLInput) (string, error) {
			return fmt.Sprintf("SQL %s executed successfully", in.Query), nil
		}),
		tool.New("read_data", "Read data from a database", func(_ context.Context, in *ReadDataInput) (string, error) {
			limit := in.Limit
			if limit <= 0 {
				limit = DefaultLimit
			}
			return fmt.Sprintf("%d rows of data read successfully by %s", limit, in.Query), nil
		}),
	}
}

// Registry returns a tool registry holding Tools.
func Registry() (*tool.Registry, error) {
	return tool.NewRegistry(Tools()...)
}

// Policies is the demo review configuration: writes need full review, SQL
// execution can be approved or rejected but not edited, reads run freely.
func Policies() *policy.Config {
	return &policy.Config{
		DescriptionPrefix: policy.DefaultDescriptionPrefix,
		InterruptOn: map[string]*policy.Spec{
			"write_file":  policy.Bool(true),
			"execute_sql": policy.Allow("approve", "reject"),
			"read_data":   policy.Bool(false),
		},
	}
}
