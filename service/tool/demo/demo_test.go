package demo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/hitl/model"
)

func TestTools(t *testing.T) {
	registry, err := Registry()
	require.NoError(t, err)

	type testCase struct {
		name     string
		tool     string
		args     map[string]interface{}
		expected string
	}
	tests := []testCase{
		{name: "write file", tool: "write_file", args: map[string]interface{}{"file_path": "a.txt", "content": "x"}, expected: "File written to a.txt successfully"},
		{name: "execute sql", tool: "execute_sql", args: map[string]interface{}{"query": "DELETE FROM t"}, expected: "SQL DELETE FROM t executed successfully"},
		{name: "read data default limit", tool: "read_data", args: map[string]interface{}{"query": "SELECT *"}, expected: "10 rows of data read successfully by SELECT *"},
		{name: "read data explicit limit", tool: "read_data", args: map[string]interface{}{"query": "SELECT *", "limit": 5}, expected: "5 rows of data read successfully by SELECT *"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			actual, err := registry.Execute(context.Background(), tc.tool, tc.args)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestPolicies(t *testing.T) {
	registry, err := Policies().Registry()
	require.NoError(t, err)
	assert.Equal(t, model.FullReview, registry.PolicyFor("write_file").Kind)
	assert.Equal(t, []model.DecisionType{model.DecisionApprove, model.DecisionReject}, registry.PolicyFor("execute_sql").AllowedDecisions())
	assert.False(t, registry.PolicyFor("read_data").RequiresReview())
}
