package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpoint_Clone(t *testing.T) {
	expiresAt := time.Now().Add(time.Hour)
	original := &Checkpoint{
		ID:    "cp1",
		RunID: "run1",
		Steps: []*Step{{CallID: "c0", ToolName: "read_data", Arguments: map[string]interface{}{"limit": 1}}},
		Pending: &PendingInterrupt{
			Call:        &ToolCall{ID: "c1", Name: "write_file", Arguments: map[string]interface{}{"nested": map[string]interface{}{"k": "v"}}},
			Policy:      RestrictedReviewPolicy(DecisionApprove),
			Description: "pending",
		},
		ExpiresAt: &expiresAt,
	}

	cloned := original.Clone()
	assert.EqualValues(t, original, cloned)

	cloned.Pending.Call.Arguments["nested"].(map[string]interface{})["k"] = "changed"
	cloned.Steps[0].Arguments["limit"] = 2
	cloned.Pending.Policy.Allowed[0] = DecisionReject

	assert.Equal(t, "v", original.Pending.Call.Arguments["nested"].(map[string]interface{})["k"])
	assert.Equal(t, 1, original.Steps[0].Arguments["limit"])
	assert.Equal(t, DecisionApprove, original.Pending.Policy.Allowed[0])
}

func TestActionHash(t *testing.T) {
	call := &ToolCall{Name: "read_data", Arguments: map[string]interface{}{"query": "SELECT *", "limit": 10}}
	expected, err := ActionHash(call)
	require.NoError(t, err)

	// A call decoded from JSON carries float64 numbers; the hash must not change.
	data, err := json.Marshal(call)
	require.NoError(t, err)
	decoded := &ToolCall{}
	require.NoError(t, json.Unmarshal(data, decoded))
	actual, err := ActionHash(decoded)
	require.NoError(t, err)
	assert.Equal(t, expected, actual)

	edited, err := ActionHash(call.WithArguments(map[string]interface{}{"query": "SELECT *", "limit": 11}))
	require.NoError(t, err)
	assert.NotEqual(t, expected, edited)
}
