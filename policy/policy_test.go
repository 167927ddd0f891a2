package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/hitl/model"
)

func TestRegistry_PolicyFor(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register("write_file", model.FullReviewPolicy()))
	require.NoError(t, registry.Register("execute_sql", model.RestrictedReviewPolicy(model.DecisionReject, model.DecisionApprove)))
	require.NoError(t, registry.Register("read_data", model.NoReviewPolicy()))

	type testCase struct {
		name     string
		tool     string
		expected model.Policy
	}

	tests := []testCase{
		{name: "full review", tool: "write_file", expected: model.FullReviewPolicy()},
		{name: "restricted review is canonicalised", tool: "execute_sql", expected: model.RestrictedReviewPolicy(model.DecisionApprove, model.DecisionReject)},
		{name: "no review", tool: "read_data", expected: model.NoReviewPolicy()},
		{name: "unknown tool defaults to full review", tool: "delete_everything", expected: model.FullReviewPolicy()},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.EqualValues(t, tc.expected, registry.PolicyFor(tc.tool))
		})
	}
	assert.Equal(t, []string{"execute_sql", "read_data", "write_file"}, registry.Names())
}

func TestRegistry_Register(t *testing.T) {
	type testCase struct {
		name        string
		tool        string
		policy      model.Policy
		expectError bool
	}

	tests := []testCase{
		{name: "duplicate", tool: "write_file", policy: model.NoReviewPolicy(), expectError: true},
		{name: "empty name", tool: " ", policy: model.NoReviewPolicy(), expectError: true},
		{name: "empty restricted list", tool: "a", policy: model.RestrictedReviewPolicy(), expectError: true},
		{name: "restricted with edit", tool: "b", policy: model.RestrictedReviewPolicy(model.DecisionApprove, model.DecisionEdit), expectError: true},
		{name: "unknown decision", tool: "c", policy: model.RestrictedReviewPolicy("maybe"), expectError: true},
		{name: "unknown kind", tool: "d", policy: model.Policy{Kind: "sometimes"}, expectError: true},
		{name: "restricted full set", tool: "e", policy: model.RestrictedReviewPolicy(model.DecisionApprove, model.DecisionEdit, model.DecisionReject)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			registry := NewRegistry()
			require.NoError(t, registry.Register("write_file", model.FullReviewPolicy()))
			err := registry.Register(tc.tool, tc.policy)
			if tc.expectError {
				assert.True(t, errors.Is(err, model.ErrConfig), err)
				return
			}
			assert.NoError(t, err)
		})
	}

	registry := NewRegistry()
	require.NoError(t, registry.Register("e", model.RestrictedReviewPolicy(model.DecisionApprove, model.DecisionEdit, model.DecisionReject)))
	assert.Equal(t, model.FullReview, registry.PolicyFor("e").Kind)
}

func TestRegistry_PolicyForReturnsCopy(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register("execute_sql", model.RestrictedReviewPolicy(model.DecisionApprove, model.DecisionReject)))
	p := registry.PolicyFor("execute_sql")
	p.Allowed[0] = model.DecisionEdit
	assert.Equal(t, model.DecisionApprove, registry.PolicyFor("execute_sql").Allowed[0])
}

func TestContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	registry := NewRegistry()
	ctx := WithRegistry(context.Background(), registry)
	assert.Same(t, registry, FromContext(ctx))
}
