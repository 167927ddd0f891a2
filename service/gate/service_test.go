package gate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/hitl/internal/clock"
	"github.com/viant/hitl/internal/idgen"
	"github.com/viant/hitl/model"
	"github.com/viant/hitl/policy"
	"github.com/viant/hitl/service/approval"
	"github.com/viant/hitl/service/checkpoint"
	"github.com/viant/hitl/service/checkpoint/memory"
	qmem "github.com/viant/hitl/service/messaging/memory"
)

// flakyStore fails the first failures Create calls.
type flakyStore struct {
	checkpoint.Store
	mu       sync.Mutex
	failures int
	calls    int
}

func (f *flakyStore) Create(ctx context.Context, c *model.Checkpoint) error {
	f.mu.Lock()
	f.calls++
	fail := f.calls <= f.failures
	f.mu.Unlock()
	if fail {
		return errors.New("connection reset")
	}
	return f.Store.Create(ctx, c)
}

func demoRegistry(t *testing.T) *policy.Registry {
	cfg, err := policy.Decode([]byte(`
interrupt_on:
  write_file: true
  execute_sql:
    allowed_decisions: [approve, reject]
  read_data: false
`))
	require.NoError(t, err)
	registry, err := cfg.Registry()
	require.NoError(t, err)
	return registry
}

func writeFileCall() *model.ToolCall {
	return &model.ToolCall{ID: "call-1", RunID: "run-1", Name: "write_file", Arguments: map[string]interface{}{"file_path": "/tmp/a.txt", "content": "hi"}}
}

func TestService_Submit(t *testing.T) {
	type testCase struct {
		name          string
		call          *model.ToolCall
		expectAction  Action
		expectPolicy  model.PolicyKind
		expectAllowed []model.DecisionType
	}

	tests := []testCase{
		{name: "no review proceeds", call: &model.ToolCall{ID: "c1", RunID: "r1", Name: "read_data", Arguments: map[string]interface{}{"query": "SELECT 1"}}, expectAction: Proceed},
		{name: "full review suspends", call: writeFileCall(), expectAction: Suspended, expectPolicy: model.FullReview, expectAllowed: model.DecisionTypes()},
		{name: "restricted review suspends", call: &model.ToolCall{ID: "c2", RunID: "r1", Name: "execute_sql", Arguments: map[string]interface{}{"query": "DROP TABLE t"}}, expectAction: Suspended, expectPolicy: model.RestrictedReview, expectAllowed: []model.DecisionType{model.DecisionApprove, model.DecisionReject}},
		{name: "unknown tool defaults to full review", call: &model.ToolCall{ID: "c3", RunID: "r1", Name: "launch_rocket"}, expectAction: Suspended, expectPolicy: model.FullReview, expectAllowed: model.DecisionTypes()},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			store := memory.New()
			srv, err := New(WithStore(store), WithRegistry(demoRegistry(t)))
			require.NoError(t, err)

			result, err := srv.Submit(ctx, tc.call)
			require.NoError(t, err)
			assert.Equal(t, tc.expectAction, result.Action)

			stored, err := store.List(ctx)
			require.NoError(t, err)
			if tc.expectAction == Proceed {
				assert.Empty(t, stored)
				assert.Equal(t, tc.call, result.Call)
				return
			}
			require.Len(t, stored, 1)
			assert.Equal(t, idgen.CheckpointID(tc.call.RunID, tc.call.ID), result.CheckpointID)
			cp := stored[0]
			assert.Equal(t, result.CheckpointID, cp.ID)
			assert.Equal(t, tc.expectPolicy, cp.Pending.Policy.Kind)
			assert.EqualValues(t, tc.expectAllowed, cp.Pending.Policy.AllowedDecisions())
			assert.Equal(t, tc.call.Arguments, cp.Pending.Call.Arguments)
			assert.Equal(t, result.Description, cp.Pending.Description)
			assert.NotEmpty(t, cp.ActionHash)
		})
	}
}

func TestService_Submit_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	events := qmem.NewQueue[approval.Event](qmem.DefaultConfig())
	srv, err := New(WithStore(store), WithNotifier(&approval.QueueNotifier{Queue: events}))
	require.NoError(t, err)

	first, err := srv.Submit(ctx, writeFileCall())
	require.NoError(t, err)
	second, err := srv.Submit(ctx, writeFileCall())
	require.NoError(t, err)

	assert.Equal(t, first.CheckpointID, second.CheckpointID)
	stored, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
	assert.Equal(t, 1, events.Size())

	message, err := events.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, approval.TopicInterruptCreated, message.T().Topic)
	interrupt, ok := message.T().Data.(*approval.Interrupt)
	require.True(t, ok)
	assert.Equal(t, first.CheckpointID, interrupt.ID)
	assert.Equal(t, "write_file", interrupt.Tool)
}

func TestService_Submit_Resubmitted(t *testing.T) {
	type testCase struct {
		name                string
		arguments           map[string]interface{}
		expectedDescription string
		expectErr           error
	}
	testCases := []testCase{
		{
			name:                "same call keeps stored description",
			arguments:           map[string]interface{}{"file_path": "/tmp/a.txt", "content": "hi"},
			expectedDescription: `Review write_file with content="hi", file_path="/tmp/a.txt"`,
		},
		{
			name:      "different arguments refused",
			arguments: map[string]interface{}{"file_path": "/etc/passwd", "content": "hi"},
			expectErr: model.ErrPolicyViolation,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			store := memory.New()
			first, err := New(WithStore(store), WithDescriptionPrefix("Review"))
			require.NoError(t, err)
			second, err := New(WithStore(store), WithDescriptionPrefix("Approve"))
			require.NoError(t, err)

			suspended, err := first.Submit(ctx, writeFileCall())
			require.NoError(t, err)
			call := writeFileCall()
			call.Arguments = tc.arguments
			result, err := second.Submit(ctx, call)
			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
				stored, err := store.Load(ctx, suspended.CheckpointID)
				require.NoError(t, err)
				assert.Equal(t, "/tmp/a.txt", stored.Pending.Call.Arguments["file_path"])
				return
			}
			require.NoError(t, err)
			assert.Equal(t, suspended.CheckpointID, result.CheckpointID)
			assert.Equal(t, tc.expectedDescription, result.Description)
		})
	}
}

func TestService_Submit_ConcurrentRetries(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	srv, err := New(WithStore(store))
	require.NoError(t, err)

	ids := make(chan string, 10)
	wg := sync.WaitGroup{}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := srv.Submit(ctx, writeFileCall())
			if assert.NoError(t, err) {
				ids <- result.CheckpointID
			}
		}()
	}
	wg.Wait()
	close(ids)
	for id := range ids {
		assert.Equal(t, idgen.CheckpointID("run-1", "call-1"), id)
	}
	stored, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestService_Submit_StorageError(t *testing.T) {
	type testCase struct {
		name      string
		failures  int
		attempts  uint
		expectErr bool
	}
	tests := []testCase{
		{name: "no retry fails", failures: 1, attempts: 1, expectErr: true},
		{name: "retry recovers", failures: 2, attempts: 3},
		{name: "retry exhausted", failures: 5, attempts: 3, expectErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			store := &flakyStore{Store: memory.New(), failures: tc.failures}
			srv, err := New(WithStore(store), WithRetry(tc.attempts, time.Millisecond))
			require.NoError(t, err)

			result, err := srv.Submit(ctx, writeFileCall())
			stored, _ := store.List(ctx)
			if tc.expectErr {
				assert.ErrorIs(t, err, model.ErrStorage)
				assert.Nil(t, result)
				assert.Empty(t, stored)
				return
			}
			require.NoError(t, err)
			assert.True(t, result.IsSuspended())
			assert.Len(t, stored, 1)
		})
	}
}

func TestService_Submit_ContextRegistry(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	srv, err := New(WithStore(store), WithRegistry(demoRegistry(t)))
	require.NoError(t, err)

	override := policy.NewRegistry()
	require.NoError(t, override.Register("write_file", model.NoReviewPolicy()))
	result, err := srv.Submit(policy.WithRegistry(ctx, override), writeFileCall())
	require.NoError(t, err)
	assert.Equal(t, Proceed, result.Action)
}

func TestService_Submit_HistoryAndTTL(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	clock.NowFunc = func() time.Time { return now }
	defer func() { clock.NowFunc = time.Now }()

	ctx := context.Background()
	store := memory.New()
	srv, err := New(WithStore(store), WithTTL(time.Hour), WithDescriptionPrefix("Approve"))
	require.NoError(t, err)

	history := []*model.Step{{CallID: "c0", ToolName: "read_data", Output: "10 rows", Status: model.StepExecuted}}
	result, err := srv.Submit(ctx, writeFileCall(), history...)
	require.NoError(t, err)
	history[0].Output = "mutated"

	cp, err := store.Load(ctx, result.CheckpointID)
	require.NoError(t, err)
	require.Len(t, cp.Steps, 1)
	assert.Equal(t, "10 rows", cp.Steps[0].Output)
	assert.Equal(t, now, cp.CreatedAt)
	require.NotNil(t, cp.ExpiresAt)
	assert.Equal(t, now.Add(time.Hour), *cp.ExpiresAt)
	assert.Equal(t, `Approve write_file with content="hi", file_path="/tmp/a.txt"`, cp.Pending.Description)
}

func TestService_Submit_Invalid(t *testing.T) {
	srv, err := New(WithStore(memory.New()))
	require.NoError(t, err)
	_, err = srv.Submit(context.Background(), &model.ToolCall{Name: "write_file"})
	assert.Error(t, err)
	_, err = srv.Submit(context.Background(), nil)
	assert.Error(t, err)
}

func TestNew_RequiresStore(t *testing.T) {
	_, err := New()
	assert.ErrorIs(t, err, model.ErrConfig)
}
