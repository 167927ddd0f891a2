package resume

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/hitl/model"
	"github.com/viant/hitl/policy"
	"github.com/viant/hitl/service/approval"
	"github.com/viant/hitl/service/checkpoint"
	"github.com/viant/hitl/service/checkpoint/fs"
	"github.com/viant/hitl/service/checkpoint/memory"
	"github.com/viant/hitl/service/gate"
	qmem "github.com/viant/hitl/service/messaging/memory"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const demoPolicies = `
interrupt_on:
  write_file: true
  execute_sql:
    allowed_decisions: [approve, reject]
  read_data: false
`

type fixture struct {
	store  checkpoint.Store
	gate   *gate.Service
	resume *Service
	events *qmem.Queue[approval.Event]
}

func newFixture(t *testing.T, store checkpoint.Store, options ...Option) *fixture {
	cfg, err := policy.Decode([]byte(demoPolicies))
	require.NoError(t, err)
	registry, err := cfg.Registry()
	require.NoError(t, err)
	g, err := gate.New(gate.WithStore(store), gate.WithRegistry(registry))
	require.NoError(t, err)
	events := qmem.NewQueue[approval.Event](qmem.DefaultConfig())
	r, err := New(append([]Option{WithStore(store), WithQueue(events)}, options...)...)
	require.NoError(t, err)
	return &fixture{store: store, gate: g, resume: r, events: events}
}

func stores(t *testing.T) map[string]checkpoint.Store {
	fsStore, err := fs.New(t.TempDir())
	require.NoError(t, err)
	return map[string]checkpoint.Store{"memory": memory.New(), "fs": fsStore}
}

func (f *fixture) suspend(t *testing.T, call *model.ToolCall) string {
	result, err := f.gate.Submit(context.Background(), call)
	require.NoError(t, err)
	require.True(t, result.IsSuspended())
	return result.CheckpointID
}

func TestScenarioA_EditArguments(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, store)
			ctx := context.Background()
			id := f.suspend(t, &model.ToolCall{ID: "c1", RunID: "r1", Name: "write_file", Arguments: map[string]interface{}{"file_path": "a.txt", "content": "x"}})

			outcome, err := f.resume.Resume(ctx, id, model.Edit(map[string]interface{}{"file_path": "b.txt", "content": "x"}))
			require.NoError(t, err)
			assert.Equal(t, model.OutcomeExecute, outcome.Kind)
			assert.Equal(t, "write_file", outcome.Call.Name)
			assert.Equal(t, map[string]interface{}{"file_path": "b.txt", "content": "x"}, outcome.Call.Arguments)

			_, err = f.store.Load(ctx, id)
			assert.Error(t, err)
		})
	}
}

func TestScenarioB_RejectThenApprove(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, store)
			ctx := context.Background()
			id := f.suspend(t, &model.ToolCall{ID: "c1", RunID: "r1", Name: "execute_sql", Arguments: map[string]interface{}{"query": "DELETE FROM t"}})

			outcome, err := f.resume.Resume(ctx, id, model.Reject("too risky"))
			require.NoError(t, err)
			assert.Equal(t, model.OutcomeAborted, outcome.Kind)
			assert.Equal(t, "too risky", outcome.Reason)

			_, err = f.resume.Resume(ctx, id, model.Approve())
			assert.ErrorIs(t, err, model.ErrNotFound)
		})
	}
}

func TestService_Resume_PolicyViolation(t *testing.T) {
	type testCase struct {
		name     string
		tool     string
		decision *model.Decision
	}
	tests := []testCase{
		{name: "edit under restricted review", tool: "execute_sql", decision: model.Edit(map[string]interface{}{"query": "SELECT 1"})},
		{name: "unknown decision", tool: "write_file", decision: &model.Decision{Type: "maybe"}},
		{name: "missing decision", tool: "write_file"},
		{name: "edit without arguments", tool: "write_file", decision: &model.Decision{Type: model.DecisionEdit}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, memory.New())
			ctx := context.Background()
			id := f.suspend(t, &model.ToolCall{ID: "c1", RunID: "r1", Name: tc.tool, Arguments: map[string]interface{}{"query": "DELETE FROM t"}})

			_, err := f.resume.Resume(ctx, id, tc.decision)
			assert.ErrorIs(t, err, model.ErrPolicyViolation)

			cp, err := f.store.Load(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, "DELETE FROM t", cp.Pending.Call.Arguments["query"])

			outcome, err := f.resume.Resume(ctx, id, model.Approve())
			require.NoError(t, err)
			assert.True(t, outcome.Executes())
		})
	}
}

func TestService_Resume_ExactlyOnce(t *testing.T) {
	f := newFixture(t, memory.New())
	ctx := context.Background()
	id := f.suspend(t, &model.ToolCall{ID: "c1", RunID: "r1", Name: "write_file", Arguments: map[string]interface{}{"file_path": "a.txt"}})

	var executed, missing int32
	wg := sync.WaitGroup{}
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := f.resume.Resume(ctx, id, model.Approve())
			if err == nil && outcome.Executes() {
				atomic.AddInt32(&executed, 1)
				return
			}
			if assert.ErrorIs(t, err, model.ErrNotFound) {
				atomic.AddInt32(&missing, 1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, executed)
	assert.EqualValues(t, 15, missing)
	assert.Equal(t, 1, f.events.Size())
}

func TestService_Resume_Tampered(t *testing.T) {
	f := newFixture(t, memory.New())
	ctx := context.Background()
	id := f.suspend(t, &model.ToolCall{ID: "c1", RunID: "r1", Name: "write_file", Arguments: map[string]interface{}{"file_path": "a.txt"}})

	cp, err := f.store.Load(ctx, id)
	require.NoError(t, err)
	cp.Pending.Call.Arguments["file_path"] = "/etc/passwd"
	require.NoError(t, f.store.Save(ctx, cp))

	_, err = f.resume.Resume(ctx, id, model.Approve())
	assert.ErrorIs(t, err, model.ErrStorage)
	_, err = f.store.Load(ctx, id)
	assert.NoError(t, err)
}

func TestService_Resume_Unverifiable(t *testing.T) {
	type testCase struct {
		name   string
		modify func(cp *model.Checkpoint)
	}
	testCases := []testCase{
		{name: "newer version", modify: func(cp *model.Checkpoint) { cp.Version = model.CheckpointVersion + 1 }},
		{name: "older version", modify: func(cp *model.Checkpoint) { cp.Version = 0 }},
		{name: "negative version", modify: func(cp *model.Checkpoint) { cp.Version = -1 }},
		{name: "hash removed", modify: func(cp *model.Checkpoint) {
			cp.ActionHash = ""
			cp.Pending.Call.Arguments = map[string]interface{}{"file_path": "/etc/passwd"}
		}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, memory.New())
			ctx := context.Background()
			id := f.suspend(t, &model.ToolCall{ID: "c1", RunID: "r1", Name: "write_file", Arguments: map[string]interface{}{"file_path": "a.txt"}})
			cp, err := f.store.Load(ctx, id)
			require.NoError(t, err)
			tc.modify(cp)
			require.NoError(t, f.store.Save(ctx, cp))

			_, err = f.resume.Resume(ctx, id, model.Approve())
			assert.ErrorIs(t, err, model.ErrStorage)
			_, err = f.store.Load(ctx, id)
			assert.NoError(t, err)
		})
	}
}

func TestService_StallAndRecover(t *testing.T) {
	f := newFixture(t, memory.New())
	ctx := context.Background()
	f.suspend(t, &model.ToolCall{ID: "c1", RunID: "r2", Name: "write_file"})
	steps := []*model.Step{{CallID: "c0", ToolName: "write_file", Status: model.StepExecuted, Output: "done"}}

	id, err := f.resume.Stall(ctx, "r1", steps, errors.New("llm unavailable"))
	require.NoError(t, err)
	assert.Equal(t, StalledID("r1"), id)
	steps[0].Output = "changed"

	pending, err := f.resume.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "r2", pending[0].RunID)
	_, err = f.resume.Resume(ctx, id, model.Approve())
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = f.resume.Pending(ctx, id)
	assert.ErrorIs(t, err, model.ErrNotFound)

	stalled, err := f.resume.Stalled(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "llm unavailable", stalled.Error)

	recovered, err := f.resume.Recover(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, recovered.Steps, 1)
	assert.Equal(t, "done", recovered.Steps[0].Output)

	_, err = f.resume.Recover(ctx, "r1")
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = f.resume.Recover(ctx, "r2")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestService_Resume_Events(t *testing.T) {
	f := newFixture(t, memory.New())
	ctx := context.Background()
	id := f.suspend(t, &model.ToolCall{ID: "c1", RunID: "r1", Name: "write_file", Arguments: map[string]interface{}{"file_path": "a.txt"}})

	_, err := f.resume.Resume(ctx, id, model.Edit(map[string]interface{}{"file_path": "b.txt"}).By("alice"))
	require.NoError(t, err)

	record, err := approval.WaitForDecision(ctx, f.resume, id, 0)
	require.NoError(t, err)
	assert.Equal(t, model.DecisionEdit, record.Decision)
	assert.Equal(t, "alice", record.Reviewer)
	assert.Equal(t, "b.txt", record.Arguments["file_path"])
	assert.True(t, record.Approved())
	assert.False(t, record.DecidedAt.IsZero())
}

func TestService_Resume_LogsDiff(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	f := newFixture(t, memory.New(), WithLogger(zap.New(core)))
	ctx := context.Background()
	id := f.suspend(t, &model.ToolCall{ID: "c1", RunID: "r1", Name: "write_file", Arguments: map[string]interface{}{"file_path": "a.txt", "content": "x"}})

	_, err := f.resume.Resume(ctx, id, model.Edit(map[string]interface{}{"file_path": "b.txt", "content": "x"}))
	require.NoError(t, err)

	edited := logs.FilterMessage("arguments edited").All()
	require.Len(t, edited, 1)
	diff := edited[0].ContextMap()["diff"].(string)
	assert.Contains(t, diff, `-  "file_path": "a.txt"`)
	assert.Contains(t, diff, `+  "file_path": "b.txt"`)
}

func TestService_Abandon(t *testing.T) {
	f := newFixture(t, memory.New())
	ctx := context.Background()
	id := f.suspend(t, &model.ToolCall{ID: "c1", RunID: "r1", Name: "execute_sql", Arguments: map[string]interface{}{"query": "DELETE FROM t"}})

	require.NoError(t, f.resume.Abandon(ctx, id))
	assert.ErrorIs(t, f.resume.Abandon(ctx, id), model.ErrNotFound)
	_, err := f.resume.Resume(ctx, id, model.Approve())
	assert.ErrorIs(t, err, model.ErrNotFound)

	message, err := f.events.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, approval.TopicInterruptAbandoned, message.T().Topic)
}

func TestService_ListPending(t *testing.T) {
	f := newFixture(t, memory.New())
	ctx := context.Background()
	f.suspend(t, &model.ToolCall{ID: "c1", RunID: "r1", Name: "write_file"})
	f.suspend(t, &model.ToolCall{ID: "c2", RunID: "r2", Name: "execute_sql", Arguments: map[string]interface{}{"query": "x"}})

	all, err := f.resume.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byTool, err := f.resume.List(ctx, checkpoint.ByTool("execute_sql"))
	require.NoError(t, err)
	require.Len(t, byTool, 1)
	assert.Equal(t, "r2", byTool[0].RunID)
	assert.Equal(t, []model.DecisionType{model.DecisionApprove, model.DecisionReject}, byTool[0].AllowedDecisions)

	interrupt, err := f.resume.Pending(ctx, byTool[0].ID)
	require.NoError(t, err)
	assert.Equal(t, `Tool execution pending approval execute_sql with query="x"`, interrupt.Description)

	_, err = f.resume.Pending(ctx, "cp_missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestNew_RequiresStore(t *testing.T) {
	_, err := New()
	assert.ErrorIs(t, err, model.ErrConfig)
}
