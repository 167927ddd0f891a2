// Package checkpointtest verifies the behaviour shared by checkpoint stores.
package checkpointtest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/hitl/internal/idgen"
	"github.com/viant/hitl/model"
	"github.com/viant/hitl/service/checkpoint"
	"github.com/viant/hitl/service/dao"
)

// NewCheckpoint returns a checkpoint suspended on toolName for runID.
func NewCheckpoint(runID, callID, toolName string) *model.Checkpoint {
	call := &model.ToolCall{
		ID:        callID,
		RunID:     runID,
		Name:      toolName,
		Arguments: map[string]interface{}{"file_path": "/tmp/a.txt", "content": "hi", "nested": map[string]interface{}{"n": 1.0}},
	}
	return &model.Checkpoint{
		ID:      idgen.CheckpointID(runID, callID),
		RunID:   runID,
		Version: model.CheckpointVersion,
		Steps: []*model.Step{
			{CallID: "prev", ToolName: "read_data", Output: "10 rows", Status: model.StepExecuted},
		},
		Pending: &model.PendingInterrupt{
			Call:        call,
			Policy:      model.FullReviewPolicy(),
			Description: "Tool execution pending approval " + toolName,
		},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

// Run exercises store against the checkpoint store contract. Ids are unique
// per invocation so that shared databases can be used.
func Run(t *testing.T, store checkpoint.Store) {
	ctx := context.Background()

	t.Run("create and load", func(t *testing.T) {
		runID := idgen.New()
		expected := NewCheckpoint(runID, "c1", "write_file")
		require.NoError(t, store.Create(ctx, expected))

		actual, err := store.Load(ctx, expected.ID)
		require.NoError(t, err)
		assert.Equal(t, expected.ID, actual.ID)
		assert.Equal(t, expected.RunID, actual.RunID)
		assert.Equal(t, expected.Pending.Call.Arguments, actual.Pending.Call.Arguments)
		assert.Equal(t, expected.Pending.Description, actual.Pending.Description)
		assert.Equal(t, model.FullReview, actual.Pending.Policy.Kind)
		assert.Len(t, actual.Steps, 1)
		assert.True(t, expected.CreatedAt.Equal(actual.CreatedAt))
		require.NoError(t, store.Delete(ctx, expected.ID))
	})

	t.Run("create is insert if absent", func(t *testing.T) {
		first := NewCheckpoint(idgen.New(), "c1", "write_file")
		require.NoError(t, store.Create(ctx, first))
		second := first.Clone()
		second.Pending.Description = "changed"
		err := store.Create(ctx, second)
		assert.ErrorIs(t, err, dao.ErrAlreadyExists)

		actual, err := store.Load(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, first.Pending.Description, actual.Pending.Description)
		require.NoError(t, store.Delete(ctx, first.ID))
	})

	t.Run("save overwrites", func(t *testing.T) {
		c := NewCheckpoint(idgen.New(), "c1", "write_file")
		require.NoError(t, store.Save(ctx, c))
		c.Pending.Description = "updated"
		require.NoError(t, store.Save(ctx, c))
		actual, err := store.Load(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "updated", actual.Pending.Description)
		require.NoError(t, store.Delete(ctx, c.ID))
	})

	t.Run("stalled run without pending call", func(t *testing.T) {
		runID := idgen.New()
		c := &model.Checkpoint{
			ID:        idgen.CheckpointID(runID, ""),
			RunID:     runID,
			Version:   model.CheckpointVersion,
			Steps:     []*model.Step{{CallID: "c1", ToolName: "write_file", Output: "written", Status: model.StepExecuted}},
			Error:     "llm unavailable",
			CreatedAt: time.Now().UTC().Truncate(time.Second),
		}
		require.NoError(t, store.Save(ctx, c))
		actual, err := store.Load(ctx, c.ID)
		require.NoError(t, err)
		assert.True(t, actual.IsStalled())
		assert.Equal(t, "llm unavailable", actual.Error)
		require.Len(t, actual.Steps, 1)
		assert.Equal(t, "written", actual.Steps[0].Output)
		require.NoError(t, store.Delete(ctx, c.ID))
	})

	t.Run("missing", func(t *testing.T) {
		_, err := store.Load(ctx, "cp_missing_"+idgen.New())
		assert.ErrorIs(t, err, dao.ErrNotFound)
		err = store.Delete(ctx, "cp_missing_"+idgen.New())
		assert.ErrorIs(t, err, dao.ErrNotFound)
	})

	t.Run("invalid input", func(t *testing.T) {
		assert.ErrorIs(t, store.Save(ctx, nil), dao.ErrNilEntity)
		assert.ErrorIs(t, store.Create(ctx, &model.Checkpoint{}), dao.ErrInvalidID)
	})

	t.Run("loaded copy is isolated", func(t *testing.T) {
		c := NewCheckpoint(idgen.New(), "c1", "write_file")
		require.NoError(t, store.Create(ctx, c))
		c.Pending.Call.Arguments["file_path"] = "/etc/passwd"

		loaded, err := store.Load(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "/tmp/a.txt", loaded.Pending.Call.Arguments["file_path"])
		loaded.Pending.Call.Arguments["file_path"] = "/etc/shadow"

		again, err := store.Load(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "/tmp/a.txt", again.Pending.Call.Arguments["file_path"])
		require.NoError(t, store.Delete(ctx, c.ID))
	})

	t.Run("concurrent delete succeeds once", func(t *testing.T) {
		c := NewCheckpoint(idgen.New(), "c1", "write_file")
		require.NoError(t, store.Create(ctx, c))

		var deleted, missing int32
		wg := sync.WaitGroup{}
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := store.Delete(ctx, c.ID)
				switch {
				case err == nil:
					atomic.AddInt32(&deleted, 1)
				case assert.ErrorIs(t, err, dao.ErrNotFound):
					atomic.AddInt32(&missing, 1)
				}
			}()
		}
		wg.Wait()
		assert.EqualValues(t, 1, deleted)
		assert.EqualValues(t, 7, missing)
	})

	t.Run("concurrent create succeeds once", func(t *testing.T) {
		c := NewCheckpoint(idgen.New(), "c1", "write_file")
		var created int32
		wg := sync.WaitGroup{}
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := store.Create(ctx, c.Clone()); err == nil {
					atomic.AddInt32(&created, 1)
				} else {
					assert.ErrorIs(t, err, dao.ErrAlreadyExists)
				}
			}()
		}
		wg.Wait()
		assert.EqualValues(t, 1, created)
		require.NoError(t, store.Delete(ctx, c.ID))
	})

	t.Run("list filters", func(t *testing.T) {
		runA, runB := idgen.New(), idgen.New()
		records := []*model.Checkpoint{
			NewCheckpoint(runA, "c1", "write_file"),
			NewCheckpoint(runA, "c2", "execute_sql"),
			NewCheckpoint(runB, "c1", "write_file"),
		}
		for _, c := range records {
			require.NoError(t, store.Create(ctx, c))
		}

		type testCase struct {
			name       string
			parameters []*dao.Parameter
			expected   []string
		}
		tests := []testCase{
			{name: "by run", parameters: []*dao.Parameter{checkpoint.ByRunID(runA)}, expected: []string{records[0].ID, records[1].ID}},
			{name: "by run and tool", parameters: []*dao.Parameter{checkpoint.ByRunID(runA), checkpoint.ByTool("execute_sql")}, expected: []string{records[1].ID}},
			{name: "by runs", parameters: []*dao.Parameter{checkpoint.ByRunID(runA, runB), checkpoint.ByTool("write_file")}, expected: []string{records[0].ID, records[2].ID}},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				actual, err := store.List(ctx, tc.parameters...)
				require.NoError(t, err)
				var ids []string
				for _, c := range actual {
					ids = append(ids, c.ID)
				}
				assert.ElementsMatch(t, tc.expected, ids)
			})
		}
		for _, c := range records {
			require.NoError(t, store.Delete(ctx, c.ID))
		}
	})
}
