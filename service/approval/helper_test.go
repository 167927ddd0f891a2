package approval_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/hitl/model"
	"github.com/viant/hitl/policy"
	"github.com/viant/hitl/service/approval"
	"github.com/viant/hitl/service/checkpoint"
	"github.com/viant/hitl/service/checkpoint/memory"
	"github.com/viant/hitl/service/gate"
	qmem "github.com/viant/hitl/service/messaging/memory"
	"github.com/viant/hitl/service/resume"
)

type fixture struct {
	store  checkpoint.Store
	gate   *gate.Service
	expiry *gate.Service
	svc    *resume.Service
}

func newFixture(t *testing.T) *fixture {
	registry := policy.NewRegistry()
	require.NoError(t, registry.Register("write_file", model.FullReviewPolicy()))
	require.NoError(t, registry.Register("deploy", model.Policy{Kind: model.RestrictedReview, Allowed: []model.DecisionType{model.DecisionApprove}}))
	store := memory.New()
	g, err := gate.New(gate.WithStore(store), gate.WithRegistry(registry))
	require.NoError(t, err)
	expiry, err := gate.New(gate.WithStore(store), gate.WithRegistry(registry), gate.WithTTL(time.Nanosecond))
	require.NoError(t, err)
	svc, err := resume.New(resume.WithStore(store), resume.WithQueue(qmem.NewQueue[approval.Event](qmem.DefaultConfig())))
	require.NoError(t, err)
	return &fixture{store: store, gate: g, expiry: expiry, svc: svc}
}

func (f *fixture) suspend(t *testing.T, g *gate.Service, runID, callID, tool string) string {
	result, err := g.Submit(context.Background(), &model.ToolCall{RunID: runID, ID: callID, Name: tool, Arguments: map[string]interface{}{"target": callID}})
	require.NoError(t, err)
	require.True(t, result.IsSuspended())
	return result.CheckpointID
}

func waitEmpty(t *testing.T, store checkpoint.Store) {
	assert.Eventually(t, func() bool {
		pending, err := store.List(context.Background())
		return err == nil && len(pending) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestListPending(t *testing.T) {
	f := newFixture(t)
	f.suspend(t, f.gate, "r1", "c1", "write_file")
	f.suspend(t, f.gate, "r1", "c2", "deploy")
	f.suspend(t, f.gate, "r2", "c3", "write_file")

	type testCase struct {
		name     string
		filters  []approval.PendingFilter
		expected []string
	}
	testCases := []testCase{
		{name: "all", expected: []string{"c1", "c2", "c3"}},
		{name: "by run", filters: []approval.PendingFilter{approval.WithRunID("r1")}, expected: []string{"c1", "c2"}},
		{name: "by tool", filters: []approval.PendingFilter{approval.WithTool("write_file")}, expected: []string{"c1", "c3"}},
		{name: "run and tool", filters: []approval.PendingFilter{approval.WithRunID("r2"), approval.WithTool("deploy")}, expected: []string{}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pending, err := approval.ListPending(context.Background(), f.svc, tc.filters...)
			require.NoError(t, err)
			actual := []string{}
			for _, interrupt := range pending {
				actual = append(actual, interrupt.CallID)
			}
			assert.ElementsMatch(t, tc.expected, actual)
		})
	}
}

func TestAutoApprove(t *testing.T) {
	f := newFixture(t)
	f.suspend(t, f.gate, "r1", "c1", "write_file")
	f.suspend(t, f.gate, "r1", "c2", "deploy")

	stop := approval.AutoApprove(context.Background(), f.svc, 5*time.Millisecond)
	defer stop()
	waitEmpty(t, f.store)
}

func TestAutoReject_AbandonsWhenRejectIsNotAllowed(t *testing.T) {
	f := newFixture(t)
	id := f.suspend(t, f.gate, "r1", "c1", "deploy")

	stop := approval.AutoReject(context.Background(), f.svc, "freeze", 5*time.Millisecond)
	defer stop()
	record, err := approval.WaitForDecision(context.Background(), f.svc, id, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "r1", record.RunID)
	assert.Equal(t, model.DecisionType(""), record.Decision)
	waitEmpty(t, f.store)
}

func TestAutoExpire(t *testing.T) {
	f := newFixture(t)
	expired := f.suspend(t, f.expiry, "r1", "c1", "write_file")
	kept := f.suspend(t, f.gate, "r1", "c2", "write_file")
	time.Sleep(2 * time.Millisecond)

	stop := approval.AutoExpire(context.Background(), f.svc, "expired", 5*time.Millisecond)
	defer stop()
	record, err := approval.WaitForDecision(context.Background(), f.svc, expired, time.Second)
	require.NoError(t, err)
	assert.Equal(t, model.DecisionReject, record.Decision)
	assert.Equal(t, "expired", record.Reason)
	assert.Equal(t, "expiry", record.Reviewer)

	_, err = f.svc.Pending(context.Background(), kept)
	assert.NoError(t, err)
}

func TestWaitForDecision(t *testing.T) {
	type testCase struct {
		name        string
		decision    *model.Decision
		decideDelay time.Duration
		timeout     time.Duration
		expectError bool
	}
	testCases := []testCase{
		{name: "approved before timeout", decision: model.Approve().By("bob"), decideDelay: 10 * time.Millisecond, timeout: 500 * time.Millisecond},
		{name: "rejected before timeout", decision: model.Reject("no").By("bob"), decideDelay: 10 * time.Millisecond, timeout: 500 * time.Millisecond},
		{name: "timeout waiting for decision", decision: model.Approve(), decideDelay: 200 * time.Millisecond, timeout: 50 * time.Millisecond, expectError: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			id := f.suspend(t, f.gate, "r1", "c1", "write_file")
			done := make(chan struct{})
			go func() {
				defer close(done)
				time.Sleep(tc.decideDelay)
				_, _ = f.svc.Decide(context.Background(), id, tc.decision)
			}()
			record, err := approval.WaitForDecision(context.Background(), f.svc, id, tc.timeout)
			<-done
			if tc.expectError {
				assert.ErrorIs(t, err, context.DeadlineExceeded)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.decision.Type, record.Decision)
			assert.Equal(t, "bob", record.Reviewer)
			assert.Equal(t, "c1", record.CallID)
		})
	}
}

func TestWaitForDecision_NoQueue(t *testing.T) {
	svc, err := resume.New(resume.WithStore(memory.New()))
	require.NoError(t, err)
	_, err = approval.WaitForDecision(context.Background(), svc, "x", time.Millisecond)
	assert.Error(t, err)
}
