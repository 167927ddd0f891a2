// Package hitl provides a human-in-the-loop approval gate for agents that
// invoke tools.
//
// Every proposed tool call passes through an interrupt gate. Depending on
// the tool's review policy the call either proceeds immediately or the run
// is suspended: a durable checkpoint is written and a reviewer must approve,
// edit or reject the call before the run can continue, possibly in another
// process. The root Service wires the pieces from a Config:
//
//   - policy        – per-tool review policies (interrupt_on)
//   - gate          – suspends calls that require review
//   - resume        – validates decisions and consumes checkpoints once
//   - runner        – the agent run loop built on gate and resume
//   - api           – reviewer HTTP API
//   - checkpoint/*  – memory, fs, sqlite, postgres and redis stores
//
// Typical use:
//
//	srv, _ := hitl.New(ctx, hitl.WithConfig(cfg), hitl.WithExecutor(tools), hitl.WithReasoner(agent))
//	res, _ := srv.Start(ctx, "")
//	if res.Status == runner.Suspended {
//		// later, in any process sharing the store
//		res, _ = srv.Continue(ctx, res.CheckpointID, model.Approve())
//	}
package hitl
