// Package resume applies reviewer decisions to suspended tool calls.
//
// A checkpoint is consumed by exactly one terminal decision: the outcome is
// only returned after the store confirmed deleting the checkpoint, so of two
// concurrent resumers one receives the outcome and the other
// model.ErrNotFound. Decisions the interrupt's policy does not accept leave
// the checkpoint in place.
package resume
