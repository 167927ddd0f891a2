// Package model contains the data types exchanged between the gate, the
// resume controller, the checkpoint stores and the run loop: tool calls,
// review policies, decisions, pending interrupts and checkpoints.
//
// Values stored in a checkpoint are always handed out as clones so that a
// caller mutating a loaded value never affects what another run observes.
package model
