// Package runner drives an agent run: it asks a Reasoner for the next tool
// call, routes it through the gate, executes permitted calls and records the
// steps. A run that hits a reviewable call returns Suspended; Continue picks
// it up from the checkpoint once a decision arrives, in this process or in
// another one sharing the checkpoint store.
package runner
