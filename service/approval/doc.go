// Package approval exposes pending interrupts to reviewers. It defines the
// reviewer-facing Service, the events published when interrupts are created,
// decided or abandoned, event notifiers and polling helpers that decide
// pending interrupts automatically.
package approval
