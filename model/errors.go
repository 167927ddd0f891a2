package model

import "errors"

// Error kinds surfaced by the gate and the resume controller. Callers match
// them with errors.Is; the wrapped message carries the detail.
var (
	// ErrConfig reports a duplicate or malformed policy or tool registration.
	ErrConfig = errors.New("config error")

	// ErrStorage reports a checkpoint persistence or retrieval failure. The
	// operation can be retried; submits are idempotent per call id.
	ErrStorage = errors.New("storage error")

	// ErrPolicyViolation reports a decision the interrupt's policy does not
	// accept. The checkpoint is left intact.
	ErrPolicyViolation = errors.New("policy violation")

	// ErrNotFound reports a missing or already consumed checkpoint.
	ErrNotFound = errors.New("not found")
)
