package idgen

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// NewFunc returns a new globally unique identifier. Override in tests.
var NewFunc = func() string { return uuid.New().String() }

// New returns a new globally unique identifier.
func New() string { return NewFunc() }

// CheckpointID derives the checkpoint key for a call of a run. The same
// (runID, callID) pair always maps to the same key, which is what makes
// repeated suspension of one call idempotent. The digest keeps the key safe
// for file names, URL paths and redis keys.
func CheckpointID(runID, callID string) string {
	sum := sha256.Sum256([]byte(runID + "\x00" + callID))
	return "cp_" + hex.EncodeToString(sum[:16])
}
