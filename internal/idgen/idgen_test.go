package idgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckpointID(t *testing.T) {
	id := CheckpointID("run-1", "call-1")
	assert.Equal(t, id, CheckpointID("run-1", "call-1"))
	assert.NotEqual(t, id, CheckpointID("run-1", "call-2"))
	assert.NotEqual(t, CheckpointID("ab", "c"), CheckpointID("a", "bc"))
	assert.Len(t, id, len("cp_")+32)
}

func TestNew(t *testing.T) {
	prev := NewFunc
	defer func() { NewFunc = prev }()
	NewFunc = func() string { return "fixed" }
	assert.Equal(t, "fixed", New())
}
