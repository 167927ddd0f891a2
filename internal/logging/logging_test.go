package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	type testCase struct {
		name        string
		config      Config
		expectLevel zapcore.Level
		expectError bool
	}

	tests := []testCase{
		{name: "defaults", config: Config{}, expectLevel: zapcore.InfoLevel},
		{name: "debug console", config: Config{Level: "DEBUG", Format: "console"}, expectLevel: zapcore.DebugLevel},
		{name: "bad level", config: Config{Level: "loud"}, expectError: true},
		{name: "bad format", config: Config{Format: "xml"}, expectError: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			logger, err := New(tc.config)
			if tc.expectError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tc.expectLevel))
			assert.False(t, logger.Core().Enabled(tc.expectLevel-1))
		})
	}
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
}
