// Copyright 2025 James Ross
package obs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerAcceptsEachLevel(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error", "bogus"} {
		logger, err := NewLogger(lvl)
		require.NoError(t, err)
		assert.NotNil(t, logger)
	}
}

func TestFieldHelpers(t *testing.T) {
	assert.Equal(t, "k", String("k", "v").Key)
	assert.Equal(t, "n", Int("n", 1).Key)
	assert.Equal(t, "f", Float64("f", 1.5).Key)
	assert.Equal(t, "b", Bool("b", true).Key)
	assert.Equal(t, "error", Err(assert.AnError).Key)
}
