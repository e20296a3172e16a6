package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	t.Run("recognized levels", func(t *testing.T) {
		assert.Equal(t, LogLevelDebug, parseLogLevel("DEBUG"))
		assert.Equal(t, LogLevelInfo, parseLogLevel("INFO"))
		assert.Equal(t, LogLevelWarn, parseLogLevel("WARN"))
		assert.Equal(t, LogLevelError, parseLogLevel("ERROR"))
	})

	t.Run("case and whitespace normalized", func(t *testing.T) {
		assert.Equal(t, LogLevelDebug, parseLogLevel("debug"))
		assert.Equal(t, LogLevelWarn, parseLogLevel("  warn "))
	})

	t.Run("unknown values fall back to info", func(t *testing.T) {
		assert.Equal(t, LogLevelInfo, parseLogLevel(""))
		assert.Equal(t, LogLevelInfo, parseLogLevel("TRACE"))
		assert.Equal(t, LogLevelInfo, parseLogLevel("verbose"))
	})
}

func TestStandardLoggerLevelFromEnv(t *testing.T) {
	t.Run("lowercase value enables debug", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "debug")
		logger, ok := NewStandardLogger("test").(*StandardLogger)
		require.True(t, ok)
		assert.True(t, logger.levelEnabled(LogLevelDebug))
	})

	t.Run("typo does not enable debug", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "debgu")
		logger, ok := NewStandardLogger("test").(*StandardLogger)
		require.True(t, ok)
		assert.False(t, logger.levelEnabled(LogLevelDebug))
		assert.True(t, logger.levelEnabled(LogLevelInfo))
	})
}

func TestWithPrefixKeepsLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	logger, ok := NewStandardLogger("parent").WithPrefix("child").(*StandardLogger)
	require.True(t, ok)
	assert.False(t, logger.levelEnabled(LogLevelInfo))
	assert.True(t, logger.levelEnabled(LogLevelWarn))
}
