package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.uber.org/zap/zapcore"
)

func TestNewJSONLogger(t *testing.T) {
	log, err := New("info", "json")
	require.NoError(t, err)
	require.NotNil(t, log)

	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
}

func TestNewConsoleLogger(t *testing.T) {
	log, err := New("debug", "console")
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestEmptyFormatDefaultsToJSON(t *testing.T) {
	_, err := New("warn", "")
	assert.NoError(t, err)
}

func TestInvalidLevelRejected(t *testing.T) {
	_, err := New("verbose", "json")
	assert.Error(t, err)
}

func TestInvalidFormatRejected(t *testing.T) {
	_, err := New("info", "xml")
	assert.Error(t, err)
}
