package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestNewLogger(t *testing.T) {
	log, err := NewLogger("warn")
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))
}

func TestFirmwareDebug(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	write := FirmwareDebug(zap.New(core))

	write("powercore started at 2000 Hz")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "firmware", entries[0].LoggerName)
	assert.Equal(t, "powercore started at 2000 Hz", entries[0].Message)
}
