package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithSessionAddsField(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	restore := Replace(zap.New(core))
	defer restore()

	WithSession("s-1").Info("attached")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "attached", entries[0].Message)
	assert.Equal(t, "s-1", entries[0].ContextMap()["session_id"])
}

func TestReplaceRestores(t *testing.T) {
	before := L()
	restore := Replace(zap.NewNop())
	assert.NotSame(t, before, L())
	restore()
	assert.Same(t, before, L())
}

func TestInitHonoursDebug(t *testing.T) {
	restore := Init(true)
	defer restore()
	assert.True(t, L().Core().Enabled(zapcore.DebugLevel))

	restoreQuiet := Init(false)
	defer restoreQuiet()
	assert.False(t, L().Core().Enabled(zapcore.DebugLevel))
	assert.True(t, L().Core().Enabled(zapcore.InfoLevel))
}

func TestInitCLIShowsOnlyWarningsByDefault(t *testing.T) {
	restore := InitCLI(false)
	defer restore()
	assert.False(t, L().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, L().Core().Enabled(zapcore.WarnLevel))

	restoreDebug := InitCLI(true)
	defer restoreDebug()
	assert.True(t, L().Core().Enabled(zapcore.DebugLevel))
}
