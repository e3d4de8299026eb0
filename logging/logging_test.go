package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitRejectsUnknownLevel(t *testing.T) {
	assert.Error(t, Init("loud", false))
}

func TestHelpersWriteToGlobalLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := L()
	Set(zap.New(core))
	t.Cleanup(func() { Set(prev) })

	Info("turn accepted", zap.String("match_id", "m1"))
	Warn("turn rejected")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "turn accepted", entries[0].Message)
	assert.Equal(t, "m1", entries[0].ContextMap()["match_id"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}
