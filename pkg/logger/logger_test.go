package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel(" warning "))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestInitProductionRespectsLevel(t *testing.T) {
	t.Cleanup(func() { Init("development", "info") })

	Init("production", "warn")
	assert.False(t, base.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, base.Core().Enabled(zapcore.WarnLevel))

	Init("development", "error")
	assert.True(t, base.Core().Enabled(zapcore.DebugLevel), "development always logs debug")
}
