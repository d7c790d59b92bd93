package observability

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"

	"github.com/glimpsebot/glimpse/internal/config"
)

type syncBuffer struct {
	bytes.Buffer
}

func (b *syncBuffer) Sync() error { return nil }

func TestInitializeWritesToConsole(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	buf := &syncBuffer{}
	Initialize(config.LoggerConfig{
		Level:       "debug",
		Format:      "json",
		ServiceName: "glimpse-test",
	}, zapcore.Lock(buf))

	GetLogger().Info("hello from the core")
	Sync()

	out := buf.String()
	assert.Contains(t, out, "hello from the core")
	assert.Contains(t, out, "glimpse-test")
}

func TestInitializeFirstCallWins(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	first := &syncBuffer{}
	second := &syncBuffer{}
	Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "a"}, zapcore.Lock(first))
	Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "b"}, zapcore.Lock(second))

	GetLogger().Info("routed")
	Sync()

	assert.Contains(t, first.String(), "routed")
	assert.Empty(t, second.String())
}

func TestInitializeInvalidLevelFallsBackToInfo(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	buf := &syncBuffer{}
	Initialize(config.LoggerConfig{Level: "chatty", Format: "json", ServiceName: "t"}, zapcore.Lock(buf))

	GetLogger().Debug("should be filtered")
	GetLogger().Info("should pass")
	Sync()

	out := buf.String()
	assert.NotContains(t, out, "should be filtered")
	assert.Contains(t, out, "should pass")
}

func TestGetLoggerBeforeInitializeIsUsable(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	logger := GetLogger()
	assert.NotNil(t, logger)
	// Must not panic.
	logger.Named("probe").Debug("fallback logger active")
}
