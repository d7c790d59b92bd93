package agent_test

import (
	"os"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/glimpsebot/glimpse/internal/config"
	"github.com/glimpsebot/glimpse/internal/observability"
)

// TestMain initializes the shared logger before the package tests run.
func TestMain(m *testing.M) {
	appConfig := config.NewDefaultConfig()
	logConfig := appConfig.Logger
	logConfig.Level = "debug"
	logConfig.ServiceName = "test-suite"
	logConfig.Format = "console"

	observability.Initialize(logConfig, zapcore.Lock(os.Stdout))

	exitCode := m.Run()

	observability.Sync()
	observability.ResetForTest()

	os.Exit(exitCode)
}
