// Package cmd wires the CLI surface: configuration loading, logger setup,
// and the subcommands that drive the agent core.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/glimpsebot/glimpse/internal/config"
	"github.com/glimpsebot/glimpse/internal/observability"
)

var cfgFile string

// NewRootCommand builds a fresh root command tree. A new instance per
// invocation keeps flag state from leaking between runs.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "glimpse",
		Short:   "Glimpse is a memory-grounded GUI agent.",
		Long:    "Glimpse observes the screen as OCR text, remembers what actions accomplish, and replays that knowledge against whatever the interface looks like today.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				// Fall back to a console logger so the failure is visible.
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "glimpse"})
				return err
			}
			observability.InitializeLogger(cfg.Logger)
			observability.GetLogger().Info("Starting glimpse", zap.String("version", Version))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml, then ~/.glimpse/config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(
		newRunCommand(),
		newMemoryCommand(),
		newSequenceCommand(),
		newTrainCommand(),
	)
	return rootCmd
}

// Execute runs the CLI with the given context.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("Command execution failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return err
	}
	return nil
}

// loadConfig reads the config file and environment into a typed Config.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}
