package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cli holds state shared by every subcommand once the root pre-run finishes.
type cli struct {
	configPath string
	logLevel   string
	cfg        appConfig
	logger     *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "snippetbot",
		Short: "snippetbot - run code snippets from chat",
		Long: `snippetbot runs code posted in chat and replies with the result.

A message starting with /cpp, /bash, /py or /js is executed in a sandbox.
Replying to a result re-runs the same code with the reply text as input,
and editing a message updates the earlier reply in place.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadAppConfig(c.configPath)
			if err != nil {
				return err
			}
			if c.logLevel != "" {
				cfg.LogLevel = c.logLevel
			}
			logger, err := newLogger(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			c.cfg = cfg
			c.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "Path to a config file (default ./snippetbot.yaml)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Log level (overrides config)")

	root.AddCommand(
		newBotCmd(c),
		newExecutorCmd(c),
		newRunCmd(c),
		newReportsCmd(c),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
