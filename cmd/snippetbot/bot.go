package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"snippetbot/internal/app/bot"
	"snippetbot/internal/app/dispatcher"
	kafkainfra "snippetbot/internal/infra/kafka"
	"snippetbot/internal/infra/sessionstore"
	"snippetbot/internal/infra/telegram"
	"snippetbot/internal/ports"
)

func newBotCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the chat bot",
		Long: `Connect to Telegram with BOT_TOKEN and answer code messages.

The execution backend is chosen with the backend setting (sandbox, docker
or remote). When kafka_brokers is set every execution is also published as
a run report.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBot(ctx, c.cfg, c.logger)
		},
	}
}

func runBot(ctx context.Context, cfg appConfig, logger *zap.Logger) error {
	if cfg.BotToken == "" {
		return fmt.Errorf("%s is required", keyBotToken)
	}

	executor, err := newExecutor(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := executor.Close(); cerr != nil {
			logger.Warn("failed to close executor", zap.Error(cerr))
		}
	}()

	reports, err := newReportPublisher(cfg)
	if err != nil {
		return err
	}
	if reports != nil {
		defer func() {
			if cerr := reports.Close(); cerr != nil {
				logger.Warn("failed to close run report publisher", zap.Error(cerr))
			}
		}()
	}

	client, err := telegram.New(telegram.Config{Token: cfg.BotToken, Logger: logger.Named("telegram")})
	if err != nil {
		return err
	}
	defer client.Close()

	d, err := dispatcher.New(dispatcher.Config{
		Store:     sessionstore.New(),
		Executor:  executor,
		Transport: client,
		Reports:   reports,
		Logger:    logger.Named("dispatcher"),
		Timeout:   cfg.CodeTimeout,
		Backend:   cfg.Backend,
	})
	if err != nil {
		return err
	}

	logger.Info("bot started",
		zap.String("backend", cfg.Backend),
		zap.Duration("code_timeout", cfg.CodeTimeout),
		zap.Int("max_parallel", cfg.MaxParallel))

	return bot.NewService(d, logger.Named("loop")).Run(ctx, client, cfg.MaxParallel)
}

// newReportPublisher returns nil when no brokers are configured.
func newReportPublisher(cfg appConfig) (ports.RunReportPublisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return nil, nil
	}
	publisher, err := kafkainfra.NewPublisher(kafkainfra.PublisherConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.ResultsTopic,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize kafka publisher: %w", err)
	}
	return publisher, nil
}
