package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"snippetbot/internal/domain/execution"
	kafkainfra "snippetbot/internal/infra/kafka"
)

func newReportsCmd(c *cli) *cobra.Command {
	var (
		groupID string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Tail run reports published to Kafka",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(c.cfg.KafkaBrokers) == 0 {
				return fmt.Errorf("%s is required", keyKafkaBrokers)
			}
			reader, err := kafkainfra.NewReportReader(kafkainfra.Config{
				Brokers: c.cfg.KafkaBrokers,
				Topic:   c.cfg.ResultsTopic,
				GroupID: groupID,
			})
			if err != nil {
				return err
			}
			defer func() {
				if cerr := reader.Close(); cerr != nil {
					c.logger.Warn("failed to close kafka reader", zap.Error(cerr))
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return tailReports(ctx, reader, limit, cmd.OutOrStdout(), c.logger)
		},
	}
	cmd.Flags().StringVar(&groupID, "group", "", "Kafka consumer group (default snippetbot-reports)")
	cmd.Flags().IntVar(&limit, "max", 0, "Stop after this many reports (0 means no limit)")
	return cmd
}

type reportSource interface {
	NextReport(ctx context.Context) (execution.RunReport, time.Time, error)
}

// tailReports prints one line per report until the source ends, the context
// is cancelled or limit reports have been printed.
func tailReports(ctx context.Context, source reportSource, limit int, out io.Writer, logger *zap.Logger) error {
	for printed := 0; limit <= 0 || printed < limit; {
		report, at, err := source.NextReport(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			logger.Warn("skipping unreadable run report", zap.Error(err))
			continue
		}

		if _, err := fmt.Fprintln(out, formatReport(report, at)); err != nil {
			return err
		}
		printed++
	}
	return nil
}

func formatReport(report execution.RunReport, at time.Time) string {
	line := fmt.Sprintf("%s %d:%d %s %s %s %s %s",
		at.UTC().Format(time.RFC3339),
		report.ChannelID,
		report.MessageID,
		report.Trigger,
		report.Request.Language,
		report.Backend,
		report.Outcome.Kind,
		report.Duration.Round(time.Millisecond),
	)
	if report.Outcome.Kind == execution.KindOther && report.Outcome.Message != "" {
		line += " " + fmt.Sprintf("%q", report.Outcome.Message)
	}
	return line
}
