package kafka

import (
	"context"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"snippetbot/internal/domain/execution"
)

// Config describes how to connect to a Kafka cluster for reading run reports.
type Config struct {
	Brokers  []string
	Topic    string
	GroupID  string
	MinBytes int
	MaxBytes int
	MaxWait  time.Duration
}

// ReportReader reads run reports back from Kafka.
type ReportReader struct {
	reader messageReader
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafkago.Message, error)
	Close() error
}

// NewReportReader builds a ReportReader from the provided configuration.
func NewReportReader(cfg Config) (*ReportReader, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker must be provided")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic must be provided")
	}
	if cfg.GroupID == "" {
		cfg.GroupID = "snippetbot-reports"
	}

	readerConfig := kafkago.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
		MaxWait:  cfg.MaxWait,
	}

	if readerConfig.MinBytes == 0 {
		readerConfig.MinBytes = 1
	}
	if readerConfig.MaxBytes == 0 {
		readerConfig.MaxBytes = 10 * 1024 * 1024
	}
	if readerConfig.MaxWait == 0 {
		readerConfig.MaxWait = time.Second
	}

	return newReportReader(kafkago.NewReader(readerConfig)), nil
}

func newReportReader(reader messageReader) *ReportReader {
	return &ReportReader{reader: reader}
}

// NextReport blocks until the next report is available or the context is
// cancelled. It also returns the time the report was published.
func (r *ReportReader) NextReport(ctx context.Context) (execution.RunReport, time.Time, error) {
	msg, err := r.reader.ReadMessage(ctx)
	if err != nil {
		return execution.RunReport{}, time.Time{}, err
	}

	return decodeReportMessage(msg)
}

// Close releases the underlying Kafka reader.
func (r *ReportReader) Close() error {
	return r.reader.Close()
}
