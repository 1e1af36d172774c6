package ports

import (
	"context"

	"snippetbot/internal/domain/execution"
)

// RunReportPublisher publishes execution reports to an external system.
type RunReportPublisher interface {
	PublishRunReport(ctx context.Context, report execution.RunReport) error
	Close() error
}
