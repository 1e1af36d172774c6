package ports

import (
	"context"
	"time"

	"snippetbot/internal/domain/execution"
)

// Executor runs code in isolation and classifies the result.
//
// Execute never fails with a Go error: infrastructure problems are reported
// as an execution.KindOther outcome.
type Executor interface {
	Execute(ctx context.Context, req execution.Request, timeout time.Duration) execution.Outcome
	Close() error
}
