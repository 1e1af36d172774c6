package runtime

import (
	"context"
	"time"

	"snippetbot/internal/domain/execution"
)

// Module provides execution support for a specific language.
type Module interface {
	Language() execution.Language
	Execute(ctx context.Context, req execution.Request, timeout time.Duration) execution.Outcome
	Close() error
}
