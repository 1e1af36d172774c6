// Package bot runs the chat dispatch loop.
package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"snippetbot/internal/domain/chat"
	"snippetbot/internal/ports"
)

const defaultRetryDelay = time.Second

// Handler processes one chat event.
type Handler interface {
	HandleEvent(ctx context.Context, event chat.Event) error
}

// Service pulls events from a source and hands them to a Handler.
type Service struct {
	handler    Handler
	logger     *zap.Logger
	retryDelay time.Duration
}

// NewService constructs a Service. A nil logger discards output.
func NewService(handler Handler, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		handler:    handler,
		logger:     logger,
		retryDelay: defaultRetryDelay,
	}
}

// Run receives events serially and handles each in its own goroutine, with
// at most maxParallel handlers in flight.
//
// Handler errors are logged and do not stop the loop. Source errors are
// logged and retried after a short delay. Run returns once the context is
// cancelled or the source reports io.EOF, after in-flight handlers finish.
func (s *Service) Run(ctx context.Context, source ports.EventSource, maxParallel int) error {
	if s.handler == nil {
		return errors.New("bot: handler is required")
	}
	if maxParallel <= 0 {
		maxParallel = 1
	}

	var wg sync.WaitGroup
	sem := semaphore.NewWeighted(int64(maxParallel))

	finish := func() error {
		wg.Wait()
		return nil
	}

	for {
		event, err := source.NextEvent(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) {
				return finish()
			}

			s.logger.Warn("receive chat event", zap.Error(err))
			select {
			case <-ctx.Done():
				return finish()
			case <-time.After(s.retryDelay):
			}
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			return finish()
		}
		wg.Add(1)
		go func(event chat.Event) {
			defer wg.Done()
			defer sem.Release(1)

			if err := s.handle(ctx, event); err != nil {
				s.logger.Error("handle chat event",
					zap.Stringer("kind", event.Kind),
					zap.Stringer("message", event.Message.Key),
					zap.Error(err))
			}
		}(event)
	}
}

func (s *Service) handle(ctx context.Context, event chat.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return s.handler.HandleEvent(ctx, event)
}
