// Package dispatcher reacts to new and edited chat messages by executing the
// code they resolve to and replying with the rendered outcome.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"snippetbot/internal/app/render"
	"snippetbot/internal/app/resolver"
	"snippetbot/internal/domain/chat"
	"snippetbot/internal/domain/execution"
	"snippetbot/internal/domain/session"
	"snippetbot/internal/ports"
)

const defaultTimeout = 5 * time.Second

// Config wires a Dispatcher. Reports and Logger are optional.
type Config struct {
	Store     ports.SessionStore
	Executor  ports.Executor
	Transport ports.Transport
	Reports   ports.RunReportPublisher
	Logger    *zap.Logger
	// Timeout bounds every execution; it defaults to five seconds.
	Timeout time.Duration
	// Backend names the executor in run reports.
	Backend string
}

// Dispatcher is safe for concurrent use by multiple event handlers.
type Dispatcher struct {
	store     ports.SessionStore
	resolver  *resolver.Resolver
	executor  ports.Executor
	transport ports.Transport
	reports   ports.RunReportPublisher
	logger    *zap.Logger
	timeout   time.Duration
	backend   string

	mu       sync.Mutex
	inflight map[session.Key]int
}

func New(cfg Config) (*Dispatcher, error) {
	if cfg.Store == nil {
		return nil, errors.New("dispatcher: session store is required")
	}
	if cfg.Executor == nil {
		return nil, errors.New("dispatcher: executor is required")
	}
	if cfg.Transport == nil {
		return nil, errors.New("dispatcher: transport is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		store:     cfg.Store,
		resolver:  resolver.New(cfg.Store),
		executor:  cfg.Executor,
		transport: cfg.Transport,
		reports:   cfg.Reports,
		logger:    logger,
		timeout:   timeout,
		backend:   cfg.Backend,
		inflight:  make(map[session.Key]int),
	}, nil
}

// HandleEvent routes an event to HandleNew or HandleEdit.
func (d *Dispatcher) HandleEvent(ctx context.Context, event chat.Event) error {
	switch event.Kind {
	case chat.EventNew:
		return d.HandleNew(ctx, event.Message)
	case chat.EventEdited:
		return d.HandleEdit(ctx, event.Message)
	default:
		return fmt.Errorf("dispatcher: unknown event kind %d", event.Kind)
	}
}

// HandleNew executes a fresh submission or a reply in a chain and posts the
// outcome as a new reply. Messages that resolve to nothing are ignored.
func (d *Dispatcher) HandleNew(ctx context.Context, msg chat.Message) error {
	res, ok := d.resolver.Resolve(msg)
	if !ok {
		return nil
	}
	return d.reply(ctx, msg, res, execution.TriggerNew)
}

// HandleEdit re-runs an edited message. When the message already has a reply
// that reply is edited in place, otherwise the edit is handled like a new
// message.
func (d *Dispatcher) HandleEdit(ctx context.Context, msg chat.Message) error {
	res, ok := d.resolver.Resolve(msg)
	if !ok {
		return nil
	}

	if res.PriorReply == nil {
		if d.isInFlight(msg.Key) {
			// The Replied pointer of the original submission is not stored
			// yet, so this edit produces a second reply.
			d.logger.Warn("edit arrived while the original submission is still executing",
				zap.Int64("channel", int64(msg.Key.Channel)),
				zap.Int64("message", int64(msg.Key.Message)))
		}
		return d.reply(ctx, msg, res, execution.TriggerEdit)
	}

	done := d.enter(msg.Key)
	defer done()

	outcome := d.execute(ctx, msg, res.Request, execution.TriggerEdit)
	replyKey := session.Key{Channel: msg.Key.Channel, Message: *res.PriorReply}
	if err := d.transport.Edit(ctx, replyKey, render.Outcome(res.Request.Language, outcome)); err != nil {
		return fmt.Errorf("edit reply %s: %w", replyKey, err)
	}

	d.store.Put(replyKey, res.ReplySession())
	return nil
}

func (d *Dispatcher) reply(ctx context.Context, msg chat.Message, res resolver.Resolution, trigger execution.Trigger) error {
	done := d.enter(msg.Key)
	defer done()

	outcome := d.execute(ctx, msg, res.Request, trigger)
	replyKey, err := d.transport.Reply(ctx, msg, render.Outcome(res.Request.Language, outcome))
	if err != nil {
		return fmt.Errorf("reply to %s: %w", msg.Key, err)
	}

	d.store.Put(replyKey, res.ReplySession())
	d.store.Put(msg.Key, session.Replied{Reply: replyKey.Message})
	return nil
}

func (d *Dispatcher) execute(ctx context.Context, msg chat.Message, req execution.Request, trigger execution.Trigger) execution.Outcome {
	start := time.Now()
	outcome := d.executor.Execute(ctx, req, d.timeout)
	elapsed := time.Since(start)

	fields := []zap.Field{
		zap.Int64("channel", int64(msg.Key.Channel)),
		zap.Int64("message", int64(msg.Key.Message)),
		zap.String("sender", msg.Sender),
		zap.String("language", string(req.Language)),
		zap.String("trigger", string(trigger)),
		zap.String("kind", string(outcome.Kind)),
		zap.Duration("duration", elapsed),
	}
	if outcome.Kind == execution.KindOther {
		d.logger.Warn("execution environment failure", append(fields, zap.String("diagnostic", outcome.Message))...)
	} else {
		d.logger.Info("executed", fields...)
	}

	d.publish(ctx, execution.RunReport{
		ID:        uuid.NewString(),
		ChannelID: int64(msg.Key.Channel),
		MessageID: int64(msg.Key.Message),
		Trigger:   trigger,
		Request:   req,
		Outcome:   outcome,
		Duration:  elapsed,
		Backend:   d.backend,
	})
	return outcome
}

func (d *Dispatcher) publish(ctx context.Context, report execution.RunReport) {
	if d.reports == nil {
		return
	}
	if err := d.reports.PublishRunReport(ctx, report); err != nil {
		d.logger.Warn("publish run report", zap.String("report", report.ID), zap.Error(err))
	}
}

func (d *Dispatcher) enter(key session.Key) func() {
	d.mu.Lock()
	d.inflight[key]++
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.inflight[key] <= 1 {
			delete(d.inflight, key)
			return
		}
		d.inflight[key]--
	}
}

func (d *Dispatcher) isInFlight(key session.Key) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inflight[key] > 0
}
