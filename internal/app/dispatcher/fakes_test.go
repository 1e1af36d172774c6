package dispatcher

import (
	"context"
	"sync"
	"time"

	"snippetbot/internal/domain/chat"
	"snippetbot/internal/domain/execution"
	"snippetbot/internal/domain/session"
)

type executeCall struct {
	req     execution.Request
	timeout time.Duration
}

// scriptedExecutor answers every request with run, or echoes the input.
type scriptedExecutor struct {
	mu    sync.Mutex
	calls []executeCall
	run   func(ctx context.Context, req execution.Request) execution.Outcome
}

func (e *scriptedExecutor) Execute(ctx context.Context, req execution.Request, timeout time.Duration) execution.Outcome {
	e.mu.Lock()
	e.calls = append(e.calls, executeCall{req: req, timeout: timeout})
	run := e.run
	e.mu.Unlock()

	if run != nil {
		return run(ctx, req)
	}
	return execution.Success(req.Stdin)
}

func (e *scriptedExecutor) Close() error { return nil }

func (e *scriptedExecutor) executed() []executeCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]executeCall(nil), e.calls...)
}

type sentReply struct {
	to    chat.Message
	key   session.Key
	reply chat.Reply
}

type editedReply struct {
	key   session.Key
	reply chat.Reply
}

// fakeTransport numbers sent replies from 1000 upwards.
type fakeTransport struct {
	mu       sync.Mutex
	nextID   session.MessageID
	replies  []sentReply
	edits    []editedReply
	replyErr error
	editErr  error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{nextID: 1000}
}

func (f *fakeTransport) Reply(ctx context.Context, msg chat.Message, r chat.Reply) (session.Key, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replyErr != nil {
		return session.Key{}, f.replyErr
	}
	f.nextID++
	key := session.Key{Channel: msg.Key.Channel, Message: f.nextID}
	f.replies = append(f.replies, sentReply{to: msg, key: key, reply: r})
	return key, nil
}

func (f *fakeTransport) Edit(ctx context.Context, key session.Key, r chat.Reply) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	f.edits = append(f.edits, editedReply{key: key, reply: r})
	return nil
}

func (f *fakeTransport) sent() []sentReply {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentReply(nil), f.replies...)
}

func (f *fakeTransport) edited() []editedReply {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]editedReply(nil), f.edits...)
}

type fakePublisher struct {
	mu      sync.Mutex
	reports []execution.RunReport
	err     error
}

func (p *fakePublisher) PublishRunReport(ctx context.Context, report execution.RunReport) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reports = append(p.reports, report)
	return p.err
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) published() []execution.RunReport {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]execution.RunReport(nil), p.reports...)
}
