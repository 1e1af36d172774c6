package ports

import (
	"context"

	"snippetbot/internal/domain/chat"
	"snippetbot/internal/domain/session"
)

// Transport sends and edits chat messages.
type Transport interface {
	// Reply sends r as a reply to msg and returns the key of the sent message.
	Reply(ctx context.Context, msg chat.Message, r chat.Reply) (session.Key, error)
	// Edit replaces the content of a previously sent message.
	Edit(ctx context.Context, key session.Key, r chat.Reply) error
}

// EventSource delivers inbound chat events. NextEvent returns io.EOF once the
// source is exhausted.
type EventSource interface {
	NextEvent(ctx context.Context) (chat.Event, error)
}
