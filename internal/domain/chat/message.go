// Package chat holds the transport-neutral view of chat messages and replies.
package chat

import "snippetbot/internal/domain/session"

// Message is an inbound text message.
type Message struct {
	Key  session.Key
	Text string
	// ReplyTo is the message this one replies to, in the same channel.
	ReplyTo *session.MessageID
	// Sender is a display handle used for logging only.
	Sender string
}

// IsReply reports whether the message replies to another message.
func (m Message) IsReply() bool {
	return m.ReplyTo != nil
}

// EventKind distinguishes new messages from edits.
type EventKind int

const (
	EventNew EventKind = iota
	EventEdited
)

func (k EventKind) String() string {
	switch k {
	case EventNew:
		return "new"
	case EventEdited:
		return "edited"
	default:
		return "unknown"
	}
}

// Event is delivered by a transport.
type Event struct {
	Kind    EventKind
	Message Message
}

// ParseMode selects how the transport interprets reply text.
type ParseMode int

const (
	ParsePlain ParseMode = iota
	ParseMarkdown
	ParseHTML
)

// Reply is a rendered outgoing message.
type Reply struct {
	Text string
	Mode ParseMode
}
