// Package session models the chain of chat messages that refer back to one
// submitted piece of code.
package session

import (
	"fmt"

	"snippetbot/internal/domain/execution"
)

// ChannelID and MessageID are transport identifiers treated as opaque values.
type (
	ChannelID int64
	MessageID int64
)

// Key identifies a message within a channel.
type Key struct {
	Channel ChannelID
	Message MessageID
}

func (k Key) String() string {
	return fmt.Sprintf("%d:%d", k.Channel, k.Message)
}

// Session is one of Real, Reference or Replied.
type Session interface {
	isSession()
}

// Real is code actually submitted by a user; it terminates every chain.
type Real struct {
	Language execution.Language
	Code     string
}

// Reference points at the message holding the Real session in the same channel.
type Reference struct {
	Target MessageID
}

// Replied is stored on a triggering message and points at the bot's reply to it.
type Replied struct {
	Reply MessageID
}

func (Real) isSession()      {}
func (Reference) isSession() {}
func (Replied) isSession()   {}
