// Package resolver turns chat messages into execution requests by following
// the session chain kept in the session store.
package resolver

import (
	"strings"
	"unicode"

	"snippetbot/internal/domain/chat"
	"snippetbot/internal/domain/execution"
	"snippetbot/internal/domain/session"
	"snippetbot/internal/ports"
)

// Resolution is an execution request together with its place in a chain.
type Resolution struct {
	Request execution.Request
	// Root is the message holding the Real session, nil for fresh submissions.
	Root *session.MessageID
	// PriorReply is the bot reply already posted for the triggering message.
	PriorReply *session.MessageID
}

// ReplySession is the session to store on the bot's reply to this request.
func (r Resolution) ReplySession() session.Session {
	if r.Root != nil {
		return session.Reference{Target: *r.Root}
	}
	return session.Real{Language: r.Request.Language, Code: r.Request.Source}
}

// Resolver reads sessions from a store. It never writes.
type Resolver struct {
	store ports.SessionStore
}

func New(store ports.SessionStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns false when the message is neither a code command nor a
// reply within a known chain.
func (r *Resolver) Resolve(msg chat.Message) (Resolution, bool) {
	var (
		res Resolution
		ok  bool
	)
	if msg.IsReply() {
		res, ok = r.resolveReply(msg)
	} else {
		res, ok = resolveSubmission(msg.Text)
	}
	if !ok {
		return Resolution{}, false
	}

	if stored, found := r.store.Get(msg.Key); found {
		if replied, isReplied := stored.(session.Replied); isReplied {
			reply := replied.Reply
			res.PriorReply = &reply
		}
	}
	return res, true
}

func (r *Resolver) resolveReply(msg chat.Message) (Resolution, bool) {
	target := session.Key{Channel: msg.Key.Channel, Message: *msg.ReplyTo}
	stored, found := r.store.Get(target)
	if !found {
		return Resolution{}, false
	}

	root := target.Message
	switch s := stored.(type) {
	case session.Real:
		return realResolution(s, root, msg.Text), true
	case session.Reference:
		// One hop only: the target must hold the Real session itself.
		referenced, found := r.store.Get(session.Key{Channel: msg.Key.Channel, Message: s.Target})
		if !found {
			return Resolution{}, false
		}
		resolved, isReal := referenced.(session.Real)
		if !isReal {
			return Resolution{}, false
		}
		return realResolution(resolved, s.Target, msg.Text), true
	default:
		return Resolution{}, false
	}
}

func realResolution(s session.Real, root session.MessageID, stdin string) Resolution {
	return Resolution{
		Request: execution.Request{
			Language: s.Language,
			Source:   s.Code,
			Stdin:    stdin,
		},
		Root: &root,
	}
}

// resolveSubmission parses "<command><whitespace><code>". The code is empty
// when nothing follows the command.
func resolveSubmission(text string) (Resolution, bool) {
	spec, ok := execution.LookupCommand(text)
	if !ok {
		return Resolution{}, false
	}

	code := ""
	if idx := strings.IndexFunc(text, unicode.IsSpace); idx >= 0 {
		code = strings.TrimLeftFunc(text[idx:], unicode.IsSpace)
	}

	return Resolution{
		Request: execution.Request{
			Language: spec.Language,
			Source:   code,
		},
	}, true
}
