package resolver

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snippetbot/internal/domain/chat"
	"snippetbot/internal/domain/execution"
	"snippetbot/internal/domain/session"
	"snippetbot/internal/infra/sessionstore"
)

const channel session.ChannelID = -100

func key(id session.MessageID) session.Key {
	return session.Key{Channel: channel, Message: id}
}

func message(id session.MessageID, text string) chat.Message {
	return chat.Message{Key: key(id), Text: text}
}

func reply(id, to session.MessageID, text string) chat.Message {
	msg := message(id, text)
	msg.ReplyTo = &to
	return msg
}

func TestResolveFreshSubmission(t *testing.T) {
	r := New(sessionstore.New())

	cases := []struct {
		text string
		lang execution.Language
		code string
	}{
		{text: "/py print(1+1)", lang: execution.LanguagePython, code: "print(1+1)"},
		{text: "/cpp\n\n  int main(){}\n", lang: execution.LanguageCPP, code: "int main(){}\n"},
		{text: "/bash", lang: execution.LanguageBash, code: ""},
		{text: "/js   ", lang: execution.LanguageJavaScript, code: ""},
		{text: "/python print(2)", lang: execution.LanguagePython, code: "print(2)"},
		{text: "/bash@snippet_bot echo hi", lang: execution.LanguageBash, code: "echo hi"},
	}

	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			res, ok := r.Resolve(message(1, tc.text))
			require.True(t, ok)
			assert.Equal(t, execution.Request{Language: tc.lang, Source: tc.code}, res.Request)
			assert.Nil(t, res.Root)
			assert.Nil(t, res.PriorReply)
			assert.Equal(t, session.Real{Language: tc.lang, Code: tc.code}, res.ReplySession())
		})
	}
}

func TestResolveIgnoresOrdinaryText(t *testing.T) {
	r := New(sessionstore.New())

	for _, text := range []string{"", "hello", " /py print(1)", "/rust fn main(){}", "py print(1)"} {
		_, ok := r.Resolve(message(1, text))
		assert.False(t, ok, text)
	}
}

func TestResolveReplyToReal(t *testing.T) {
	store := sessionstore.New()
	store.Put(key(10), session.Real{Language: execution.LanguagePython, Code: "print(input())"})
	r := New(store)

	stdin := strings.Repeat("lots of input ", 1000)
	res, ok := r.Resolve(reply(11, 10, stdin))
	require.True(t, ok)

	assert.Equal(t, execution.Request{Language: execution.LanguagePython, Source: "print(input())", Stdin: stdin}, res.Request)
	require.NotNil(t, res.Root)
	assert.Equal(t, session.MessageID(10), *res.Root)
	assert.Equal(t, session.Reference{Target: 10}, res.ReplySession())
}

func TestResolveReplyFollowsOneReference(t *testing.T) {
	store := sessionstore.New()
	store.Put(key(10), session.Real{Language: execution.LanguageBash, Code: "cat"})
	store.Put(key(20), session.Reference{Target: 10})
	r := New(store)

	res, ok := r.Resolve(reply(21, 20, "new input"))
	require.True(t, ok)
	assert.Equal(t, "cat", res.Request.Source)
	assert.Equal(t, "new input", res.Request.Stdin)
	require.NotNil(t, res.Root)
	assert.Equal(t, session.MessageID(10), *res.Root)
}

func TestResolveReplyRejectsBrokenChains(t *testing.T) {
	store := sessionstore.New()
	store.Put(key(10), session.Real{Language: execution.LanguageBash, Code: "cat"})
	store.Put(key(20), session.Reference{Target: 99})
	store.Put(key(30), session.Reference{Target: 20})
	store.Put(key(40), session.Reference{Target: 50})
	store.Put(key(50), session.Replied{Reply: 10})
	store.Put(key(60), session.Replied{Reply: 10})
	r := New(store)

	cases := map[string]session.MessageID{
		"reference to missing":   20,
		"reference to reference": 30,
		"reference to replied":   40,
		"replied":                60,
		"nothing stored":         70,
	}
	for name, target := range cases {
		t.Run(name, func(t *testing.T) {
			_, ok := r.Resolve(reply(100, target, "x"))
			assert.False(t, ok)
		})
	}
}

func TestResolveRepliesNeverParseCommands(t *testing.T) {
	r := New(sessionstore.New())

	_, ok := r.Resolve(reply(2, 1, "/py print(1)"))
	assert.False(t, ok)
}

func TestResolveChecksChannel(t *testing.T) {
	store := sessionstore.New()
	store.Put(session.Key{Channel: 1, Message: 10}, session.Real{Language: execution.LanguageBash, Code: "cat"})
	r := New(store)

	_, ok := r.Resolve(reply(11, 10, "x"))
	assert.False(t, ok)
}

func TestResolveReportsPriorReply(t *testing.T) {
	store := sessionstore.New()
	store.Put(key(1), session.Replied{Reply: 2})
	store.Put(key(10), session.Real{Language: execution.LanguageBash, Code: "cat"})
	store.Put(key(11), session.Replied{Reply: 12})
	r := New(store)

	res, ok := r.Resolve(message(1, "/py print(3)"))
	require.True(t, ok)
	require.NotNil(t, res.PriorReply)
	assert.Equal(t, session.MessageID(2), *res.PriorReply)

	res, ok = r.Resolve(reply(11, 10, "edited input"))
	require.True(t, ok)
	require.NotNil(t, res.PriorReply)
	assert.Equal(t, session.MessageID(12), *res.PriorReply)

	_, ok = r.Resolve(message(1, "no longer code"))
	assert.False(t, ok)
}
