// Package render formats execution outcomes as chat replies.
package render

import (
	"regexp"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"snippetbot/internal/domain/chat"
	"snippetbot/internal/domain/execution"
)

const (
	// MaxBodyRunes bounds the quoted part of a reply so the whole message
	// stays under the 4096 character limit of chat transports.
	MaxBodyRunes    = 3800
	truncatedMarker = "\n... (truncated)"

	noOutput = "No output."
)

var (
	pythonTracebackHeader = regexp.MustCompile(`(?m)^Traceback \(most recent call last\):\r?\n`)
	nodeInternalFrame     = regexp.MustCompile(`(?m)^[ \t]*at (?:.*\(node:internal/[^)]*\)|node:internal/\S*)[ \t]*\r?\n?`)
)

// Outcome renders an outcome of code written in lang.
func Outcome(lang execution.Language, o execution.Outcome) chat.Reply {
	switch o.Kind {
	case execution.KindSuccess:
		if o.Output == "" {
			return chat.Reply{Text: noOutput, Mode: chat.ParsePlain}
		}
		return html(pre(o.Output))
	case execution.KindCompile:
		return html("<b>Compile Error</b>\n" + pre(NormalizeDiagnostic(lang, o.Message)))
	case execution.KindRuntime:
		return html("<b>Runtime Error</b>\n" + pre(NormalizeDiagnostic(lang, o.Message)))
	case execution.KindTimeout:
		return html("<i>Timed out.</i>")
	default:
		return html("<b>Environmental Error</b>\n" + escape(truncate(o.Message)))
	}
}

// NormalizeDiagnostic strips stack trace wrapper lines that carry no
// information about the user's code.
func NormalizeDiagnostic(lang execution.Language, message string) string {
	switch lang {
	case execution.LanguagePython:
		message = pythonTracebackHeader.ReplaceAllString(message, "")
	case execution.LanguageJavaScript:
		message = nodeInternalFrame.ReplaceAllString(message, "")
	}
	return strings.TrimSpace(message)
}

func html(text string) chat.Reply {
	return chat.Reply{Text: text, Mode: chat.ParseHTML}
}

func pre(body string) string {
	return "<pre>" + escape(truncate(body)) + "</pre>"
}

func escape(text string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeHTML, text)
}

func truncate(text string) string {
	if utf8.RuneCountInString(text) <= MaxBodyRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:MaxBodyRunes]) + truncatedMarker
}
