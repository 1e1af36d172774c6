package render

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"snippetbot/internal/domain/chat"
	"snippetbot/internal/domain/execution"
)

func TestOutcomeRendering(t *testing.T) {
	cases := []struct {
		name    string
		lang    execution.Language
		outcome execution.Outcome
		want    chat.Reply
	}{
		{
			name:    "empty success",
			lang:    execution.LanguageBash,
			outcome: execution.Success(""),
			want:    chat.Reply{Text: "No output.", Mode: chat.ParsePlain},
		},
		{
			name:    "success",
			lang:    execution.LanguagePython,
			outcome: execution.Success("2"),
			want:    chat.Reply{Text: "<pre>2</pre>", Mode: chat.ParseHTML},
		},
		{
			name:    "success is escaped",
			lang:    execution.LanguageCPP,
			outcome: execution.Success("a<b && c>d"),
			want:    chat.Reply{Text: "<pre>a&lt;b &amp;&amp; c&gt;d</pre>", Mode: chat.ParseHTML},
		},
		{
			name:    "compile",
			lang:    execution.LanguageCPP,
			outcome: execution.CompileFailure("main.cpp:1:19: error: 'x' was not declared"),
			want:    chat.Reply{Text: "<b>Compile Error</b>\n<pre>main.cpp:1:19: error: 'x' was not declared</pre>", Mode: chat.ParseHTML},
		},
		{
			name:    "runtime",
			lang:    execution.LanguageBash,
			outcome: execution.RuntimeFailure("main.sh: line 1: nope: command not found"),
			want:    chat.Reply{Text: "<b>Runtime Error</b>\n<pre>main.sh: line 1: nope: command not found</pre>", Mode: chat.ParseHTML},
		},
		{
			name:    "timeout",
			lang:    execution.LanguageBash,
			outcome: execution.TimeoutFailure(),
			want:    chat.Reply{Text: "<i>Timed out.</i>", Mode: chat.ParseHTML},
		},
		{
			name:    "other",
			lang:    execution.LanguagePython,
			outcome: execution.OtherFailure("Cannot run program: <missing>"),
			want:    chat.Reply{Text: "<b>Environmental Error</b>\nCannot run program: &lt;missing&gt;", Mode: chat.ParseHTML},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Outcome(tc.lang, tc.outcome))
		})
	}
}

func TestEveryFailureLabelIsDistinct(t *testing.T) {
	labels := map[string]bool{}
	for _, o := range []execution.Outcome{
		execution.CompileFailure("m"),
		execution.RuntimeFailure("m"),
		execution.TimeoutFailure(),
		execution.OtherFailure("m"),
	} {
		first := strings.SplitN(Outcome(execution.LanguageBash, o).Text, "\n", 2)[0]
		assert.False(t, labels[first], "duplicate label %q", first)
		labels[first] = true
	}
}

func TestNormalizePythonTraceback(t *testing.T) {
	message := "Traceback (most recent call last):\n  File \"main.py\", line 1, in <module>\n    1/0\nZeroDivisionError: division by zero"

	got := NormalizeDiagnostic(execution.LanguagePython, message)

	assert.Equal(t, "File \"main.py\", line 1, in <module>\n    1/0\nZeroDivisionError: division by zero", got)
	assert.NotContains(t, Outcome(execution.LanguagePython, execution.RuntimeFailure(message)).Text, "Traceback")
}

func TestNormalizeNodeInternalFrames(t *testing.T) {
	message := strings.Join([]string{
		"/tmp/main.js:1",
		"throw new Error('boom')",
		"Error: boom",
		"    at Object.<anonymous> (main.js:1:7)",
		"    at Module._compile (node:internal/modules/cjs/loader:1358:14)",
		"    at node:internal/main/run_main_module:28:49",
	}, "\n")

	got := NormalizeDiagnostic(execution.LanguageJavaScript, message)

	assert.Contains(t, got, "at Object.<anonymous> (main.js:1:7)")
	assert.NotContains(t, got, "node:internal")
}

func TestNormalizeLeavesOtherLanguagesAlone(t *testing.T) {
	message := "Traceback (most recent call last):\nsomething"
	assert.Equal(t, message, NormalizeDiagnostic(execution.LanguageBash, message))
}

func TestLongBodiesAreTruncated(t *testing.T) {
	output := strings.Repeat("я", MaxBodyRunes+500)

	reply := Outcome(execution.LanguagePython, execution.Success(output))

	assert.True(t, strings.HasSuffix(reply.Text, truncatedMarker+"</pre>"))
	assert.LessOrEqual(t, utf8.RuneCountInString(reply.Text), 4096)
}
