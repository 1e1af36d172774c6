package execution

import (
	"encoding/json"
	"strings"
)

// Language identifies a supported programming language. The string value is
// the stable identifier used when addressing a remote backend.
type Language string

const (
	LanguageCPP        Language = "cpp"
	LanguageBash       Language = "bash"
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
)

// StdinMode describes how a language receives the request's standard input.
type StdinMode int

const (
	// StdinStream writes the input to the child's standard input stream.
	StdinStream StdinMode = iota
	// StdinEmbedded bakes the input into the source as a string literal and
	// gives the child no standard input at all.
	StdinEmbedded
)

// LanguageSpec holds the per-language capabilities shared by every backend.
type LanguageSpec struct {
	Language Language
	// Command is the chat command prefix selecting the language.
	Command string
	// Compiled languages go through a compile step before running.
	Compiled bool
	Stdin    StdinMode
	// SourceName is how the source file is named inside a sandbox and in diagnostics.
	SourceName string
}

// languageSpecs is ordered by command matching priority.
var languageSpecs = []LanguageSpec{
	{Language: LanguageCPP, Command: "/cpp", Compiled: true, Stdin: StdinStream, SourceName: "main.cpp"},
	{Language: LanguageBash, Command: "/bash", Stdin: StdinStream, SourceName: "main.sh"},
	{Language: LanguagePython, Command: "/py", Stdin: StdinStream, SourceName: "main.py"},
	{Language: LanguageJavaScript, Command: "/js", Stdin: StdinEmbedded, SourceName: "main.js"},
}

// Languages returns every supported language in command priority order.
func Languages() []LanguageSpec {
	out := make([]LanguageSpec, len(languageSpecs))
	copy(out, languageSpecs)
	return out
}

// Spec returns the capabilities of the language.
func (l Language) Spec() (LanguageSpec, bool) {
	for _, spec := range languageSpecs {
		if spec.Language == l {
			return spec, true
		}
	}
	return LanguageSpec{}, false
}

// Valid reports whether the language is part of the supported set.
func (l Language) Valid() bool {
	_, ok := l.Spec()
	return ok
}

// LookupCommand finds the first language whose command prefixes text.
func LookupCommand(text string) (LanguageSpec, bool) {
	for _, spec := range languageSpecs {
		if strings.HasPrefix(text, spec.Command) {
			return spec, true
		}
	}
	return LanguageSpec{}, false
}

// PrepareSource returns the source text written to disk for a run, with the
// input literal prepended for embedded-stdin languages.
func (s LanguageSpec) PrepareSource(code, stdin string) string {
	if s.Stdin != StdinEmbedded {
		return code
	}
	// JSON string literals are valid JavaScript string literals.
	literal, _ := json.Marshal(stdin)
	return "const input = " + string(literal) + ";\n" + code
}

// FeedsStdin reports whether the child process should receive stdin.
func (s LanguageSpec) FeedsStdin() bool {
	return s.Stdin == StdinStream
}
