package execution

import (
	"fmt"
	"strings"
)

// Kind classifies an Outcome.
type Kind string

const (
	KindSuccess Kind = "success"
	// KindCompile means the toolchain rejected the source; nothing was executed.
	KindCompile Kind = "compile"
	// KindRuntime means the program ran and wrote to its diagnostic stream.
	KindRuntime Kind = "runtime"
	// KindTimeout means the program was killed for exceeding the wall-clock bound.
	KindTimeout Kind = "timeout"
	// KindOther is an infrastructure failure unrelated to the submitted code.
	KindOther Kind = "other"
)

// Outcome is the user-facing result of an execution. Exactly one Kind applies;
// Output is only set for successes and Message only for failures.
type Outcome struct {
	Kind    Kind
	Output  string
	Message string
}

func Success(output string) Outcome {
	return Outcome{Kind: KindSuccess, Output: output}
}

func CompileFailure(message string) Outcome {
	return Outcome{Kind: KindCompile, Message: message}
}

func RuntimeFailure(message string) Outcome {
	return Outcome{Kind: KindRuntime, Message: message}
}

func TimeoutFailure() Outcome {
	return Outcome{Kind: KindTimeout}
}

// OtherFailure builds an infrastructure failure with a formatted diagnostic.
func OtherFailure(format string, args ...any) Outcome {
	return Outcome{Kind: KindOther, Message: fmt.Sprintf(format, args...)}
}

// Failed reports whether the outcome is anything but a success.
func (o Outcome) Failed() bool {
	return o.Kind != KindSuccess
}

// Valid reports whether the outcome carries a known kind.
func (o Outcome) Valid() bool {
	switch o.Kind {
	case KindSuccess, KindCompile, KindRuntime, KindTimeout, KindOther:
		return true
	default:
		return false
	}
}

// Classify turns the result of a run step into an Outcome.
func Classify(r *Result) Outcome {
	if r == nil {
		return OtherFailure("runner returned no result")
	}
	switch {
	case r.TimedOut:
		return TimeoutFailure()
	case r.OOMKilled:
		return RuntimeFailure("memory limit exceeded")
	case r.Stderr != "":
		return RuntimeFailure(strings.TrimSpace(r.Stderr))
	default:
		return Success(strings.TrimSpace(r.Stdout))
	}
}

// ClassifyCompile inspects the result of a compile step. It returns false when
// the build succeeded and the artifact may be run.
func ClassifyCompile(r *Result) (Outcome, bool) {
	if r == nil {
		return OtherFailure("compiler returned no result"), true
	}
	switch {
	case r.TimedOut:
		return TimeoutFailure(), true
	case r.Stderr != "":
		return CompileFailure(strings.TrimSpace(r.Stderr)), true
	case r.ExitCode != 0:
		return CompileFailure(fmt.Sprintf("compiler exited with status %d", r.ExitCode)), true
	default:
		return Outcome{}, false
	}
}
