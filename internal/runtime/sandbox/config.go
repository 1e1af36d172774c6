// Package sandbox runs submitted code as local subprocesses behind a firejail
// isolation wrapper.
package sandbox

import (
	"time"

	"go.uber.org/zap"

	"snippetbot/internal/domain/execution"
)

// Placeholders expanded in toolchain argument lists.
const (
	SourcePlaceholder = "{src}"
	BinaryPlaceholder = "{bin}"
)

const (
	defaultCompileTimeout = 30 * time.Second
	defaultMaxOutputBytes = 64 * 1024
)

// Config describes how to build a sandbox Engine.
type Config struct {
	// Firejail is the isolation binary. Empty runs programs without a wrapper.
	Firejail     string
	FirejailArgs []string
	Toolchains   map[execution.Language]Toolchain
	// TempDir is the parent of the per-run directories; empty uses os.TempDir.
	TempDir        string
	CompileTimeout time.Duration
	MaxOutputBytes int
	Logger         *zap.Logger
}

// Toolchain is the command line used to build and run one language.
type Toolchain struct {
	// Compile is empty for interpreted languages. It runs outside the isolation wrapper.
	Compile []string
	Run     []string
}

// DefaultConfig returns the firejail profile and toolchains for every language.
func DefaultConfig() Config {
	return Config{
		Firejail:     "firejail",
		FirejailArgs: []string{"--quiet", "--overlay-tmpfs", "--private"},
		Toolchains: map[execution.Language]Toolchain{
			execution.LanguageCPP: {
				Compile: []string{"g++", "-x", "c++", "-O2", "-pipe", "-o", BinaryPlaceholder, SourcePlaceholder},
				Run:     []string{BinaryPlaceholder},
			},
			execution.LanguageBash:       {Run: []string{"bash", SourcePlaceholder}},
			execution.LanguagePython:     {Run: []string{"python3", SourcePlaceholder}},
			execution.LanguageJavaScript: {Run: []string{"node", SourcePlaceholder}},
		},
		CompileTimeout: defaultCompileTimeout,
		MaxOutputBytes: defaultMaxOutputBytes,
	}
}
