package docker

import (
	"time"

	"go.uber.org/zap"

	"snippetbot/internal/domain/execution"
)

const (
	defaultPidsLimit      = 64
	defaultCompileTimeout = 30 * time.Second
)

// Config describes how to create a Docker-backed runtime engine.
type Config struct {
	Languages     map[execution.Language]LanguageConfig
	DefaultLimits execution.RunLimits
	// PidsLimit caps the number of processes inside a run container.
	PidsLimit int64
	// CompileTimeout bounds the build container of compiled languages.
	CompileTimeout time.Duration
	Logger         *zap.Logger
}

// LanguageConfig specifies container settings for a single language.
type LanguageConfig struct {
	// Image builds (compiled languages) or runs (interpreted languages) the source.
	Image string
	// RunImage runs compiled artifacts; it defaults to Image.
	RunImage string
	Workdir  string
}

// DefaultConfig returns images for every supported language.
func DefaultConfig() Config {
	return Config{
		Languages: map[execution.Language]LanguageConfig{
			execution.LanguageCPP:        {Image: "gcc:14", Workdir: "/workspace"},
			execution.LanguageBash:       {Image: "bash:5.2", Workdir: "/workspace"},
			execution.LanguagePython:     {Image: "python:3.12-alpine", Workdir: "/workspace"},
			execution.LanguageJavaScript: {Image: "node:22-alpine", Workdir: "/workspace"},
		},
		DefaultLimits:  execution.RunLimits{MemoryLimitBytes: 256 << 20},
		PidsLimit:      defaultPidsLimit,
		CompileTimeout: defaultCompileTimeout,
	}
}
