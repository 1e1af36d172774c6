package sandbox

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"snippetbot/internal/domain/execution"
	"snippetbot/internal/ports"
	runtimex "snippetbot/internal/runtime"
)

var _ ports.Executor = (*Engine)(nil)

// Engine implements ports.Executor with local subprocesses.
type Engine struct {
	registry *runtimex.Registry
}

// New constructs an Engine using the supplied configuration.
func New(cfg Config) (*Engine, error) {
	if len(cfg.Toolchains) == 0 {
		return nil, fmt.Errorf("sandbox runtime: at least one language must be configured")
	}
	if cfg.CompileTimeout <= 0 {
		cfg.CompileTimeout = defaultCompileTimeout
	}
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = defaultMaxOutputBytes
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	runner := &processRunner{
		firejail:       cfg.Firejail,
		firejailArgs:   cfg.FirejailArgs,
		maxOutputBytes: cfg.MaxOutputBytes,
	}

	modules := make([]runtimex.Module, 0, len(cfg.Toolchains))
	for lang, toolchain := range cfg.Toolchains {
		module, err := newModule(lang, toolchain, runner, cfg)
		if err != nil {
			return nil, err
		}
		modules = append(modules, module)
	}

	registry, err := runtimex.NewRegistry(modules...)
	if err != nil {
		return nil, err
	}

	return &Engine{registry: registry}, nil
}

// Execute delegates to the module registered for the request's language.
func (e *Engine) Execute(ctx context.Context, req execution.Request, timeout time.Duration) execution.Outcome {
	return e.registry.Execute(ctx, req, timeout)
}

// Languages lists the configured languages.
func (e *Engine) Languages() []execution.Language {
	return e.registry.Languages()
}

// Close releases module resources.
func (e *Engine) Close() error {
	return e.registry.Close()
}
