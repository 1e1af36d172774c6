package docker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"snippetbot/internal/domain/execution"
	runtimex "snippetbot/internal/runtime"
)

type languageStrategy interface {
	Execute(ctx context.Context, lang *languageRuntime, req execution.Request, timeout time.Duration) (execution.Outcome, error)
}

type module struct {
	runtime  *languageRuntime
	strategy languageStrategy
}

func newModule(lang execution.Language, cfg LanguageConfig, engine *containerEngine) (runtimex.Module, error) {
	runtime, err := newLanguageRuntime(lang, cfg, engine)
	if err != nil {
		return nil, err
	}

	return &module{
		runtime:  runtime,
		strategy: strategyForLanguage(runtime.spec),
	}, nil
}

func (m *module) Language() execution.Language {
	return m.runtime.spec.Language
}

func (m *module) Execute(ctx context.Context, req execution.Request, timeout time.Duration) execution.Outcome {
	if err := m.runtime.ensureImage(ctx); err != nil {
		return execution.OtherFailure("Cannot prepare %s image: %v", m.runtime.spec.Language, err)
	}

	outcome, err := m.strategy.Execute(ctx, m.runtime, req, timeout)
	if err != nil {
		m.runtime.engine.logger.Warn("container execution failed",
			zap.String("language", string(m.runtime.spec.Language)),
			zap.Error(err))
		return execution.OtherFailure("Container execution failed: %v", err)
	}
	return outcome
}

func (m *module) Close() error {
	return nil
}
