package docker

import (
	"context"
	"fmt"
	"sync"

	"snippetbot/internal/domain/execution"
)

type languageRuntime struct {
	spec   execution.LanguageSpec
	config LanguageConfig
	engine *containerEngine

	pullMu sync.Mutex
	pulled bool
}

func newLanguageRuntime(lang execution.Language, cfg LanguageConfig, engine *containerEngine) (*languageRuntime, error) {
	spec, ok := lang.Spec()
	if !ok {
		return nil, fmt.Errorf("docker runtime: unsupported language %q", lang)
	}
	if cfg.Image == "" {
		return nil, fmt.Errorf("docker runtime: language %q missing image configuration", lang)
	}
	if cfg.Workdir == "" {
		cfg.Workdir = "/tmp"
	}
	if cfg.RunImage == "" {
		cfg.RunImage = cfg.Image
	}
	return &languageRuntime{
		spec:   spec,
		config: cfg,
		engine: engine,
	}, nil
}

// ensureImage pulls the build and run images until one attempt succeeds.
func (l *languageRuntime) ensureImage(ctx context.Context) error {
	l.pullMu.Lock()
	defer l.pullMu.Unlock()
	if l.pulled {
		return nil
	}

	if err := l.engine.pullImage(ctx, l.config.Image); err != nil {
		return err
	}
	if l.config.RunImage != l.config.Image {
		if err := l.engine.pullImage(ctx, l.config.RunImage); err != nil {
			return err
		}
	}
	l.pulled = true
	return nil
}
