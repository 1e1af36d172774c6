package main

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"snippetbot/internal/domain/execution"
	"snippetbot/internal/infra/remote"
	"snippetbot/internal/ports"
	"snippetbot/internal/runtime/docker"
	"snippetbot/internal/runtime/sandbox"
)

// newExecutor builds the execution backend selected by cfg.Backend.
func newExecutor(cfg appConfig, logger *zap.Logger) (ports.Executor, error) {
	switch cfg.Backend {
	case backendSandbox:
		sandboxCfg := sandbox.DefaultConfig()
		sandboxCfg.Firejail = cfg.FirejailPath
		sandboxCfg.CompileTimeout = cfg.CompileTimeout
		sandboxCfg.Logger = logger.Named("sandbox")
		engine, err := sandbox.New(sandboxCfg)
		if err != nil {
			return nil, fmt.Errorf("initialize sandbox backend: %w", err)
		}
		return engine, nil
	case backendDocker:
		engine, err := docker.New(dockerConfig(cfg, logger))
		if err != nil {
			return nil, fmt.Errorf("initialize docker backend: %w", err)
		}
		return engine, nil
	case backendRemote:
		if cfg.ExecutorURL == "" {
			return nil, errors.New("initialize remote backend: executor_url is required")
		}
		client, err := remote.NewClient(remote.ClientConfig{
			BaseURL: cfg.ExecutorURL,
			Logger:  logger.Named("remote"),
		})
		if err != nil {
			return nil, fmt.Errorf("initialize remote backend: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func dockerConfig(cfg appConfig, logger *zap.Logger) docker.Config {
	dockerCfg := docker.DefaultConfig()
	for lang, image := range cfg.DockerImages {
		if image == "" {
			continue
		}
		langCfg := dockerCfg.Languages[lang]
		langCfg.Image = image
		dockerCfg.Languages[lang] = langCfg
	}
	dockerCfg.DefaultLimits = execution.RunLimits{MemoryLimitBytes: cfg.DockerMemoryLimit}
	if cfg.CompileTimeout > 0 {
		dockerCfg.CompileTimeout = cfg.CompileTimeout
	}
	dockerCfg.Logger = logger.Named("docker")
	return dockerCfg
}
