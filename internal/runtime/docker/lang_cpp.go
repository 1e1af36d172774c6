package docker

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/docker/docker/api/types/container"

	"snippetbot/internal/domain/execution"
)

// cppStrategy compiles in a build container bounded by the compile timeout,
// copies the binary out and runs it in a fresh container.
type cppStrategy struct{}

func (c *cppStrategy) Execute(ctx context.Context, lang *languageRuntime, req execution.Request, timeout time.Duration) (execution.Outcome, error) {
	binary, buildOutcome, err := c.build(ctx, lang, req.Source)
	if err != nil {
		return execution.Outcome{}, err
	}
	if buildOutcome != nil {
		return *buildOutcome, nil
	}

	result, err := lang.engine.runProgram(ctx,
		lang.config.RunImage,
		lang.config.Workdir,
		execution.RunLimits{TimeLimit: timeout},
		[]string{"./" + cppBinaryFilename},
		[]fileSpec{{
			Name: cppBinaryFilename,
			Mode: 0o755,
			Data: binary,
		}},
		req.Stdin,
		lang.spec.FeedsStdin(),
	)
	if err != nil {
		return execution.Outcome{}, err
	}

	return execution.Classify(result), nil
}

// build returns either the compiled binary or a compile failure outcome.
func (c *cppStrategy) build(ctx context.Context, lang *languageRuntime, source string) ([]byte, *execution.Outcome, error) {
	buildLimits := lang.engine.effectiveLimits(execution.RunLimits{})
	buildLimits.TimeLimit = lang.engine.compileTimeout

	containerID, cleanup, err := lang.engine.createContainer(ctx,
		lang.config.Image,
		lang.config.Workdir,
		buildLimits,
		[]string{"g++", "-x", "c++", "-O2", "-pipe", "-o", cppBinaryFilename, lang.spec.SourceName},
		false,
		false,
	)
	if err != nil {
		return nil, nil, err
	}
	defer cleanup()

	if err := lang.engine.copyFiles(ctx, containerID, lang.config.Workdir, []fileSpec{{
		Name: lang.spec.SourceName,
		Mode: 0o644,
		Data: []byte(source),
	}}); err != nil {
		return nil, nil, fmt.Errorf("copy source: %w", err)
	}

	start := time.Now()
	if err := lang.engine.cli.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return nil, nil, fmt.Errorf("start container: %w", err)
	}

	buildResult, err := lang.engine.awaitResult(ctx, containerID, buildLimits, start)
	if err != nil {
		return nil, nil, err
	}
	if outcome, failed := execution.ClassifyCompile(buildResult); failed {
		return nil, &outcome, nil
	}

	binaryPath := path.Join(lang.config.Workdir, cppBinaryFilename)
	binaryData, err := lang.engine.copyFileFromContainer(ctx, containerID, binaryPath)
	if err != nil {
		return nil, nil, fmt.Errorf("extract compiled binary: %w", err)
	}

	return binaryData, nil, nil
}
