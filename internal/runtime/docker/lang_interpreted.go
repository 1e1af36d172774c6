package docker

import (
	"context"
	"fmt"
	"time"

	"snippetbot/internal/domain/execution"
)

// interpretedStrategy copies the source into a container and runs it with an
// interpreter in a single step.
type interpretedStrategy struct {
	interpreter string
}

func (s *interpretedStrategy) Execute(ctx context.Context, lang *languageRuntime, req execution.Request, timeout time.Duration) (execution.Outcome, error) {
	if s.interpreter == "" {
		return execution.Outcome{}, fmt.Errorf("no interpreter configured for %q", lang.spec.Language)
	}

	result, err := lang.engine.runProgram(ctx,
		lang.config.Image,
		lang.config.Workdir,
		execution.RunLimits{TimeLimit: timeout},
		[]string{s.interpreter, lang.spec.SourceName},
		[]fileSpec{{
			Name: lang.spec.SourceName,
			Mode: 0o644,
			Data: []byte(lang.spec.PrepareSource(req.Source, req.Stdin)),
		}},
		req.Stdin,
		lang.spec.FeedsStdin(),
	)
	if err != nil {
		return execution.Outcome{}, err
	}

	return execution.Classify(result), nil
}
