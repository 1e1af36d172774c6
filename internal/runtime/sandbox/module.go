package sandbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"snippetbot/internal/domain/execution"
)

const binaryFilename = "program"

type module struct {
	spec           execution.LanguageSpec
	toolchain      Toolchain
	runner         *processRunner
	tempDir        string
	compileTimeout time.Duration
	logger         *zap.Logger
}

func newModule(lang execution.Language, toolchain Toolchain, runner *processRunner, cfg Config) (*module, error) {
	spec, ok := lang.Spec()
	if !ok {
		return nil, fmt.Errorf("sandbox runtime: unsupported language %q", lang)
	}
	if len(toolchain.Run) == 0 {
		return nil, fmt.Errorf("sandbox runtime: language %q missing run command", lang)
	}
	if spec.Compiled && len(toolchain.Compile) == 0 {
		return nil, fmt.Errorf("sandbox runtime: language %q missing compile command", lang)
	}

	return &module{
		spec:           spec,
		toolchain:      toolchain,
		runner:         runner,
		tempDir:        cfg.TempDir,
		compileTimeout: cfg.CompileTimeout,
		logger:         cfg.Logger.With(zap.String("language", string(lang))),
	}, nil
}

func (m *module) Language() execution.Language {
	return m.spec.Language
}

func (m *module) Execute(ctx context.Context, req execution.Request, timeout time.Duration) execution.Outcome {
	workdir, err := os.MkdirTemp(m.tempDir, "snippet-")
	if err != nil {
		return execution.OtherFailure("Cannot create temporary directory: %v", err)
	}
	defer func() {
		if err := os.RemoveAll(workdir); err != nil {
			m.logger.Warn("remove sandbox directory", zap.String("dir", workdir), zap.Error(err))
		}
	}()

	source := filepath.Join(workdir, m.spec.SourceName)
	binary := filepath.Join(workdir, binaryFilename)
	if err := os.WriteFile(source, []byte(m.spec.PrepareSource(req.Source, req.Stdin)), 0o644); err != nil {
		return execution.OtherFailure("Cannot write code into file: %v", err)
	}

	if m.spec.Compiled {
		result, err := m.runner.run(ctx, processSpec{
			Argv:    expand(m.toolchain.Compile, source, binary),
			Dir:     workdir,
			Timeout: m.compileTimeout,
		})
		if err != nil {
			return execution.OtherFailure("Cannot run compiler: %v", err)
		}
		scrubPaths(result, workdir)
		if outcome, failed := execution.ClassifyCompile(result); failed {
			m.logger.Debug("compile step rejected source", zap.Int64("exit_code", result.ExitCode))
			return outcome
		}
	}

	result, err := m.runner.run(ctx, processSpec{
		Argv:      m.runner.isolate(expand(m.toolchain.Run, source, binary)),
		Dir:       workdir,
		Stdin:     req.Stdin,
		FeedStdin: m.spec.FeedsStdin(),
		Timeout:   timeout,
	})
	if err != nil {
		return execution.OtherFailure("Cannot run program: %v", err)
	}
	scrubPaths(result, workdir)

	m.logger.Debug("run step finished",
		zap.Duration("duration", result.Duration),
		zap.Int64("exit_code", result.ExitCode),
		zap.Bool("timed_out", result.TimedOut))

	return execution.Classify(result)
}

func (m *module) Close() error {
	return nil
}

func expand(args []string, source, binary string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		arg = strings.ReplaceAll(arg, SourcePlaceholder, source)
		out[i] = strings.ReplaceAll(arg, BinaryPlaceholder, binary)
	}
	return out
}

// scrubPaths strips the per-run directory so diagnostics mention main.py
// rather than a random temporary path.
func scrubPaths(result *execution.Result, workdir string) {
	prefix := workdir + string(os.PathSeparator)
	result.Stdout = strings.ReplaceAll(result.Stdout, prefix, "")
	result.Stderr = strings.ReplaceAll(result.Stderr, prefix, "")
}
