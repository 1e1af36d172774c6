package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"snippetbot/internal/app/render"
	"snippetbot/internal/domain/execution"
)

var extensionLanguages = map[string]execution.Language{
	".cpp": execution.LanguageCPP,
	".cc":  execution.LanguageCPP,
	".sh":  execution.LanguageBash,
	".py":  execution.LanguagePython,
	".js":  execution.LanguageJavaScript,
}

func newRunCmd(c *cli) *cobra.Command {
	var (
		lang      string
		input     string
		inputFile string
	)

	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Execute one source file with the configured backend",
		Long: `Execute a source file exactly as the bot would and print the reply.

Examples:
  snippetbot run main.py --input 21
  snippetbot run solution.cpp --input-file tests/1.in`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildRunRequest(args[0], lang, input, inputFile)
			if err != nil {
				return err
			}
			return runOnce(cmd.Context(), c.cfg, c.logger, req, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "", "Language (cpp, bash, python, javascript); inferred from the extension by default")
	cmd.Flags().StringVar(&input, "input", "", "Standard input text")
	cmd.Flags().StringVar(&inputFile, "input-file", "", "Read standard input from a file")
	return cmd
}

func buildRunRequest(path, lang, input, inputFile string) (execution.Request, error) {
	language, err := resolveLanguage(path, lang)
	if err != nil {
		return execution.Request{}, err
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return execution.Request{}, fmt.Errorf("read source: %w", err)
	}

	stdin := input
	if inputFile != "" {
		data, err := os.ReadFile(inputFile)
		if err != nil {
			return execution.Request{}, fmt.Errorf("read input: %w", err)
		}
		stdin = string(data)
	}

	return execution.Request{Language: language, Source: string(source), Stdin: stdin}, nil
}

func resolveLanguage(path, lang string) (execution.Language, error) {
	if lang != "" {
		language := execution.Language(strings.ToLower(lang))
		if !language.Valid() {
			return "", fmt.Errorf("unsupported language %q", lang)
		}
		return language, nil
	}
	ext := strings.ToLower(filepath.Ext(path))
	language, ok := extensionLanguages[ext]
	if !ok {
		return "", fmt.Errorf("cannot infer language from %q; pass --lang", path)
	}
	return language, nil
}

func runOnce(ctx context.Context, cfg appConfig, logger *zap.Logger, req execution.Request, out io.Writer) error {
	executor, err := newExecutor(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := executor.Close(); cerr != nil {
			logger.Warn("failed to close executor", zap.Error(cerr))
		}
	}()

	outcome := executor.Execute(ctx, req, cfg.CodeTimeout)
	if outcome.Kind == execution.KindOther {
		logger.Warn("execution environment failure", zap.String("diagnostic", outcome.Message))
	}

	_, err = fmt.Fprintln(out, render.Outcome(req.Language, outcome).Text)
	return err
}
