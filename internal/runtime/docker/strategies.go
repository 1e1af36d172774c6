package docker

import (
	"snippetbot/internal/domain/execution"
)

const cppBinaryFilename = "program"

// interpreters maps interpreted languages to the command running the source file.
var interpreters = map[execution.Language]string{
	execution.LanguageBash:       "bash",
	execution.LanguagePython:     "python",
	execution.LanguageJavaScript: "node",
}

func strategyForLanguage(spec execution.LanguageSpec) languageStrategy {
	if spec.Compiled {
		return &cppStrategy{}
	}
	return &interpretedStrategy{interpreter: interpreters[spec.Language]}
}
