package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"snippetbot/internal/domain/execution"
	"snippetbot/internal/runtime/docker"
	"snippetbot/internal/runtime/sandbox"
)

const (
	keyBotToken           = "bot_token"
	keyCodeTimeout        = "code_timeout"
	keyBackend            = "backend"
	keyExecutorURL        = "executor_url"
	keyListenAddr         = "listen_addr"
	keyExecutorMaxTimeout = "executor_max_timeout"
	keyMaxParallel        = "max_parallel"
	keyLogLevel           = "log_level"
	keyLogFormat          = "log_format"
	keyKafkaBrokers       = "kafka_brokers"
	keyKafkaResultsTopic  = "kafka_results_topic"
	keyFirejailPath       = "firejail_path"
	keyCompileTimeout     = "compile_timeout"
	keyDockerMemoryLimit  = "docker_memory_limit"
)

const (
	backendSandbox = "sandbox"
	backendDocker  = "docker"
	backendRemote  = "remote"

	defaultCodeTimeout        = 5 * time.Second
	defaultListenAddr         = ":8080"
	defaultExecutorMaxTimeout = 30 * time.Second
	defaultKafkaResultsTopic  = "run-reports"
	defaultMaxParallel        = 8
)

type appConfig struct {
	BotToken           string
	CodeTimeout        time.Duration
	Backend            string
	ExecutorURL        string
	ListenAddr         string
	ExecutorMaxTimeout time.Duration
	MaxParallel        int
	LogLevel           string
	LogFormat          string
	KafkaBrokers       []string
	ResultsTopic       string
	FirejailPath       string
	CompileTimeout     time.Duration
	DockerImages       map[execution.Language]string
	DockerMemoryLimit  int64
}

// loadAppConfig reads snippetbot.yaml when present and lets environment
// variables named after the keys (BOT_TOKEN, CODE_TIMEOUT, ...) override it.
func loadAppConfig(path string) (appConfig, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("snippetbot")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/snippetbot")
	}

	setDefaults(v)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return appConfig{}, fmt.Errorf("reading config: %w", err)
		}
	}

	return configFromViper(v)
}

func setDefaults(v *viper.Viper) {
	defaults := sandbox.DefaultConfig()
	images := docker.DefaultConfig()

	v.SetDefault(keyBotToken, "")
	v.SetDefault(keyCodeTimeout, defaultCodeTimeout.String())
	v.SetDefault(keyBackend, backendSandbox)
	v.SetDefault(keyExecutorURL, "")
	v.SetDefault(keyListenAddr, defaultListenAddr)
	v.SetDefault(keyExecutorMaxTimeout, defaultExecutorMaxTimeout.String())
	v.SetDefault(keyMaxParallel, strconv.Itoa(defaultMaxParallel))
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogFormat, "json")
	v.SetDefault(keyKafkaBrokers, "")
	v.SetDefault(keyKafkaResultsTopic, defaultKafkaResultsTopic)
	v.SetDefault(keyFirejailPath, defaults.Firejail)
	v.SetDefault(keyCompileTimeout, defaults.CompileTimeout.String())
	v.SetDefault(keyDockerMemoryLimit, strconv.FormatInt(images.DefaultLimits.MemoryLimitBytes, 10))
	for _, spec := range execution.Languages() {
		v.SetDefault(dockerImageKey(spec.Language), images.Languages[spec.Language].Image)
	}
}

func configFromViper(v *viper.Viper) (appConfig, error) {
	codeTimeout, err := parseTimeout(v.GetString(keyCodeTimeout))
	if err != nil {
		return appConfig{}, fmt.Errorf("%s: %w", keyCodeTimeout, err)
	}
	compileTimeout, err := parseTimeout(v.GetString(keyCompileTimeout))
	if err != nil {
		return appConfig{}, fmt.Errorf("%s: %w", keyCompileTimeout, err)
	}

	backend := strings.ToLower(strings.TrimSpace(v.GetString(keyBackend)))
	switch backend {
	case backendSandbox, backendDocker, backendRemote:
	default:
		return appConfig{}, fmt.Errorf("%s: unknown backend %q", keyBackend, backend)
	}

	images := make(map[execution.Language]string)
	for _, spec := range execution.Languages() {
		images[spec.Language] = v.GetString(dockerImageKey(spec.Language))
	}

	return appConfig{
		BotToken:           v.GetString(keyBotToken),
		CodeTimeout:        codeTimeout,
		Backend:            backend,
		ExecutorURL:        v.GetString(keyExecutorURL),
		ListenAddr:         v.GetString(keyListenAddr),
		ExecutorMaxTimeout: parseDuration(v.GetString(keyExecutorMaxTimeout), defaultExecutorMaxTimeout),
		MaxParallel:        parseMaxParallel(v.GetString(keyMaxParallel)),
		LogLevel:           v.GetString(keyLogLevel),
		LogFormat:          v.GetString(keyLogFormat),
		KafkaBrokers:       brokersSetting(v),
		ResultsTopic:       v.GetString(keyKafkaResultsTopic),
		FirejailPath:       v.GetString(keyFirejailPath),
		CompileTimeout:     compileTimeout,
		DockerImages:       images,
		DockerMemoryLimit:  parseBytes(v.GetString(keyDockerMemoryLimit)),
	}, nil
}

func dockerImageKey(lang execution.Language) string {
	return "docker_" + string(lang) + "_image"
}

// brokersSetting accepts a comma separated string or a YAML list.
func brokersSetting(v *viper.Viper) []string {
	if raw, ok := v.Get(keyKafkaBrokers).(string); ok {
		return parseBrokerList(raw)
	}
	return parseBrokerList(strings.Join(v.GetStringSlice(keyKafkaBrokers), ","))
}

func parseBrokerList(raw string) []string {
	fields := strings.Split(raw, ",")
	brokers := make([]string, 0, len(fields))
	for _, field := range fields {
		if trimmed := strings.TrimSpace(field); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	return brokers
}

func parseMaxParallel(raw string) int {
	if raw == "" {
		return 1
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 1
	}
	return value
}

// parseTimeout accepts whole seconds ("5") or a Go duration ("1500ms").
func parseTimeout(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds <= 0 {
			return 0, fmt.Errorf("timeout must be positive, got %d", seconds)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q", raw)
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeout must be positive, got %s", d)
	}
	return d, nil
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

func parseBytes(raw string) int64 {
	if raw == "" {
		return 0
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value < 0 {
		return 0
	}
	return value
}
