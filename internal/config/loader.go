package config

import (
	"fmt"
	"os"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// Load reads the config file and returns a merged Config. A missing file
// produces defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)
	cfg.Model.Endpoint = expandEnvVars(cfg.Model.Endpoint)
	cfg.Retrieval.IndexPath = expandEnvVars(cfg.Retrieval.IndexPath)
	return cfg, nil
}

// applyDefaults fills zero-value fields with sensible defaults after a file
// has been unmarshalled over the baseline.
func applyDefaults(cfg *Config) {
	def := Defaults()
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.Bind == "" {
		cfg.Server.Bind = def.Server.Bind
	}
	if cfg.Model.Endpoint == "" {
		cfg.Model.Endpoint = def.Model.Endpoint
	}
	if cfg.Model.ChatModel == "" {
		cfg.Model.ChatModel = def.Model.ChatModel
	}
	if cfg.Model.JudgeModel == "" {
		cfg.Model.JudgeModel = def.Model.JudgeModel
	}
	if cfg.Model.EmbedModel == "" {
		cfg.Model.EmbedModel = def.Model.EmbedModel
	}
	if cfg.Chat.MaxHistory == 0 {
		cfg.Chat.MaxHistory = def.Chat.MaxHistory
	}
	if cfg.Chat.MaxToolIterations == 0 {
		cfg.Chat.MaxToolIterations = def.Chat.MaxToolIterations
	}
	if cfg.Retrieval.IndexPath == "" {
		cfg.Retrieval.IndexPath = def.Retrieval.IndexPath
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = def.Retrieval.TopK
	}
	if cfg.NUSMods.BaseURL == "" {
		cfg.NUSMods.BaseURL = def.NUSMods.BaseURL
	}
	if cfg.NUSMods.DefaultAcadYear == "" {
		cfg.NUSMods.DefaultAcadYear = def.NUSMods.DefaultAcadYear
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.Style == "" {
		cfg.Logging.Style = def.Logging.Style
	}
}

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "server.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Server.Port),
		})
	}

	if cfg.Chat.MaxHistory < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "chat.maxHistory",
			Message: fmt.Sprintf("must be non-negative, got %d", cfg.Chat.MaxHistory),
		})
	}

	if cfg.Chat.MaxToolIterations < 1 {
		issues = append(issues, ValidationIssue{
			Path:    "chat.maxToolIterations",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.Chat.MaxToolIterations),
		})
	}

	if cfg.Retrieval.TopK < 1 {
		issues = append(issues, ValidationIssue{
			Path:    "retrieval.topK",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.Retrieval.TopK),
		})
	}

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	validStyles := []string{"pretty", "json"}
	if cfg.Logging.Style != "" && !slices.Contains(validStyles, cfg.Logging.Style) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.style",
			Message: fmt.Sprintf("must be one of %v, got %q", validStyles, cfg.Logging.Style),
		})
	}

	return issues
}
