package config

import (
	"fmt"
	"slices"
)

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

	// Persona
	if cfg.Persona.Name == "" {
		issues = append(issues, ValidationIssue{Path: "persona.name", Message: "name is required"})
	}
	if cfg.Persona.ResumePath == "" {
		issues = append(issues, ValidationIssue{Path: "persona.resumePath", Message: "resume path is required"})
	}

	// Model
	validProviders := []string{"gemini", "openai", "ollama", "custom"}
	if !slices.Contains(validProviders, cfg.Model.Provider) {
		issues = append(issues, ValidationIssue{
			Path:    "model.provider",
			Message: fmt.Sprintf("must be one of %v, got %q", validProviders, cfg.Model.Provider),
		})
	}
	if cfg.Model.Provider == "custom" && cfg.Model.BaseURL == "" {
		issues = append(issues, ValidationIssue{
			Path:    "model.baseUrl",
			Message: "required when provider is custom",
		})
	}
	if cfg.Model.Provider != "ollama" && cfg.Model.APIKey == "" {
		issues = append(issues, ValidationIssue{
			Path:    "model.apiKey",
			Message: "required (set GEMINI_API_KEY, OPENAI_API_KEY or TWIN_API_KEY)",
		})
	}
	if cfg.Model.Model == "" {
		issues = append(issues, ValidationIssue{Path: "model.model", Message: "model is required"})
	}
	if cfg.Model.TimeoutSeconds < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "model.timeoutSeconds",
			Message: fmt.Sprintf("must be >= 0, got %d", cfg.Model.TimeoutSeconds),
		})
	}

	// Questions
	validStores := []string{"csv", "sqlite"}
	if !slices.Contains(validStores, cfg.Questions.Store) {
		issues = append(issues, ValidationIssue{
			Path:    "questions.store",
			Message: fmt.Sprintf("must be one of %v, got %q", validStores, cfg.Questions.Store),
		})
	}
	if cfg.Questions.Path == "" {
		issues = append(issues, ValidationIssue{Path: "questions.path", Message: "path is required"})
	}

	// Gateway
	if cfg.Gateway.Port < 0 || cfg.Gateway.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Gateway.Port),
		})
	}
	validBinds := []string{"loopback", "lan", "custom"}
	if cfg.Gateway.Bind != "" && !slices.Contains(validBinds, cfg.Gateway.Bind) {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.bind",
			Message: fmt.Sprintf("must be one of %v, got %q", validBinds, cfg.Gateway.Bind),
		})
	}

	// Logging
	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}
	validConsoleStyles := []string{"pretty", "json"}
	if cfg.Logging.ConsoleStyle != "" && !slices.Contains(validConsoleStyles, cfg.Logging.ConsoleStyle) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.consoleStyle",
			Message: fmt.Sprintf("must be one of %v, got %q", validConsoleStyles, cfg.Logging.ConsoleStyle),
		})
	}

	// Tracing
	validExporters := []string{"", "noop", "stdout", "otlp"}
	if !slices.Contains(validExporters, cfg.Tracing.Exporter) {
		issues = append(issues, ValidationIssue{
			Path:    "tracing.exporter",
			Message: fmt.Sprintf("must be one of %v, got %q", validExporters, cfg.Tracing.Exporter),
		})
	}
	if cfg.Tracing.Enabled && cfg.Tracing.Exporter == "otlp" && cfg.Tracing.Endpoint == "" {
		issues = append(issues, ValidationIssue{
			Path:    "tracing.endpoint",
			Message: "required when exporter is otlp",
		})
	}

	// Hooks
	for event, entries := range cfg.Hooks.ByEvent() {
		for i, h := range entries {
			if h.Command == "" {
				issues = append(issues, ValidationIssue{
					Path:    fmt.Sprintf("hooks.%s[%d].command", event, i),
					Message: "command is required",
				})
			}
		}
	}

	return issues
}

// ByEvent returns the configured hook entries keyed by config field name.
func (h HooksConfig) ByEvent() map[string][]HookEntry {
	return map[string][]HookEntry{
		"leadRecorded":     h.LeadRecorded,
		"questionRecorded": h.QuestionRecorded,
		"turnCompleted":    h.TurnCompleted,
		"gatewayStart":     h.GatewayStart,
		"gatewayStop":      h.GatewayStop,
	}
}
