package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

const (
	DefaultPersonaName   = "Reid Caulder"
	DefaultResumePath    = "me/linkedin.pdf"
	DefaultKnowledgePath = "me/Knowledge Base.md"
	DefaultProvider      = "gemini"
	DefaultModel         = "gemini-2.5-pro"
	DefaultQuestionsPath = "unknown_questions.csv"
	DefaultGatewayPort   = 7860
)

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Persona: PersonaConfig{
			Name:          DefaultPersonaName,
			ResumePath:    DefaultResumePath,
			KnowledgePath: DefaultKnowledgePath,
		},
		Model: ModelConfig{
			Provider: DefaultProvider,
			Model:    DefaultModel,
		},
		Questions: QuestionsConfig{
			Store: "csv",
			Path:  DefaultQuestionsPath,
		},
		Gateway: GatewayConfig{
			Port: DefaultGatewayPort,
			Bind: "loopback",
		},
		Logging: LoggingConfig{
			Level:        "info",
			ConsoleStyle: "pretty",
		},
		Tracing: TracingConfig{
			Exporter: "noop",
		},
	}
}
