package config

// Config is the root configuration for twin.
type Config struct {
	Persona   PersonaConfig   `yaml:"persona,omitempty"`
	Model     ModelConfig     `yaml:"model,omitempty"`
	Notify    NotifyConfig    `yaml:"notify,omitempty"`
	Questions QuestionsConfig `yaml:"questions,omitempty"`
	Gateway   GatewayConfig   `yaml:"gateway,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
	Tracing   TracingConfig   `yaml:"tracing,omitempty"`
	Hooks     HooksConfig     `yaml:"hooks,omitempty"`
}

// PersonaConfig locates the two context documents the twin speaks from.
type PersonaConfig struct {
	Name          string `yaml:"name,omitempty"`
	ResumePath    string `yaml:"resumePath,omitempty"`    // required; PDF (or plain text)
	KnowledgePath string `yaml:"knowledgePath,omitempty"` // optional markdown
	Highlights    string `yaml:"highlights,omitempty"`    // one line interpolated into the goals
}

// ModelConfig selects the OpenAI-compatible completion endpoint.
type ModelConfig struct {
	Provider       string   `yaml:"provider,omitempty"` // "gemini" | "openai" | "ollama" | "custom"
	BaseURL        string   `yaml:"baseUrl,omitempty"`  // overrides the provider preset
	APIKey         string   `yaml:"apiKey,omitempty"`
	Model          string   `yaml:"model,omitempty"`
	MaxTokens      int      `yaml:"maxTokens,omitempty"`
	Temperature    *float64 `yaml:"temperature,omitempty"`
	TimeoutSeconds int      `yaml:"timeoutSeconds,omitempty"` // response header wait; 0 keeps transport defaults
}

// NotifyConfig configures the outbound notification sink.
type NotifyConfig struct {
	Pushover PushoverConfig `yaml:"pushover,omitempty"`
}

// PushoverConfig holds Pushover credentials. Notifications are disabled when
// either credential is empty.
type PushoverConfig struct {
	Endpoint string `yaml:"endpoint,omitempty"`
	Token    string `yaml:"token,omitempty"`
	User     string `yaml:"user,omitempty"`
}

// QuestionsConfig selects the unknown-question log backend.
type QuestionsConfig struct {
	Store string `yaml:"store,omitempty"` // "csv" | "sqlite"
	Path  string `yaml:"path,omitempty"`
}

// GatewayConfig controls the HTTP/WebSocket chat surface.
type GatewayConfig struct {
	Port           int      `yaml:"port,omitempty"`
	Bind           string   `yaml:"bind,omitempty"` // "loopback" | "lan" | "custom"
	CustomBindHost string   `yaml:"customBindHost,omitempty"`
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File         string `yaml:"file,omitempty"`
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "json"
}

// TracingConfig controls OpenTelemetry tracing.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	Exporter string `yaml:"exporter,omitempty"` // "stdout" | "otlp" | "noop"
	Endpoint string `yaml:"endpoint,omitempty"` // otlp collector host:port
}

// HooksConfig defines shell commands run on lifecycle events.
type HooksConfig struct {
	LeadRecorded     []HookEntry `yaml:"leadRecorded,omitempty"`
	QuestionRecorded []HookEntry `yaml:"questionRecorded,omitempty"`
	TurnCompleted    []HookEntry `yaml:"turnCompleted,omitempty"`
	GatewayStart     []HookEntry `yaml:"gatewayStart,omitempty"`
	GatewayStop      []HookEntry `yaml:"gatewayStop,omitempty"`
}

// HookEntry defines a single hook action.
type HookEntry struct {
	Command string `yaml:"command"`
	Timeout int    `yaml:"timeout,omitempty"` // milliseconds
}
