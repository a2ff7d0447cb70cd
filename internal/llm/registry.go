package llm

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/soyeahso/twin/internal/config"
	"github.com/soyeahso/twin/internal/logging"
)

// ProviderError is returned when a completion provider fails.
type ProviderError struct {
	Provider string
	Message  string
	Code     int // HTTP status code (401, 429, 500, etc.)
}

func (e *ProviderError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("%s: %d %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// ProviderPresets maps well-known provider names to their OpenAI-compatible
// base URLs.
var ProviderPresets = map[string]string{
	"gemini": "https://generativelanguage.googleapis.com/v1beta/openai/",
	"openai": "https://api.openai.com/v1/",
	"ollama": "http://localhost:11434/v1/",
}

// Registry manages provider clients and resolves model references to clients.
type Registry struct {
	mu       sync.RWMutex
	clients  map[string]Client // provider name → client
	aliases  map[string]string // model alias → provider name
	fallback string            // default provider name
	log      *logging.Logger
}

// NewRegistry creates an empty provider registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		clients: make(map[string]Client),
		aliases: make(map[string]string),
		log:     log.Sub("llm.registry"),
	}
}

// Register adds a client under the given provider name.
func (r *Registry) Register(name string, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = client
	r.log.Info().Str("provider", name).Msg("registered completion provider")
}

// Alias maps a model name to a provider.
// e.g., Alias("gemini-2.5-pro", "gemini").
func (r *Registry) Alias(model, provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[model] = provider
}

// SetFallback sets the default provider used when no model/provider match is found.
func (r *Registry) SetFallback(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = provider
}

// Resolve returns the Client for the given model reference.
// Resolution order: exact provider name → alias → fallback.
func (r *Registry) Resolve(model string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if c, ok := r.clients[model]; ok {
		return c, nil
	}

	if provider, ok := r.aliases[model]; ok {
		if c, ok := r.clients[provider]; ok {
			return c, nil
		}
	}

	if r.fallback != "" {
		if c, ok := r.clients[r.fallback]; ok {
			return c, nil
		}
	}

	return nil, fmt.Errorf("no completion provider for model %q", model)
}

// List returns all registered provider names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for n := range r.clients {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewRegistryFromConfig builds a Registry holding the configured provider
// as fallback, with the configured model aliased to it.
func NewRegistryFromConfig(cfg config.ModelConfig, log *logging.Logger) (*Registry, error) {
	reg := NewRegistry(log)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		preset, ok := ProviderPresets[cfg.Provider]
		if !ok {
			return nil, &ProviderError{Provider: cfg.Provider, Message: "unknown provider and no baseUrl configured"}
		}
		baseURL = preset
	}

	client := NewOpenAIClient(OpenAIConfig{
		Name:    cfg.Provider,
		BaseURL: baseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}, log)

	reg.Register(cfg.Provider, client)
	reg.SetFallback(cfg.Provider)
	if cfg.Model != "" {
		reg.Alias(cfg.Model, cfg.Provider)
	}
	return reg, nil
}
