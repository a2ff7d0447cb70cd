package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearCredentialEnv keeps developer credentials from leaking into tests.
func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, name := range append(apiKeyEnvVars, "PUSHOVER_TOKEN", "PUSHOVER_USER", "TWIN_MODEL", "TWIN_GATEWAY_PORT", "TWIN_LOG_LEVEL") {
		t.Setenv(name, "")
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, DefaultPersonaName, cfg.Persona.Name)
	assert.Equal(t, "me/linkedin.pdf", cfg.Persona.ResumePath)
	assert.Equal(t, "me/Knowledge Base.md", cfg.Persona.KnowledgePath)
	assert.Equal(t, "gemini", cfg.Model.Provider)
	assert.Equal(t, "gemini-2.5-pro", cfg.Model.Model)
	assert.Equal(t, "csv", cfg.Questions.Store)
	assert.Equal(t, "unknown_questions.csv", cfg.Questions.Path)
	assert.Equal(t, 7860, cfg.Gateway.Port)
	assert.Equal(t, "loopback", cfg.Gateway.Bind)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadMissingFile(t *testing.T) {
	clearCredentialEnv(t)

	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, 7860, cfg.Gateway.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadValidYAML(t *testing.T) {
	clearCredentialEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
persona:
  name: Ada Lovelace
  resumePath: /srv/me/resume.pdf
  highlights: analytical engines
model:
  provider: openai
  model: gpt-4o-mini
  maxTokens: 800
  temperature: 0.3
notify:
  pushover:
    token: tok
    user: usr
questions:
  store: sqlite
  path: /srv/data/questions.db
gateway:
  port: 9999
  bind: lan
  allowedOrigins:
    - https://ada.dev
logging:
  level: debug
  consoleStyle: json
hooks:
  leadRecorded:
    - command: ./notify-crm.sh
      timeout: 2000
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Ada Lovelace", cfg.Persona.Name)
	assert.Equal(t, "/srv/me/resume.pdf", cfg.Persona.ResumePath)
	assert.Equal(t, "me/Knowledge Base.md", cfg.Persona.KnowledgePath, "unset fields keep defaults")
	assert.Equal(t, "analytical engines", cfg.Persona.Highlights)
	assert.Equal(t, "openai", cfg.Model.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Model.Model)
	assert.Equal(t, 800, cfg.Model.MaxTokens)
	require.NotNil(t, cfg.Model.Temperature)
	assert.InDelta(t, 0.3, *cfg.Model.Temperature, 1e-9)
	assert.Equal(t, "tok", cfg.Notify.Pushover.Token)
	assert.Equal(t, "sqlite", cfg.Questions.Store)
	assert.Equal(t, 9999, cfg.Gateway.Port)
	assert.Equal(t, []string{"https://ada.dev"}, cfg.Gateway.AllowedOrigins)
	assert.Equal(t, "json", cfg.Logging.ConsoleStyle)
	require.Len(t, cfg.Hooks.LeadRecorded, 1)
	assert.Equal(t, "./notify-crm.sh", cfg.Hooks.LeadRecorded[0].Command)
	assert.Equal(t, 2000, cfg.Hooks.LeadRecorded[0].Timeout)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: [unclosed"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	var ce *ConfigError
	assert.ErrorAs(t, err, &ce)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("PUSHOVER_TOKEN", "push-token")
	t.Setenv("PUSHOVER_USER", "push-user")
	t.Setenv("TWIN_GATEWAY_PORT", "8081")
	t.Setenv("TWIN_LOG_LEVEL", "DEBUG")
	t.Setenv("TWIN_MODEL", "gemini-2.5-flash")

	cfg, err := Load("/nonexistent/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "gem-key", cfg.Model.APIKey)
	assert.Equal(t, "push-token", cfg.Notify.Pushover.Token)
	assert.Equal(t, "push-user", cfg.Notify.Pushover.User)
	assert.Equal(t, 8081, cfg.Gateway.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "gemini-2.5-flash", cfg.Model.Model)
}

func TestLoadAPIKeyPrecedence(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("OPENAI_API_KEY", "openai-key")
	t.Setenv("TWIN_API_KEY", "twin-key")

	cfg, err := Load("/nonexistent/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "twin-key", cfg.Model.APIKey)
}

func TestLoadExpandsSensitiveFields(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("MY_PUSH_TOKEN", "expanded-token")

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
model:
  apiKey: plain-key
notify:
  pushover:
    token: ${MY_PUSH_TOKEN}
    user: ${UNSET_TWIN_VAR}
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "plain-key", cfg.Model.APIKey)
	assert.Equal(t, "expanded-token", cfg.Notify.Pushover.Token)
	assert.Equal(t, "${UNSET_TWIN_VAR}", cfg.Notify.Pushover.User)
}

func TestLoadDotEnv(t *testing.T) {
	t.Setenv("TWIN_DOTENV_PROBE", "original")
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TWIN_DOTENV_PROBE=from-file\n"), 0o600))

	require.NoError(t, LoadDotEnv(path, "/nonexistent/.env"))
	assert.Equal(t, "from-file", os.Getenv("TWIN_DOTENV_PROBE"), "env file overrides existing values")
}

func TestLoadDotEnvNoFiles(t *testing.T) {
	assert.NoError(t, LoadDotEnv("/nonexistent/.env"))
}

func TestLoadRawAndSaveRaw(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	raw, err := LoadRaw(path)
	require.NoError(t, err)
	assert.Empty(t, raw)

	SetValueAtPath(raw, []string{"persona", "name"}, "Ada")
	require.NoError(t, SaveRaw(path, raw))

	loaded, err := LoadRaw(path)
	require.NoError(t, err)
	val, ok := GetValueAtPath(loaded, []string{"persona", "name"})
	assert.True(t, ok)
	assert.Equal(t, "Ada", val)
}

func TestFromRaw(t *testing.T) {
	cfg, err := FromRaw(map[string]any{
		"questions": map[string]any{"store": "sqlite"},
	})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Questions.Store)
	assert.Equal(t, Defaults().Gateway.Port, cfg.Gateway.Port)

	_, err = FromRaw(map[string]any{"questions": map[string]any{"stor": "sqlite"}})
	assert.Error(t, err)

	_, err = FromRaw(map[string]any{"gateway": map[string]any{"port": "abc"}})
	assert.Error(t, err)

	cfg, err = FromRaw(map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, Defaults().Questions.Store, cfg.Questions.Store)
}
