package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const defaultBaseDir = ".twin"

// Paths holds resolved filesystem paths for twin data.
type Paths struct {
	Base   string // ~/.twin
	Config string // ~/.twin/config.yaml
	Env    string // ~/.twin/.env
	Logs   string // ~/.twin/logs
	Data   string // ~/.twin/data
}

// ResolvePaths computes all standard paths from the home directory.
// If TWIN_HOME is set, it overrides the default base directory.
func ResolvePaths() (Paths, error) {
	base := os.Getenv("TWIN_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		base = filepath.Join(home, defaultBaseDir)
	}

	return Paths{
		Base:   base,
		Config: filepath.Join(base, "config.yaml"),
		Env:    filepath.Join(base, ".env"),
		Logs:   filepath.Join(base, "logs"),
		Data:   filepath.Join(base, "data"),
	}, nil
}

// EnsureDirs creates all standard directories if they don't exist.
func (p Paths) EnsureDirs() error {
	dirs := []string{p.Base, p.Logs, p.Data}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return err
		}
	}
	return nil
}

// blockedKeys are keys that must never appear in config paths.
var blockedKeys = map[string]bool{
	"__proto__":   true,
	"prototype":   true,
	"constructor": true,
}

// ParseConfigPath splits a dot-separated config path into segments.
// Returns an error if any segment is blocked or empty.
func ParseConfigPath(raw string) ([]string, error) {
	if raw == "" {
		return nil, &ConfigError{Message: "empty config path"}
	}
	parts := strings.Split(raw, ".")
	for _, p := range parts {
		if p == "" {
			return nil, &ConfigError{Message: "config path contains empty segment"}
		}
		if blockedKeys[p] {
			return nil, &ConfigError{Message: "config path contains blocked key: " + p}
		}
	}
	return parts, nil
}

// GetValueAtPath traverses a nested map using the given path segments.
func GetValueAtPath(root map[string]any, path []string) (any, bool) {
	current := any(root)
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// SetValueAtPath sets a value in a nested map, creating intermediate maps as needed.
func SetValueAtPath(root map[string]any, path []string, value any) {
	current := root
	for _, key := range path[:len(path)-1] {
		next, ok := current[key]
		if !ok {
			next = map[string]any{}
			current[key] = next
		}
		m, ok := next.(map[string]any)
		if !ok {
			m = map[string]any{}
			current[key] = m
		}
		current = m
	}
	current[path[len(path)-1]] = value
}

// UnsetValueAtPath removes a value at the given path. Returns true if removed.
func UnsetValueAtPath(root map[string]any, path []string) bool {
	current := root
	for _, key := range path[:len(path)-1] {
		next, ok := current[key]
		if !ok {
			return false
		}
		m, ok := next.(map[string]any)
		if !ok {
			return false
		}
		current = m
	}
	last := path[len(path)-1]
	if _, ok := current[last]; !ok {
		return false
	}
	delete(current, last)
	return true
}

// sensitivePaths hold credentials and are redacted by RedactValue.
var sensitivePaths = []string{
	"model.apiKey",
	"notify.pushover.token",
	"notify.pushover.user",
}

// Redacted replaces a credential value in printed output.
const Redacted = "********"

// RedactValue returns v, the value found at path, with every credential at
// or below path masked. ${VAR} references are not secrets and stay visible.
func RedactValue(path []string, v any) any {
	key := strings.Join(path, ".")
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = RedactValue(append(path[:len(path):len(path)], k), child)
		}
		return out
	case string:
		if val == "" || envVarPattern.MatchString(val) {
			return v
		}
	case nil:
		return v
	}
	if slices.Contains(sensitivePaths, key) {
		return Redacted
	}
	return v
}

// DefaultSQLiteFile is the question database name used under Paths.Data.
const DefaultSQLiteFile = "questions.db"

// QuestionsPath returns where the question log lives. The sqlite store
// defaults to the data directory when no explicit path was configured;
// other relative paths stay relative to the working directory.
func (p Paths) QuestionsPath(cfg QuestionsConfig) string {
	if cfg.Store == "sqlite" && (cfg.Path == "" || cfg.Path == DefaultQuestionsPath) {
		return filepath.Join(p.Data, DefaultSQLiteFile)
	}
	return cfg.Path
}
