// Package persona loads the profile and knowledge-base text the twin answers from.
package persona

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/soyeahso/twin/internal/config"
	"github.com/soyeahso/twin/internal/domain"
	"github.com/soyeahso/twin/internal/logging"
)

// KnowledgeNotFound replaces the knowledge base when its file cannot be read.
const KnowledgeNotFound = "Knowledge base file not found."

// ErrProfileMissing is returned when the profile document cannot be read.
// The twin cannot start without it.
var ErrProfileMissing = errors.New("profile document missing or unreadable")

// Load reads the profile and knowledge base named by cfg and returns the
// persona context. A missing profile is fatal; a missing knowledge base
// degrades to KnowledgeNotFound with a warning.
func Load(cfg config.PersonaConfig, log *logging.Logger) (domain.PersonaContext, error) {
	log = log.Sub("persona")

	profile, err := loadProfile(cfg.ResumePath, log)
	if err != nil {
		return domain.PersonaContext{}, fmt.Errorf("%w: %s: %v", ErrProfileMissing, cfg.ResumePath, err)
	}

	knowledge, err := loadKnowledge(cfg.KnowledgePath)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.KnowledgePath).Msg("knowledge base unavailable, continuing without it")
		knowledge = KnowledgeNotFound
	}

	log.Info().
		Str("name", cfg.Name).
		Int("profileBytes", len(profile)).
		Int("knowledgeBytes", len(knowledge)).
		Msg("persona loaded")

	return domain.PersonaContext{
		Name:       cfg.Name,
		Highlights: cfg.Highlights,
		Knowledge:  knowledge,
		Profile:    profile,
	}, nil
}

// loadProfile extracts text from a PDF, or reads plain text and markdown
// files verbatim.
func loadProfile(path string, log *logging.Logger) (string, error) {
	if path == "" {
		return "", errors.New("no path configured")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".markdown":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return extractPDFText(path, log)
	}
}

func loadKnowledge(path string) (string, error) {
	if path == "" {
		return "", errors.New("no path configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
