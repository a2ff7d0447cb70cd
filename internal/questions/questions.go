// Package questions records questions the twin could not answer so the
// knowledge base can be improved later.
package questions

import (
	"context"
	"fmt"

	"github.com/soyeahso/twin/internal/config"
	"github.com/soyeahso/twin/internal/domain"
	"github.com/soyeahso/twin/internal/logging"
	"github.com/soyeahso/twin/internal/store"
)

// Log is an append-only record of unknown questions.
type Log interface {
	Append(ctx context.Context, q domain.UnknownQuestion) error
	List(ctx context.Context) ([]domain.UnknownQuestion, error)
	Close() error
}

// Open returns the log backend selected by cfg.Store, stored at the path
// chosen by paths.QuestionsPath.
func Open(cfg config.QuestionsConfig, paths config.Paths, log *logging.Logger) (Log, error) {
	path := paths.QuestionsPath(cfg)
	switch cfg.Store {
	case "", "csv":
		return NewCSVLog(path, log), nil
	case "sqlite":
		db, err := store.Open(path, log)
		if err != nil {
			return nil, fmt.Errorf("opening question store: %w", err)
		}
		return store.NewQuestionStore(db), nil
	default:
		return nil, fmt.Errorf("unknown question store %q", cfg.Store)
	}
}

// BestEffortAppend appends q and logs any failure instead of returning it.
func BestEffortAppend(ctx context.Context, l Log, log *logging.Logger, q domain.UnknownQuestion) {
	if l == nil {
		return
	}
	if err := l.Append(ctx, q); err != nil {
		log.Warn().Err(err).Str("question", q.Question).Msg("failed to record unknown question")
	}
}
