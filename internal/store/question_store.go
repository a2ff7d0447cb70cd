package store

import (
	"context"
	"fmt"
	"time"

	"github.com/soyeahso/twin/internal/domain"
)

// QuestionStore persists unknown questions in the unknown_questions table.
type QuestionStore struct {
	db *DB
}

// NewQuestionStore creates a QuestionStore on an open database.
func NewQuestionStore(db *DB) *QuestionStore {
	return &QuestionStore{db: db}
}

// Append inserts one question row.
func (s *QuestionStore) Append(ctx context.Context, q domain.UnknownQuestion) error {
	_, err := s.db.sql.ExecContext(ctx,
		"INSERT INTO unknown_questions (asked_at, question) VALUES (?, ?)",
		q.Timestamp.Format(time.RFC3339Nano), q.Question,
	)
	if err != nil {
		return fmt.Errorf("inserting question: %w", err)
	}
	return nil
}

// List returns every question in insertion order.
func (s *QuestionStore) List(ctx context.Context) ([]domain.UnknownQuestion, error) {
	rows, err := s.db.sql.QueryContext(ctx, "SELECT asked_at, question FROM unknown_questions ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing questions: %w", err)
	}
	defer rows.Close()

	var out []domain.UnknownQuestion
	for rows.Next() {
		var askedAt, question string
		if err := rows.Scan(&askedAt, &question); err != nil {
			return nil, fmt.Errorf("scanning question: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, askedAt)
		if err != nil {
			s.db.log.Warn().Err(err).Str("askedAt", askedAt).Msg("unparseable question timestamp")
		}
		out = append(out, domain.UnknownQuestion{Timestamp: ts, Question: question})
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *QuestionStore) Close() error {
	return s.db.Close()
}
