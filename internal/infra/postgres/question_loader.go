package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"mcq-quiz-service/internal/domain"
)

// QuestionLoader loads a named question set stored as JSONB in Postgres.
type QuestionLoader struct {
	pool *pgxpool.Pool
	set  string
}

func NewQuestionLoader(pool *pgxpool.Pool, set string) *QuestionLoader {
	return &QuestionLoader{pool: pool, set: set}
}

func (l *QuestionLoader) LoadQuestions(ctx context.Context) ([]domain.Question, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM question_sets WHERE id=$1`, l.set).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrQuestionSetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load question set %q: %w", l.set, err)
	}
	var questions []domain.Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		return nil, fmt.Errorf("unmarshal question set %q: %w", l.set, err)
	}
	return questions, nil
}
