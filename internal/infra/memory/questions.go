package memory

import (
	"context"

	"mcq-quiz-service/internal/domain"
)

// QuestionLoader fetches question content from a backing store (e.g. Postgres).
type QuestionLoader interface {
	LoadQuestions(ctx context.Context) ([]domain.Question, error)
}

// DefaultQuestions is the embedded in-process question list. It is the
// fallback of last resort: the quiz must be able to run with the cache and
// every backing store fully absent.
func DefaultQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:            1,
			Text:          "What does HTML stand for?",
			Options:       []string{"Hyper Text Markup Language", "High Tech Modern Language", "Home Tool Markup Language", "Hyperlink and Text Markup Language"},
			CorrectOption: 0,
		},
		{
			ID:            2,
			Text:          "Which of the following is not a JavaScript data type?",
			Options:       []string{"String", "Boolean", "Float", "Number"},
			CorrectOption: 2,
		},
		{
			ID:            3,
			Text:          "What does CSS stand for?",
			Options:       []string{"Computer Style Sheets", "Cascading Style Sheets", "Creative Style Sheets", "Colorful Style Sheets"},
			CorrectOption: 1,
		},
		{
			ID:            4,
			Text:          "Which HTTP method is used to retrieve data?",
			Options:       []string{"POST", "PUT", "GET", "DELETE"},
			CorrectOption: 2,
		},
		{
			ID:            5,
			Text:          "What is the default port for HTTP?",
			Options:       []string{"8080", "443", "80", "3000"},
			CorrectOption: 2,
		},
	}
}

// StaticQuestionLoader serves a fixed list (useful for tests/demos and as
// the loader when no backing store is configured).
type StaticQuestionLoader struct {
	questions []domain.Question
}

func NewStaticQuestionLoader(questions []domain.Question) *StaticQuestionLoader {
	return &StaticQuestionLoader{questions: questions}
}

func (l *StaticQuestionLoader) LoadQuestions(_ context.Context) ([]domain.Question, error) {
	if len(l.questions) == 0 {
		return nil, domain.ErrQuestionSetNotFound
	}
	return l.questions, nil
}

// ValidQuestions reports whether the list as a whole passes structural
// validation; a single bad element poisons the batch so the caller falls
// back to a known-good source.
func ValidQuestions(questions []domain.Question) bool {
	if len(questions) == 0 {
		return false
	}
	for _, q := range questions {
		if !q.Valid() {
			return false
		}
	}
	return true
}
