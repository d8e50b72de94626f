package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a session id is not in the registry.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionClosed is returned when acting on a session that already shut down.
	ErrSessionClosed = errors.New("quiz session closed")
	// ErrNoQuestions indicates the question source produced an empty or invalid list.
	ErrNoQuestions = errors.New("no valid questions available")
	// ErrQuestionSetNotFound indicates the named question set is absent from the backing store.
	ErrQuestionSetNotFound = errors.New("question set not found")
)
