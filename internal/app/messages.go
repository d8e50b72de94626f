package app

import "mcq-quiz-service/internal/domain"

// Outbound message shapes pushed to the participant. All carry a "type"
// discriminator at the top level; delivery is fire-and-forget.

type WelcomeMessage struct {
	Type           string   `json:"type"` // "welcome"
	Message        string   `json:"message"`
	StudentID      string   `json:"studentId"`
	TotalQuestions int      `json:"totalQuestions"`
	CacheConnected bool     `json:"cacheConnected"`
	Instructions   []string `json:"instructions"`
}

type QuestionMessage struct {
	Type              string   `json:"type"` // "question"
	QuestionNumber    int      `json:"questionNumber"`
	TotalQuestions    int      `json:"totalQuestions"`
	Question          string   `json:"question"`
	Options           []string `json:"options"`
	TimeLimit         int      `json:"timeLimit"` // seconds
	MaxAttempts       int      `json:"maxAttempts"`
	AttemptsRemaining int      `json:"attemptsRemaining"`
}

type AttemptWarningMessage struct {
	Type              string `json:"type"` // "attempt-warning"
	Message           string `json:"message"`
	AttemptsRemaining int    `json:"attemptsRemaining"`
	CurrentAnswer     int    `json:"currentAnswer"`
}

// WarningMessage reports an out-of-sequence action; no state change.
type WarningMessage struct {
	Type    string `json:"type"` // "warning"
	Message string `json:"message"`
}

type TimeoutMessage struct {
	Type    string `json:"type"` // "timeout"
	Message string `json:"message"`
	TimeUp  bool   `json:"timeUp"`
}

type FeedbackMessage struct {
	Type               string `json:"type"` // "feedback"
	IsCorrect          bool   `json:"isCorrect"`
	Explanation        string `json:"explanation"`
	Attempts           int    `json:"attempts"`
	TimedOut           bool   `json:"timedOut,omitempty"`
	MaxAttemptsReached bool   `json:"maxAttemptsReached,omitempty"`
}

// AnswerBreakdown is one row of the per-question results detail.
type AnswerBreakdown struct {
	QuestionNumber     int      `json:"questionNumber"`
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	YourAnswer         string   `json:"yourAnswer"`
	CorrectAnswer      string   `json:"correctAnswer"`
	IsCorrect          bool     `json:"isCorrect"`
	Attempts           int      `json:"attempts"`
	TimedOut           bool     `json:"timedOut"`
	MaxAttemptsReached bool     `json:"maxAttemptsReached"`
	TimeTaken          int      `json:"timeTaken"`
}

type ResultsSummary struct {
	Correct            int `json:"correct"`
	Incorrect          int `json:"incorrect"`
	Timeouts           int `json:"timeouts"`
	MaxAttemptsReached int `json:"maxAttemptsReached"`
}

type ResultsMessage struct {
	Type            string                `json:"type"` // "results"
	Score           int                   `json:"score"`
	TotalQuestions  int                   `json:"totalQuestions"`
	Percentage      int                   `json:"percentage"`
	TotalTime       int                   `json:"totalTime"` // seconds
	Answers         []domain.AnswerRecord `json:"answers"`
	AnswerBreakdown []AnswerBreakdown     `json:"answerBreakdown"`
	Message         string                `json:"message"`
	Summary         ResultsSummary        `json:"summary"`
	Leaderboard     []domain.RankedEntry  `json:"leaderboard"`
}

type PongMessage struct {
	Type string `json:"type"` // "pong"
}

type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}
