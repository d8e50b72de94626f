package domain

import "time"

// OptionCount is the number of choices every question must carry.
const OptionCount = 4

// Question is an immutable MCQ record. The source-of-truth list is never
// mutated at runtime; it may be duplicated into the cache with a TTL.
type Question struct {
	ID            int      `json:"id"`
	Text          string   `json:"question"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correctAnswer"`
}

// Valid reports whether the question is structurally sound. Cached copies
// can go stale or corrupt, so the question source re-validates on load.
func (q Question) Valid() bool {
	if q.Text == "" {
		return false
	}
	if len(q.Options) != OptionCount {
		return false
	}
	return q.CorrectOption >= 0 && q.CorrectOption < len(q.Options)
}

// AnswerRecord captures the finalized outcome of one question. Created
// once per question reached, never mutated afterwards.
type AnswerRecord struct {
	QuestionID         int  `json:"questionId"`
	SelectedAnswer     *int `json:"selectedAnswer"` // nil when the question timed out
	CorrectAnswer      int  `json:"correctAnswer"`
	IsCorrect          bool `json:"isCorrect"`
	Attempts           int  `json:"attempts"`
	TimedOut           bool `json:"timedOut"`
	MaxAttemptsReached bool `json:"maxAttemptsReached"`
	TimeTakenSeconds   int  `json:"timeTaken"`
}

// SessionSnapshot is the serializable mirror of a live session, written to
// the cache on every state transition. The connection handle and the active
// timer are deliberately absent.
type SessionSnapshot struct {
	SessionID            string         `json:"studentId"`
	CurrentQuestionIndex int            `json:"currentQuestionIndex"`
	Answers              []AnswerRecord `json:"answers"`
	Score                int            `json:"score"`
	StartTime            time.Time      `json:"startTime"`
	QuestionStartTime    time.Time      `json:"questionStartTime"`
	AttemptsUsed         int            `json:"currentAttempts"`
	HasAnswered          bool           `json:"hasAnswered"`
}

// RankingEntry is one completed session in the shared leaderboard.
type RankingEntry struct {
	SessionID        string    `json:"studentId"`
	Score            int       `json:"score"`
	TotalQuestions   int       `json:"totalQuestions"`
	Percentage       int       `json:"percentage"`
	TotalTimeSeconds int       `json:"totalTime"`
	CompletedAt      time.Time `json:"completedAt"`
}

// RankedEntry is a leaderboard entry decorated with its position, exposed
// externally with an anonymized session identifier.
type RankedEntry struct {
	Rank             int       `json:"rank"`
	SessionID        string    `json:"studentId"`
	Score            int       `json:"score"`
	Percentage       int       `json:"percentage"`
	TotalTimeSeconds int       `json:"totalTime"`
	CompletedAt      time.Time `json:"completedAt"`
}

// Statistics are the running aggregate counters, updated best-effort on
// every completed session.
type Statistics struct {
	TotalAttempts int     `json:"totalAttempts"`
	Passed        int     `json:"passed"`
	AverageScore  float64 `json:"averageScore"`
	ActiveCount   int     `json:"activeStudents"`
}
