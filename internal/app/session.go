package app

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"mcq-quiz-service/internal/domain"
)

type sessionState int

const (
	stateWelcome sessionState = iota
	stateQuestion
	stateFeedback
	stateResults
	stateClosing
	stateClosed
)

const outboundBuffer = 32

// Session drives the timed question/answer/feedback/results lifecycle for
// one connection. All state is guarded by mu; at most one scheduled timer
// is live at any time, and hasAnswered is the single guard that keeps a
// question from being finalized twice (submit vs. timeout race).
//
// Outbound messages are pushed into a buffered channel drained by the
// transport; a full buffer drops the message rather than blocking a
// transition.
type Session struct {
	id        string
	questions []domain.Question
	rules     Rules
	agg       *Aggregator
	now       func() time.Time

	// onUpdate refreshes the external session mirror; onClose tears the
	// session out of the registry. Both are best-effort.
	onUpdate func(domain.SessionSnapshot)
	onClose  func(id string)

	mu            sync.Mutex
	state         sessionState
	currentIndex  int
	answers       []domain.AnswerRecord
	score         int
	startTime     time.Time
	questionStart time.Time
	attemptsUsed  int
	lastSelected  int
	hasAnswered   bool
	timer         *time.Timer
	closed        bool
	out           chan any
}

func newSession(id string, questions []domain.Question, rules Rules, agg *Aggregator, now func() time.Time) *Session {
	return &Session{
		id:           id,
		questions:    questions,
		rules:        rules,
		agg:          agg,
		now:          now,
		lastSelected: -1,
		out:          make(chan any, outboundBuffer),
	}
}

// NewSessionWithClock is test-only for deterministic timestamps.
func NewSessionWithClock(id string, questions []domain.Question, rules Rules, agg *Aggregator, now func() time.Time) *Session {
	return newSession(id, questions, rules, agg, now)
}

func (s *Session) ID() string { return s.id }

// Outbound exposes the server-to-participant message stream. The channel is
// closed when the session shuts down.
func (s *Session) Outbound() <-chan any { return s.out }

// Begin emits the welcome message and schedules delivery of question #1.
func (s *Session) Begin(cacheConnected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.state = stateWelcome
	s.startTime = s.now()
	s.emitLocked(WelcomeMessage{
		Type:           "welcome",
		Message:        "Welcome to the MCQ Quiz!",
		StudentID:      s.id,
		TotalQuestions: len(s.questions),
		CacheConnected: cacheConnected,
		Instructions: []string{
			fmt.Sprintf("You will receive %d multiple choice questions", len(s.questions)),
			fmt.Sprintf("Each question has %d seconds time limit", int(s.rules.TimeLimit.Seconds())),
			fmt.Sprintf("You can change your answer up to %d times", s.rules.MaxAttempts),
			"Click Submit to confirm your answer early",
			"Results will be shown at the end",
		},
	})
	s.notifyLocked()
	s.scheduleLocked(s.rules.WelcomeDelay, s.advance)
}

// Select records a tentative answer selection, consuming one attempt.
func (s *Session) Select(answerIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.state != stateQuestion || s.hasAnswered {
		s.emitLocked(WarningMessage{Type: "warning", Message: "You have already answered this question!"})
		return
	}
	if answerIndex < 0 || answerIndex >= domain.OptionCount {
		s.emitLocked(ErrorMessage{Type: "error", Message: "answerIndex out of range"})
		return
	}
	if s.attemptsUsed >= s.rules.MaxAttempts {
		// Attempt ceiling hit; the grace timer owns finalization now.
		s.emitLocked(WarningMessage{Type: "warning", Message: "Maximum attempts reached! Your answer is being submitted..."})
		return
	}

	s.attemptsUsed++
	s.lastSelected = answerIndex

	if s.attemptsUsed >= s.rules.MaxAttempts {
		s.emitLocked(WarningMessage{
			Type:    "warning",
			Message: fmt.Sprintf("Maximum attempts (%d) reached! Auto-submitting your answer...", s.rules.MaxAttempts),
		})
		// The grace timer supersedes the question deadline; finalization
		// still happens exactly once via the hasAnswered guard.
		final := answerIndex
		s.scheduleLocked(s.rules.AutoSubmitGrace, func() { s.autoSubmit(final) })
		return
	}

	remaining := s.rules.MaxAttempts - s.attemptsUsed
	s.emitLocked(AttemptWarningMessage{
		Type:              "attempt-warning",
		Message:           fmt.Sprintf("Answer selected! You have %d attempts remaining to change your answer, or click Submit to confirm.", remaining),
		AttemptsRemaining: remaining,
		CurrentAnswer:     answerIndex,
	})
}

// Submit finalizes the current question with the given answer, provided at
// least one selection has occurred.
func (s *Session) Submit(answerIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.state != stateQuestion || s.hasAnswered {
		s.emitLocked(WarningMessage{Type: "warning", Message: "You have already answered this question!"})
		return
	}
	if s.attemptsUsed == 0 {
		s.emitLocked(WarningMessage{Type: "warning", Message: "Please select an answer first!"})
		return
	}
	if s.attemptsUsed >= s.rules.MaxAttempts {
		s.emitLocked(WarningMessage{Type: "warning", Message: "Maximum attempts reached! Your answer is being submitted..."})
		return
	}
	if answerIndex < 0 || answerIndex >= domain.OptionCount {
		s.emitLocked(ErrorMessage{Type: "error", Message: "answerIndex out of range"})
		return
	}
	selected := answerIndex
	s.finalizeLocked(&selected, false, false)
}

// Ping answers a liveness probe.
func (s *Session) Ping() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.emitLocked(PongMessage{Type: "pong"})
}

// Reject reports a malformed inbound payload without touching quiz state.
func (s *Session) Reject(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.emitLocked(ErrorMessage{Type: "error", Message: reason})
}

// Close cancels any pending timer and shuts the session down. Safe to call
// more than once and from any state; used on connection teardown.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

// Snapshot returns the serializable mirror of the current state.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() domain.SessionSnapshot {
	answers := make([]domain.AnswerRecord, len(s.answers))
	copy(answers, s.answers)
	return domain.SessionSnapshot{
		SessionID:            s.id,
		CurrentQuestionIndex: s.currentIndex,
		Answers:              answers,
		Score:                s.score,
		StartTime:            s.startTime,
		QuestionStartTime:    s.questionStart,
		AttemptsUsed:         s.attemptsUsed,
		HasAnswered:          s.hasAnswered,
	}
}

// advance delivers the next question, or the results once the list is
// exhausted. Runs from the welcome, feedback, and test paths.
func (s *Session) advance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.currentIndex >= len(s.questions) {
		s.resultsLocked()
		return
	}

	q := s.questions[s.currentIndex]
	if !q.Valid() {
		// Corrupted question data halts this session; the process keeps serving others.
		s.emitLocked(ErrorMessage{Type: "error", Message: "quiz data unavailable, please reconnect"})
		s.stopTimerLocked()
		s.state = stateClosing
		return
	}

	s.attemptsUsed = 0
	s.lastSelected = -1
	s.hasAnswered = false
	s.questionStart = s.now()
	s.state = stateQuestion

	s.emitLocked(QuestionMessage{
		Type:              "question",
		QuestionNumber:    s.currentIndex + 1,
		TotalQuestions:    len(s.questions),
		Question:          q.Text,
		Options:           q.Options,
		TimeLimit:         int(s.rules.TimeLimit.Seconds()),
		MaxAttempts:       s.rules.MaxAttempts,
		AttemptsRemaining: s.rules.MaxAttempts,
	})
	s.notifyLocked()
	s.scheduleLocked(s.rules.TimeLimit, s.onDeadline)
}

func (s *Session) onDeadline() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.hasAnswered || s.state != stateQuestion {
		return
	}
	s.finalizeLocked(nil, true, false)
}

func (s *Session) autoSubmit(answerIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.hasAnswered || s.state != stateQuestion {
		return
	}
	selected := answerIndex
	s.finalizeLocked(&selected, false, true)
}

// finalizeLocked records the Answer Record for the current question exactly
// once, whether triggered by submit, auto-submit, or timeout.
func (s *Session) finalizeLocked(selected *int, timedOut, maxReached bool) {
	if s.hasAnswered || s.state != stateQuestion {
		return
	}
	s.stopTimerLocked()
	s.hasAnswered = true

	q := s.questions[s.currentIndex]
	isCorrect := selected != nil && *selected == q.CorrectOption
	if isCorrect {
		s.score++
	}

	elapsed := int(math.Round(s.now().Sub(s.questionStart).Seconds()))
	s.answers = append(s.answers, domain.AnswerRecord{
		QuestionID:         q.ID,
		SelectedAnswer:     selected,
		CorrectAnswer:      q.CorrectOption,
		IsCorrect:          isCorrect,
		Attempts:           s.attemptsUsed,
		TimedOut:           timedOut,
		MaxAttemptsReached: maxReached,
		TimeTakenSeconds:   elapsed,
	})
	s.currentIndex++
	s.state = stateFeedback

	if timedOut {
		s.emitLocked(TimeoutMessage{Type: "timeout", Message: "Time's up! Moving to next question...", TimeUp: true})
	}

	explanation := "Answer submitted! Moving to next question..."
	switch {
	case timedOut:
		explanation = "Time's up! Moving to next question..."
	case maxReached:
		explanation = "Max attempts reached! Moving to next question..."
	}
	s.emitLocked(FeedbackMessage{
		Type:               "feedback",
		IsCorrect:          isCorrect,
		Explanation:        explanation,
		Attempts:           s.attemptsUsed,
		TimedOut:           timedOut,
		MaxAttemptsReached: maxReached,
	})
	s.notifyLocked()
	s.scheduleLocked(s.rules.FeedbackDelay, s.advance)
}

// resultsLocked scores the run, publishes it to the shared ranking, and
// emits the results message with a best-effort leaderboard snapshot.
func (s *Session) resultsLocked() {
	s.state = stateResults
	now := s.now()
	totalTime := int(math.Round(now.Sub(s.startTime).Seconds()))
	percentage := percentageOf(s.score, len(s.questions))

	ctx := context.Background()
	var leaderboard []domain.RankedEntry
	if s.agg != nil {
		s.agg.Record(ctx, domain.RankingEntry{
			SessionID:        s.id,
			Score:            s.score,
			TotalQuestions:   len(s.questions),
			Percentage:       percentage,
			TotalTimeSeconds: totalTime,
			CompletedAt:      now,
		})
		leaderboard = s.agg.TopN(ctx, s.rules.TopN)
	}

	s.emitLocked(ResultsMessage{
		Type:            "results",
		Score:           s.score,
		TotalQuestions:  len(s.questions),
		Percentage:      percentage,
		TotalTime:       totalTime,
		Answers:         append([]domain.AnswerRecord(nil), s.answers...),
		AnswerBreakdown: s.breakdownLocked(),
		Message:         gradeMessage(percentage),
		Summary:         s.summaryLocked(),
		Leaderboard:     leaderboard,
	})
	s.state = stateClosing
	s.notifyLocked()
	s.scheduleLocked(s.rules.ResultHold, s.shutdown)
}

func (s *Session) breakdownLocked() []AnswerBreakdown {
	rows := make([]AnswerBreakdown, 0, len(s.answers))
	for i, a := range s.answers {
		q := s.questions[i]
		yourAnswer := "No answer (Timed out)"
		if a.SelectedAnswer != nil && *a.SelectedAnswer >= 0 && *a.SelectedAnswer < len(q.Options) {
			yourAnswer = q.Options[*a.SelectedAnswer]
		}
		rows = append(rows, AnswerBreakdown{
			QuestionNumber:     i + 1,
			Question:           q.Text,
			Options:            q.Options,
			YourAnswer:         yourAnswer,
			CorrectAnswer:      q.Options[q.CorrectOption],
			IsCorrect:          a.IsCorrect,
			Attempts:           a.Attempts,
			TimedOut:           a.TimedOut,
			MaxAttemptsReached: a.MaxAttemptsReached,
			TimeTaken:          a.TimeTakenSeconds,
		})
	}
	return rows
}

func (s *Session) summaryLocked() ResultsSummary {
	summary := ResultsSummary{Correct: s.score, Incorrect: len(s.questions) - s.score}
	for _, a := range s.answers {
		if a.TimedOut {
			summary.Timeouts++
		}
		if a.MaxAttemptsReached {
			summary.MaxAttemptsReached++
		}
	}
	return summary
}

// shutdown runs after the result-display hold and releases the session.
func (s *Session) shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closeLocked()
	onClose := s.onClose
	id := s.id
	s.mu.Unlock()

	if onClose != nil {
		onClose(id)
	}
}

func (s *Session) closeLocked() {
	if s.closed {
		return
	}
	s.stopTimerLocked()
	s.closed = true
	s.state = stateClosed
	close(s.out)
}

// scheduleLocked replaces the single pending timer for this session.
func (s *Session) scheduleLocked(d time.Duration, fn func()) {
	s.stopTimerLocked()
	s.timer = time.AfterFunc(d, fn)
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// emitLocked pushes a message without ever blocking a transition; a slow
// reader loses messages rather than stalling the quiz.
func (s *Session) emitLocked(msg any) {
	if s.closed {
		return
	}
	select {
	case s.out <- msg:
	default:
	}
}

func (s *Session) notifyLocked() {
	if s.onUpdate != nil {
		s.onUpdate(s.snapshotLocked())
	}
}

// percentageOf rounds half-up on the final value only.
func percentageOf(score, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Floor(float64(score)/float64(total)*100 + 0.5))
}

func gradeMessage(percentage int) string {
	switch {
	case percentage >= 90:
		return "Excellent! Outstanding performance!"
	case percentage >= 80:
		return "Great job! Very good score!"
	case percentage >= 70:
		return "Good work! Above average!"
	case percentage >= 60:
		return "Fair performance. Keep studying!"
	default:
		return "Need improvement. Please review the topics."
	}
}
