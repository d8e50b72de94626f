package app

import "time"

// Rules carries the pacing and scoring constants for a quiz run. Production
// uses DefaultRules (overridable via config); tests shrink the durations.
type Rules struct {
	TimeLimit       time.Duration // per-question hard deadline
	FeedbackDelay   time.Duration // pause between feedback and the next question
	WelcomeDelay    time.Duration // pause between welcome and question #1
	AutoSubmitGrace time.Duration // delay before the last selection is auto-submitted
	ResultHold      time.Duration // how long the connection stays open after results
	MaxAttempts     int
	PassMark        int // percentage at or above which a run counts as passed
	TopN            int // leaderboard snapshot size in the results message
}

func DefaultRules() Rules {
	return Rules{
		TimeLimit:       10 * time.Second,
		FeedbackDelay:   3 * time.Second,
		WelcomeDelay:    3 * time.Second,
		AutoSubmitGrace: 2 * time.Second,
		ResultHold:      10 * time.Second,
		MaxAttempts:     3,
		PassMark:        70,
		TopN:            10,
	}
}
