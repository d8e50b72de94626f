package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"mcq-quiz-service/internal/app"
)

// StatsHandler serves the ranking/statistics query surface. Everything
// here inherits the cache facade's degrade-to-neutral behavior: an outage
// yields empty lists and zero counters, never a 5xx.
type StatsHandler struct {
	service *app.QuizService
}

func NewStatsHandler(service *app.QuizService) *StatsHandler {
	return &StatsHandler{service: service}
}

// Register mounts the operational routes on mux.
func (h *StatsHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/quiz/stats", h.Stats)
	mux.HandleFunc("/api/quiz/leaderboard", h.Leaderboard)
	mux.HandleFunc("/api/quiz/reset", h.Reset)
	mux.HandleFunc("/api/quiz/connection-info", h.ConnectionInfo)
}

type apiResponse struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
}

func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := h.service.Stats(ctx)
	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Data: map[string]any{
			"activeStudents": stats.ActiveCount,
			"activeSessions": h.service.ActiveSessionIDs(),
			"totalQuestions": h.service.QuestionCount(ctx),
			"totalAttempts":  stats.TotalAttempts,
			"passed":         stats.Passed,
			"averageScore":   stats.AverageScore,
			"cacheConnected": h.service.CacheAvailable(ctx),
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *StatsHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	entries := h.service.Leaderboard(r.Context(), limit)
	writeJSON(w, http.StatusOK, apiResponse{
		Success:   true,
		Data:      map[string]any{"leaderboard": entries},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Reset clears the shared quiz/session namespaces. Destructive; intended
// for test/operational use only.
func (h *StatsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, apiResponse{
			Success:   false,
			Message:   "POST required",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	ok := h.service.Reset(r.Context())
	writeJSON(w, http.StatusOK, apiResponse{
		Success:   ok,
		Message:   "quiz namespaces cleared",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *StatsHandler) ConnectionInfo(w http.ResponseWriter, r *http.Request) {
	scheme := "ws"
	if r.TLS != nil {
		scheme = "wss"
	}
	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Data: map[string]any{
			"websocketUrl": scheme + "://" + r.Host + "/ws",
			"messageFormats": map[string]any{
				"answer": map[string]any{"type": "answer", "answerIndex": 0},
				"submit": map[string]any{"type": "submit", "answerIndex": 0},
				"ping":   map[string]any{"type": "ping"},
			},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
