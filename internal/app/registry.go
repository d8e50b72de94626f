package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"mcq-quiz-service/internal/domain"
)

const sessionKeyPrefix = "session:"

// Registry is the authoritative in-memory map from session identifier to
// live session for this process. The cache holds a secondary, recoverable
// mirror per session so statistics endpoints and recovery tooling keep
// visibility even if this instance is unreachable; mirror writes are
// best-effort and never block local bookkeeping.
type Registry struct {
	cache CacheClient
	ttl   time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry(cache CacheClient, mirrorTTL time.Duration) *Registry {
	return &Registry{
		cache:    cache,
		ttl:      mirrorTTL,
		sessions: make(map[string]*Session),
	}
}

// Add registers a session and writes its initial cache mirror.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()

	r.Refresh(s.Snapshot())
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove drops the session locally and deletes the cache mirror. A cache
// failure must not prevent in-memory cleanup, so the local delete happens
// first and unconditionally.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()

	r.cache.Delete(context.Background(), sessionKeyPrefix+id)
}

// Len is the authoritative count of active sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// ActiveIDs lists the identifiers of all live sessions.
func (r *Registry) ActiveIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Refresh rewrites the cache mirror for a session snapshot.
func (r *Registry) Refresh(snap domain.SessionSnapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	r.cache.Set(context.Background(), sessionKeyPrefix+snap.SessionID, string(data), r.ttl)
}
