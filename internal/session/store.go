// Package session provides the in-memory session store shared by all
// request workers.
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/finmate-ai/voice-platform/internal/model"
	"github.com/finmate-ai/voice-platform/pkg/metrics"
)

// DefaultHistoryLimit caps the number of messages retained per session.
const DefaultHistoryLimit = 50

// Store holds sessions keyed by id. It is safe for concurrent use;
// sessions are created on first contact and never explicitly destroyed.
type Store struct {
	mu           sync.RWMutex
	sessions     map[string]*model.Session
	historyLimit int
}

// NewStore creates a session store with the given per-session history cap.
// A non-positive limit falls back to DefaultHistoryLimit.
func NewStore(historyLimit int) *Store {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Store{
		sessions:     make(map[string]*model.Session),
		historyLimit: historyLimit,
	}
}

// ensure returns the session for id, creating it if needed.
// Callers must hold the write lock.
func (s *Store) ensure(id string) *model.Session {
	sess, ok := s.sessions[id]
	if !ok {
		now := time.Now()
		sess = &model.Session{ID: id, CreatedAt: now, UpdatedAt: now}
		s.sessions[id] = sess
		metrics.SessionsActive.Set(float64(len(s.sessions)))
	}
	return sess
}

// Append adds a message to the session history, evicting the oldest
// entries beyond the cap.
func (s *Store) Append(id string, msg model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.ensure(id)
	sess.History = append(sess.History, msg)
	if over := len(sess.History) - s.historyLimit; over > 0 {
		sess.History = sess.History[over:]
	}
	sess.UpdatedAt = time.Now()
}

// History returns a copy of the session's message history. The copy keeps
// callers from racing with concurrent appends.
func (s *Store) History(id string) []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	out := make([]model.Message, len(sess.History))
	copy(out, sess.History)
	return out
}

// HistoryText renders the history as a User:/FinMate: transcript for
// prompt embedding.
func (s *Store) HistoryText(id string) string {
	msgs := s.History(id)
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		prefix := "FinMate"
		if m.IsUser {
			prefix = "User"
		}
		lines = append(lines, prefix+": "+m.Text)
	}
	return strings.Join(lines, "\n")
}

// SetLanguage records the session's preferred language. The first observed
// language sticks; later calls with a different tag overwrite it only when
// explicit is true.
func (s *Store) SetLanguage(id, language string, explicit bool) {
	if language == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.ensure(id)
	if sess.PreferredLanguage == "" || explicit {
		sess.PreferredLanguage = language
		sess.UpdatedAt = time.Now()
	}
}

// Language returns the session's preferred language, or "" when the
// session is unknown or has no recorded language.
func (s *Store) Language(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sess, ok := s.sessions[id]; ok {
		return sess.PreferredLanguage
	}
	return ""
}

// Touch creates the session if it does not exist yet.
func (s *Store) Touch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(id)
}

// Len reports the number of tracked sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
