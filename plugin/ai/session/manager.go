package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hrygo/focuspilot/plugin/ai/cache"
)

// Manager implements SessionService on top of a CacheService.
// The store TTL only bounds memory; staleness is decided from
// LastInteraction on every load.
type Manager struct {
	mu    sync.Mutex
	cache cache.CacheService
	now   func() time.Time
}

// NewManager creates a session manager. now may be nil.
func NewManager(c cache.CacheService, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{cache: c, now: now}
}

func sessionKey(userID string) string {
	return cache.NamespaceSession + userID
}

// load returns the live session or nil. Caller holds mu.
func (m *Manager) load(ctx context.Context, userID string) *UserSession {
	var s UserSession
	if !cache.GetJSON(ctx, m.cache, sessionKey(userID), &s) {
		return nil
	}
	if m.now().Sub(s.LastInteraction) > SessionTTL {
		slog.Debug("session stale, starting fresh", "user_id", userID, "last_interaction", s.LastInteraction)
		return nil
	}
	return &s
}

func (m *Manager) fresh(userID string) *UserSession {
	return &UserSession{
		UserID:          userID,
		ContextWindow:   []string{},
		LastInteraction: m.now(),
		Preferences:     map[string]any{},
	}
}

func (m *Manager) save(ctx context.Context, s *UserSession) error {
	if err := cache.SetJSON(ctx, m.cache, sessionKey(s.UserID), s, SessionTTL); err != nil {
		return fmt.Errorf("failed to save session %s: %w", s.UserID, err)
	}
	return nil
}

// GetOrCreateSession returns the live session or stores a fresh one.
func (m *Manager) GetOrCreateSession(ctx context.Context, userID string) (*UserSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s := m.load(ctx, userID); s != nil {
		return s, nil
	}
	s := m.fresh(userID)
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// AppendContext pushes text, trims the window to WindowSize, shallow-merges
// prefs (new values win) and refreshes LastInteraction.
func (m *Manager) AppendContext(ctx context.Context, userID, text string, prefs map[string]any) (*UserSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.load(ctx, userID)
	if s == nil {
		s = m.fresh(userID)
	}

	if text != "" {
		s.ContextWindow = append(s.ContextWindow, text)
		if len(s.ContextWindow) > WindowSize {
			s.ContextWindow = append([]string(nil), s.ContextWindow[len(s.ContextWindow)-WindowSize:]...)
		}
	}
	if s.Preferences == nil {
		s.Preferences = map[string]any{}
	}
	for k, v := range prefs {
		s.Preferences[k] = v
	}
	s.LastInteraction = m.now()

	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// RecentContext returns up to limit most recent entries, oldest first.
func (m *Manager) RecentContext(ctx context.Context, userID string, limit int) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.load(ctx, userID)
	if s == nil || limit <= 0 {
		return nil
	}
	window := s.ContextWindow
	if len(window) > limit {
		window = window[len(window)-limit:]
	}
	return append([]string(nil), window...)
}

// ClearSession drops the user's session.
func (m *Manager) ClearSession(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cache.Delete(ctx, sessionKey(userID))
}

var _ SessionService = (*Manager)(nil)
