// Package session keeps a short, bounded conversational memory per user.
package session

import (
	"context"
	"time"
)

const (
	// WindowSize is the maximum number of context entries kept per user.
	WindowSize = 5
	// SessionTTL is how long a session survives without interaction.
	SessionTTL = time.Hour
)

// SessionService defines the session context interface.
type SessionService interface {
	// GetOrCreateSession returns the live session for userID or a fresh one.
	GetOrCreateSession(ctx context.Context, userID string) (*UserSession, error)

	// AppendContext pushes text onto the window and merges preferences.
	AppendContext(ctx context.Context, userID, text string, prefs map[string]any) (*UserSession, error)

	// RecentContext returns up to limit most recent entries, oldest first.
	RecentContext(ctx context.Context, userID string, limit int) []string

	// ClearSession drops the user's session.
	ClearSession(ctx context.Context, userID string) error
}

// UserSession is a best-effort short-term memory; losing it is acceptable.
type UserSession struct {
	UserID          string         `json:"userId"`
	ContextWindow   []string       `json:"contextWindow"`
	LastInteraction time.Time      `json:"lastInteraction"`
	Preferences     map[string]any `json:"preferences"`
}
