// Package cache provides the TTL cache store shared by every AI component.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Key namespaces. Distinct logical caches share one store without collision.
const (
	NamespaceGoals      = "goals_"
	NamespaceEmbed      = "embed_"
	NamespaceValidation = "validation_"
	NamespaceSafety     = "safety_"
	NamespaceRAG        = "rag_"
	NamespaceClassify   = "classify_"
	NamespaceReport     = "report_"
	NamespaceSession    = "session_"
	NamespaceActivities = "activities_"
)

// DefaultTTL is used when Set is called with a non-positive ttl.
const DefaultTTL = 5 * time.Minute

// CacheService defines the cache service interface.
type CacheService interface {
	// Get retrieves a value from cache.
	// Expired entries are reported as absent.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value in cache.
	// ttl: expiration time
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a single key.
	Delete(ctx context.Context, key string) error

	// Invalidate invalidates cache entries.
	// pattern: exact key, or a prefix followed by "*" (activities_u1_*)
	Invalidate(ctx context.Context, pattern string) error
}

// Key builds a namespaced key from a short fixed-length digest of parts.
func Key(namespace string, parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return namespace + hex.EncodeToString(h.Sum(nil))[:16]
}
