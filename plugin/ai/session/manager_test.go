package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/focuspilot/plugin/ai/cache"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestManager(t *testing.T) (*Manager, *cache.Store, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)}
	store := cache.NewStore(cache.StoreConfig{CleanupInterval: time.Hour, Now: clock.Now})
	t.Cleanup(store.Close)
	return NewManager(store, clock.Now), store, clock
}

func TestManager_GetOrCreateSession(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t)

	s, err := m.GetOrCreateSession(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", s.UserID)
	assert.Empty(t, s.ContextWindow)
	assert.NotNil(t, s.Preferences)

	_, err = m.AppendContext(ctx, "u1", "learn go", nil)
	require.NoError(t, err)

	s, err = m.GetOrCreateSession(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"learn go"}, s.ContextWindow)
}

func TestManager_WindowNeverExceedsLimit(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t)

	for i := 0; i < 12; i++ {
		s, err := m.AppendContext(ctx, "u1", fmt.Sprintf("entry-%d", i), nil)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(s.ContextWindow), WindowSize)
	}

	s, err := m.GetOrCreateSession(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"entry-7", "entry-8", "entry-9", "entry-10", "entry-11"}, s.ContextWindow)
}

func TestManager_PreferencesShallowMerge(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t)

	_, err := m.AppendContext(ctx, "u1", "a", map[string]any{"tone": "formal", "wakeUp": "06:00"})
	require.NoError(t, err)
	s, err := m.AppendContext(ctx, "u1", "b", map[string]any{"tone": "casual"})
	require.NoError(t, err)

	assert.Equal(t, "casual", s.Preferences["tone"])
	assert.Equal(t, "06:00", s.Preferences["wakeUp"])
}

func TestManager_StaleSessionStartsFresh(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)}
	// Store clock is frozen so the entry itself never expires; only the
	// manager's LastInteraction check can discard it.
	frozen := clock.now
	store := cache.NewStore(cache.StoreConfig{CleanupInterval: time.Hour, Now: func() time.Time { return frozen }})
	t.Cleanup(store.Close)
	m := NewManager(store, clock.Now)

	_, err := m.AppendContext(ctx, "u1", "old context", nil)
	require.NoError(t, err)

	clock.Advance(SessionTTL + time.Second)

	s, err := m.GetOrCreateSession(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, s.ContextWindow)
	assert.Equal(t, clock.Now(), s.LastInteraction)
}

func TestManager_InteractionKeepsSessionAlive(t *testing.T) {
	ctx := context.Background()
	m, _, clock := newTestManager(t)

	for i := 0; i < 3; i++ {
		_, err := m.AppendContext(ctx, "u1", fmt.Sprintf("e%d", i), nil)
		require.NoError(t, err)
		clock.Advance(50 * time.Minute)
	}

	assert.Equal(t, []string{"e2"}, m.RecentContext(ctx, "u1", 1))
	assert.Equal(t, []string{"e0", "e1", "e2"}, m.RecentContext(ctx, "u1", 10))
}

func TestManager_RecentContext(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t)

	assert.Nil(t, m.RecentContext(ctx, "nobody", 3))

	for _, e := range []string{"a", "b", "c", "d"} {
		_, err := m.AppendContext(ctx, "u1", e, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"b", "c", "d"}, m.RecentContext(ctx, "u1", 3))
	assert.Nil(t, m.RecentContext(ctx, "u1", 0))
}

func TestManager_ClearSession(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t)

	_, err := m.AppendContext(ctx, "u1", "a", nil)
	require.NoError(t, err)
	require.NoError(t, m.ClearSession(ctx, "u1"))

	assert.Nil(t, m.RecentContext(ctx, "u1", 5))
}

func TestManager_ConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := m.AppendContext(ctx, "u1", fmt.Sprintf("e%d", n), nil)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Len(t, m.RecentContext(ctx, "u1", 10), WindowSize)
}
