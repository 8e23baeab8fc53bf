package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Text  string   `json:"text"`
	Items []string `json:"items"`
}

func TestLoad_CachesValue(t *testing.T) {
	ctx := context.Background()
	l := NewLoader(newTestStore(t, newFakeClock()))
	var calls int

	fn := func(context.Context) (payload, time.Duration, error) {
		calls++
		return payload{Text: "hello", Items: []string{"a"}}, time.Minute, nil
	}

	v, hit, err := Load(ctx, l, "test_k", fn)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "hello", v.Text)

	v, hit, err = Load(ctx, l, "test_k", fn)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, payload{Text: "hello", Items: []string{"a"}}, v)
	assert.Equal(t, 1, calls)
}

func TestLoad_NonPositiveTTLSkipsCache(t *testing.T) {
	ctx := context.Background()
	l := NewLoader(newTestStore(t, newFakeClock()))
	var calls int

	fn := func(context.Context) (string, time.Duration, error) {
		calls++
		return "fallback", 0, nil
	}

	for i := 0; i < 2; i++ {
		v, hit, err := Load(ctx, l, "test_nottl", fn)
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Equal(t, "fallback", v)
	}
	assert.Equal(t, 2, calls)
}

func TestLoad_ErrorNotCached(t *testing.T) {
	ctx := context.Background()
	l := NewLoader(newTestStore(t, newFakeClock()))
	boom := errors.New("boom")

	_, _, err := Load(ctx, l, "test_err", func(context.Context) (string, time.Duration, error) {
		return "", time.Minute, boom
	})
	assert.ErrorIs(t, err, boom)

	_, ok := l.Store().Get(ctx, "test_err")
	assert.False(t, ok)
}

func TestLoad_UndecodableEntryReloads(t *testing.T) {
	ctx := context.Background()
	l := NewLoader(newTestStore(t, newFakeClock()))
	require.NoError(t, l.Store().Set(ctx, "test_bad", []byte("{not json"), time.Minute))

	v, hit, err := Load(ctx, l, "test_bad", func(context.Context) (payload, time.Duration, error) {
		return payload{Text: "fresh"}, time.Minute, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "fresh", v.Text)
}

func TestLoad_SingleFlight(t *testing.T) {
	ctx := context.Background()
	l := NewLoader(newTestStore(t, newFakeClock()))

	var calls atomic.Int32
	release := make(chan struct{})
	fn := func(context.Context) (string, time.Duration, error) {
		calls.Add(1)
		<-release
		return "shared", time.Minute, nil
	}

	const n = 10
	var wg sync.WaitGroup
	results := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _, err := Load(ctx, l, "test_sf", fn)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		assert.Equal(t, "shared", v)
	}
}
