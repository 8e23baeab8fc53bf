package rag

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/focuspilot/plugin/ai"
	"github.com/hrygo/focuspilot/plugin/ai/cache"
	aierrors "github.com/hrygo/focuspilot/plugin/ai/errors"
)

type fakeEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	fail    map[string]bool
	calls   map[string]int
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{
		vectors: map[string][]float32{},
		fail:    map[string]bool{},
		calls:   map[string]int{},
	}
}

func (f *fakeEmbedder) Embed(_ context.Context, text string, _ ai.TaskType) (ai.Embedding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[text]++
	if f.fail[text] {
		return ai.Embedding{}, aierrors.CollaboratorFailed("embedding", errors.New("quota exceeded"))
	}
	v, ok := f.vectors[text]
	if !ok {
		v = []float32{0, 0}
	}
	return ai.Embedding{Vector: v, Dimension: len(v)}, nil
}

func (f *fakeEmbedder) Calls(text string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[text]
}

type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	err     error
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string, _ []byte) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return "answer", nil
}

// unit returns a 2D vector whose cosine with [1, 0] is c.
func unit(c float64) []float32 {
	return []float32{float32(c), float32(math.Sqrt(1 - c*c))}
}

func newTestEngine(t *testing.T) (*Engine, *fakeEmbedder, *fakeGenerator) {
	t.Helper()
	store := cache.NewStore(cache.StoreConfig{CleanupInterval: time.Hour})
	t.Cleanup(store.Close)
	emb := newFakeEmbedder()
	emb.vectors["query"] = []float32{1, 0}
	gen := &fakeGenerator{}
	return NewEngine(cache.NewLoader(store), emb, gen), emb, gen
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, []float32{1, 1}))
	assert.Equal(t, 0.0, CosineSimilarity(nil, nil))
}

func TestRetrieve_TopKOrdering(t *testing.T) {
	e, emb, _ := newTestEngine(t)
	ctx := context.Background()
	emb.vectors["doc a"] = unit(0.9)
	emb.vectors["doc b"] = unit(0.95)
	emb.vectors["doc c"] = unit(0.2)

	n, err := e.AddDocuments(ctx, []DocumentInput{
		{ID: "a", Content: "doc a"},
		{ID: "b", Content: "doc b"},
		{ID: "c", Content: "doc c"},
	})
	require.NoError(t, err)
	require.Equal(t, 3, n)

	docs := e.Retrieve(ctx, "query", 2)
	require.Len(t, docs, 2)
	assert.Equal(t, "b", docs[0].ID)
	assert.Equal(t, "a", docs[1].ID)
}

func TestSearch_NonIncreasingWithStableTies(t *testing.T) {
	e, emb, _ := newTestEngine(t)
	ctx := context.Background()
	emb.vectors["first"] = unit(0.5)
	emb.vectors["second"] = unit(0.5)
	emb.vectors["third"] = unit(0.7)
	emb.vectors["zero"] = []float32{0, 0}

	_, err := e.AddDocuments(ctx, []DocumentInput{
		{ID: "1", Content: "first"},
		{ID: "z", Content: "zero"},
		{ID: "2", Content: "second"},
		{ID: "3", Content: "third"},
	})
	require.NoError(t, err)

	results := e.Search(ctx, "query", 10)
	require.Len(t, results, 4)
	ids := []string{results[0].Document.ID, results[1].Document.ID, results[2].Document.ID, results[3].Document.ID}
	assert.Equal(t, []string{"3", "1", "2", "z"}, ids)
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i].Similarity, results[i-1].Similarity)
	}
	assert.Equal(t, 0.0, results[3].Similarity)
}

func TestRetrieve_EdgeCases(t *testing.T) {
	e, emb, _ := newTestEngine(t)
	ctx := context.Background()

	assert.Empty(t, e.Retrieve(ctx, "query", 3), "empty collection")

	_, err := e.AddDocuments(ctx, []DocumentInput{{ID: "a", Content: "doc"}})
	require.NoError(t, err)

	assert.Empty(t, e.Retrieve(ctx, "query", 0))
	assert.Len(t, e.Retrieve(ctx, "query", 5), 1)

	emb.fail["broken query"] = true
	assert.Empty(t, e.Retrieve(ctx, "broken query", 3), "embedding failure yields no results")
}

func TestRetrieve_QueryEmbeddingCached(t *testing.T) {
	e, emb, _ := newTestEngine(t)
	ctx := context.Background()

	e.Retrieve(ctx, "query", 1)
	e.Retrieve(ctx, "query", 1)

	assert.Equal(t, 1, emb.Calls("query"))
}

func TestAddDocuments_PartialFailure(t *testing.T) {
	e, emb, _ := newTestEngine(t)
	ctx := context.Background()
	emb.fail["bad content"] = true

	n, err := e.AddDocuments(ctx, []DocumentInput{
		{ID: "ok1", Content: "good content"},
		{ID: "bad", Content: "bad content"},
		{ID: "ok2", Content: "more content"},
	})

	assert.Equal(t, 2, n)
	assert.Equal(t, 2, e.Len())

	var partial *PartialFailureError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, []string{"bad"}, partial.Failed)
	assert.True(t, aierrors.IsCollaborator(err))
}

func TestAddDocuments_AppendOnlyAndUpsert(t *testing.T) {
	e, emb, _ := newTestEngine(t)
	ctx := context.Background()
	emb.vectors["v1"] = unit(0.3)
	emb.vectors["v2"] = unit(0.99)
	emb.vectors["other"] = unit(0.6)

	_, err := e.AddDocuments(ctx, []DocumentInput{{ID: "dup", Content: "v1"}, {ID: "x", Content: "other"}})
	require.NoError(t, err)
	_, err = e.AddDocuments(ctx, []DocumentInput{{ID: "dup", Content: "v1"}})
	require.NoError(t, err)
	assert.Equal(t, 3, e.Len(), "re-adding an id appends a duplicate")

	require.NoError(t, e.Upsert(ctx, DocumentInput{ID: "dup", Content: "v2"}))
	assert.Equal(t, 3, e.Len(), "upsert replaces the first match in place")

	docs := e.Retrieve(ctx, "query", 3)
	require.Len(t, docs, 3)
	assert.Equal(t, "v2", docs[0].Content)
	assert.Equal(t, "v1", docs[2].Content)

	require.NoError(t, e.Upsert(ctx, DocumentInput{ID: "new", Content: "other"}))
	assert.Equal(t, 4, e.Len())

	assert.True(t, aierrors.IsCode(e.Upsert(ctx, DocumentInput{Content: "v1"}), aierrors.ErrCodeInvalidArgument))
}

func TestAddDocuments_GeneratesMissingID(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.AddDocuments(ctx, []DocumentInput{{Content: "no id"}})
	require.NoError(t, err)

	docs := e.Retrieve(ctx, "query", 1)
	require.Len(t, docs, 1)
	assert.Len(t, docs[0].ID, 36)
}

func TestGenerateWithContext(t *testing.T) {
	e, emb, gen := newTestEngine(t)
	ctx := context.Background()
	emb.vectors["Sleep 8 hours."] = unit(0.9)
	emb.vectors["Hydrate often."] = unit(0.8)

	_, err := e.AddDocuments(ctx, []DocumentInput{
		{ID: "1", Content: "Sleep 8 hours."},
		{ID: "2", Content: "Hydrate often."},
	})
	require.NoError(t, err)

	out, err := e.GenerateWithContext(ctx, "query", 2)
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Sleep 8 hours.\n\nHydrate often.")
	assert.True(t, strings.HasSuffix(gen.prompts[0], "Question: query"))

	_, err = e.GenerateWithContext(ctx, "query", 2)
	require.NoError(t, err)
	assert.Len(t, gen.prompts, 1, "identical context and query are served from cache")
}

func TestGenerateWithContext_FallsBackToContextFree(t *testing.T) {
	e, emb, gen := newTestEngine(t)
	ctx := context.Background()
	_, err := e.AddDocuments(ctx, []DocumentInput{{ID: "1", Content: "some doc"}})
	require.NoError(t, err)
	emb.fail["what now"] = true

	out, err := e.GenerateWithContext(ctx, "what now", 3)
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
	assert.NotContains(t, gen.prompts[0], "Context:")
}

func TestGenerateWithContext_GeneratorFailure(t *testing.T) {
	e, _, gen := newTestEngine(t)
	gen.err = errors.New("model overloaded")

	_, err := e.GenerateWithContext(context.Background(), "query", 1)
	require.Error(t, err)
	assert.True(t, aierrors.IsCollaborator(err))
}
