// Package rag stores embedded documents and grounds generation in the most
// similar ones.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hrygo/focuspilot/plugin/ai"
	"github.com/hrygo/focuspilot/plugin/ai/cache"
	aierrors "github.com/hrygo/focuspilot/plugin/ai/errors"
)

const (
	EmbeddingTTL  = time.Hour
	GenerationTTL = 20 * time.Minute
)

// DocumentInput is a document to be embedded and stored.
type DocumentInput struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Document is a stored document. Embedding never changes after insertion.
type Document struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Embedding []float32      `json:"-"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Result is a retrieved document with its similarity to the query.
type Result struct {
	Document   Document `json:"document"`
	Similarity float64  `json:"similarity"`
}

// PartialFailureError lists documents dropped because embedding failed.
type PartialFailureError struct {
	Failed []string
	Errs   []error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("rag: %d document(s) dropped: %s", len(e.Failed), strings.Join(e.Failed, ", "))
}

func (e *PartialFailureError) Unwrap() []error {
	return e.Errs
}

// Engine is an in-memory, insertion-ordered document store. The collection
// is append-only; Upsert is the only way to replace a document.
type Engine struct {
	mu   sync.RWMutex
	docs []Document

	loader    *cache.Loader
	embedder  ai.Embedder
	generator ai.Generator
}

// NewEngine creates a RAG engine.
func NewEngine(loader *cache.Loader, embedder ai.Embedder, generator ai.Generator) *Engine {
	return &Engine{loader: loader, embedder: embedder, generator: generator}
}

// Len returns the number of stored documents, duplicates included.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.docs)
}

func (e *Engine) embed(ctx context.Context, text string, taskType ai.TaskType) ([]float32, error) {
	key := cache.Key(cache.NamespaceEmbed, string(taskType), text)
	vec, _, err := cache.Load(ctx, e.loader, key, func(ctx context.Context) ([]float32, time.Duration, error) {
		emb, err := e.embedder.Embed(ctx, text, taskType)
		if err != nil {
			return nil, 0, err
		}
		if len(emb.Vector) == 0 {
			return nil, 0, aierrors.MalformedResponse("embedding", fmt.Errorf("empty vector"))
		}
		return emb.Vector, EmbeddingTTL, nil
	})
	return vec, err
}

func (e *Engine) prepare(ctx context.Context, in DocumentInput) (Document, error) {
	vec, err := e.embed(ctx, in.Content, ai.TaskRetrievalDocument)
	if err != nil {
		return Document{}, err
	}
	id := in.ID
	if id == "" {
		id = uuid.New().String()
	}
	return Document{
		ID:        id,
		Content:   in.Content,
		Embedding: vec,
		Metadata:  maps.Clone(in.Metadata),
	}, nil
}

// AddDocuments embeds and appends inputs in order. A document whose
// embedding fails is dropped and reported in a *PartialFailureError
// alongside the number actually added.
func (e *Engine) AddDocuments(ctx context.Context, inputs []DocumentInput) (int, error) {
	prepared := make([]Document, 0, len(inputs))
	var partial *PartialFailureError

	for _, in := range inputs {
		doc, err := e.prepare(ctx, in)
		if err != nil {
			slog.Warn("rag: dropping document", "id", in.ID, "error", err)
			if partial == nil {
				partial = &PartialFailureError{}
			}
			partial.Failed = append(partial.Failed, in.ID)
			partial.Errs = append(partial.Errs, err)
			continue
		}
		prepared = append(prepared, doc)
	}

	e.mu.Lock()
	e.docs = append(e.docs, prepared...)
	e.mu.Unlock()

	if partial != nil {
		return len(prepared), partial
	}
	return len(prepared), nil
}

// Upsert replaces the first document with the same id in place, or appends.
func (e *Engine) Upsert(ctx context.Context, in DocumentInput) error {
	if in.ID == "" {
		return aierrors.InvalidArgument("upsert requires a document id")
	}
	doc, err := e.prepare(ctx, in)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.docs {
		if e.docs[i].ID == in.ID {
			e.docs[i] = doc
			return nil
		}
	}
	e.docs = append(e.docs, doc)
	return nil
}

// Search ranks every document against query. Equal similarities keep
// insertion order. An embedding failure yields no results.
func (e *Engine) Search(ctx context.Context, query string, topK int) []Result {
	if topK <= 0 {
		return []Result{}
	}

	qvec, err := e.embed(ctx, query, ai.TaskRetrievalQuery)
	if err != nil {
		slog.Warn("rag: query embedding failed, returning no context", "error", err)
		return []Result{}
	}

	e.mu.RLock()
	results := make([]Result, len(e.docs))
	for i, doc := range e.docs {
		results[i] = Result{Document: doc, Similarity: CosineSimilarity(qvec, doc.Embedding)}
	}
	e.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

// Retrieve returns the topK most similar documents.
func (e *Engine) Retrieve(ctx context.Context, query string, topK int) []Document {
	results := e.Search(ctx, query, topK)
	docs := make([]Document, len(results))
	for i, r := range results {
		docs[i] = r.Document
	}
	return docs
}

// GenerateWithContext answers query grounded in the topK retrieved
// documents. Without any retrieved document the answer is context-free.
func (e *Engine) GenerateWithContext(ctx context.Context, query string, topK int) (string, error) {
	docs := e.Retrieve(ctx, query, topK)
	contents := make([]string, len(docs))
	for i, d := range docs {
		contents[i] = d.Content
	}
	contextText := strings.Join(contents, "\n\n")

	key := cache.Key(cache.NamespaceRAG, contextText, query)
	answer, _, err := cache.Load(ctx, e.loader, key, func(ctx context.Context) (string, time.Duration, error) {
		out, err := e.generator.Generate(ctx, buildPrompt(contextText, query), nil)
		if err != nil {
			return "", 0, err
		}
		return out, GenerationTTL, nil
	})
	if err != nil {
		var aiErr *aierrors.AIError
		if !errors.As(err, &aiErr) {
			err = aierrors.CollaboratorFailed("generate", err)
		}
		return "", err
	}
	return answer, nil
}

func buildPrompt(contextText, query string) string {
	if contextText == "" {
		return "Answer the user's question.\n\nQuestion: " + query
	}
	return "Answer the user's question using the context below. " +
		"If the context does not contain the answer, say so and answer from general knowledge.\n\n" +
		"Context:\n" + contextText + "\n\nQuestion: " + query
}
