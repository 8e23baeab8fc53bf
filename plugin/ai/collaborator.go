// Package ai defines the contracts of the external model collaborators and
// an OpenAI-compatible provider implementing them.
package ai

import (
	"context"
	"errors"

	aierrors "github.com/hrygo/focuspilot/plugin/ai/errors"
)

// TaskType hints the embedding model about how a vector will be used.
type TaskType string

const (
	TaskRetrievalDocument TaskType = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery    TaskType = "RETRIEVAL_QUERY"
)

// SafetyVerdict is the outcome of a safety check.
type SafetyVerdict struct {
	IsSafe         bool     `json:"isSafe"`
	SanitizedInput string   `json:"sanitizedInput"`
	Reasoning      string   `json:"reasoning"`
	FlaggedContent []string `json:"flaggedContent"`
}

// Embedding is a fixed-dimension vector.
type Embedding struct {
	Vector    []float32 `json:"vector"`
	Dimension int       `json:"dimension"`
}

// SafetyChecker screens free text for unsafe or injection content.
type SafetyChecker interface {
	CheckSafety(ctx context.Context, text string) (SafetyVerdict, error)
}

// Embedder produces embeddings. Identical text yields the same vector.
type Embedder interface {
	Embed(ctx context.Context, text string, taskType TaskType) (Embedding, error)
}

// Generator produces free-text completions. image may be nil.
// Structured replies are returned as text and parsed by callers.
type Generator interface {
	Generate(ctx context.Context, prompt string, image []byte) (string, error)
}

// ErrDisabled is the cause reported by Unavailable.
var ErrDisabled = errors.New("AI features are disabled")

// Unavailable stands in for every collaborator when no provider is
// configured. Callers fall back to their local behavior.
type Unavailable struct{}

func (Unavailable) CheckSafety(context.Context, string) (SafetyVerdict, error) {
	return SafetyVerdict{}, aierrors.CollaboratorFailed("safety", ErrDisabled)
}

func (Unavailable) Embed(context.Context, string, TaskType) (Embedding, error) {
	return Embedding{}, aierrors.CollaboratorFailed("embedding", ErrDisabled)
}

func (Unavailable) Generate(context.Context, string, []byte) (string, error) {
	return "", aierrors.CollaboratorFailed("generation", ErrDisabled)
}

var (
	_ SafetyChecker = Unavailable{}
	_ Embedder      = Unavailable{}
	_ Generator     = Unavailable{}
)
