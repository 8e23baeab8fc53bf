package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	aierrors "github.com/hrygo/focuspilot/plugin/ai/errors"
	"github.com/hrygo/focuspilot/plugin/ai/metrics"
	"github.com/hrygo/focuspilot/plugin/ai/timeout"
)

// Provider implements SafetyChecker, Embedder and Generator over an
// OpenAI-compatible API.
type Provider struct {
	client  *openai.Client
	config  *Config
	limiter *rate.Limiter
}

// NewProvider creates a new AI provider.
func NewProvider(cfg *Config) (*Provider, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Apply defaults for unset values
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(math.Ceil(cfg.RequestsPerSecond))
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.BaseURL

	return &Provider{
		client:  openai.NewClientWithConfig(clientConfig),
		config:  cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}, nil
}

// Generate performs a chat completion for prompt, attaching image when given.
func (p *Provider) Generate(ctx context.Context, prompt string, image []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout.GenerateTimeout)
	defer cancel()

	msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt}
	if len(image) > 0 {
		data, mime := prepareImage(image)
		dataURL := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data))
		msg = openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: prompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
			},
		}
	}

	return p.chat(ctx, "generate", []openai.ChatCompletionMessage{msg})
}

// CheckSafety asks the chat model to screen text with the fixed safety instructions.
func (p *Provider) CheckSafety(ctx context.Context, text string) (SafetyVerdict, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout.SafetyTimeout)
	defer cancel()

	reply, err := p.chat(ctx, "safety", []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: safetyInstructions},
		{Role: openai.ChatMessageRoleUser, Content: text},
	})
	if err != nil {
		return SafetyVerdict{}, err
	}

	var parsed struct {
		IsSafe         *bool    `json:"isSafe"`
		SanitizedInput string   `json:"sanitizedInput"`
		Reasoning      string   `json:"reasoning"`
		FlaggedContent []string `json:"flaggedContent"`
	}
	if err := json.Unmarshal([]byte(ExtractJSON(reply)), &parsed); err != nil {
		return SafetyVerdict{}, aierrors.MalformedResponse("safety", err)
	}
	if parsed.IsSafe == nil {
		return SafetyVerdict{}, aierrors.MalformedResponse("safety", errors.New("verdict has no isSafe field"))
	}
	return SafetyVerdict{
		IsSafe:         *parsed.IsSafe,
		SanitizedInput: parsed.SanitizedInput,
		Reasoning:      parsed.Reasoning,
		FlaggedContent: parsed.FlaggedContent,
	}, nil
}

// Embed generates an embedding vector for text. taskType is accepted for
// providers that distinguish query and document vectors; OpenAI does not.
func (p *Provider) Embed(ctx context.Context, text string, taskType TaskType) (Embedding, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout.EmbeddingTimeout)
	defer cancel()

	started := time.Now()
	var result []float32
	err := p.doWithRetry(ctx, func() error {
		req := openai.EmbeddingRequest{
			Input:      []string{text},
			Model:      openai.EmbeddingModel(p.config.EmbeddingModel),
			Dimensions: p.config.EmbeddingDimensions,
		}

		resp, err := p.client.CreateEmbeddings(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Data) == 0 {
			return errors.New("empty embedding response")
		}
		result = resp.Data[0].Embedding
		return nil
	})
	metrics.CollaboratorCall("embedding", started, err)

	if err != nil {
		slog.Warn("embedding failed", "task_type", taskType, "error", err)
		return Embedding{}, aierrors.CollaboratorFailed("embedding", err)
	}

	return Embedding{Vector: result, Dimension: len(result)}, nil
}

func (p *Provider) chat(ctx context.Context, name string, messages []openai.ChatCompletionMessage) (string, error) {
	started := time.Now()
	var result string
	err := p.doWithRetry(ctx, func() error {
		req := openai.ChatCompletionRequest{
			Model:       p.config.ChatModel,
			Messages:    messages,
			MaxTokens:   p.config.MaxTokens,
			Temperature: p.config.Temperature,
		}

		resp, err := p.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return errors.New("empty chat response")
		}
		result = resp.Choices[0].Message.Content
		return nil
	})
	metrics.CollaboratorCall(name, started, err)

	if err != nil {
		return "", aierrors.CollaboratorFailed(name, err)
	}
	return result, nil
}

// doWithRetry executes a function with rate limiting and exponential backoff retry.
func (p *Provider) doWithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < p.config.MaxRetries; attempt++ {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return lastErr
		}

		if attempt < p.config.MaxRetries-1 {
			waitTime := p.config.RetryBaseDelay * time.Duration(math.Pow(2, float64(attempt)))
			slog.Debug("AI request failed, retrying",
				"attempt", attempt+1,
				"wait_time", waitTime,
				"error", err)
			select {
			case <-time.After(waitTime):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}

var (
	_ SafetyChecker = (*Provider)(nil)
	_ Embedder      = (*Provider)(nil)
	_ Generator     = (*Provider)(nil)
)
