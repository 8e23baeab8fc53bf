package ai

import (
	"errors"
	"time"

	"github.com/hrygo/focuspilot/internal/profile"
)

// Config holds the AI provider configuration.
type Config struct {
	BaseURL             string
	APIKey              string
	ChatModel           string
	EmbeddingModel      string
	EmbeddingDimensions int     // 0 keeps the model default
	MaxTokens           int     // default: 2048
	Temperature         float32 // default: 0.7
	MaxRetries          int
	RetryBaseDelay      time.Duration // backoff is RetryBaseDelay * 2^attempt
	RequestsPerSecond   float64
	Burst               int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:           "https://api.openai.com/v1",
		ChatModel:         "gpt-4o-mini",
		EmbeddingModel:    "text-embedding-3-small",
		MaxTokens:         2048,
		Temperature:       0.7,
		MaxRetries:        3,
		RetryBaseDelay:    time.Second,
		RequestsPerSecond: 5,
		Burst:             5,
	}
}

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := DefaultConfig()
	if p.AIBaseURL != "" {
		cfg.BaseURL = p.AIBaseURL
	}
	cfg.APIKey = p.AIAPIKey
	if p.AIChatModel != "" {
		cfg.ChatModel = p.AIChatModel
	}
	if p.AIEmbeddingModel != "" {
		cfg.EmbeddingModel = p.AIEmbeddingModel
	}
	cfg.EmbeddingDimensions = p.AIEmbeddingDimensions
	if p.AIMaxRetries > 0 {
		cfg.MaxRetries = p.AIMaxRetries
	}
	if p.AIRequestsPerSecond > 0 {
		cfg.RequestsPerSecond = p.AIRequestsPerSecond
	}
	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("AI base URL is required")
	}
	if c.ChatModel == "" {
		return errors.New("chat model is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("embedding model is required")
	}
	if c.EmbeddingDimensions < 0 {
		return errors.New("embedding dimensions must not be negative")
	}
	return nil
}
