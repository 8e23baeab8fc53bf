package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/focuspilot/server/timezone"
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// ScheduleDriver selects adaptive schedule storage ("memory" or "sqlite")
	ScheduleDriver string
	// DSN points to where focuspilot stores adaptive schedules
	DSN string
	// Version is the current version of server
	Version string

	// LogLevel is one of debug, info, warn, error
	LogLevel string
	// LogFormat is "text" or "json"
	LogFormat string

	// AuthSecret signs and verifies HS256 bearer tokens. Empty in dev mode
	// enables the X-User-ID header instead.
	AuthSecret string

	// RedisAddr switches the cache store to Redis when set.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// CacheSweepInterval is the period of the expired-entry sweep.
	CacheSweepInterval time.Duration
	// ScheduleTruncation is "recency" or "frequency".
	ScheduleTruncation string
	// Timezone is the IANA zone of activity days. Empty uses the host zone.
	Timezone string

	// AI Configuration
	AIEnabled             bool    // FOCUSPILOT_AI_ENABLED
	AIBaseURL             string  // FOCUSPILOT_AI_BASE_URL (default: https://api.openai.com/v1)
	AIAPIKey              string  // FOCUSPILOT_AI_API_KEY
	AIChatModel           string  // FOCUSPILOT_AI_CHAT_MODEL (default: gpt-4o-mini)
	AIEmbeddingModel      string  // FOCUSPILOT_AI_EMBEDDING_MODEL (default: text-embedding-3-small)
	AIEmbeddingDimensions int     // FOCUSPILOT_AI_EMBEDDING_DIMENSIONS (default: 0, model default)
	AIRequestsPerSecond   float64 // FOCUSPILOT_AI_RPS (default: 5)
	AIMaxRetries          int     // FOCUSPILOT_AI_MAX_RETRIES (default: 3)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if AI is enabled and an API key or a custom base URL is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.AIEnabled && (p.AIAPIKey != "" || p.AIBaseURL != "https://api.openai.com/v1")
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads AI configuration from FOCUSPILOT_AI_* environment variables.
func (p *Profile) FromEnv() {
	getIntEnv := func(key string, defaultValue int) int {
		if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
			return v
		}
		return defaultValue
	}

	p.AIEnabled = os.Getenv("FOCUSPILOT_AI_ENABLED") == "true"
	p.AIBaseURL = getEnvOrDefault("FOCUSPILOT_AI_BASE_URL", "https://api.openai.com/v1")
	p.AIAPIKey = os.Getenv("FOCUSPILOT_AI_API_KEY")
	p.AIChatModel = getEnvOrDefault("FOCUSPILOT_AI_CHAT_MODEL", "gpt-4o-mini")
	p.AIEmbeddingModel = getEnvOrDefault("FOCUSPILOT_AI_EMBEDDING_MODEL", "text-embedding-3-small")
	p.AIEmbeddingDimensions = getIntEnv("FOCUSPILOT_AI_EMBEDDING_DIMENSIONS", 0)
	p.AIMaxRetries = getIntEnv("FOCUSPILOT_AI_MAX_RETRIES", 3)

	p.AIRequestsPerSecond = 5
	if v, err := strconv.ParseFloat(os.Getenv("FOCUSPILOT_AI_RPS"), 64); err == nil && v > 0 {
		p.AIRequestsPerSecond = v
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.AuthSecret == "" {
		return errors.New("auth secret is required in prod mode")
	}

	switch p.ScheduleTruncation {
	case "":
		p.ScheduleTruncation = "recency"
	case "recency", "frequency":
	default:
		return errors.Errorf("unknown schedule truncation strategy %q", p.ScheduleTruncation)
	}

	if _, err := timezone.ParseTimezone(p.Timezone); err != nil {
		return err
	}

	if p.CacheSweepInterval <= 0 {
		p.CacheSweepInterval = 5 * time.Minute
	}

	if p.ScheduleDriver == "" {
		p.ScheduleDriver = "memory"
	}
	if p.ScheduleDriver != "sqlite" {
		return nil
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "focuspilot")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/focuspilot"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check dsn", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.DSN == "" {
		dbFile := fmt.Sprintf("focuspilot_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}
