package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/focuspilot/internal/profile"
	"github.com/hrygo/focuspilot/server"
	"github.com/hrygo/focuspilot/server/assistant"
)

var version = "0.1.0"

var (
	rootCmd = &cobra.Command{
		Use:   "focuspilot",
		Short: `An AI assistant that turns goals into plans and learns when you work best.`,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			setupLogger(viper.GetString("log-level"), viper.GetString("log-format"))
			return nil
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			instanceProfile, err := loadProfile()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			svc, err := newAssistant(ctx, instanceProfile)
			if err != nil {
				return err
			}
			s, err := server.NewServer(ctx, instanceProfile, svc)
			if err != nil {
				svc.Close()
				return fmt.Errorf("failed to create server: %w", err)
			}
			if err := s.Start(ctx); err != nil {
				svc.Close()
				return fmt.Errorf("failed to start server: %w", err)
			}

			c := make(chan os.Signal, 1)
			// Trigger graceful shutdown on SIGINT or SIGTERM.
			signal.Notify(c, os.Interrupt, syscall.SIGTERM)
			<-c
			s.Shutdown(ctx)
			return nil
		},
	}
)

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("addr", "")
	viper.SetDefault("port", 8081)
	viper.SetDefault("schedule-driver", "memory")
	viper.SetDefault("log-level", "info")
	viper.SetDefault("log-format", "text")
	viper.SetDefault("cache-sweep-interval", 5*time.Minute)
	viper.SetDefault("schedule-truncation", "recency")

	flags := rootCmd.PersistentFlags()
	flags.String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	flags.String("addr", "", "address of server")
	flags.Int("port", 8081, "port of server")
	flags.String("data", "", "data directory")
	flags.String("schedule-driver", "memory", `adaptive schedule storage, "memory" or "sqlite"`)
	flags.String("schedule-dsn", "", "sqlite database path (default: <data>/focuspilot_<mode>.db)")
	flags.String("schedule-truncation", "recency", `pattern truncation strategy, "recency" or "frequency"`)
	flags.String("timezone", "", "IANA timezone of activity days (default: host zone)")
	flags.String("log-level", "info", "debug, info, warn or error")
	flags.String("log-format", "text", `"text" or "json"`)
	flags.String("auth-secret", "", "HS256 secret for bearer tokens (required in prod)")
	flags.String("redis-addr", "", "use Redis at this address as the cache store")
	flags.String("redis-password", "", "Redis password")
	flags.Int("redis-db", 0, "Redis database number")
	flags.Duration("cache-sweep-interval", 5*time.Minute, "period of the in-memory cache sweep")
	flags.String("ai-base-url", "", "OpenAI-compatible API base URL")
	flags.String("ai-api-key", "", "API key of the model provider")
	flags.String("ai-chat-model", "", "chat model name")
	flags.String("ai-embedding-model", "", "embedding model name")
	flags.Int("ai-embedding-dimensions", 0, "embedding dimensions (0: model default)")
	flags.Float64("ai-rps", 0, "maximum model requests per second")
	flags.Int("ai-max-retries", 0, "retries per model call")

	for _, name := range []string{
		"mode", "addr", "port", "data", "schedule-driver", "schedule-dsn", "schedule-truncation",
		"timezone", "log-level", "log-format", "auth-secret", "redis-addr", "redis-password", "redis-db",
		"cache-sweep-interval", "ai-base-url", "ai-api-key", "ai-chat-model", "ai-embedding-model",
		"ai-embedding-dimensions", "ai-rps", "ai-max-retries",
	} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("focuspilot")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(tokenCmd, smokeCmd)
}

// loadProfile builds the profile from flags and FOCUSPILOT_* variables.
func loadProfile() (*profile.Profile, error) {
	p := &profile.Profile{
		Mode:               viper.GetString("mode"),
		Addr:               viper.GetString("addr"),
		Port:               viper.GetInt("port"),
		Data:               viper.GetString("data"),
		ScheduleDriver:     viper.GetString("schedule-driver"),
		DSN:                viper.GetString("schedule-dsn"),
		ScheduleTruncation: viper.GetString("schedule-truncation"),
		Timezone:           viper.GetString("timezone"),
		Version:            version,
		LogLevel:           viper.GetString("log-level"),
		LogFormat:          viper.GetString("log-format"),
		AuthSecret:         viper.GetString("auth-secret"),
		RedisAddr:          viper.GetString("redis-addr"),
		RedisPassword:      viper.GetString("redis-password"),
		RedisDB:            viper.GetInt("redis-db"),
		CacheSweepInterval: viper.GetDuration("cache-sweep-interval"),
	}
	p.FromEnv()

	if v := viper.GetString("ai-base-url"); v != "" {
		p.AIBaseURL = v
	}
	if v := viper.GetString("ai-api-key"); v != "" {
		p.AIAPIKey = v
		p.AIEnabled = true
	}
	if v := viper.GetString("ai-chat-model"); v != "" {
		p.AIChatModel = v
	}
	if v := viper.GetString("ai-embedding-model"); v != "" {
		p.AIEmbeddingModel = v
	}
	if v := viper.GetInt("ai-embedding-dimensions"); v > 0 {
		p.AIEmbeddingDimensions = v
	}
	if v := viper.GetFloat64("ai-rps"); v > 0 {
		p.AIRequestsPerSecond = v
	}
	if v := viper.GetInt("ai-max-retries"); v > 0 {
		p.AIMaxRetries = v
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	return p, nil
}

func newAssistant(ctx context.Context, p *profile.Profile) (*assistant.Service, error) {
	collab, err := assistant.NewCollaborators(p)
	if err != nil {
		return nil, err
	}
	return assistant.New(ctx, p, collab, assistant.Options{})
}

func setupLogger(level, format string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
