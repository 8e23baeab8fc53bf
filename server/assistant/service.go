// Package assistant assembles the AI core from a profile.
package assistant

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/focuspilot/internal/profile"
	"github.com/hrygo/focuspilot/plugin/ai"
	"github.com/hrygo/focuspilot/plugin/ai/activity"
	"github.com/hrygo/focuspilot/plugin/ai/cache"
	"github.com/hrygo/focuspilot/plugin/ai/goal"
	"github.com/hrygo/focuspilot/plugin/ai/rag"
	"github.com/hrygo/focuspilot/plugin/ai/safety"
	"github.com/hrygo/focuspilot/plugin/ai/session"
	"github.com/hrygo/focuspilot/server/timezone"
	"github.com/hrygo/focuspilot/store/db"
)

// Collaborators are the external model calls. Nil fields use ai.Unavailable.
type Collaborators struct {
	Safety    ai.SafetyChecker
	Embedder  ai.Embedder
	Generator ai.Generator
}

// Service owns the cache store and every component built on it.
type Service struct {
	Cache     cache.CacheService
	Loader    *cache.Loader
	Sessions  *session.Manager
	Validator *safety.Pipeline
	RAG       *rag.Engine
	Tracker   *activity.Tracker
	Planner   *goal.Planner
	// Location decides calendar days of activities and reports.
	Location *time.Location
	// Now is the clock shared by every component.
	Now func() time.Time

	closers []func() error
}

// Options tune construction. Zero values are production defaults.
type Options struct {
	Cache     cache.CacheService
	Schedules activity.ScheduleStore
	Location  *time.Location
	Now       func() time.Time
}

// New builds the service from the profile. Components share one cache.
func New(ctx context.Context, p *profile.Profile, collab Collaborators, opts Options) (*Service, error) {
	truncation, err := activity.ParseTruncationStrategy(p.ScheduleTruncation)
	if err != nil {
		return nil, err
	}
	loc := opts.Location
	if loc == nil {
		if loc, err = timezone.ParseTimezone(p.Timezone); err != nil {
			return nil, err
		}
	}
	if collab.Safety == nil {
		collab.Safety = ai.Unavailable{}
	}
	if collab.Embedder == nil {
		collab.Embedder = ai.Unavailable{}
	}
	if collab.Generator == nil {
		collab.Generator = ai.Unavailable{}
	}

	s := &Service{}
	store := opts.Cache
	if store == nil {
		store, err = s.openCache(ctx, p, opts.Now)
		if err != nil {
			return nil, err
		}
	}
	schedules := opts.Schedules
	if schedules == nil {
		schedules, err = db.NewScheduleStore(ctx, p)
		if err != nil {
			s.Close()
			return nil, err
		}
		if c, ok := schedules.(io.Closer); ok {
			s.closers = append(s.closers, c.Close)
		}
	}

	s.Cache = store
	s.Location = loc
	s.Now = opts.Now
	if s.Now == nil {
		s.Now = time.Now
	}
	s.Loader = cache.NewLoader(store)
	s.Sessions = session.NewManager(store, opts.Now)
	s.Validator = safety.NewPipeline(s.Loader, collab.Safety)
	s.RAG = rag.NewEngine(s.Loader, collab.Embedder, collab.Generator)
	s.Tracker = activity.NewTracker(s.Loader, s.Validator, s.Sessions, collab.Generator, schedules, activity.Config{
		Truncation: truncation,
		Location:   loc,
		Now:        opts.Now,
	})
	s.Planner = goal.NewPlanner(s.Loader, s.Validator, s.Sessions, collab.Generator)

	slog.Info("assistant initialized",
		"schedule_driver", p.ScheduleDriver,
		"truncation", truncation,
		"timezone", loc.String(),
		"redis", p.RedisAddr != "")
	return s, nil
}

func (s *Service) openCache(ctx context.Context, p *profile.Profile, now func() time.Time) (cache.CacheService, error) {
	if p.RedisAddr != "" {
		rs, err := cache.DialRedis(ctx, cache.RedisConfig{
			Addr:     p.RedisAddr,
			Password: p.RedisPassword,
			DB:       p.RedisDB,
			Prefix:   "focuspilot:",
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to open redis cache")
		}
		s.closers = append(s.closers, rs.Close)
		return rs, nil
	}

	cfg := cache.DefaultStoreConfig()
	if p.CacheSweepInterval > 0 {
		cfg.CleanupInterval = p.CacheSweepInterval
	}
	if now != nil {
		cfg.Now = now
	}
	ms := cache.NewStore(cfg)
	s.closers = append(s.closers, func() error {
		ms.Close()
		return nil
	})
	return ms, nil
}

// NewCollaborators returns the OpenAI-compatible provider for all three
// roles, or empty Collaborators when AI is disabled in the profile.
func NewCollaborators(p *profile.Profile) (Collaborators, error) {
	if !p.IsAIEnabled() {
		slog.Warn("AI is disabled, every model call will use its local fallback")
		return Collaborators{}, nil
	}
	cfg := ai.NewConfigFromProfile(p)
	if err := cfg.Validate(); err != nil {
		return Collaborators{}, errors.Wrap(err, "invalid AI configuration")
	}
	provider, err := ai.NewProvider(cfg)
	if err != nil {
		return Collaborators{}, errors.Wrap(err, "failed to create AI provider")
	}
	return Collaborators{Safety: provider, Embedder: provider, Generator: provider}, nil
}

// Close releases the cache and schedule store in reverse order of opening.
func (s *Service) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	s.closers = nil
	return first
}
