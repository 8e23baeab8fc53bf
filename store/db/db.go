package db

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hrygo/focuspilot/internal/profile"
	"github.com/hrygo/focuspilot/plugin/ai/activity"
	"github.com/hrygo/focuspilot/store/db/sqlite"
)

// ============================================================================
// SCHEDULE STORAGE POLICY
// ============================================================================
// memory: default, schedules live for the process lifetime.
// sqlite: schedules survive restarts (single instance only).
// ============================================================================

// NewScheduleStore creates the adaptive schedule store selected by profile.
// Stores that hold resources also implement io.Closer.
func NewScheduleStore(ctx context.Context, profile *profile.Profile) (activity.ScheduleStore, error) {
	switch profile.ScheduleDriver {
	case "", "memory":
		return activity.NewMemoryScheduleStore(), nil
	case "sqlite":
		driver, err := sqlite.NewDB(ctx, profile)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create schedule store")
		}
		return driver, nil
	default:
		return nil, errors.Errorf("unknown schedule driver %q: only 'memory' and 'sqlite' are supported", profile.ScheduleDriver)
	}
}
