package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/hrygo/focuspilot/plugin/ai/activity"
)

// GetSchedule returns nil, nil when the user has no stored schedule.
func (d *DB) GetSchedule(ctx context.Context, userID string) (*activity.AdaptiveSchedule, error) {
	var payload string
	err := d.db.QueryRowContext(ctx,
		`SELECT payload FROM adaptive_schedule WHERE user_id = ?`, userID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get schedule for %s", userID)
	}

	s := activity.NewAdaptiveSchedule(userID)
	if err := json.Unmarshal([]byte(payload), s); err != nil {
		return nil, errors.Wrapf(err, "failed to decode schedule for %s", userID)
	}
	s.UserID = userID
	return s, nil
}

// SaveSchedule inserts or replaces the user's schedule.
func (d *DB) SaveSchedule(ctx context.Context, s *activity.AdaptiveSchedule) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "failed to encode schedule")
	}

	stmt := `INSERT INTO adaptive_schedule (user_id, payload, updated_ts)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET payload = excluded.payload, updated_ts = excluded.updated_ts`
	if _, err := d.db.ExecContext(ctx, stmt, s.UserID, string(payload), s.LastUpdated.Unix()); err != nil {
		return errors.Wrapf(err, "failed to save schedule for %s", s.UserID)
	}
	return nil
}

var _ activity.ScheduleStore = (*DB)(nil)
