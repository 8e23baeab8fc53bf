package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	// Import the pure Go SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/hrygo/focuspilot/internal/profile"
)

// ============================================================================
// SQLITE SUPPORT
// ============================================================================
// SQLite keeps adaptive schedules across restarts for single-instance
// deployments. Sessions, reports and model answers stay in the cache layer.
// ============================================================================

type DB struct {
	db *sql.DB
}

// NewDB opens the database at profile.DSN and applies the schema.
func NewDB(ctx context.Context, profile *profile.Profile) (*DB, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	db, err := sql.Open("sqlite", profile.DSN+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}
	// SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)

	d := &DB{db: db}
	if err := d.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS adaptive_schedule (
	user_id TEXT NOT NULL PRIMARY KEY,
	payload TEXT NOT NULL DEFAULT '{}',
	updated_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now'))
);`

func (d *DB) migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to migrate schema")
	}
	return nil
}

func (d *DB) Close() error {
	return d.db.Close()
}
