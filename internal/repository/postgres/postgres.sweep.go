// FilePath: internal/repository/postgres/postgres.sweep.go
package postgres

import (
	"context"

	"github.com/greenmind-iot/hub/internal/database"
	"github.com/greenmind-iot/hub/internal/errors"
	"github.com/greenmind-iot/hub/internal/models"
)

// SweepStore backs the decommission watcher: it counts unacknowledged
// decommission orders and removes a device with all of its dependent
// rows in one transaction.
type SweepStore struct {
	db database.DB
}

// NewSweepStore creates a sweep store over the given database.
func NewSweepStore(db database.DB) *SweepStore {
	return &SweepStore{db: db}
}

func (s *SweepStore) PendingDecommissions(ctx context.Context, deviceID string) (int, error) {
	var count int
	err := s.db.GetDB().GetContext(ctx, &count,
		`SELECT COUNT(*) FROM tasks WHERE device_id = $1 AND task_number = $2 AND status = $3`,
		deviceID, models.TaskDecommission, models.TaskStatusPending)
	if err != nil {
		return 0, errors.NewDatabaseError("failed to count pending decommissions", err)
	}
	return count, nil
}

func (s *SweepStore) PurgeDevice(ctx context.Context, deviceID string) error {
	tx, err := s.db.GetDB().BeginTxx(ctx, nil)
	if err != nil {
		return errors.NewDatabaseError("failed to begin purge transaction", err)
	}
	defer tx.Rollback()

	// Dependent rows first, the device row last.
	queries := []string{
		`DELETE FROM live_readings WHERE device_id = $1`,
		`DELETE FROM history_entries WHERE device_id = $1`,
		`DELETE FROM daily_aggregates WHERE device_id = $1`,
		`DELETE FROM tasks WHERE device_id = $1`,
		`DELETE FROM devices WHERE device_id = $1`,
	}
	for _, query := range queries {
		if _, err := tx.ExecContext(ctx, query, deviceID); err != nil {
			return errors.NewDatabaseError("failed to purge device data", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewDatabaseError("failed to commit device purge", err)
	}
	return nil
}
