// FilePath: internal/repository/postgres/postgres.schema.go
package postgres

import (
	"github.com/greenmind-iot/hub/internal/database"
	"github.com/greenmind-iot/hub/internal/errors"
)

// InitializeSchema creates all tables idempotently. Daily aggregates
// carry a UNIQUE(device_id, date) constraint so a rerun rollup cycle
// updates instead of duplicating.
func InitializeSchema(db database.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_login TEXT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS devices (
			device_id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			user_login TEXT REFERENCES users(user_login),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS live_readings (
			device_id TEXT PRIMARY KEY REFERENCES devices(device_id),
			temp DOUBLE PRECISION NOT NULL,
			soil_hum DOUBLE PRECISION NOT NULL,
			air_hum DOUBLE PRECISION NOT NULL,
			light DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS history_entries (
			id BIGSERIAL PRIMARY KEY,
			device_id TEXT NOT NULL REFERENCES devices(device_id),
			temp DOUBLE PRECISION NOT NULL,
			soil_hum DOUBLE PRECISION NOT NULL,
			air_hum DOUBLE PRECISION NOT NULL,
			light DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_entries_device_created
			ON history_entries(device_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS daily_aggregates (
			id BIGSERIAL PRIMARY KEY,
			device_id TEXT NOT NULL REFERENCES devices(device_id),
			avg_temp DOUBLE PRECISION NOT NULL,
			avg_soil_hum DOUBLE PRECISION NOT NULL,
			avg_air_hum DOUBLE PRECISION NOT NULL,
			avg_light DOUBLE PRECISION NOT NULL,
			date DATE NOT NULL,
			UNIQUE (device_id, date)
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			task_id BIGSERIAL PRIMARY KEY,
			device_id TEXT NOT NULL REFERENCES devices(device_id),
			task_number INT NOT NULL,
			status INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_device_status
			ON tasks(device_id, status)`,
	}

	for _, query := range queries {
		if _, err := db.GetDB().Exec(query); err != nil {
			return errors.NewDatabaseError("failed to initialize schema", err)
		}
	}
	return nil
}
