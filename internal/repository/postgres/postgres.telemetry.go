// FilePath: internal/repository/postgres/postgres.telemetry.go
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/greenmind-iot/hub/internal/database"
	"github.com/greenmind-iot/hub/internal/errors"
	"github.com/greenmind-iot/hub/internal/models"
)

type TelemetryRepo struct {
	PostgresBaseRepo
}

func NewTelemetryRepository(db database.DB) *TelemetryRepo {
	repo := &PostgresBaseRepo{db: db}
	return &TelemetryRepo{PostgresBaseRepo: *repo}
}

func (r *TelemetryRepo) UpsertLiveReading(ctx context.Context, deviceID string, reading models.Reading) error {
	query := `
		INSERT INTO live_readings (device_id, temp, soil_hum, air_hum, light, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		ON CONFLICT (device_id) DO UPDATE SET
			temp = EXCLUDED.temp,
			soil_hum = EXCLUDED.soil_hum,
			air_hum = EXCLUDED.air_hum,
			light = EXCLUDED.light,
			updated_at = now()`

	_, err := r.db.GetDB().ExecContext(ctx, query,
		deviceID, reading.Temp, reading.SoilHum, reading.AirHum, reading.Light)
	if err != nil {
		return errors.NewDatabaseError("failed to upsert live reading", err)
	}
	return nil
}

func (r *TelemetryRepo) GetLiveReading(ctx context.Context, deviceID string) (*models.LiveReading, error) {
	reading := &models.LiveReading{}
	query := `SELECT * FROM live_readings WHERE device_id = $1`

	err := r.db.GetDB().GetContext(ctx, reading, query, deviceID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("live reading not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get live reading", err)
	}
	return reading, nil
}

func (r *TelemetryRepo) ListLiveReadings(ctx context.Context) ([]*models.LiveReading, error) {
	readings := []*models.LiveReading{}
	query := `SELECT * FROM live_readings ORDER BY device_id`

	err := r.db.GetDB().SelectContext(ctx, &readings, query)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list live readings", err)
	}
	return readings, nil
}

func (r *TelemetryRepo) AppendHistory(ctx context.Context, deviceID string, reading models.Reading, at time.Time) error {
	query := `
		INSERT INTO history_entries (device_id, temp, soil_hum, air_hum, light, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.GetDB().ExecContext(ctx, query,
		deviceID, reading.Temp, reading.SoilHum, reading.AirHum, reading.Light, at)
	if err != nil {
		return errors.NewDatabaseError("failed to append history entry", err)
	}
	return nil
}

func (r *TelemetryRepo) LastHistoryAt(ctx context.Context, deviceID string) (time.Time, error) {
	var last time.Time
	query := `SELECT created_at FROM history_entries WHERE device_id = $1 ORDER BY created_at DESC LIMIT 1`

	err := r.db.GetDB().GetContext(ctx, &last, query, deviceID)
	if err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, nil
		}
		return time.Time{}, errors.NewDatabaseError("failed to get last history timestamp", err)
	}
	return last, nil
}

func (r *TelemetryRepo) ListDailyAggregates(ctx context.Context, deviceID string, limit int) ([]*models.DailyAggregate, error) {
	aggregates := []*models.DailyAggregate{}
	query := `
		SELECT * FROM daily_aggregates
		WHERE device_id = $1
		ORDER BY date DESC
		LIMIT $2`

	err := r.db.GetDB().SelectContext(ctx, &aggregates, query, deviceID, limit)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list daily aggregates", err)
	}
	return aggregates, nil
}
