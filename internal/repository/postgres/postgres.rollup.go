// FilePath: internal/repository/postgres/postgres.rollup.go
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/greenmind-iot/hub/internal/database"
	"github.com/greenmind-iot/hub/internal/errors"
	"github.com/greenmind-iot/hub/internal/rollup"
	"github.com/jmoiron/sqlx"
)

// RollupStore opens rollup cycles as Postgres transactions.
type RollupStore struct {
	db database.DB
}

// NewRollupStore creates a rollup store over the given database.
func NewRollupStore(db database.DB) *RollupStore {
	return &RollupStore{db: db}
}

func (s *RollupStore) BeginCycle(ctx context.Context) (rollup.CycleTx, error) {
	tx, err := s.db.GetDB().BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to begin rollup transaction", err)
	}
	return &rollupTx{tx: tx}, nil
}

type rollupTx struct {
	tx *sqlx.Tx
}

func (t *rollupTx) ActiveDeviceIDs(ctx context.Context) ([]string, error) {
	ids := []string{}
	err := t.tx.SelectContext(ctx, &ids,
		`SELECT DISTINCT device_id FROM history_entries`)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list active devices", err)
	}
	return ids, nil
}

func (t *rollupTx) ChannelAverages(ctx context.Context, deviceID string, since time.Time) (rollup.Averages, int, error) {
	var row struct {
		Temp    sql.NullFloat64 `db:"avg_temp"`
		SoilHum sql.NullFloat64 `db:"avg_soil_hum"`
		AirHum  sql.NullFloat64 `db:"avg_air_hum"`
		Light   sql.NullFloat64 `db:"avg_light"`
		Count   int             `db:"row_count"`
	}
	err := t.tx.GetContext(ctx, &row, `
		SELECT
			AVG(temp) AS avg_temp,
			AVG(soil_hum) AS avg_soil_hum,
			AVG(air_hum) AS avg_air_hum,
			AVG(light) AS avg_light,
			COUNT(*) AS row_count
		FROM history_entries
		WHERE device_id = $1 AND created_at >= $2`,
		deviceID, since)
	if err != nil {
		return rollup.Averages{}, 0, errors.NewDatabaseError("failed to compute channel averages", err)
	}
	if row.Count == 0 {
		return rollup.Averages{}, 0, nil
	}
	return rollup.Averages{
		Temp:    row.Temp.Float64,
		SoilHum: row.SoilHum.Float64,
		AirHum:  row.AirHum.Float64,
		Light:   row.Light.Float64,
	}, row.Count, nil
}

func (t *rollupTx) UpsertDailyAggregate(ctx context.Context, deviceID string, avg rollup.Averages, date time.Time) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO daily_aggregates (device_id, avg_temp, avg_soil_hum, avg_air_hum, avg_light, date)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (device_id, date) DO UPDATE SET
			avg_temp = EXCLUDED.avg_temp,
			avg_soil_hum = EXCLUDED.avg_soil_hum,
			avg_air_hum = EXCLUDED.avg_air_hum,
			avg_light = EXCLUDED.avg_light`,
		deviceID, avg.Temp, avg.SoilHum, avg.AirHum, avg.Light, date)
	if err != nil {
		return errors.NewDatabaseError("failed to upsert daily aggregate", err)
	}
	return nil
}

func (t *rollupTx) PurgeHistory(ctx context.Context) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM history_entries`); err != nil {
		return errors.NewDatabaseError("failed to purge history entries", err)
	}
	return nil
}

func (t *rollupTx) PruneAggregates(ctx context.Context, cutoff time.Time) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM daily_aggregates WHERE date < $1`, cutoff); err != nil {
		return errors.NewDatabaseError("failed to prune daily aggregates", err)
	}
	return nil
}

func (t *rollupTx) Commit() error   { return t.tx.Commit() }
func (t *rollupTx) Rollback() error { return t.tx.Rollback() }
