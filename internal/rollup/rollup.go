// FilePath: internal/rollup/rollup.go
package rollup

import (
	"context"
	"time"

	"github.com/greenmind-iot/hub/internal/config"
	"github.com/greenmind-iot/hub/internal/errors"
	nuts "github.com/vaudience/go-nuts"
)

// Averages holds the per-channel means of one device's history rows
// inside the look-back window.
type Averages struct {
	Temp    float64
	SoilHum float64
	AirHum  float64
	Light   float64
}

// CycleTx scopes one rollup cycle to one storage transaction. Nothing
// is visible or destroyed until Commit; a crash or error before Commit
// leaves the history log and aggregates untouched.
type CycleTx interface {
	// ActiveDeviceIDs enumerates the distinct devices present in the
	// recent-history log.
	ActiveDeviceIDs(ctx context.Context) ([]string, error)
	// ChannelAverages computes per-channel means over the device's
	// history rows with timestamps at or after since, and the number of
	// rows that contributed.
	ChannelAverages(ctx context.Context, deviceID string, since time.Time) (Averages, int, error)
	// UpsertDailyAggregate writes the device's aggregate row for the
	// given date, replacing a row from an earlier run on the same date.
	UpsertDailyAggregate(ctx context.Context, deviceID string, avg Averages, date time.Time) error
	// PurgeHistory deletes every row of the recent-history log.
	PurgeHistory(ctx context.Context) error
	// PruneAggregates deletes aggregate rows with a date before cutoff.
	PruneAggregates(ctx context.Context, cutoff time.Time) error
	Commit() error
	Rollback() error
}

// Store opens rollup cycles against storage.
type Store interface {
	BeginCycle(ctx context.Context) (CycleTx, error)
}

// Engine converts the recent-history log into daily aggregates and
// enforces the retention horizon, one cycle per scheduled run.
type Engine struct {
	store   Store
	window  time.Duration
	horizon int
	now     func() time.Time
}

// New creates an Engine with the configured look-back window and
// retention horizon.
func New(store Store, cfg config.RetentionConfig) *Engine {
	return &Engine{
		store:   store,
		window:  cfg.RollupWindow,
		horizon: cfg.HorizonDays,
		now:     time.Now,
	}
}

// RunCycle executes one full aggregation and retention sweep. The
// look-back window ends at cycle time, not at a calendar boundary; the
// destructive phase (history truncation and horizon pruning) runs
// strictly after all per-device inserts, inside the same transaction.
func (e *Engine) RunCycle(ctx context.Context) error {
	started := e.now()

	tx, err := e.store.BeginCycle(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback() // no-op once committed

	deviceIDs, err := tx.ActiveDeviceIDs(ctx)
	if err != nil {
		return err
	}

	since := started.Add(-e.window)
	aggregated := 0
	skipped := 0

	for _, deviceID := range deviceIDs {
		avg, count, err := tx.ChannelAverages(ctx, deviceID, since)
		if err != nil {
			// Per-device failures must not starve the other devices.
			nuts.L.Warnf("[Rollup] Skipping device %s, average computation failed: %v", deviceID, err)
			skipped++
			continue
		}
		if count == 0 {
			// Rows exist for the device but none inside the window; a
			// degenerate null aggregate would be garbage, skip it.
			skipped++
			continue
		}
		if err := tx.UpsertDailyAggregate(ctx, deviceID, avg, started); err != nil {
			return err
		}
		aggregated++
	}

	if err := tx.PurgeHistory(ctx); err != nil {
		return err
	}

	cutoff := started.AddDate(0, 0, -e.horizon)
	if err := tx.PruneAggregates(ctx, cutoff); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.NewDatabaseError("failed to commit rollup cycle", err)
	}

	nuts.L.Infof("[Rollup] Cycle complete: %d devices aggregated, %d skipped, history purged, aggregates pruned before %s",
		aggregated, skipped, cutoff.Format("2006-01-02"))
	return nil
}
