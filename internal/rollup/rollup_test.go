// FilePath: internal/rollup/rollup_test.go
package rollup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/greenmind-iot/hub/internal/config"
)

type historyRow struct {
	deviceID string
	temp     float64
	soilHum  float64
	airHum   float64
	light    float64
	at       time.Time
}

type aggregateRow struct {
	deviceID string
	avg      Averages
	date     string // yyyy-mm-dd
}

// fakeStore models the history log and aggregate table with real
// transaction semantics: a cycle works on a copy and publishes on
// Commit only.
type fakeStore struct {
	history    []historyRow
	aggregates []aggregateRow

	averagesErr map[string]error
	purgeErr    error
	pruneErr    error

	// insertAfterPurge records an ordering violation: aggregate writes
	// must all happen before the destructive phase.
	insertAfterPurge bool
}

type fakeCycle struct {
	store      *fakeStore
	history    []historyRow
	aggregates []aggregateRow
	purged     bool
	committed  bool
}

func (s *fakeStore) BeginCycle(ctx context.Context) (CycleTx, error) {
	return &fakeCycle{
		store:      s,
		history:    append([]historyRow(nil), s.history...),
		aggregates: append([]aggregateRow(nil), s.aggregates...),
	}, nil
}

func (c *fakeCycle) ActiveDeviceIDs(ctx context.Context) ([]string, error) {
	seen := map[string]bool{}
	ids := []string{}
	for _, row := range c.history {
		if !seen[row.deviceID] {
			seen[row.deviceID] = true
			ids = append(ids, row.deviceID)
		}
	}
	return ids, nil
}

func (c *fakeCycle) ChannelAverages(ctx context.Context, deviceID string, since time.Time) (Averages, int, error) {
	if err := c.store.averagesErr[deviceID]; err != nil {
		return Averages{}, 0, err
	}
	var sum Averages
	count := 0
	for _, row := range c.history {
		if row.deviceID != deviceID || row.at.Before(since) {
			continue
		}
		sum.Temp += row.temp
		sum.SoilHum += row.soilHum
		sum.AirHum += row.airHum
		sum.Light += row.light
		count++
	}
	if count == 0 {
		return Averages{}, 0, nil
	}
	n := float64(count)
	return Averages{
		Temp:    sum.Temp / n,
		SoilHum: sum.SoilHum / n,
		AirHum:  sum.AirHum / n,
		Light:   sum.Light / n,
	}, count, nil
}

func (c *fakeCycle) UpsertDailyAggregate(ctx context.Context, deviceID string, avg Averages, date time.Time) error {
	if c.purged {
		c.store.insertAfterPurge = true
	}
	day := date.Format("2006-01-02")
	for i, row := range c.aggregates {
		if row.deviceID == deviceID && row.date == day {
			c.aggregates[i].avg = avg
			return nil
		}
	}
	c.aggregates = append(c.aggregates, aggregateRow{deviceID: deviceID, avg: avg, date: day})
	return nil
}

func (c *fakeCycle) PurgeHistory(ctx context.Context) error {
	if c.store.purgeErr != nil {
		return c.store.purgeErr
	}
	c.history = nil
	c.purged = true
	return nil
}

func (c *fakeCycle) PruneAggregates(ctx context.Context, cutoff time.Time) error {
	if c.store.pruneErr != nil {
		return c.store.pruneErr
	}
	day := cutoff.Format("2006-01-02")
	kept := c.aggregates[:0]
	for _, row := range c.aggregates {
		if row.date >= day {
			kept = append(kept, row)
		}
	}
	c.aggregates = kept
	return nil
}

func (c *fakeCycle) Commit() error {
	c.store.history = c.history
	c.store.aggregates = c.aggregates
	c.committed = true
	return nil
}

func (c *fakeCycle) Rollback() error { return nil }

var runTime = time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)

func newTestEngine(store *fakeStore) *Engine {
	engine := New(store, config.RetentionConfig{
		HorizonDays:  7,
		RollupWindow: 24 * time.Hour,
	})
	engine.now = func() time.Time { return runTime }
	return engine
}

func flatRow(deviceID string, value float64, at time.Time) historyRow {
	return historyRow{deviceID: deviceID, temp: value, soilHum: value, airHum: value, light: value, at: at}
}

func findAggregate(t *testing.T, store *fakeStore, deviceID string) aggregateRow {
	t.Helper()
	for _, row := range store.aggregates {
		if row.deviceID == deviceID {
			return row
		}
	}
	t.Fatalf("no aggregate for device %s", deviceID)
	return aggregateRow{}
}

func TestRunCycleAveragesWindowedRows(t *testing.T) {
	store := &fakeStore{history: []historyRow{
		flatRow("dev-a", 10, runTime.Add(-2*time.Hour)),
		flatRow("dev-a", 20, runTime.Add(-12*time.Hour)),
		// Outside the 24h window: must not contribute.
		flatRow("dev-a", 1000, runTime.Add(-30*time.Hour)),
	}}

	if err := newTestEngine(store).RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}

	agg := findAggregate(t, store, "dev-a")
	if agg.avg.Temp != 15 {
		t.Fatalf("avg temp = %v, want 15 (mean of the two windowed rows)", agg.avg.Temp)
	}
	if agg.date != runTime.Format("2006-01-02") {
		t.Fatalf("aggregate date = %s, want run date", agg.date)
	}
	if len(store.history) != 0 {
		t.Fatalf("history rows after cycle = %d, want 0", len(store.history))
	}
}

func TestRunCycleSkipsDevicesWithNoWindowedRows(t *testing.T) {
	store := &fakeStore{history: []historyRow{
		flatRow("dev-stale", 50, runTime.Add(-48 * time.Hour)),
		flatRow("dev-live", 30, runTime.Add(-1*time.Hour)),
	}}

	if err := newTestEngine(store).RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}

	if len(store.aggregates) != 1 {
		t.Fatalf("aggregates = %d, want 1 (no degenerate row for dev-stale)", len(store.aggregates))
	}
	findAggregate(t, store, "dev-live")
	if len(store.history) != 0 {
		t.Fatal("history must be emptied even for unaggregated devices")
	}
}

func TestRunCyclePrunesRetentionHorizon(t *testing.T) {
	old := runTime.AddDate(0, 0, -8).Format("2006-01-02")
	edge := runTime.AddDate(0, 0, -7).Format("2006-01-02")
	recent := runTime.AddDate(0, 0, -6).Format("2006-01-02")

	store := &fakeStore{
		history: []historyRow{flatRow("dev-a", 10, runTime.Add(-time.Hour))},
		aggregates: []aggregateRow{
			{deviceID: "dev-a", date: old},
			{deviceID: "dev-a", date: edge},
			{deviceID: "dev-a", date: recent},
		},
	}

	if err := newTestEngine(store).RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}

	for _, row := range store.aggregates {
		if row.date < edge {
			t.Fatalf("aggregate dated %s survived pruning, horizon is 7 days", row.date)
		}
	}
	// Edge, recent, and today's new aggregate remain.
	if len(store.aggregates) != 3 {
		t.Fatalf("aggregates = %d, want 3", len(store.aggregates))
	}
}

func TestRunCycleIsolatesPerDeviceFailures(t *testing.T) {
	store := &fakeStore{
		history: []historyRow{
			flatRow("dev-bad", 10, runTime.Add(-time.Hour)),
			flatRow("dev-good", 40, runTime.Add(-time.Hour)),
		},
		averagesErr: map[string]error{"dev-bad": errors.New("corrupt rows")},
	}

	if err := newTestEngine(store).RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle must survive a per-device failure: %v", err)
	}

	agg := findAggregate(t, store, "dev-good")
	if agg.avg.Temp != 40 {
		t.Fatalf("avg temp = %v, want 40", agg.avg.Temp)
	}
	if len(store.aggregates) != 1 {
		t.Fatalf("aggregates = %d, want 1", len(store.aggregates))
	}
}

func TestRunCycleAbortsWithoutPartialDeletes(t *testing.T) {
	original := []aggregateRow{{deviceID: "dev-a", date: runTime.AddDate(0, 0, -10).Format("2006-01-02")}}
	store := &fakeStore{
		history:    []historyRow{flatRow("dev-a", 10, runTime.Add(-time.Hour))},
		aggregates: append([]aggregateRow(nil), original...),
		purgeErr:   errors.New("disk full"),
	}

	if err := newTestEngine(store).RunCycle(context.Background()); err == nil {
		t.Fatal("RunCycle must fail when the destructive phase fails")
	}

	// Nothing committed: history intact, stale aggregates intact.
	if len(store.history) != 1 {
		t.Fatalf("history rows = %d, want 1 (unchanged)", len(store.history))
	}
	if len(store.aggregates) != 1 || store.aggregates[0].date != original[0].date {
		t.Fatalf("aggregates changed on aborted cycle: %+v", store.aggregates)
	}
}

func TestRunCycleOrdersDestructivePhaseLast(t *testing.T) {
	store := &fakeStore{history: []historyRow{
		flatRow("dev-a", 10, runTime.Add(-time.Hour)),
		flatRow("dev-b", 20, runTime.Add(-time.Hour)),
		flatRow("dev-c", 30, runTime.Add(-time.Hour)),
	}}

	if err := newTestEngine(store).RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}
	if store.insertAfterPurge {
		t.Fatal("aggregate insert observed after history purge")
	}
	if len(store.aggregates) != 3 {
		t.Fatalf("aggregates = %d, want 3", len(store.aggregates))
	}
}

func TestRunCycleKeepsOneAggregatePerDeviceAndDate(t *testing.T) {
	store := &fakeStore{history: []historyRow{flatRow("dev-a", 10, runTime.Add(-time.Hour))}}
	engine := newTestEngine(store)

	if err := engine.RunCycle(context.Background()); err != nil {
		t.Fatalf("first cycle failed: %v", err)
	}

	// A rerun on the same date, with fresh check-ins in between, must
	// replace the day's row rather than duplicate it.
	store.history = []historyRow{flatRow("dev-a", 30, runTime.Add(-time.Minute))}
	if err := engine.RunCycle(context.Background()); err != nil {
		t.Fatalf("second cycle failed: %v", err)
	}

	if len(store.aggregates) != 1 {
		t.Fatalf("aggregates = %d, want 1", len(store.aggregates))
	}
	if got := store.aggregates[0].avg.Temp; got != 30 {
		t.Fatalf("avg temp = %v, want 30 (second run wins)", got)
	}
}
