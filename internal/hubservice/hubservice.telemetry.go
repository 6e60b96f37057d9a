// FilePath: internal/hubservice/hubservice.telemetry.go
package hubservice

import (
	"context"

	"github.com/greenmind-iot/hub/internal/errors"
	"github.com/greenmind-iot/hub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// TelemetryService handles sensor check-ins and aggregate queries
type TelemetryService interface {
	CheckIn(ctx context.Context, deviceID string, reading models.Reading) error
	GetLiveReading(ctx context.Context, deviceID string) (*models.LiveReading, error)
	ListLiveReadings(ctx context.Context) ([]*models.LiveReading, error)
	ListDailyAggregates(ctx context.Context, deviceID string, limit int) ([]*models.DailyAggregate, error)
}

// CheckIn records a device's sensor snapshot. The live reading is
// overwritten on every check-in; the history log gains a row only when
// the device's newest history row is older than the minimum interval,
// so a chatty device cannot inflate the rollup input.
func (s *HubService) CheckIn(ctx context.Context, deviceID string, reading models.Reading) error {
	if err := reading.Validate(); err != nil {
		return errors.NewValidationError(err.Error(), err)
	}

	if err := s.Telemetry.UpsertLiveReading(ctx, deviceID, reading); err != nil {
		return err
	}

	last, err := s.Telemetry.LastHistoryAt(ctx, deviceID)
	if err != nil {
		return err
	}
	now := s.now()
	if !last.IsZero() && now.Sub(last) < s.historyMinInterval {
		return nil
	}

	if err := s.Telemetry.AppendHistory(ctx, deviceID, reading, now); err != nil {
		return err
	}
	nuts.L.Debugf("[TelemetryService] History row appended for device %s", deviceID)
	return nil
}

// GetLiveReading retrieves a device's current sensor snapshot
func (s *HubService) GetLiveReading(ctx context.Context, deviceID string) (*models.LiveReading, error) {
	return s.Telemetry.GetLiveReading(ctx, deviceID)
}

// ListLiveReadings retrieves the current snapshot of every device
func (s *HubService) ListLiveReadings(ctx context.Context) ([]*models.LiveReading, error) {
	return s.Telemetry.ListLiveReadings(ctx)
}

// ListDailyAggregates retrieves a device's retained daily aggregates,
// newest first.
func (s *HubService) ListDailyAggregates(ctx context.Context, deviceID string, limit int) ([]*models.DailyAggregate, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	if _, err := s.Devices.Get(ctx, deviceID); err != nil {
		return nil, err
	}
	return s.Telemetry.ListDailyAggregates(ctx, deviceID, limit)
}
