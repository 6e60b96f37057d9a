// FilePath: internal/sweep/sweep.go
package sweep

import (
	"context"
	"time"

	"github.com/greenmind-iot/hub/internal/errors"
	nuts "github.com/vaudience/go-nuts"
)

// Events emitted by the watcher.
const (
	EventDeviceDeleted = "device.deleted"
	EventGiveUp        = "device.cleanup.giveup"
)

const (
	defaultMaxPolls     = 60
	defaultInitialDelay = 5 * time.Second
	defaultMaxDelay     = 30 * time.Second
)

// Store is what the watcher needs from storage: the number of
// unacknowledged decommission orders for a device, and the purge that
// removes the device with everything hanging off it.
type Store interface {
	PendingDecommissions(ctx context.Context, deviceID string) (int, error)
	PurgeDevice(ctx context.Context, deviceID string) error
}

// Watcher waits for a device to acknowledge its decommission order and
// then purges the device's data. Devices only learn about orders on
// their next check-in, so the wait is a poll loop with backoff, bounded
// so an offline device cannot pin a goroutine forever.
type Watcher struct {
	store  Store
	events *nuts.EventEmitter

	maxPolls     int
	initialDelay time.Duration
	maxDelay     time.Duration
}

// New creates a Watcher with default poll bounds.
func New(store Store) *Watcher {
	return &Watcher{
		store:        store,
		events:       nuts.NewEventEmitter(),
		maxPolls:     defaultMaxPolls,
		initialDelay: defaultInitialDelay,
		maxDelay:     defaultMaxDelay,
	}
}

// Watch blocks until the device has acknowledged its decommission order,
// then purges it, or until the poll budget or ctx runs out. Intended to
// run as a goroutine per decommissioned device.
func (w *Watcher) Watch(ctx context.Context, deviceID string) error {
	delay := w.initialDelay

	for attempt := 0; attempt < w.maxPolls; attempt++ {
		pending, err := w.store.PendingDecommissions(ctx, deviceID)
		if err != nil {
			// A flaky poll is not a reason to abandon the device; the
			// budget still bounds the loop.
			nuts.L.Warnf("[Sweep] Poll %d for device %s failed: %v", attempt+1, deviceID, err)
		} else if pending == 0 {
			if err := w.store.PurgeDevice(ctx, deviceID); err != nil {
				return err
			}
			nuts.L.Infof("[Sweep] Device %s acknowledged decommission, purged after %d polls", deviceID, attempt+1)
			w.events.Emit(EventDeviceDeleted, deviceID)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > w.maxDelay {
			delay = w.maxDelay
		}
	}

	nuts.L.Warnf("[Sweep] Device %s never acknowledged decommission, giving up after %d polls", deviceID, w.maxPolls)
	w.events.Emit(EventGiveUp, deviceID)
	return errors.NewInternalError("device never acknowledged decommission", nil)
}

// OnSweep registers a callback for one of the watcher's events.
func (w *Watcher) OnSweep(event string, handler func(deviceID string)) {
	w.events.On(event, "sweep_handler", func(deviceID string) {
		handler(deviceID)
	})
}
