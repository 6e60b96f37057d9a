// FilePath: internal/sweep/sweep_test.go
package sweep

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeStore struct {
	mu       sync.Mutex
	pending  int
	pollErrs int
	polls    int
	purged   []string
	purgeErr error
}

func (f *fakeStore) PendingDecommissions(ctx context.Context, deviceID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.pollErrs > 0 {
		f.pollErrs--
		return 0, errors.New("connection reset")
	}
	return f.pending, nil
}

func (f *fakeStore) PurgeDevice(ctx context.Context, deviceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.purgeErr != nil {
		return f.purgeErr
	}
	f.purged = append(f.purged, deviceID)
	return nil
}

func (f *fakeStore) acknowledge() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = 0
}

func newTestWatcher(store Store, maxPolls int) *Watcher {
	w := New(store)
	w.maxPolls = maxPolls
	w.initialDelay = time.Millisecond
	w.maxDelay = 4 * time.Millisecond
	return w
}

func TestWatchPurgesAfterAcknowledgment(t *testing.T) {
	store := &fakeStore{pending: 1}
	w := newTestWatcher(store, 20)

	deleted := make(chan string, 1)
	w.OnSweep(EventDeviceDeleted, func(deviceID string) { deleted <- deviceID })

	go func() {
		time.Sleep(5 * time.Millisecond)
		store.acknowledge()
	}()

	if err := w.Watch(context.Background(), "dev-1"); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	if len(store.purged) != 1 || store.purged[0] != "dev-1" {
		t.Fatalf("purged = %v, want [dev-1]", store.purged)
	}

	select {
	case id := <-deleted:
		if id != "dev-1" {
			t.Fatalf("deleted event for %q, want dev-1", id)
		}
	case <-time.After(time.Second):
		t.Fatal("no deleted event emitted")
	}
}

func TestWatchGivesUpAfterPollBudget(t *testing.T) {
	store := &fakeStore{pending: 1}
	w := newTestWatcher(store, 3)

	gaveUp := make(chan string, 1)
	w.OnSweep(EventGiveUp, func(deviceID string) { gaveUp <- deviceID })

	if err := w.Watch(context.Background(), "dev-1"); err == nil {
		t.Fatal("Watch must fail when the device never acknowledges")
	}
	if store.polls != 3 {
		t.Fatalf("polls = %d, want 3", store.polls)
	}
	if len(store.purged) != 0 {
		t.Fatalf("purged = %v, want none", store.purged)
	}

	select {
	case <-gaveUp:
	case <-time.After(time.Second):
		t.Fatal("no giveup event emitted")
	}
}

func TestWatchSurvivesFlakyPolls(t *testing.T) {
	store := &fakeStore{pending: 0, pollErrs: 2}
	w := newTestWatcher(store, 10)

	if err := w.Watch(context.Background(), "dev-1"); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	if len(store.purged) != 1 {
		t.Fatalf("purged = %v, want [dev-1]", store.purged)
	}
	if store.polls != 3 {
		t.Fatalf("polls = %d, want 3 (two failures then success)", store.polls)
	}
}

func TestWatchStopsOnContextCancel(t *testing.T) {
	store := &fakeStore{pending: 1}
	w := newTestWatcher(store, 1000)
	w.initialDelay = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	err := w.Watch(ctx, "dev-1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if len(store.purged) != 0 {
		t.Fatalf("purged = %v, want none", store.purged)
	}
}
