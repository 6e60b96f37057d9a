// FilePath: internal/hubservice/hubservice_test.go
package hubservice

import (
	"context"
	"testing"
	"time"

	"github.com/greenmind-iot/hub/internal/config"
	"github.com/greenmind-iot/hub/internal/database"
	"github.com/greenmind-iot/hub/internal/errors"
	"github.com/greenmind-iot/hub/internal/models"
)

// --- fakes ---

type fakeDeviceRepo struct {
	devices map[string]*models.Device
}

func (f *fakeDeviceRepo) BeginTx(ctx context.Context) (database.Transaction, error) { return nil, nil }
func (f *fakeDeviceRepo) Create(ctx context.Context, d *models.Device) error {
	f.devices[d.DeviceID] = d
	return nil
}
func (f *fakeDeviceRepo) CreateInTx(ctx context.Context, tx database.Transaction, d *models.Device) error {
	return f.Create(ctx, d)
}
func (f *fakeDeviceRepo) Get(ctx context.Context, id string) (*models.Device, error) {
	if d, ok := f.devices[id]; ok {
		return d, nil
	}
	return nil, errors.NewNotFoundError("device not found", nil)
}
func (f *fakeDeviceRepo) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := f.devices[id]
	return ok, nil
}
func (f *fakeDeviceRepo) List(ctx context.Context, offset, limit int) ([]*models.Device, error) {
	return nil, nil
}
func (f *fakeDeviceRepo) ListByUser(ctx context.Context, userLogin string) ([]*models.Device, error) {
	return nil, nil
}
func (f *fakeDeviceRepo) AssignOwner(ctx context.Context, id, userLogin string) error { return nil }
func (f *fakeDeviceRepo) Update(ctx context.Context, d *models.Device) error          { return nil }
func (f *fakeDeviceRepo) Delete(ctx context.Context, id string) error                 { return nil }

type fakeUserRepo struct {
	users map[string]*models.User
}

func (f *fakeUserRepo) BeginTx(ctx context.Context) (database.Transaction, error) { return nil, nil }
func (f *fakeUserRepo) Create(ctx context.Context, u *models.User) error {
	f.users[u.UserLogin] = u
	return nil
}
func (f *fakeUserRepo) Get(ctx context.Context, login string) (*models.User, error) {
	if u, ok := f.users[login]; ok {
		return u, nil
	}
	return nil, errors.NewNotFoundError("user not found", nil)
}
func (f *fakeUserRepo) List(ctx context.Context, offset, limit int) ([]*models.User, error) {
	return nil, nil
}

type fakeTelemetryRepo struct {
	live          map[string]models.Reading
	history       []models.HistoryEntry
	lastHistoryAt time.Time
}

func (f *fakeTelemetryRepo) BeginTx(ctx context.Context) (database.Transaction, error) {
	return nil, nil
}
func (f *fakeTelemetryRepo) UpsertLiveReading(ctx context.Context, deviceID string, r models.Reading) error {
	f.live[deviceID] = r
	return nil
}
func (f *fakeTelemetryRepo) GetLiveReading(ctx context.Context, deviceID string) (*models.LiveReading, error) {
	r, ok := f.live[deviceID]
	if !ok {
		return nil, errors.NewNotFoundError("no live reading", nil)
	}
	return &models.LiveReading{DeviceID: deviceID, Reading: r}, nil
}
func (f *fakeTelemetryRepo) ListLiveReadings(ctx context.Context) ([]*models.LiveReading, error) {
	return nil, nil
}
func (f *fakeTelemetryRepo) AppendHistory(ctx context.Context, deviceID string, r models.Reading, at time.Time) error {
	f.history = append(f.history, models.HistoryEntry{DeviceID: deviceID, Reading: r, CreatedAt: at})
	f.lastHistoryAt = at
	return nil
}
func (f *fakeTelemetryRepo) LastHistoryAt(ctx context.Context, deviceID string) (time.Time, error) {
	return f.lastHistoryAt, nil
}
func (f *fakeTelemetryRepo) ListDailyAggregates(ctx context.Context, deviceID string, limit int) ([]*models.DailyAggregate, error) {
	return nil, nil
}

type fakeTaskRepo struct {
	tasks  map[int64]*models.Task
	nextID int64
}

func (f *fakeTaskRepo) BeginTx(ctx context.Context) (database.Transaction, error) { return nil, nil }
func (f *fakeTaskRepo) Create(ctx context.Context, task *models.Task) error {
	f.nextID++
	task.TaskID = f.nextID
	copied := *task
	f.tasks[task.TaskID] = &copied
	return nil
}
func (f *fakeTaskRepo) Get(ctx context.Context, id int64) (*models.Task, error) {
	if t, ok := f.tasks[id]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, errors.NewNotFoundError("task not found", nil)
}
func (f *fakeTaskRepo) UpdateStatus(ctx context.Context, id int64, status int) error {
	t, ok := f.tasks[id]
	if !ok {
		return errors.NewNotFoundError("task not found", nil)
	}
	t.Status = status
	return nil
}
func (f *fakeTaskRepo) List(ctx context.Context, offset, limit int) ([]*models.Task, error) {
	return nil, nil
}
func (f *fakeTaskRepo) ListByDevice(ctx context.Context, deviceID string, status *int) ([]*models.Task, error) {
	out := []*models.Task{}
	for _, t := range f.tasks {
		if t.DeviceID != deviceID {
			continue
		}
		if status != nil && t.Status != *status {
			continue
		}
		copied := *t
		out = append(out, &copied)
	}
	return out, nil
}
func (f *fakeTaskRepo) CountPending(ctx context.Context, deviceID string, taskNumber int) (int, error) {
	count := 0
	for _, t := range f.tasks {
		if t.DeviceID == deviceID && t.TaskNumber == taskNumber && t.Status == models.TaskStatusPending {
			count++
		}
	}
	return count, nil
}
func (f *fakeTaskRepo) DeletePendingByDevice(ctx context.Context, deviceID string) error {
	for id, t := range f.tasks {
		if t.DeviceID == deviceID && t.Status == models.TaskStatusPending {
			delete(f.tasks, id)
		}
	}
	return nil
}

type fakeSweepStore struct {
	purged chan string
}

func (f *fakeSweepStore) PendingDecommissions(ctx context.Context, deviceID string) (int, error) {
	return 0, nil
}
func (f *fakeSweepStore) PurgeDevice(ctx context.Context, deviceID string) error {
	f.purged <- deviceID
	return nil
}

type testEnv struct {
	svc       *HubService
	devices   *fakeDeviceRepo
	users     *fakeUserRepo
	telemetry *fakeTelemetryRepo
	tasks     *fakeTaskRepo
	sweep     *fakeSweepStore
}

func newTestEnv() *testEnv {
	env := &testEnv{
		devices:   &fakeDeviceRepo{devices: map[string]*models.Device{}},
		users:     &fakeUserRepo{users: map[string]*models.User{}},
		telemetry: &fakeTelemetryRepo{live: map[string]models.Reading{}},
		tasks:     &fakeTaskRepo{tasks: map[int64]*models.Task{}},
		sweep:     &fakeSweepStore{purged: make(chan string, 1)},
	}
	env.svc = New(env.devices, env.users, env.telemetry, env.tasks, env.sweep, config.RetentionConfig{
		HistoryMinInterval: time.Hour,
	})
	return env
}

func validReading() models.Reading {
	return models.Reading{Temp: 21.5, SoilHum: 30000, AirHum: 55, Light: 12000}
}

// --- tests ---

func TestCheckIn(t *testing.T) {
	ctx := context.Background()

	t.Run("first check-in appends history", func(t *testing.T) {
		env := newTestEnv()
		if err := env.svc.CheckIn(ctx, "dev-1", validReading()); err != nil {
			t.Fatalf("CheckIn failed: %v", err)
		}
		if len(env.telemetry.history) != 1 {
			t.Fatalf("history rows = %d, want 1", len(env.telemetry.history))
		}
		if _, ok := env.telemetry.live["dev-1"]; !ok {
			t.Fatal("live reading not stored")
		}
	})

	t.Run("check-in inside the interval only updates live", func(t *testing.T) {
		env := newTestEnv()
		base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
		env.svc.now = func() time.Time { return base }
		if err := env.svc.CheckIn(ctx, "dev-1", validReading()); err != nil {
			t.Fatalf("CheckIn failed: %v", err)
		}

		env.svc.now = func() time.Time { return base.Add(30 * time.Minute) }
		updated := validReading()
		updated.Temp = 25
		if err := env.svc.CheckIn(ctx, "dev-1", updated); err != nil {
			t.Fatalf("CheckIn failed: %v", err)
		}

		if len(env.telemetry.history) != 1 {
			t.Fatalf("history rows = %d, want 1 (30min is inside the 1h interval)", len(env.telemetry.history))
		}
		if env.telemetry.live["dev-1"].Temp != 25 {
			t.Fatal("live reading must still be overwritten")
		}
	})

	t.Run("check-in past the interval appends again", func(t *testing.T) {
		env := newTestEnv()
		base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
		env.svc.now = func() time.Time { return base }
		if err := env.svc.CheckIn(ctx, "dev-1", validReading()); err != nil {
			t.Fatalf("CheckIn failed: %v", err)
		}

		env.svc.now = func() time.Time { return base.Add(61 * time.Minute) }
		if err := env.svc.CheckIn(ctx, "dev-1", validReading()); err != nil {
			t.Fatalf("CheckIn failed: %v", err)
		}
		if len(env.telemetry.history) != 2 {
			t.Fatalf("history rows = %d, want 2", len(env.telemetry.history))
		}
	})

	t.Run("out-of-range reading is rejected before any write", func(t *testing.T) {
		env := newTestEnv()
		bad := validReading()
		bad.Temp = 101

		err := env.svc.CheckIn(ctx, "dev-1", bad)
		if !errors.IsValidation(err) {
			t.Fatalf("error = %v, want validation", err)
		}
		if len(env.telemetry.live) != 0 || len(env.telemetry.history) != 0 {
			t.Fatal("rejected check-in must not write anything")
		}
	})
}

func TestUpdateTaskStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("pending task moves to done", func(t *testing.T) {
		env := newTestEnv()
		env.devices.devices["dev-1"] = &models.Device{DeviceID: "dev-1"}
		task := &models.Task{DeviceID: "dev-1", TaskNumber: models.TaskIrrigate}
		if err := env.svc.CreateTask(ctx, task); err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}

		if err := env.svc.UpdateTaskStatus(ctx, task.TaskID, models.TaskStatusDone); err != nil {
			t.Fatalf("UpdateTaskStatus failed: %v", err)
		}
		got, _ := env.tasks.Get(ctx, task.TaskID)
		if got.Status != models.TaskStatusDone {
			t.Fatalf("status = %d, want done", got.Status)
		}
	})

	t.Run("terminal task cannot move", func(t *testing.T) {
		env := newTestEnv()
		env.devices.devices["dev-1"] = &models.Device{DeviceID: "dev-1"}
		task := &models.Task{DeviceID: "dev-1", TaskNumber: models.TaskIrrigate}
		if err := env.svc.CreateTask(ctx, task); err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}
		if err := env.svc.UpdateTaskStatus(ctx, task.TaskID, models.TaskStatusDone); err != nil {
			t.Fatalf("UpdateTaskStatus failed: %v", err)
		}

		err := env.svc.UpdateTaskStatus(ctx, task.TaskID, models.TaskStatusFailed)
		if !errors.IsConflict(err) {
			t.Fatalf("error = %v, want conflict", err)
		}
	})

	t.Run("unknown status is rejected", func(t *testing.T) {
		env := newTestEnv()
		if err := env.svc.UpdateTaskStatus(ctx, 1, 7); !errors.IsValidation(err) {
			t.Fatalf("error = %v, want validation", err)
		}
	})

	t.Run("unknown task number is rejected", func(t *testing.T) {
		env := newTestEnv()
		env.devices.devices["dev-1"] = &models.Device{DeviceID: "dev-1"}
		task := &models.Task{DeviceID: "dev-1", TaskNumber: 9}
		if err := env.svc.CreateTask(ctx, task); !errors.IsValidation(err) {
			t.Fatalf("error = %v, want validation", err)
		}
	})
}

func TestDeleteDevice(t *testing.T) {
	ctx := context.Background()

	env := newTestEnv()
	env.devices.devices["dev-1"] = &models.Device{DeviceID: "dev-1"}
	stale := &models.Task{DeviceID: "dev-1", TaskNumber: models.TaskIrrigate, Status: models.TaskStatusPending}
	if err := env.tasks.Create(ctx, stale); err != nil {
		t.Fatalf("seeding task failed: %v", err)
	}

	if err := env.svc.DeleteDevice(ctx, "dev-1"); err != nil {
		t.Fatalf("DeleteDevice failed: %v", err)
	}

	// The stale pending task is gone; only the decommission order remains.
	pending := models.TaskStatusPending
	tasks, err := env.tasks.ListByDevice(ctx, "dev-1", &pending)
	if err != nil {
		t.Fatalf("ListByDevice failed: %v", err)
	}
	if len(tasks) != 1 || tasks[0].TaskNumber != models.TaskDecommission {
		t.Fatalf("pending tasks = %+v, want one decommission order", tasks)
	}

	// The watcher sees an acknowledged order and purges.
	select {
	case id := <-env.sweep.purged:
		if id != "dev-1" {
			t.Fatalf("purged %q, want dev-1", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("device was never purged")
	}
}

func TestDeleteDeviceUnknown(t *testing.T) {
	env := newTestEnv()
	if err := env.svc.DeleteDevice(context.Background(), "nope"); !errors.IsNotFound(err) {
		t.Fatalf("error = %v, want not found", err)
	}
}
