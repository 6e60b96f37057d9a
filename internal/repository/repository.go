// FilePath: internal/repository/repository.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/greenmind-iot/hub/internal/database"
	"github.com/greenmind-iot/hub/internal/models"
)

var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")
	// ErrDuplicate indicates that a resource already exists
	ErrDuplicate = errors.New("resource already exists")
	// ErrInvalidInput indicates that the input data is invalid
	ErrInvalidInput = errors.New("invalid input")
)

// DeviceRepository defines the interface for device identity operations
type DeviceRepository interface {
	database.Repository
	Create(ctx context.Context, device *models.Device) error
	// CreateInTx inserts a device inside a caller-owned transaction. The
	// pairing flow uses this so a failed partner registration rolls the
	// local row back.
	CreateInTx(ctx context.Context, tx database.Transaction, device *models.Device) error
	Get(ctx context.Context, id string) (*models.Device, error)
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, offset, limit int) ([]*models.Device, error)
	ListByUser(ctx context.Context, userLogin string) ([]*models.Device, error)
	AssignOwner(ctx context.Context, id, userLogin string) error
	Update(ctx context.Context, device *models.Device) error
	Delete(ctx context.Context, id string) error
}

// UserRepository defines the interface for user identity operations
type UserRepository interface {
	database.Repository
	Create(ctx context.Context, user *models.User) error
	Get(ctx context.Context, login string) (*models.User, error)
	List(ctx context.Context, offset, limit int) ([]*models.User, error)
}

// TelemetryRepository defines the interface for live readings, the
// recent-history log, and the retained daily aggregates
type TelemetryRepository interface {
	database.Repository
	UpsertLiveReading(ctx context.Context, deviceID string, reading models.Reading) error
	GetLiveReading(ctx context.Context, deviceID string) (*models.LiveReading, error)
	ListLiveReadings(ctx context.Context) ([]*models.LiveReading, error)
	AppendHistory(ctx context.Context, deviceID string, reading models.Reading, at time.Time) error
	// LastHistoryAt returns the timestamp of the device's newest history
	// row, or the zero time if the device has none.
	LastHistoryAt(ctx context.Context, deviceID string) (time.Time, error)
	ListDailyAggregates(ctx context.Context, deviceID string, limit int) ([]*models.DailyAggregate, error)
}

// TaskRepository defines the interface for per-device command records
type TaskRepository interface {
	database.Repository
	Create(ctx context.Context, task *models.Task) error
	Get(ctx context.Context, id int64) (*models.Task, error)
	UpdateStatus(ctx context.Context, id int64, status int) error
	List(ctx context.Context, offset, limit int) ([]*models.Task, error)
	ListByDevice(ctx context.Context, deviceID string, status *int) ([]*models.Task, error)
	CountPending(ctx context.Context, deviceID string, taskNumber int) (int, error)
	DeletePendingByDevice(ctx context.Context, deviceID string) error
}
