// FilePath: internal/hubservice/hubservice.task.go
package hubservice

import (
	"context"

	"github.com/greenmind-iot/hub/internal/errors"
	"github.com/greenmind-iot/hub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// TaskService handles per-device remote command records
type TaskService interface {
	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, id int64) (*models.Task, error)
	UpdateTaskStatus(ctx context.Context, id int64, status int) error
	ListTasks(ctx context.Context, offset, limit int) ([]*models.Task, error)
	ListTasksForDevice(ctx context.Context, deviceID string, status *int) ([]*models.Task, error)
}

// CreateTask queues a command for a device
func (s *HubService) CreateTask(ctx context.Context, task *models.Task) error {
	if err := task.Validate(); err != nil {
		return errors.NewValidationError(err.Error(), err)
	}
	if _, err := s.Devices.Get(ctx, task.DeviceID); err != nil {
		return err
	}

	now := s.now()
	task.Status = models.TaskStatusPending
	task.CreatedAt = now
	task.UpdatedAt = now

	nuts.L.Infof("[TaskService] Queuing task %d for device %s", task.TaskNumber, task.DeviceID)
	return s.Tasks.Create(ctx, task)
}

// GetTask retrieves a single task
func (s *HubService) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	return s.Tasks.Get(ctx, id)
}

// UpdateTaskStatus records a device's report on a task. Only pending
// tasks can move; done and failed are terminal.
func (s *HubService) UpdateTaskStatus(ctx context.Context, id int64, status int) error {
	if err := models.ValidateTaskStatus(status); err != nil {
		return errors.NewValidationError(err.Error(), err)
	}

	task, err := s.Tasks.Get(ctx, id)
	if err != nil {
		return err
	}
	if task.Status != models.TaskStatusPending {
		return errors.NewConflictError("task already completed", nil)
	}
	if status == models.TaskStatusPending {
		return nil
	}

	nuts.L.Infof("[TaskService] Task %d on device %s: status %d -> %d", id, task.DeviceID, task.Status, status)
	return s.Tasks.UpdateStatus(ctx, id, status)
}

// ListTasks retrieves a paginated list over all devices
func (s *HubService) ListTasks(ctx context.Context, offset, limit int) ([]*models.Task, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.Tasks.List(ctx, offset, limit)
}

// ListTasksForDevice retrieves a device's tasks, optionally filtered by
// status. Devices poll this with a pending filter on check-in.
func (s *HubService) ListTasksForDevice(ctx context.Context, deviceID string, status *int) ([]*models.Task, error) {
	if status != nil {
		if err := models.ValidateTaskStatus(*status); err != nil {
			return nil, errors.NewValidationError(err.Error(), err)
		}
	}
	return s.Tasks.ListByDevice(ctx, deviceID, status)
}
