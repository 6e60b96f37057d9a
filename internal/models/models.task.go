// FilePath: internal/models/models.task.go
package models

import (
	"fmt"
	"time"
)

// Task numbers (remote command types).
const (
	TaskIrrigate     = 0 // pulse the watering pump on next check-in
	TaskDecommission = 1 // pending-delete sentinel, consumed by the sweep
)

// Task statuses.
const (
	TaskStatusPending = 0
	TaskStatusDone    = 1
	TaskStatusFailed  = 2
)

// Task is a per-device remote command record. Devices poll their pending
// tasks and report status transitions; the decommission task doubles as
// the deletion-sweep sentinel.
type Task struct {
	TaskID     int64     `json:"task_id" db:"task_id"`
	DeviceID   string    `json:"device_id" db:"device_id"`
	TaskNumber int       `json:"task_number" db:"task_number"`
	Status     int       `json:"status" db:"status"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Validate checks the command type and status against the known sets.
func (t Task) Validate() error {
	if t.TaskNumber != TaskIrrigate && t.TaskNumber != TaskDecommission {
		return fmt.Errorf("invalid task_number value %d, allowed values: 0, 1", t.TaskNumber)
	}
	return ValidateTaskStatus(t.Status)
}

// ValidateTaskStatus checks a status transition target.
func ValidateTaskStatus(status int) error {
	switch status {
	case TaskStatusPending, TaskStatusDone, TaskStatusFailed:
		return nil
	default:
		return fmt.Errorf("invalid status value %d, allowed values: 0, 1, 2", status)
	}
}
