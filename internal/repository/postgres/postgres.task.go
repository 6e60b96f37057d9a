// FilePath: internal/repository/postgres/postgres.task.go
package postgres

import (
	"context"
	"database/sql"

	"github.com/greenmind-iot/hub/internal/database"
	"github.com/greenmind-iot/hub/internal/errors"
	"github.com/greenmind-iot/hub/internal/models"
)

type TaskRepo struct {
	PostgresBaseRepo
}

func NewTaskRepository(db database.DB) *TaskRepo {
	repo := &PostgresBaseRepo{db: db}
	return &TaskRepo{PostgresBaseRepo: *repo}
}

func (r *TaskRepo) Create(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (device_id, task_number, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING task_id`

	err := r.db.GetDB().QueryRowContext(ctx, query,
		task.DeviceID, task.TaskNumber, task.Status, task.CreatedAt, task.UpdatedAt).
		Scan(&task.TaskID)
	if err != nil {
		return errors.NewDatabaseError("failed to create task", err)
	}
	return nil
}

func (r *TaskRepo) Get(ctx context.Context, id int64) (*models.Task, error) {
	task := &models.Task{}
	query := `SELECT * FROM tasks WHERE task_id = $1`

	err := r.db.GetDB().GetContext(ctx, task, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("task not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get task", err)
	}
	return task, nil
}

func (r *TaskRepo) UpdateStatus(ctx context.Context, id int64, status int) error {
	query := `UPDATE tasks SET status = $1, updated_at = now() WHERE task_id = $2`

	result, err := r.db.GetDB().ExecContext(ctx, query, status, id)
	if err != nil {
		return errors.NewDatabaseError("failed to update task status", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return errors.NewNotFoundError("task not found", nil)
	}
	return nil
}

func (r *TaskRepo) List(ctx context.Context, offset, limit int) ([]*models.Task, error) {
	tasks := []*models.Task{}
	query := `SELECT * FROM tasks ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	err := r.db.GetDB().SelectContext(ctx, &tasks, query, limit, offset)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list tasks", err)
	}
	return tasks, nil
}

func (r *TaskRepo) ListByDevice(ctx context.Context, deviceID string, status *int) ([]*models.Task, error) {
	tasks := []*models.Task{}

	if status != nil {
		query := `SELECT * FROM tasks WHERE device_id = $1 AND status = $2 ORDER BY created_at`
		err := r.db.GetDB().SelectContext(ctx, &tasks, query, deviceID, *status)
		if err != nil {
			return nil, errors.NewDatabaseError("failed to list tasks by device", err)
		}
		return tasks, nil
	}

	query := `SELECT * FROM tasks WHERE device_id = $1 ORDER BY created_at`
	err := r.db.GetDB().SelectContext(ctx, &tasks, query, deviceID)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list tasks by device", err)
	}
	return tasks, nil
}

func (r *TaskRepo) CountPending(ctx context.Context, deviceID string, taskNumber int) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM tasks WHERE device_id = $1 AND task_number = $2 AND status = $3`

	err := r.db.GetDB().GetContext(ctx, &count, query, deviceID, taskNumber, models.TaskStatusPending)
	if err != nil {
		return 0, errors.NewDatabaseError("failed to count pending tasks", err)
	}
	return count, nil
}

func (r *TaskRepo) DeletePendingByDevice(ctx context.Context, deviceID string) error {
	query := `DELETE FROM tasks WHERE device_id = $1 AND status = $2`

	_, err := r.db.GetDB().ExecContext(ctx, query, deviceID, models.TaskStatusPending)
	if err != nil {
		return errors.NewDatabaseError("failed to delete pending tasks", err)
	}
	return nil
}
