// FilePath: internal/repository/postgres/postgres.device.go
package postgres

import (
	"context"
	"database/sql"

	"github.com/greenmind-iot/hub/internal/database"
	"github.com/greenmind-iot/hub/internal/errors"
	"github.com/greenmind-iot/hub/internal/models"
)

type DeviceRepo struct {
	PostgresBaseRepo
}

func NewDeviceRepository(db database.DB) *DeviceRepo {
	repo := &PostgresBaseRepo{db: db}
	return &DeviceRepo{PostgresBaseRepo: *repo}
}

func (r *DeviceRepo) Create(ctx context.Context, device *models.Device) error {
	query := `
		INSERT INTO devices (device_id, name, user_login, created_at, updated_at)
		VALUES (:device_id, :name, :user_login, :created_at, :updated_at)`

	_, err := r.db.GetDB().NamedExecContext(ctx, query, device)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.NewConflictError("device already exists", err)
		}
		return errors.NewDatabaseError("failed to create device", err)
	}
	return nil
}

func (r *DeviceRepo) CreateInTx(ctx context.Context, tx database.Transaction, device *models.Device) error {
	query := `
		INSERT INTO devices (device_id, name, user_login, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := tx.ExecContext(ctx, query,
		device.DeviceID, device.Name, device.UserLogin, device.CreatedAt, device.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.NewConflictError("device already exists", err)
		}
		return errors.NewDatabaseError("failed to create device", err)
	}
	return nil
}

func (r *DeviceRepo) Get(ctx context.Context, id string) (*models.Device, error) {
	device := &models.Device{}
	query := `SELECT * FROM devices WHERE device_id = $1`

	err := r.db.GetDB().GetContext(ctx, device, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("device not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get device", err)
	}
	return device, nil
}

func (r *DeviceRepo) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM devices WHERE device_id = $1)`

	err := r.db.GetDB().GetContext(ctx, &exists, query, id)
	if err != nil {
		return false, errors.NewDatabaseError("failed to check device existence", err)
	}
	return exists, nil
}

func (r *DeviceRepo) List(ctx context.Context, offset, limit int) ([]*models.Device, error) {
	devices := []*models.Device{}
	query := `SELECT * FROM devices ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	err := r.db.GetDB().SelectContext(ctx, &devices, query, limit, offset)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list devices", err)
	}
	return devices, nil
}

func (r *DeviceRepo) ListByUser(ctx context.Context, userLogin string) ([]*models.Device, error) {
	devices := []*models.Device{}
	query := `SELECT * FROM devices WHERE user_login = $1 ORDER BY created_at DESC`

	err := r.db.GetDB().SelectContext(ctx, &devices, query, userLogin)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list devices by user", err)
	}
	return devices, nil
}

func (r *DeviceRepo) AssignOwner(ctx context.Context, id, userLogin string) error {
	query := `UPDATE devices SET user_login = $1, updated_at = now() WHERE device_id = $2`

	result, err := r.db.GetDB().ExecContext(ctx, query, userLogin, id)
	if err != nil {
		return errors.NewDatabaseError("failed to assign device owner", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return errors.NewNotFoundError("device not found", nil)
	}
	return nil
}

func (r *DeviceRepo) Update(ctx context.Context, device *models.Device) error {
	query := `
		UPDATE devices SET
			name = :name,
			updated_at = :updated_at
		WHERE device_id = :device_id`

	result, err := r.db.GetDB().NamedExecContext(ctx, query, device)
	if err != nil {
		return errors.NewDatabaseError("failed to update device", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return errors.NewNotFoundError("device not found", nil)
	}
	return nil
}

func (r *DeviceRepo) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM devices WHERE device_id = $1`

	result, err := r.db.GetDB().ExecContext(ctx, query, id)
	if err != nil {
		return errors.NewDatabaseError("failed to delete device", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return errors.NewNotFoundError("device not found", nil)
	}
	return nil
}
