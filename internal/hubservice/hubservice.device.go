// FilePath: internal/hubservice/hubservice.device.go
package hubservice

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/greenmind-iot/hub/internal/errors"
	"github.com/greenmind-iot/hub/internal/models"
	"github.com/itsatony/struccy"
	nuts "github.com/vaudience/go-nuts"
)

// DeviceService handles device-related business logic
type DeviceService interface {
	CreateDevice(ctx context.Context, device *models.Device) error
	GetDevice(ctx context.Context, id string) (*models.Device, error)
	ListDevices(ctx context.Context, offset, limit int) ([]*models.Device, error)
	ListDevicesByUser(ctx context.Context, userLogin string) ([]*models.Device, error)
	UpdateDevice(ctx context.Context, device *models.Device) error
	AssignDeviceOwner(ctx context.Context, id, userLogin string) error
	DeleteDevice(ctx context.Context, id string) error
}

// CreateDevice registers a device directly, bypassing the pairing
// handshake. Operators use this for pre-provisioned units.
func (s *HubService) CreateDevice(ctx context.Context, device *models.Device) error {
	if device.DeviceID == "" {
		device.DeviceID = uuid.NewString()
	}
	if device.UserLogin.Valid {
		if _, err := s.Users.Get(ctx, device.UserLogin.String); err != nil {
			return err
		}
	}

	now := s.now()
	device.CreatedAt = now
	device.UpdatedAt = now

	nuts.L.Infof("[DeviceService] Creating device %s", device.DeviceID)
	return s.Devices.Create(ctx, device)
}

// GetDevice retrieves a device with role-based field filtering
func (s *HubService) GetDevice(ctx context.Context, id string) (*models.Device, error) {
	device, err := s.Devices.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return filterDevice(ctx, device)
}

// ListDevices retrieves a paginated list of devices with role-based filtering
func (s *HubService) ListDevices(ctx context.Context, offset, limit int) ([]*models.Device, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	devices, err := s.Devices.List(ctx, offset, limit)
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.Device, 0, len(devices))
	for _, device := range devices {
		fd, err := filterDevice(ctx, device)
		if err != nil {
			nuts.L.Warnf("[DeviceService] Failed to filter device %s: %v", device.DeviceID, err)
			continue
		}
		filtered = append(filtered, fd)
	}
	return filtered, nil
}

// ListDevicesByUser retrieves the devices owned by one user
func (s *HubService) ListDevicesByUser(ctx context.Context, userLogin string) ([]*models.Device, error) {
	return s.Devices.ListByUser(ctx, userLogin)
}

// UpdateDevice updates an existing device with role-based access control
func (s *HubService) UpdateDevice(ctx context.Context, device *models.Device) error {
	existing, err := s.Devices.Get(ctx, device.DeviceID)
	if err != nil {
		return err
	}

	roles := GetUserRoles(ctx)
	updatedFields, _, err := struccy.UpdateStructFields(existing, device, roles, true, true)
	if err != nil {
		return errors.NewAuthorizationError("unauthorized field update", err)
	}

	device.UpdatedAt = time.Now()

	nuts.L.Infof("[DeviceService] Updating device %s, fields changed: %v", device.DeviceID, updatedFields)
	return s.Devices.Update(ctx, device)
}

// AssignDeviceOwner binds a device to a user; the user must exist.
func (s *HubService) AssignDeviceOwner(ctx context.Context, id, userLogin string) error {
	if _, err := s.Users.Get(ctx, userLogin); err != nil {
		return err
	}
	if _, err := s.Devices.Get(ctx, id); err != nil {
		return err
	}

	nuts.L.Infof("[DeviceService] Assigning device %s to user %s", id, userLogin)
	return s.Devices.AssignOwner(ctx, id, userLogin)
}

// DeleteDevice starts the two-phase decommission: pending tasks are
// cleared, a decommission order is queued for the device to pick up on
// its next check-in, and a background watcher purges the device's data
// once the order is acknowledged. The device row survives until the
// purge so the device can still authenticate to fetch the order.
func (s *HubService) DeleteDevice(ctx context.Context, id string) error {
	if _, err := s.Devices.Get(ctx, id); err != nil {
		return err
	}

	if err := s.Tasks.DeletePendingByDevice(ctx, id); err != nil {
		return err
	}

	now := s.now()
	order := &models.Task{
		DeviceID:   id,
		TaskNumber: models.TaskDecommission,
		Status:     models.TaskStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Tasks.Create(ctx, order); err != nil {
		return err
	}

	nuts.L.Infof("[DeviceService] Decommission order queued for device %s", id)

	// Detached from the request context: the watcher outlives the
	// HTTP request that ordered the deletion.
	go func() {
		if err := s.Sweep.Watch(context.Background(), id); err != nil {
			nuts.L.Warnf("[DeviceService] Sweep for device %s ended without purge: %v", id, err)
		}
	}()
	return nil
}

func filterDevice(ctx context.Context, device *models.Device) (*models.Device, error) {
	roles := GetUserRoles(ctx)

	filteredMap, err := struccy.StructToMapFieldsWithReadXS(device, roles)
	if err != nil {
		return nil, errors.NewInternalError("failed to filter device fields", err)
	}
	filtered := &models.Device{}
	if _, err := struccy.MergeMapStringFieldsToStruct(filtered, filteredMap, roles); err != nil {
		return nil, errors.NewInternalError("failed to map filtered fields to device struct", err)
	}
	return filtered, nil
}
