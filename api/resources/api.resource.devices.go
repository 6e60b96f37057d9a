// FilePath: api/resources/api.resource.devices.go
package resources

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/greenmind-iot/hub/internal/errors"
	"github.com/greenmind-iot/hub/internal/hubservice"
	"github.com/greenmind-iot/hub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// DeviceHandlers encapsulates the device-related HTTP handlers
type DeviceHandlers struct {
	hubservice *hubservice.HubService
}

// @Summary Create a device
// @Description Register a pre-provisioned device directly, without the pairing handshake
// @Tags devices
// @Accept json
// @Produce json
// @Param device body models.Device true "Device details"
// @Success 201 {object} models.Device
// @Failure 400 {object} errors.APIError
// @Failure 409 {object} errors.APIError
// @Router /devices [post]
// @Security BearerAuth
func (h *DeviceHandlers) CreateDevice(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var device models.Device
	if err := json.NewDecoder(r.Body).Decode(&device); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	if err := h.hubservice.CreateDevice(r.Context(), &device); err != nil {
		respondWithServiceError(w, err, "failed to create device", requestID)
		return
	}

	respondWithJSON(w, http.StatusCreated, device)
}

// @Summary List devices
// @Description Get a paginated list of devices
// @Tags devices
// @Produce json
// @Param offset query int false "Offset for pagination"
// @Param limit query int false "Limit for pagination"
// @Success 200 {array} models.Device
// @Router /devices [get]
// @Security BearerAuth
func (h *DeviceHandlers) ListDevices(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	offset, limit := getPaginationParams(r)

	devices, err := h.hubservice.ListDevices(r.Context(), offset, limit)
	if err != nil {
		respondWithServiceError(w, err, "failed to list devices", requestID)
		return
	}

	respondWithJSON(w, http.StatusOK, devices)
}

// @Summary Get the calling device
// @Description Get the device record behind the presented token
// @Tags devices
// @Produce json
// @Success 200 {object} models.Device
// @Failure 404 {object} errors.APIError
// @Router /devices/me [get]
// @Security BearerAuth
func (h *DeviceHandlers) GetOwnDevice(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	deviceID := hubservice.GetSubject(r.Context())

	device, err := h.hubservice.GetDevice(r.Context(), deviceID)
	if err != nil {
		respondWithServiceError(w, err, "failed to get device", requestID)
		return
	}

	respondWithJSON(w, http.StatusOK, device)
}

// @Summary Update a device
// @Description Update an existing device's details
// @Tags devices
// @Accept json
// @Produce json
// @Param id path string true "Device ID"
// @Param device body models.Device true "Updated device details"
// @Success 200 {object} models.Device
// @Failure 400 {object} errors.APIError
// @Failure 404 {object} errors.APIError
// @Router /devices/{id} [put]
// @Security BearerAuth
func (h *DeviceHandlers) UpdateDevice(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	var device models.Device
	if err := json.NewDecoder(r.Body).Decode(&device); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	device.DeviceID = id
	if err := h.hubservice.UpdateDevice(r.Context(), &device); err != nil {
		respondWithServiceError(w, err, "failed to update device", requestID)
		return
	}

	respondWithJSON(w, http.StatusOK, device)
}

type ownerRequest struct {
	UserLogin string `json:"user_login"`
}

// @Summary Assign a device owner
// @Description Bind a device to an owner account
// @Tags devices
// @Accept json
// @Produce json
// @Param id path string true "Device ID"
// @Param owner body ownerRequest true "Owner login"
// @Success 204 "No Content"
// @Failure 400 {object} errors.APIError
// @Failure 404 {object} errors.APIError
// @Router /devices/{id}/owner [put]
// @Security BearerAuth
func (h *DeviceHandlers) AssignOwner(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	requestID := nuts.NID("req", 12)

	var req ownerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}
	if req.UserLogin == "" {
		respondWithError(w, errors.NewValidationError("user_login is required", nil).WithRequestID(requestID))
		return
	}

	if err := h.hubservice.AssignDeviceOwner(r.Context(), vars["id"], req.UserLogin); err != nil {
		respondWithServiceError(w, err, "failed to assign device owner", requestID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary Decommission the calling device
// @Description Queue a decommission order; the device's data is purged once the order is acknowledged
// @Tags devices
// @Produce json
// @Success 202 "Accepted"
// @Failure 404 {object} errors.APIError
// @Router /devices/me [delete]
// @Security BearerAuth
func (h *DeviceHandlers) DeleteOwnDevice(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	deviceID := hubservice.GetSubject(r.Context())

	if err := h.hubservice.DeleteDevice(r.Context(), deviceID); err != nil {
		respondWithServiceError(w, err, "failed to decommission device", requestID)
		return
	}

	// Deletion completes asynchronously after the device acknowledges.
	w.WriteHeader(http.StatusAccepted)
}
