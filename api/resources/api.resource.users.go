// FilePath: api/resources/api.resource.users.go
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

// UserHandlers encapsulates the owner account HTTP handlers
type UserHandlers struct {
	hubservice *hubservice.HubService
}

// @Summary Create a user
// @Description Register a new owner account
// @Tags users
// @Accept json
// @Produce json
// @Param user body models.User true "User details"
// @Success 201 {object} models.User
// @Failure 400 {object} errors.APIError
// @Failure 409 {object} errors.APIError
// @Router /users [post]
// @Security BearerAuth
func (h *UserHandlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var user models.User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	if err := h.hubservice.CreateUser(r.Context(), &user); err != nil {
		respondWithServiceError(w, err, "failed to create user", requestID)
		return
	}

	respondWithJSON(w, http.StatusCreated, user)
}

// @Summary List users
// @Description Get a paginated list of owner accounts
// @Tags users
// @Produce json
// @Param offset query int false "Offset for pagination"
// @Param limit query int false "Limit for pagination"
// @Success 200 {array} models.User
// @Router /users [get]
// @Security BearerAuth
func (h *UserHandlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	offset, limit := getPaginationParams(r)

	users, err := h.hubservice.ListUsers(r.Context(), offset, limit)
	if err != nil {
		respondWithServiceError(w, err, "failed to list users", requestID)
		return
	}

	respondWithJSON(w, http.StatusOK, users)
}

// @Summary List a user's devices
// @Description Get the devices owned by one user
// @Tags users
// @Produce json
// @Param login path string true "User login"
// @Success 200 {array} models.Device
// @Failure 404 {object} errors.APIError
// @Router /users/{login}/devices [get]
// @Security BearerAuth
func (h *UserHandlers) ListUserDevices(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	requestID := nuts.NID("req", 12)

	if _, err := h.hubservice.GetUser(r.Context(), vars["login"]); err != nil {
		respondWithServiceError(w, err, "failed to get user", requestID)
		return
	}

	devices, err := h.hubservice.ListDevicesByUser(r.Context(), vars["login"])
	if err != nil {
		respondWithServiceError(w, err, "failed to list user devices", requestID)
		return
	}

	respondWithJSON(w, http.StatusOK, devices)
}
