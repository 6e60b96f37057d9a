// FilePath: api/resources/api.resource.auth.go
package resources

import (
	"encoding/json"
	"net/http"

	"github.com/greenmind-iot/hub/api/middleware"
	"github.com/greenmind-iot/hub/internal/auth"
	"github.com/greenmind-iot/hub/internal/errors"
	nuts "github.com/vaudience/go-nuts"
)

// AuthHandlers encapsulates the token and pairing HTTP handlers
type AuthHandlers struct {
	gateway *auth.Gateway
}

type tokenRequest struct {
	DeviceID  string `json:"device_id"`
	UserLogin string `json:"user_login,omitempty"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type authorizeRequest struct {
	Code string `json:"code"`
}

type authorizeResponse struct {
	DeviceID string `json:"device_id"`
}

// @Summary Request an access token
// @Description Issue a short-lived bearer token for a known device; optionally scoped to the owning user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body tokenRequest true "Device identity"
// @Success 200 {object} tokenResponse
// @Failure 404 {object} errors.APIError
// @Failure 429 {object} errors.APIError
// @Router /auth/token [post]
func (h *AuthHandlers) RequestToken(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}
	if req.DeviceID == "" {
		respondWithError(w, errors.NewValidationError("device_id is required", nil).WithRequestID(requestID))
		return
	}

	clientAddr := middleware.ClientIP(r)
	signed, err := h.gateway.RequestToken(r.Context(), clientAddr, req.DeviceID, req.UserLogin)
	if err != nil {
		respondWithServiceError(w, err, "failed to issue token", requestID)
		return
	}

	respondWithJSON(w, http.StatusOK, tokenResponse{
		AccessToken: signed,
		TokenType:   "bearer",
	})
}

// @Summary Pair a new device
// @Description Exchange a one-time pairing code for a fresh device identity
// @Tags auth
// @Accept json
// @Produce json
// @Param request body authorizeRequest true "One-time pairing code"
// @Success 201 {object} authorizeResponse
// @Failure 400 {object} errors.APIError
// @Failure 502 {object} errors.APIError
// @Router /auth/authorize [post]
func (h *AuthHandlers) AuthorizeDevice(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var req authorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}
	if req.Code == "" {
		respondWithError(w, errors.NewValidationError("code is required", nil).WithRequestID(requestID))
		return
	}

	deviceID, err := h.gateway.AuthorizeDevice(r.Context(), req.Code)
	if err != nil {
		respondWithServiceError(w, err, "failed to pair device", requestID)
		return
	}

	respondWithJSON(w, http.StatusCreated, authorizeResponse{DeviceID: deviceID})
}
