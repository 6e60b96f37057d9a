// FilePath: api/resources/api.resource.telemetry.go
package resources

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/schema"
	"github.com/greenmind-iot/hub/internal/errors"
	"github.com/greenmind-iot/hub/internal/hubservice"
	"github.com/greenmind-iot/hub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// TelemetryHandlers encapsulates the check-in and aggregate HTTP handlers
type TelemetryHandlers struct {
	hubservice *hubservice.HubService
}

var queryDecoder = schema.NewDecoder()

func init() {
	queryDecoder.IgnoreUnknownKeys(true)
}

type historyQuery struct {
	Limit int `schema:"limit"`
}

// @Summary Report a sensor reading
// @Description Record the calling device's current sensor snapshot
// @Tags telemetry
// @Accept json
// @Produce json
// @Param reading body models.Reading true "Sensor reading"
// @Success 204 "No Content"
// @Failure 400 {object} errors.APIError
// @Router /devices/me/data [put]
// @Security BearerAuth
func (h *TelemetryHandlers) CheckIn(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	deviceID := hubservice.GetSubject(r.Context())

	var reading models.Reading
	if err := json.NewDecoder(r.Body).Decode(&reading); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	if err := h.hubservice.CheckIn(r.Context(), deviceID, reading); err != nil {
		respondWithServiceError(w, err, "failed to record reading", requestID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary Get the calling device's live reading
// @Description Get the current sensor snapshot for the device behind the presented token
// @Tags telemetry
// @Produce json
// @Success 200 {object} models.LiveReading
// @Failure 404 {object} errors.APIError
// @Router /devices/me/data [get]
// @Security BearerAuth
func (h *TelemetryHandlers) GetOwnLiveReading(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	deviceID := hubservice.GetSubject(r.Context())

	reading, err := h.hubservice.GetLiveReading(r.Context(), deviceID)
	if err != nil {
		respondWithServiceError(w, err, "failed to get live reading", requestID)
		return
	}

	respondWithJSON(w, http.StatusOK, reading)
}

// @Summary List all live readings
// @Description Get the current sensor snapshot of every device
// @Tags telemetry
// @Produce json
// @Success 200 {array} models.LiveReading
// @Router /data [get]
// @Security BearerAuth
func (h *TelemetryHandlers) ListLiveReadings(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	readings, err := h.hubservice.ListLiveReadings(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "failed to list live readings", requestID)
		return
	}

	respondWithJSON(w, http.StatusOK, readings)
}

// @Summary Get the calling device's daily aggregates
// @Description Get the retained daily aggregates for the device behind the presented token, newest first
// @Tags telemetry
// @Produce json
// @Param limit query int false "Maximum number of aggregates"
// @Success 200 {array} models.DailyAggregate
// @Failure 404 {object} errors.APIError
// @Router /devices/me/history [get]
// @Security BearerAuth
func (h *TelemetryHandlers) GetOwnHistory(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	deviceID := hubservice.GetSubject(r.Context())

	var query historyQuery
	if err := queryDecoder.Decode(&query, r.URL.Query()); err != nil {
		respondWithError(w, errors.NewValidationError("invalid query parameters", err).WithRequestID(requestID))
		return
	}

	aggregates, err := h.hubservice.ListDailyAggregates(r.Context(), deviceID, query.Limit)
	if err != nil {
		respondWithServiceError(w, err, "failed to list daily aggregates", requestID)
		return
	}

	respondWithJSON(w, http.StatusOK, aggregates)
}
