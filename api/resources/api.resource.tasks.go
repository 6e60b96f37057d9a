// FilePath: api/resources/api.resource.tasks.go
package resources

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/greenmind-iot/hub/internal/errors"
	"github.com/greenmind-iot/hub/internal/hubservice"
	"github.com/greenmind-iot/hub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// TaskHandlers encapsulates the remote command HTTP handlers
type TaskHandlers struct {
	hubservice *hubservice.HubService
}

type taskQuery struct {
	Status *int `schema:"status"`
}

type taskStatusRequest struct {
	Status int `json:"status"`
}

// @Summary Queue a task for a device
// @Description Queue a remote command that the device picks up on its next check-in
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path string true "Device ID"
// @Param task body models.Task true "Task details"
// @Success 201 {object} models.Task
// @Failure 400 {object} errors.APIError
// @Failure 404 {object} errors.APIError
// @Router /devices/{id}/tasks [post]
// @Security BearerAuth
func (h *TaskHandlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	requestID := nuts.NID("req", 12)

	var task models.Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	task.DeviceID = vars["id"]
	if err := h.hubservice.CreateTask(r.Context(), &task); err != nil {
		respondWithServiceError(w, err, "failed to create task", requestID)
		return
	}

	respondWithJSON(w, http.StatusCreated, task)
}

// @Summary List the calling device's tasks
// @Description Get the tasks queued for the device behind the presented token, optionally filtered by status
// @Tags tasks
// @Produce json
// @Param status query int false "Status filter (0 pending, 1 done, 2 failed)"
// @Success 200 {array} models.Task
// @Failure 400 {object} errors.APIError
// @Router /devices/me/tasks [get]
// @Security BearerAuth
func (h *TaskHandlers) ListOwnTasks(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	deviceID := hubservice.GetSubject(r.Context())

	var query taskQuery
	if err := queryDecoder.Decode(&query, r.URL.Query()); err != nil {
		respondWithError(w, errors.NewValidationError("invalid query parameters", err).WithRequestID(requestID))
		return
	}

	tasks, err := h.hubservice.ListTasksForDevice(r.Context(), deviceID, query.Status)
	if err != nil {
		respondWithServiceError(w, err, "failed to list tasks", requestID)
		return
	}

	respondWithJSON(w, http.StatusOK, tasks)
}

// @Summary Get a task
// @Description Get a single task by its identifier
// @Tags tasks
// @Produce json
// @Param id path int true "Task ID"
// @Success 200 {object} models.Task
// @Failure 404 {object} errors.APIError
// @Router /tasks/{id} [get]
// @Security BearerAuth
func (h *TaskHandlers) GetTask(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	requestID := nuts.NID("req", 12)

	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		respondWithError(w, errors.NewValidationError("invalid task id", err).WithRequestID(requestID))
		return
	}

	task, err := h.hubservice.GetTask(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "failed to get task", requestID)
		return
	}

	respondWithJSON(w, http.StatusOK, task)
}

// @Summary Report a task result
// @Description Move a pending task to done or failed; terminal tasks cannot move again
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path int true "Task ID"
// @Param status body taskStatusRequest true "New status"
// @Success 204 "No Content"
// @Failure 400 {object} errors.APIError
// @Failure 404 {object} errors.APIError
// @Failure 409 {object} errors.APIError
// @Router /tasks/{id} [put]
// @Security BearerAuth
func (h *TaskHandlers) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	requestID := nuts.NID("req", 12)

	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		respondWithError(w, errors.NewValidationError("invalid task id", err).WithRequestID(requestID))
		return
	}

	var req taskStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	if err := h.hubservice.UpdateTaskStatus(r.Context(), id, req.Status); err != nil {
		respondWithServiceError(w, err, "failed to update task status", requestID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
