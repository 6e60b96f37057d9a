// FilePath: api/api.router.go
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/greenmind-iot/hub/api/middleware"
	"github.com/greenmind-iot/hub/api/resources"
	"github.com/greenmind-iot/hub/internal/auth"
	"github.com/greenmind-iot/hub/internal/hubservice"
)

type Router struct {
	router    *mux.Router
	auth      *middleware.BearerMiddleware
	resources *resources.Resources
}

func NewRouter(svc *hubservice.HubService, gateway *auth.Gateway, verifier middleware.TokenVerifier, limiter auth.FailureLimiter) *Router {
	r := &Router{
		router:    mux.NewRouter(),
		auth:      middleware.NewBearerMiddleware(verifier, limiter),
		resources: resources.NewResources(svc, gateway),
	}

	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	// API version prefix
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Public routes. The health handler is bound via closure so the
	// server can set it after router construction.
	api.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		r.resources.HealthCheck(w, req)
	}).Methods(http.MethodGet)
	api.HandleFunc("/auth/token", r.resources.Auth.RequestToken).Methods(http.MethodPost)
	api.HandleFunc("/auth/authorize", r.resources.Auth.AuthorizeDevice).Methods(http.MethodPost)

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(r.auth.Authenticate)

	// Devices
	devices := protected.PathPrefix("/devices").Subrouter()
	devices.HandleFunc("", r.resources.Devices.ListDevices).Methods(http.MethodGet)
	devices.HandleFunc("", r.resources.Devices.CreateDevice).Methods(http.MethodPost)
	devices.HandleFunc("/me", r.resources.Devices.GetOwnDevice).Methods(http.MethodGet)
	devices.HandleFunc("/me", r.resources.Devices.DeleteOwnDevice).Methods(http.MethodDelete)
	devices.HandleFunc("/me/data", r.resources.Telemetry.GetOwnLiveReading).Methods(http.MethodGet)
	devices.HandleFunc("/me/data", r.resources.Telemetry.CheckIn).Methods(http.MethodPut)
	devices.HandleFunc("/me/history", r.resources.Telemetry.GetOwnHistory).Methods(http.MethodGet)
	devices.HandleFunc("/me/tasks", r.resources.Tasks.ListOwnTasks).Methods(http.MethodGet)
	devices.HandleFunc("/{id}", r.resources.Devices.UpdateDevice).Methods(http.MethodPut)
	devices.HandleFunc("/{id}/owner", r.resources.Devices.AssignOwner).Methods(http.MethodPut)
	devices.HandleFunc("/{id}/tasks", r.resources.Tasks.CreateTask).Methods(http.MethodPost)

	// Telemetry overview
	protected.HandleFunc("/data", r.resources.Telemetry.ListLiveReadings).Methods(http.MethodGet)

	// Tasks
	tasks := protected.PathPrefix("/tasks").Subrouter()
	tasks.HandleFunc("/{id}", r.resources.Tasks.GetTask).Methods(http.MethodGet)
	tasks.HandleFunc("/{id}", r.resources.Tasks.UpdateTaskStatus).Methods(http.MethodPut)

	// Users
	users := protected.PathPrefix("/users").Subrouter()
	users.HandleFunc("", r.resources.Users.ListUsers).Methods(http.MethodGet)
	users.HandleFunc("", r.resources.Users.CreateUser).Methods(http.MethodPost)
	users.HandleFunc("/{login}/devices", r.resources.Users.ListUserDevices).Methods(http.MethodGet)
}

// SetHealthCheck sets the health check handler
func (r *Router) SetHealthCheck(h func(w http.ResponseWriter, req *http.Request)) {
	r.resources.SetHealthCheck(h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}
