// FilePath: internal/hubservice/hubservice.go
package hubservice

import (
	"context"
	"time"

	"github.com/greenmind-iot/hub/internal/config"
	"github.com/greenmind-iot/hub/internal/errors"
	"github.com/greenmind-iot/hub/internal/repository"
	"github.com/greenmind-iot/hub/internal/sweep"
)

type contextKey string

const (
	ctxKeySubject contextKey = "subject"
	ctxKeyRoles   contextKey = "roles"
)

// HubService contains all repositories and service-wide dependencies
type HubService struct {
	Devices   repository.DeviceRepository
	Users     repository.UserRepository
	Telemetry repository.TelemetryRepository
	Tasks     repository.TaskRepository
	Sweep     *sweep.Watcher

	historyMinInterval time.Duration
	now                func() time.Time
}

// New creates a new HubService instance
func New(
	devices repository.DeviceRepository,
	users repository.UserRepository,
	telemetry repository.TelemetryRepository,
	tasks repository.TaskRepository,
	sweepStore sweep.Store,
	cfg config.RetentionConfig,
) *HubService {
	return &HubService{
		Devices:            devices,
		Users:              users,
		Telemetry:          telemetry,
		Tasks:              tasks,
		Sweep:              sweep.New(sweepStore),
		historyMinInterval: cfg.HistoryMinInterval,
		now:                time.Now,
	}
}

// Validate checks if all required repositories are initialized
func (s *HubService) Validate() error {
	if s.Devices == nil {
		return ErrMissingRepository("devices")
	}
	if s.Users == nil {
		return ErrMissingRepository("users")
	}
	if s.Telemetry == nil {
		return ErrMissingRepository("telemetry")
	}
	if s.Tasks == nil {
		return ErrMissingRepository("tasks")
	}
	return nil
}

func ErrMissingRepository(name string) error {
	return errors.NewInternalError("missing repository: "+name, nil)
}

// WithIdentity stores the authenticated subject and its roles on the
// context. The auth middleware calls this after token verification.
func WithIdentity(ctx context.Context, subject string, roles []string) context.Context {
	ctx = context.WithValue(ctx, ctxKeySubject, subject)
	return context.WithValue(ctx, ctxKeyRoles, roles)
}

// GetSubject retrieves the authenticated subject from context.
func GetSubject(ctx context.Context) string {
	if subject, ok := ctx.Value(ctxKeySubject).(string); ok {
		return subject
	}
	return ""
}

// GetUserRoles retrieves user roles from context
func GetUserRoles(ctx context.Context) []string {
	if roles, ok := ctx.Value(ctxKeyRoles).([]string); ok {
		return roles
	}
	return []string{"guest"}
}
