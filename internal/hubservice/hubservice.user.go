// FilePath: internal/hubservice/hubservice.user.go
package hubservice

import (
	"context"
	"strings"

	"github.com/greenmind-iot/hub/internal/errors"
	"github.com/greenmind-iot/hub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// UserService handles owner accounts
type UserService interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, login string) (*models.User, error)
	ListUsers(ctx context.Context, offset, limit int) ([]*models.User, error)
}

// CreateUser registers a new owner account
func (s *HubService) CreateUser(ctx context.Context, user *models.User) error {
	user.UserLogin = strings.TrimSpace(user.UserLogin)
	if user.UserLogin == "" {
		return errors.NewValidationError("user login is required", nil)
	}

	now := s.now()
	user.CreatedAt = now
	user.UpdatedAt = now

	nuts.L.Infof("[UserService] Creating user %s", user.UserLogin)
	return s.Users.Create(ctx, user)
}

// GetUser retrieves an owner account
func (s *HubService) GetUser(ctx context.Context, login string) (*models.User, error) {
	return s.Users.Get(ctx, login)
}

// ListUsers retrieves a paginated list of owner accounts
func (s *HubService) ListUsers(ctx context.Context, offset, limit int) ([]*models.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.Users.List(ctx, offset, limit)
}
