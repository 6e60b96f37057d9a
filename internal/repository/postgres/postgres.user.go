// FilePath: internal/repository/postgres/postgres.user.go
package postgres

import (
	"context"
	"database/sql"

	"github.com/greenmind-iot/hub/internal/database"
	"github.com/greenmind-iot/hub/internal/errors"
	"github.com/greenmind-iot/hub/internal/models"
)

type UserRepo struct {
	PostgresBaseRepo
}

func NewUserRepository(db database.DB) *UserRepo {
	repo := &PostgresBaseRepo{db: db}
	return &UserRepo{PostgresBaseRepo: *repo}
}

func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (user_login, created_at, updated_at)
		VALUES (:user_login, :created_at, :updated_at)`

	_, err := r.db.GetDB().NamedExecContext(ctx, query, user)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.NewConflictError("user already exists", err)
		}
		return errors.NewDatabaseError("failed to create user", err)
	}
	return nil
}

func (r *UserRepo) Get(ctx context.Context, login string) (*models.User, error) {
	user := &models.User{}
	query := `SELECT * FROM users WHERE user_login = $1`

	err := r.db.GetDB().GetContext(ctx, user, query, login)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("user not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get user", err)
	}
	return user, nil
}

func (r *UserRepo) List(ctx context.Context, offset, limit int) ([]*models.User, error) {
	users := []*models.User{}
	query := `SELECT * FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	err := r.db.GetDB().SelectContext(ctx, &users, query, limit, offset)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list users", err)
	}
	return users, nil
}
