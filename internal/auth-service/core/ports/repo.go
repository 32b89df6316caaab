package ports

import (
	"context"

	"carpool-safety/internal/auth-service/core/domain/models"

	"github.com/jackc/pgx/v5"
)

type IDB interface {
	GetConn() *pgx.Conn
	IsAlive() error
	Close() error
}

type IAuthRepo interface {
	// user_id and error
	CreateUser(ctx context.Context, user models.User) (string, error)
	// same, plus the enforcement driver row in one transaction
	CreateDriver(ctx context.Context, user models.User) (string, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
}
