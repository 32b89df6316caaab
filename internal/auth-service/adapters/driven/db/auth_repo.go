package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"carpool-safety/internal/auth-service/core/domain/models"
	"carpool-safety/internal/auth-service/core/myerrors"
	"carpool-safety/internal/auth-service/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type AuthRepo struct {
	db *DB
}

func NewAuthRepo(db *DB) ports.IAuthRepo {
	return &AuthRepo{
		db: db,
	}
}

func (ar *AuthRepo) CreateUser(ctx context.Context, user models.User) (string, error) {
	if err := ar.db.IsAlive(); err != nil {
		return "", err
	}

	tx, err := ar.db.conn.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	id, err := insertUser(ctx, tx, user)
	if err != nil {
		return "", err
	}

	if err = tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %v", err)
	}

	return id, nil
}

// CreateDriver inserts the account and its enforcement row in one
// transaction, so the safety service never sees a driver token for a driver
// it does not know.
func (ar *AuthRepo) CreateDriver(ctx context.Context, user models.User) (string, error) {
	if err := ar.db.IsAlive(); err != nil {
		return "", err
	}

	tx, err := ar.db.conn.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	id, err := insertUser(ctx, tx, user)
	if err != nil {
		return "", err
	}

	q := `INSERT INTO drivers (driver_id) VALUES ($1) ON CONFLICT (driver_id) DO NOTHING`
	if _, err = tx.Exec(ctx, q, id); err != nil {
		return "", fmt.Errorf("failed to insert driver row: %v", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %v", err)
	}

	return id, nil
}

func insertUser(ctx context.Context, tx pgx.Tx, user models.User) (string, error) {
	var attrs interface{}
	if len(user.Attrs) > 0 {
		attrs = user.Attrs
	}

	q := `INSERT INTO users (
	username, email, password_hash, role, attrs
	) VALUES ($1, $2, $3, $4, $5) RETURNING user_id`
	id := ""
	row := tx.QueryRow(ctx, q, user.Username, user.Email, user.PasswordHash, user.Role, attrs)
	if err := row.Scan(&id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if strings.Contains(pgErr.ConstraintName, "username") {
				return "", myerrors.ErrUsernameTaken
			}
			return "", myerrors.ErrEmailRegistered
		}
		return "", fmt.Errorf("failed to insert user: %v", err)
	}
	return id, nil
}

func (ar *AuthRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	if err := ar.db.IsAlive(); err != nil {
		return models.User{}, err
	}

	q := `
		SELECT
			u.user_id,
			u.created_at,
			u.updated_at,
			u.username,
			u.email,
			u.password_hash,
			u.role,
			u.status,
			u.attrs
		FROM
			users u
		WHERE
			u.email = $1
	`

	var u models.User
	err := ar.db.conn.QueryRow(ctx, q, email).Scan(
		&u.UserId,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.Status,
		&u.Attrs,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, myerrors.ErrUnknownEmail
		}
		return models.User{}, err
	}

	return u, nil
}
