package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vidfriends/vidvault/internal/db"
	"github.com/vidfriends/vidvault/internal/models"
)

// UserRepository defines the data access contract for users.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	Activate(ctx context.Context, id string) error
	SetRefreshToken(ctx context.Context, id, token string) error
	UpdateProfile(ctx context.Context, user models.User) error
}

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

const userColumns = `id, name, email, password, COALESCE(refresh_token, ''), is_active, created_at`

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO app_user (id, name, email, password, is_active, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, user.ID, user.Name, user.Email, user.Password, user.IsActive, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByEmail fetches a user by their email address.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM app_user WHERE email = $1`, email)
}

// FindByID fetches a user by identifier.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM app_user WHERE id = $1`, id)
}

func (r *PostgresUserRepository) findOne(ctx context.Context, query string, arg string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var user models.User
	err = conn.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.Name, &user.Email, &user.Password, &user.RefreshToken, &user.IsActive, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user: %w", err)
	}

	return user, nil
}

// Activate marks the user as verified.
func (r *PostgresUserRepository) Activate(ctx context.Context, id string) error {
	return r.execOne(ctx, "activate user", `UPDATE app_user SET is_active = TRUE WHERE id = $1`, id)
}

// SetRefreshToken overwrites the user's single refresh token slot.
func (r *PostgresUserRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	return r.execOne(ctx, "set refresh token", `UPDATE app_user SET refresh_token = $2 WHERE id = $1`, id, token)
}

// UpdateProfile writes the mutable profile fields.
func (r *PostgresUserRepository) UpdateProfile(ctx context.Context, user models.User) error {
	return r.execOne(ctx, "update user", `
        UPDATE app_user
        SET name = $2, password = $3
        WHERE id = $1
    `, user.ID, user.Name, user.Password)
}

func (r *PostgresUserRepository) execOne(ctx context.Context, op, query string, args ...any) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, query, args...)
	if err != nil {
		if isInvalidText(err) {
			return ErrNotFound
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func isUniqueViolation(err error) bool {
	return hasPgCode(err, "23505")
}

// isInvalidText reports a malformed literal such as a non-UUID id.
func isInvalidText(err error) bool {
	return hasPgCode(err, "22P02")
}

func hasPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

var _ UserRepository = (*PostgresUserRepository)(nil)
