package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/olegbrv/storefront/backend/internal/domain/model"
	authsvc "github.com/olegbrv/storefront/backend/internal/services/auth"
)

const uniqueViolation = "23505"

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (model.User, error) {
	if r.pool == nil {
		return model.User{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(email) == "" {
		return model.User{}, authsvc.ErrInvalidInput
	}

	var user model.User
	err := r.pool.QueryRow(ctx, `
SELECT id, email, password_hash, role, created_at, updated_at
FROM users
WHERE email = $1
`, email).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, authsvc.ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("find user by email: %w", err)
	}

	return user, nil
}

// FindByID resolves a user by id. The password hash is never selected here:
// this is the lookup the session middleware runs on every request.
func (r *UserRepo) FindByID(ctx context.Context, id string) (model.User, error) {
	if r.pool == nil {
		return model.User{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(id) == "" {
		return model.User{}, authsvc.ErrInvalidInput
	}

	var user model.User
	err := r.pool.QueryRow(ctx, `
SELECT id, email, role, created_at, updated_at
FROM users
WHERE id = $1
`, id).Scan(&user.ID, &user.Email, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, authsvc.ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("find user by id: %w", err)
	}

	return user, nil
}

// Insert persists a new user. Email uniqueness is enforced by the store's
// unique index; a collision surfaces as ErrEmailTaken.
func (r *UserRepo) Insert(ctx context.Context, user model.User) (model.User, error) {
	if r.pool == nil {
		return model.User{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(user.Email) == "" || strings.TrimSpace(user.PasswordHash) == "" {
		return model.User{}, authsvc.ErrInvalidInput
	}

	id := uuid.NewString()
	var created model.User
	err := r.pool.QueryRow(ctx, `
INSERT INTO users (id, email, password_hash, role, created_at, updated_at)
VALUES ($1, $2, $3, $4, NOW(), NOW())
RETURNING id, email, password_hash, role, created_at, updated_at
`, id, user.Email, user.PasswordHash, user.Role).Scan(
		&created.ID, &created.Email, &created.PasswordHash, &created.Role, &created.CreatedAt, &created.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return model.User{}, authsvc.ErrEmailTaken
		}
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}

	return created, nil
}

// List returns all users without password hashes, newest first.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, email, role, created_at, updated_at
FROM users
ORDER BY created_at DESC, id
`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var user model.User
		if err := rows.Scan(&user.ID, &user.Email, &user.Role, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user rows: %w", err)
	}

	return users, nil
}
