package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"forum-backend/internal/model"
	"forum-backend/pkg/apierror"
)

const userColumns = `id, username, email, COALESCE(recovery_email, ''), password_hash, role,
		        is_banned, COALESCE(profile_picture, ''), created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.RecoveryEmail, &u.PasswordHash, &u.Role,
		&u.IsBanned, &u.ProfilePicture, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	return u, err
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil && !errors.Is(err, model.ErrUserNotFound) {
		return model.User{}, fmt.Errorf("find user by id: %w", err)
	}
	return u, err
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, strings.TrimSpace(email)))
	if err != nil && !errors.Is(err, model.ErrUserNotFound) {
		return model.User{}, fmt.Errorf("find user by email: %w", err)
	}
	return u, err
}

// FindByAnyEmail matches the primary email first, then the recovery email.
func (r *UserRepository) FindByAnyEmail(ctx context.Context, email string) (model.User, error) {
	u, err := findByAnyEmail(ctx, r.pool, email)
	if err != nil && !errors.Is(err, model.ErrUserNotFound) {
		return model.User{}, fmt.Errorf("find user by any email: %w", err)
	}
	return u, err
}

func findByAnyEmail(ctx context.Context, db DBTX, email string) (model.User, error) {
	return scanUser(db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE lower(email) = lower($1) OR lower(recovery_email) = lower($1)
		 ORDER BY (lower(email) = lower($1)) DESC, created_at
		 LIMIT 1`, strings.TrimSpace(email)))
}

// EmailInUse reports whether email is a primary or recovery address of a user other than exceptID.
func (r *UserRepository) EmailInUse(ctx context.Context, email string, exceptID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM users
			WHERE (lower(email) = lower($1) OR lower(recovery_email) = lower($1)) AND id::text <> $2)`,
		strings.TrimSpace(email), exceptID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check email in use: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) UsernameInUse(ctx context.Context, username string, exceptID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE lower(username) = lower($1) AND id::text <> $2)`,
		strings.TrimSpace(username), exceptID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check username in use: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) Create(ctx context.Context, u model.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, username, email, password_hash, role, is_banned, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, false, $6, $7)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Role, u.CreatedAt, u.UpdatedAt)
	if isUniqueViolation(err, "") {
		return model.ErrUserAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id string, username string, email string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET username = $2, email = $3, updated_at = $4 WHERE id = $1`,
		id, username, email, time.Now().UTC())
	if isUniqueViolation(err, "") {
		return apierror.Conflict("username or email already in use", "")
	}
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) SetRecoveryEmail(ctx context.Context, id string, email string) error {
	return r.exec(ctx, "set recovery email",
		`UPDATE users SET recovery_email = NULLIF($2, ''), updated_at = $3 WHERE id = $1`,
		id, email, time.Now().UTC())
}

func (r *UserRepository) SetBanned(ctx context.Context, id string, banned bool) error {
	return r.exec(ctx, "set banned",
		`UPDATE users SET is_banned = $2, updated_at = $3 WHERE id = $1`,
		id, banned, time.Now().UTC())
}

func (r *UserRepository) SetProfilePicture(ctx context.Context, id string, key string) error {
	return r.exec(ctx, "set profile picture",
		`UPDATE users SET profile_picture = NULLIF($2, ''), updated_at = $3 WHERE id = $1`,
		id, key, time.Now().UTC())
}

// Anonymize soft-deletes an account: it stays referenced by content but can
// no longer sign in or be found by its former identity.
func (r *UserRepository) Anonymize(ctx context.Context, id string, username string, email string, passwordHash string) error {
	return r.exec(ctx, "anonymize user",
		`UPDATE users
		 SET is_banned = true, username = $2, email = $3, password_hash = $4,
		     recovery_email = NULL, profile_picture = NULL, updated_at = $5
		 WHERE id = $1`,
		id, username, email, passwordHash, time.Now().UTC())
}

func (r *UserRepository) exec(ctx context.Context, op string, sql string, args ...any) error {
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}
