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
)

// ResetRepository is the password reset ledger.
type ResetRepository struct {
	pool *pgxpool.Pool
}

func NewResetRepository(pool *pgxpool.Pool) *ResetRepository {
	return &ResetRepository{pool: pool}
}

// Replace drops every unused entry for req.Email and inserts req in one
// transaction. The advisory lock serialises concurrent requests for the
// same address so two pending entries can never coexist.
func (r *ResetRepository) Replace(ctx context.Context, req model.ResetRequest) error {
	return WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext(lower($1)))`, req.Email); err != nil {
			return fmt.Errorf("lock reset email: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`DELETE FROM password_resets WHERE lower(email) = lower($1) AND used = false`, req.Email); err != nil {
			return fmt.Errorf("delete pending resets: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO password_resets (id, email, token, otp, expires_at, used, created_at)
			 VALUES ($1, $2, $3, $4, $5, false, $6)`,
			req.ID, req.Email, req.Token, req.OTP, req.ExpiresAt, req.CreatedAt); err != nil {
			return fmt.Errorf("insert reset request: %w", err)
		}

		return nil
	})
}

func (r *ResetRepository) FindActiveByToken(ctx context.Context, token string, now time.Time) (model.ResetRequest, error) {
	req, err := scanReset(r.pool.QueryRow(ctx,
		`SELECT id, email, token, otp, expires_at, used, created_at
		 FROM password_resets
		 WHERE token = $1 AND used = false AND expires_at > $2`, token, now))
	if err != nil && !errors.Is(err, model.ErrInvalidOrExpired) {
		return model.ResetRequest{}, fmt.Errorf("find reset by token: %w", err)
	}
	return req, err
}

// Redeem consumes the active entry for token. check runs against the locked
// entry and returns the new password hash; any error it returns aborts the
// transaction and leaves the entry untouched. On success the owning user's
// password is replaced and the entry is marked used atomically. It returns
// the id of the user whose password changed.
func (r *ResetRepository) Redeem(ctx context.Context, token string, now time.Time, check func(model.ResetRequest) (string, error)) (string, error) {
	var userID string

	err := WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		entry, err := scanReset(tx.QueryRow(ctx,
			`SELECT id, email, token, otp, expires_at, used, created_at
			 FROM password_resets
			 WHERE token = $1 AND used = false AND expires_at > $2
			 FOR UPDATE`, token, now))
		if err != nil {
			return err
		}

		passwordHash, err := check(entry)
		if err != nil {
			return err
		}

		user, err := findByAnyEmail(ctx, tx, entry.Email)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx,
			`UPDATE password_resets SET used = true, used_at = $2 WHERE id = $1 AND used = false`,
			entry.ID, now)
		if err != nil {
			return fmt.Errorf("mark reset used: %w", err)
		}
		if tag.RowsAffected() != 1 {
			return model.ErrInvalidOrExpired
		}

		if _, err := tx.Exec(ctx,
			`UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`,
			user.ID, passwordHash, now); err != nil {
			return fmt.Errorf("update password: %w", err)
		}

		userID = user.ID
		return nil
	})
	if err != nil {
		return "", err
	}

	return userID, nil
}

// ListActive returns unused, unexpired entries with the matching account, newest first.
func (r *ResetRepository) ListActive(ctx context.Context, now time.Time) ([]model.ResetRequestView, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT pr.id, pr.email, pr.otp, pr.token, pr.expires_at, pr.created_at,
		        COALESCE(u.id::text, ''), COALESCE(u.username, '')
		 FROM password_resets pr
		 LEFT JOIN LATERAL (
			SELECT id, username FROM users
			WHERE lower(users.email) = lower(pr.email) OR lower(users.recovery_email) = lower(pr.email)
			ORDER BY (lower(users.email) = lower(pr.email)) DESC
			LIMIT 1
		 ) u ON true
		 WHERE pr.used = false AND pr.expires_at > $1
		 ORDER BY pr.created_at DESC`, now)
	if err != nil {
		return nil, fmt.Errorf("list active resets: %w", err)
	}
	defer rows.Close()

	views := make([]model.ResetRequestView, 0)
	for rows.Next() {
		var v model.ResetRequestView
		if err := rows.Scan(&v.ID, &v.Email, &v.OTP, &v.Token, &v.ExpiresAt, &v.CreatedAt, &v.UserID, &v.Username); err != nil {
			return nil, fmt.Errorf("scan reset request: %w", err)
		}
		v.OTP = strings.TrimSpace(v.OTP)
		views = append(views, v)
	}
	return views, rows.Err()
}

// MarkUsed retires an entry without changing any password.
func (r *ResetRepository) MarkUsed(ctx context.Context, id string, now time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE password_resets SET used = true, used_at = $2 WHERE id = $1 AND used = false`, id, now)
	if err != nil {
		return fmt.Errorf("mark reset used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrResetRequestNotFound
	}
	return nil
}

func scanReset(row pgx.Row) (model.ResetRequest, error) {
	var req model.ResetRequest
	err := row.Scan(&req.ID, &req.Email, &req.Token, &req.OTP, &req.ExpiresAt, &req.Used, &req.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ResetRequest{}, model.ErrInvalidOrExpired
	}
	if err != nil {
		return model.ResetRequest{}, err
	}
	req.OTP = strings.TrimSpace(req.OTP)
	return req, nil
}
