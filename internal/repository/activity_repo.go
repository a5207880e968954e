package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"forum-backend/internal/model"
)

type ActivityRepository struct {
	pool *pgxpool.Pool
}

func NewActivityRepository(pool *pgxpool.Pool) *ActivityRepository {
	return &ActivityRepository{pool: pool}
}

func (r *ActivityRepository) Insert(ctx context.Context, entry model.ActivityEntry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO logs (id, user_id, action, ip_address, created_at)
		 VALUES ($1, NULLIF($2, '')::uuid, $3, NULLIF($4, ''), $5)`,
		entry.ID, entry.UserID, entry.Action, entry.IPAddress, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (r *ActivityRepository) Query(ctx context.Context, query model.ActivityQuery) ([]model.ActivityEntry, model.Meta, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 50
	}
	if query.Limit > 200 {
		query.Limit = 200
	}

	where := make([]string, 0)
	args := make([]any, 0)
	argIdx := 1

	if userID := strings.TrimSpace(query.UserID); userID != "" {
		where = append(where, fmt.Sprintf("l.user_id::text = $%d", argIdx))
		args = append(args, userID)
		argIdx++
	}
	if action := strings.TrimSpace(query.Action); action != "" {
		where = append(where, fmt.Sprintf("l.action ILIKE $%d", argIdx))
		args = append(args, "%"+action+"%")
		argIdx++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM logs l %s", whereClause), args...).Scan(&total); err != nil {
		return nil, model.Meta{}, fmt.Errorf("count activity: %w", err)
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + query.Limit - 1) / query.Limit
	}
	meta := model.Meta{Page: query.Page, Limit: query.Limit, Total: total, TotalPages: totalPages}

	offset := (query.Page - 1) * query.Limit
	dataQuery := fmt.Sprintf(
		`SELECT l.id, COALESCE(l.user_id::text, ''), COALESCE(u.username, ''), l.action,
		        COALESCE(l.ip_address, ''), l.created_at
		 FROM logs l
		 LEFT JOIN users u ON u.id = l.user_id
		 %s
		 ORDER BY l.created_at DESC
		 LIMIT $%d OFFSET $%d`, whereClause, argIdx, argIdx+1)
	args = append(args, query.Limit, offset)

	entries, err := r.scanEntries(ctx, dataQuery, args...)
	if err != nil {
		return nil, model.Meta{}, err
	}
	return entries, meta, nil
}

func (r *ActivityRepository) Recent(ctx context.Context, userID string, limit int) ([]model.ActivityEntry, error) {
	return r.scanEntries(ctx,
		`SELECT l.id, COALESCE(l.user_id::text, ''), COALESCE(u.username, ''), l.action,
		        COALESCE(l.ip_address, ''), l.created_at
		 FROM logs l
		 LEFT JOIN users u ON u.id = l.user_id
		 WHERE l.user_id::text = $1
		 ORDER BY l.created_at DESC
		 LIMIT $2`, userID, limit)
}

func (r *ActivityRepository) scanEntries(ctx context.Context, sql string, args ...any) ([]model.ActivityEntry, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()

	entries := make([]model.ActivityEntry, 0)
	for rows.Next() {
		var e model.ActivityEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Username, &e.Action, &e.IPAddress, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
