package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"forum-backend/internal/model"
)

type NotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

func (r *NotificationRepository) Insert(ctx context.Context, n model.Notification) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO notifications (id, user_id, actor_id, type, message, target_type, target_id, is_read, created_at)
		 VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, NULLIF($6, ''), NULLIF($7, '')::uuid, false, $8)`,
		n.ID, n.UserID, n.ActorID, n.Type, n.Message, n.TargetType, n.TargetID, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *NotificationRepository) List(ctx context.Context, query model.NotificationQuery) ([]model.Notification, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, COALESCE(actor_id::text, ''), type, message,
		        COALESCE(target_type, ''), COALESCE(target_id::text, ''), is_read, created_at
		 FROM notifications
		 WHERE user_id = $1 AND ($2 = false OR is_read = false)
		 ORDER BY created_at DESC
		 LIMIT $3 OFFSET $4`, query.UserID, query.UnreadOnly, query.Limit, query.Offset)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]model.Notification, 0)
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.ActorID, &n.Type, &n.Message,
			&n.TargetType, &n.TargetID, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkRead flags the given notifications of userID as read; no ids marks all of them.
func (r *NotificationRepository) MarkRead(ctx context.Context, userID string, ids []string) (int64, error) {
	sql := `UPDATE notifications SET is_read = true WHERE user_id = $1 AND is_read = false`
	args := []any{userID}
	if len(ids) > 0 {
		sql += ` AND id::text = ANY($2)`
		args = append(args, ids)
	}

	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}
