package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"forum-backend/internal/model"
)

const threadSelect = `SELECT t.id, t.title, t.content, t.category_id, COALESCE(c.name, ''), t.user_id,
		        COALESCE(u.username, ''),
		        (SELECT COUNT(*) FROM posts p WHERE p.thread_id = t.id),
		        t.created_at, t.updated_at
		 FROM threads t
		 LEFT JOIN categories c ON c.id = t.category_id
		 LEFT JOIN users u ON u.id = t.user_id`

type ThreadRepository struct {
	pool *pgxpool.Pool
}

func NewThreadRepository(pool *pgxpool.Pool) *ThreadRepository {
	return &ThreadRepository{pool: pool}
}

func scanThread(row pgx.Row) (model.Thread, error) {
	var t model.Thread
	err := row.Scan(&t.ID, &t.Title, &t.Content, &t.CategoryID, &t.CategoryName, &t.UserID,
		&t.Username, &t.PostCount, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Thread{}, model.ErrThreadNotFound
	}
	return t, err
}

func (r *ThreadRepository) Create(ctx context.Context, t model.Thread) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO threads (id, title, content, category_id, user_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.Title, t.Content, t.CategoryID, t.UserID, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create thread: %w", err)
	}
	return nil
}

func (r *ThreadRepository) FindByID(ctx context.Context, id string) (model.Thread, error) {
	t, err := scanThread(r.pool.QueryRow(ctx, threadSelect+` WHERE t.id = $1`, id))
	if err != nil && !errors.Is(err, model.ErrThreadNotFound) {
		return model.Thread{}, fmt.Errorf("find thread: %w", err)
	}
	return t, err
}

// List returns threads newest first, optionally restricted to one category.
func (r *ThreadRepository) List(ctx context.Context, categoryID string) ([]model.Thread, error) {
	sql := threadSelect + ` ORDER BY t.created_at DESC`
	args := []any{}
	if categoryID != "" {
		sql = threadSelect + ` WHERE t.category_id = $1 ORDER BY t.created_at DESC`
		args = append(args, categoryID)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	threads := make([]model.Thread, 0)
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		threads = append(threads, t)
	}
	return threads, rows.Err()
}

func (r *ThreadRepository) Update(ctx context.Context, t model.Thread) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE threads SET title = $2, content = $3, category_id = $4, updated_at = $5 WHERE id = $1`,
		t.ID, t.Title, t.Content, t.CategoryID, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update thread: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrThreadNotFound
	}
	return nil
}

// Delete removes the thread with its posts and reactions, returning the
// attachment keys of the removed posts.
func (r *ThreadRepository) Delete(ctx context.Context, id string) ([]string, error) {
	var attachments []string

	err := WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT attachment FROM posts WHERE thread_id = $1 AND attachment IS NOT NULL`, id)
		if err != nil {
			return fmt.Errorf("collect attachments: %w", err)
		}
		attachments, err = pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return fmt.Errorf("collect attachments: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`DELETE FROM likes
			 WHERE (target_type = 'thread' AND target_id = $1)
			    OR (target_type = 'post' AND target_id IN (SELECT id FROM posts WHERE thread_id = $1))`, id); err != nil {
			return fmt.Errorf("delete thread likes: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM posts WHERE thread_id = $1`, id); err != nil {
			return fmt.Errorf("delete thread posts: %w", err)
		}

		tag, err := tx.Exec(ctx, `DELETE FROM threads WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete thread: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return model.ErrThreadNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return attachments, nil
}
