package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"forum-backend/internal/model"
)

const postSelect = `SELECT p.id, p.thread_id, p.user_id, COALESCE(u.username, ''), p.content,
		        COALESCE(p.attachment, ''), p.created_at, p.updated_at
		 FROM posts p
		 LEFT JOIN users u ON u.id = p.user_id`

type PostRepository struct {
	pool *pgxpool.Pool
}

func NewPostRepository(pool *pgxpool.Pool) *PostRepository {
	return &PostRepository{pool: pool}
}

func scanPost(row pgx.Row) (model.Post, error) {
	var p model.Post
	err := row.Scan(&p.ID, &p.ThreadID, &p.UserID, &p.Username, &p.Content, &p.Attachment, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Post{}, model.ErrPostNotFound
	}
	return p, err
}

func (r *PostRepository) Create(ctx context.Context, p model.Post) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO posts (id, thread_id, user_id, content, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.ThreadID, p.UserID, p.Content, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

func (r *PostRepository) FindByID(ctx context.Context, id string) (model.Post, error) {
	p, err := scanPost(r.pool.QueryRow(ctx, postSelect+` WHERE p.id = $1`, id))
	if err != nil && !errors.Is(err, model.ErrPostNotFound) {
		return model.Post{}, fmt.Errorf("find post: %w", err)
	}
	return p, err
}

func (r *PostRepository) ListByThread(ctx context.Context, threadID string) ([]model.Post, error) {
	rows, err := r.pool.Query(ctx, postSelect+` WHERE p.thread_id = $1 ORDER BY p.created_at`, threadID)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	posts := make([]model.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (r *PostRepository) UpdateContent(ctx context.Context, id string, content string, now time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE posts SET content = $2, updated_at = $3 WHERE id = $1`, id, content, now)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrPostNotFound
	}
	return nil
}

func (r *PostRepository) SetAttachment(ctx context.Context, id string, key string, now time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE posts SET attachment = NULLIF($2, ''), updated_at = $3 WHERE id = $1`, id, key, now)
	if err != nil {
		return fmt.Errorf("set attachment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrPostNotFound
	}
	return nil
}

// Delete removes a post and its reactions.
func (r *PostRepository) Delete(ctx context.Context, id string) error {
	return WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM likes WHERE target_type = 'post' AND target_id = $1`, id); err != nil {
			return fmt.Errorf("delete post likes: %w", err)
		}

		tag, err := tx.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete post: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return model.ErrPostNotFound
		}
		return nil
	})
}
