package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"forum-backend/internal/model"
	"forum-backend/pkg/apierror"
)

const (
	LikeCreated = "created"
	LikeUpdated = "updated"
	LikeRemoved = "removed"
)

type LikeRepository struct {
	pool *pgxpool.Pool
}

func NewLikeRepository(pool *pgxpool.Pool) *LikeRepository {
	return &LikeRepository{pool: pool}
}

// Toggle applies a reaction: repeating the same value removes it, a
// different value flips it, and no prior reaction creates one.
func (r *LikeRepository) Toggle(ctx context.Context, like model.Like) (string, model.Like, error) {
	var action string
	result := like

	err := WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var existing model.Like
		err := tx.QueryRow(ctx,
			`SELECT id, user_id, target_type, target_id, value, created_at
			 FROM likes WHERE user_id = $1 AND target_type = $2 AND target_id = $3
			 FOR UPDATE`, like.UserID, like.TargetType, like.TargetID).
			Scan(&existing.ID, &existing.UserID, &existing.TargetType, &existing.TargetID, &existing.Value, &existing.CreatedAt)

		switch {
		case errors.Is(err, pgx.ErrNoRows):
			tag, err := tx.Exec(ctx,
				`INSERT INTO likes (id, user_id, target_type, target_id, value, created_at)
				 VALUES ($1, $2, $3, $4, $5, $6)
				 ON CONFLICT (user_id, target_id, target_type) DO NOTHING`,
				like.ID, like.UserID, like.TargetType, like.TargetID, like.Value, like.CreatedAt)
			if err != nil {
				return fmt.Errorf("insert like: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return apierror.Conflict("reaction changed concurrently, retry", "")
			}
			action = LikeCreated
		case err != nil:
			return fmt.Errorf("find like: %w", err)
		case existing.Value == like.Value:
			if _, err := tx.Exec(ctx, `DELETE FROM likes WHERE id = $1`, existing.ID); err != nil {
				return fmt.Errorf("delete like: %w", err)
			}
			action = LikeRemoved
			result = existing
		default:
			if _, err := tx.Exec(ctx, `UPDATE likes SET value = $2 WHERE id = $1`, existing.ID, like.Value); err != nil {
				return fmt.Errorf("update like: %w", err)
			}
			existing.Value = like.Value
			action = LikeUpdated
			result = existing
		}
		return nil
	})
	if err != nil {
		return "", model.Like{}, err
	}

	return action, result, nil
}

func (r *LikeRepository) Counts(ctx context.Context, targetType string, targetID string, userID string) (model.LikeCounts, error) {
	var counts model.LikeCounts
	var reaction *int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FILTER (WHERE value = 1),
		        COUNT(*) FILTER (WHERE value = -1),
		        MAX(value) FILTER (WHERE user_id::text = $3)
		 FROM likes WHERE target_type = $1 AND target_id = $2`, targetType, targetID, userID).
		Scan(&counts.Likes, &counts.Dislikes, &reaction)
	if err != nil {
		return model.LikeCounts{}, fmt.Errorf("count likes: %w", err)
	}
	counts.UserReaction = reaction
	return counts, nil
}
