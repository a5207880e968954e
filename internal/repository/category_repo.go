package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"forum-backend/internal/model"
	"forum-backend/pkg/apierror"
)

type CategoryRepository struct {
	pool *pgxpool.Pool
}

func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

func (r *CategoryRepository) Create(ctx context.Context, c model.Category) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO categories (id, name, description, created_at) VALUES ($1, $2, NULLIF($3, ''), $4)`,
		c.ID, c.Name, c.Description, c.CreatedAt)
	if isUniqueViolation(err, "categories_name_key") {
		return apierror.Conflict("category name already exists", c.Name)
	}
	if err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func (r *CategoryRepository) FindByID(ctx context.Context, id string) (model.Category, error) {
	var c model.Category
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, COALESCE(description, ''), created_at FROM categories WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Category{}, model.ErrCategoryNotFound
	}
	if err != nil {
		return model.Category{}, fmt.Errorf("find category: %w", err)
	}
	return c, nil
}

func (r *CategoryRepository) List(ctx context.Context) ([]model.Category, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, COALESCE(description, ''), created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]model.Category, 0)
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *CategoryRepository) Update(ctx context.Context, c model.Category) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE categories SET name = $2, description = NULLIF($3, '') WHERE id = $1`,
		c.ID, c.Name, c.Description)
	if isUniqueViolation(err, "categories_name_key") {
		return apierror.Conflict("category name already exists", c.Name)
	}
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrCategoryNotFound
	}
	return nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return apierror.Conflict("category still has threads", id)
	}
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrCategoryNotFound
	}
	return nil
}
