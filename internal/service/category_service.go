package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"forum-backend/internal/model"
)

type CategoryService struct {
	store    CategoryStore
	activity ActivityRecorder
	now      func() time.Time
}

func NewCategoryService(store CategoryStore, activity ActivityRecorder) *CategoryService {
	return &CategoryService{store: store, activity: activity, now: time.Now}
}

func (s *CategoryService) List(ctx context.Context) ([]model.Category, error) {
	return s.store.List(ctx)
}

func (s *CategoryService) Get(ctx context.Context, id string) (model.Category, error) {
	if !validID(id) {
		return model.Category{}, model.ErrCategoryNotFound
	}
	return s.store.FindByID(ctx, id)
}

func (s *CategoryService) Create(ctx context.Context, actor model.Actor, req model.CategoryRequest) (model.Category, error) {
	category := model.Category{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   s.now().UTC(),
	}

	if err := s.store.Create(ctx, category); err != nil {
		return model.Category{}, err
	}

	s.activity.Record(ctx, actor.UserID, "Created category: "+category.Name, actor.IP)
	return category, nil
}

func (s *CategoryService) Update(ctx context.Context, actor model.Actor, id string, req model.CategoryRequest) (model.Category, error) {
	category, err := s.Get(ctx, id)
	if err != nil {
		return model.Category{}, err
	}

	previous := category.Name
	category.Name = strings.TrimSpace(req.Name)
	category.Description = strings.TrimSpace(req.Description)

	if err := s.store.Update(ctx, category); err != nil {
		return model.Category{}, err
	}

	s.activity.Record(ctx, actor.UserID, "Updated category: "+previous+" to "+category.Name, actor.IP)
	return category, nil
}

func (s *CategoryService) Delete(ctx context.Context, actor model.Actor, id string) error {
	category, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, category.ID); err != nil {
		return err
	}

	s.activity.Record(ctx, actor.UserID, "Deleted category: "+category.Name, actor.IP)
	return nil
}
