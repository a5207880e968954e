package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"forum-backend/internal/model"
	"forum-backend/pkg/apierror"
)

type ThreadService struct {
	threads    ThreadStore
	categories CategoryStore
	uploads    *UploadService
	activity   ActivityRecorder
	now        func() time.Time
}

func NewThreadService(threads ThreadStore, categories CategoryStore, uploads *UploadService, activity ActivityRecorder) *ThreadService {
	return &ThreadService{threads: threads, categories: categories, uploads: uploads, activity: activity, now: time.Now}
}

func (s *ThreadService) requireCategory(ctx context.Context, id string) error {
	if !validID(id) {
		return apierror.BadRequest("category does not exist", id)
	}
	_, err := s.categories.FindByID(ctx, id)
	if errors.Is(err, model.ErrCategoryNotFound) {
		return apierror.BadRequest("category does not exist", id)
	}
	return err
}

func (s *ThreadService) Create(ctx context.Context, actor model.Actor, req model.ThreadRequest) (model.Thread, error) {
	if err := s.requireCategory(ctx, req.CategoryID); err != nil {
		return model.Thread{}, err
	}

	now := s.now().UTC()
	thread := model.Thread{
		ID:         uuid.NewString(),
		Title:      strings.TrimSpace(req.Title),
		Content:    req.Content,
		CategoryID: req.CategoryID,
		UserID:     actor.UserID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.threads.Create(ctx, thread); err != nil {
		return model.Thread{}, err
	}

	s.activity.Record(ctx, actor.UserID, "Created thread: "+thread.Title, actor.IP)
	return s.threads.FindByID(ctx, thread.ID)
}

func (s *ThreadService) List(ctx context.Context, categoryID string) ([]model.Thread, error) {
	if categoryID != "" && !validID(categoryID) {
		return []model.Thread{}, nil
	}
	return s.threads.List(ctx, categoryID)
}

func (s *ThreadService) Get(ctx context.Context, id string) (model.Thread, error) {
	if !validID(id) {
		return model.Thread{}, model.ErrThreadNotFound
	}
	return s.threads.FindByID(ctx, id)
}

func (s *ThreadService) Update(ctx context.Context, actor model.Actor, id string, req model.UpdateThreadRequest) (model.Thread, error) {
	thread, err := s.Get(ctx, id)
	if err != nil {
		return model.Thread{}, err
	}
	if !actor.CanModify(thread.UserID) {
		return model.Thread{}, model.ErrForbidden
	}

	if req.Title != nil {
		thread.Title = strings.TrimSpace(*req.Title)
	}
	if req.Content != nil {
		thread.Content = *req.Content
	}
	if req.CategoryID != nil && *req.CategoryID != thread.CategoryID {
		if err := s.requireCategory(ctx, *req.CategoryID); err != nil {
			return model.Thread{}, err
		}
		thread.CategoryID = *req.CategoryID
	}
	thread.UpdatedAt = s.now().UTC()

	if err := s.threads.Update(ctx, thread); err != nil {
		return model.Thread{}, err
	}

	s.activity.Record(ctx, actor.UserID, "Updated thread: "+thread.Title, actor.IP)
	return s.threads.FindByID(ctx, thread.ID)
}

// Delete removes the thread together with its posts and reactions.
func (s *ThreadService) Delete(ctx context.Context, actor model.Actor, id string) error {
	thread, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanModify(thread.UserID) {
		return model.ErrForbidden
	}

	attachments, err := s.threads.Delete(ctx, thread.ID)
	if err != nil {
		return err
	}

	for _, key := range attachments {
		s.uploads.Remove(ctx, key)
	}

	s.activity.Record(ctx, actor.UserID, "Thread "+thread.ID+" deleted", actor.IP)
	return nil
}
