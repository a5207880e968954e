package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"forum-backend/internal/model"
)

const recentActivityLimit = 10

// ActivityRecorder writes audit entries. Recording is best effort and never fails the caller.
type ActivityRecorder interface {
	Record(ctx context.Context, userID string, action string, ip string)
}

type ActivityService struct {
	store ActivityStore
	now   func() time.Time
}

func NewActivityService(store ActivityStore) *ActivityService {
	return &ActivityService{store: store, now: time.Now}
}

func (s *ActivityService) Record(ctx context.Context, userID string, action string, ip string) {
	if s == nil || s.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	entry := model.ActivityEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Action:    action,
		IPAddress: ip,
		CreatedAt: s.now().UTC(),
	}

	if err := s.store.Insert(ctx, entry); err != nil {
		slog.Error("failed to record activity", "user_id", userID, "action", action, "error", err)
	}
}

func (s *ActivityService) Query(ctx context.Context, query model.ActivityQuery) ([]model.ActivityEntry, model.Meta, error) {
	return s.store.Query(ctx, query)
}

// Recent returns the latest entries of userID; only the user or an admin may read them.
func (s *ActivityService) Recent(ctx context.Context, actor model.Actor, userID string) ([]model.ActivityEntry, error) {
	if !actor.CanModify(userID) {
		return nil, model.ErrForbidden
	}
	if !validID(userID) {
		return nil, model.ErrUserNotFound
	}
	return s.store.Recent(ctx, userID, recentActivityLimit)
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
