package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"forum-backend/internal/event"
	"forum-backend/internal/model"
	"forum-backend/internal/repository"
)

type LikeService struct {
	likes    LikeStore
	threads  ThreadStore
	posts    PostStore
	bus      event.Bus
	activity ActivityRecorder
	now      func() time.Time
}

func NewLikeService(likes LikeStore, threads ThreadStore, posts PostStore, bus event.Bus, activity ActivityRecorder) *LikeService {
	return &LikeService{likes: likes, threads: threads, posts: posts, bus: bus, activity: activity, now: time.Now}
}

// targetOwner returns the author of a likeable target.
func (s *LikeService) targetOwner(ctx context.Context, targetType string, targetID string) (string, error) {
	switch targetType {
	case model.TargetThread:
		if !validID(targetID) {
			return "", model.ErrThreadNotFound
		}
		thread, err := s.threads.FindByID(ctx, targetID)
		return thread.UserID, err
	case model.TargetPost:
		if !validID(targetID) {
			return "", model.ErrPostNotFound
		}
		post, err := s.posts.FindByID(ctx, targetID)
		return post.UserID, err
	default:
		return "", model.ErrInvalidInput
	}
}

// Toggle repeats remove a reaction, opposite values flip it.
func (s *LikeService) Toggle(ctx context.Context, actor model.Actor, req model.ToggleLikeRequest) (model.LikeOutcome, error) {
	ownerID, err := s.targetOwner(ctx, req.TargetType, req.TargetID)
	if err != nil {
		return model.LikeOutcome{}, err
	}

	now := s.now().UTC()
	action, like, err := s.likes.Toggle(ctx, model.Like{
		ID:         uuid.NewString(),
		UserID:     actor.UserID,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		Value:      req.Value,
		CreatedAt:  now,
	})
	if err != nil {
		return model.LikeOutcome{}, err
	}

	counts, err := s.likes.Counts(ctx, req.TargetType, req.TargetID, actor.UserID)
	if err != nil {
		return model.LikeOutcome{}, err
	}

	outcome := model.LikeOutcome{Action: action, Counts: &counts}
	if action != repository.LikeRemoved {
		outcome.Like = &like

		if ownerID != actor.UserID {
			typ, verb := event.TypeContentLiked, "liked"
			if req.Value < 0 {
				typ, verb = event.TypeContentDisliked, "disliked"
			}
			s.bus.Publish(event.Event{
				Type:        typ,
				ActorID:     actor.UserID,
				RecipientID: ownerID,
				TargetType:  req.TargetType,
				TargetID:    req.TargetID,
				Message:     actor.Username + " " + verb + " your " + req.TargetType,
				Timestamp:   now,
			})
		}

		verb := "Liked"
		if req.Value < 0 {
			verb = "Disliked"
		}
		s.activity.Record(ctx, actor.UserID, verb+" a "+req.TargetType, actor.IP)
	}

	return outcome, nil
}

// Counts reports totals; viewerID may be empty for anonymous callers.
func (s *LikeService) Counts(ctx context.Context, targetType string, targetID string, viewerID string) (model.LikeCounts, error) {
	if _, err := s.targetOwner(ctx, targetType, targetID); err != nil {
		return model.LikeCounts{}, err
	}
	return s.likes.Counts(ctx, targetType, targetID, viewerID)
}
