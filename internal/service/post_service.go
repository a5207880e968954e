package service

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"forum-backend/internal/event"
	"forum-backend/internal/model"
	"forum-backend/internal/storage"
)

type PostService struct {
	posts    PostStore
	threads  ThreadStore
	uploads  *UploadService
	bus      event.Bus
	activity ActivityRecorder
	now      func() time.Time
}

func NewPostService(posts PostStore, threads ThreadStore, uploads *UploadService, bus event.Bus, activity ActivityRecorder) *PostService {
	return &PostService{posts: posts, threads: threads, uploads: uploads, bus: bus, activity: activity, now: time.Now}
}

func (s *PostService) thread(ctx context.Context, id string) (model.Thread, error) {
	if !validID(id) {
		return model.Thread{}, model.ErrThreadNotFound
	}
	return s.threads.FindByID(ctx, id)
}

func (s *PostService) Get(ctx context.Context, id string) (model.Post, error) {
	if !validID(id) {
		return model.Post{}, model.ErrPostNotFound
	}
	return s.posts.FindByID(ctx, id)
}

func (s *PostService) Create(ctx context.Context, actor model.Actor, req model.PostRequest) (model.Post, error) {
	thread, err := s.thread(ctx, req.ThreadID)
	if err != nil {
		return model.Post{}, err
	}

	now := s.now().UTC()
	post := model.Post{
		ID:        uuid.NewString(),
		ThreadID:  thread.ID,
		UserID:    actor.UserID,
		Username:  actor.Username,
		Content:   req.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.posts.Create(ctx, post); err != nil {
		return model.Post{}, err
	}

	if thread.UserID != actor.UserID {
		s.bus.Publish(event.Event{
			Type:        event.TypePostReplied,
			ActorID:     actor.UserID,
			RecipientID: thread.UserID,
			TargetType:  model.TargetThread,
			TargetID:    thread.ID,
			Message:     actor.Username + " replied to your thread \"" + thread.Title + "\"",
			Timestamp:   now,
		})
	}

	s.activity.Record(ctx, actor.UserID, "Created post in thread "+thread.ID, actor.IP)
	return post, nil
}

func (s *PostService) ListByThread(ctx context.Context, threadID string) ([]model.Post, error) {
	if _, err := s.thread(ctx, threadID); err != nil {
		return nil, err
	}
	return s.posts.ListByThread(ctx, threadID)
}

func (s *PostService) Update(ctx context.Context, actor model.Actor, id string, req model.UpdatePostRequest) (model.Post, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		return model.Post{}, err
	}
	if !actor.CanModify(post.UserID) {
		return model.Post{}, model.ErrForbidden
	}

	now := s.now().UTC()
	if err := s.posts.UpdateContent(ctx, post.ID, req.Content, now); err != nil {
		return model.Post{}, err
	}

	s.activity.Record(ctx, actor.UserID, "Updated post "+post.ID, actor.IP)
	post.Content = req.Content
	post.UpdatedAt = now
	return post, nil
}

func (s *PostService) Delete(ctx context.Context, actor model.Actor, id string) error {
	post, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanModify(post.UserID) {
		return model.ErrForbidden
	}
	return s.remove(ctx, actor, post, "Deleted post ")
}

// Moderate removes any post on an administrator's behalf.
func (s *PostService) Moderate(ctx context.Context, actor model.Actor, id string) error {
	if !actor.IsAdmin() {
		return model.ErrForbidden
	}
	post, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.remove(ctx, actor, post, "Moderated delete post ")
}

func (s *PostService) remove(ctx context.Context, actor model.Actor, post model.Post, action string) error {
	if err := s.posts.Delete(ctx, post.ID); err != nil {
		return err
	}
	s.uploads.Remove(ctx, post.Attachment)
	s.activity.Record(ctx, actor.UserID, action+post.ID, actor.IP)
	return nil
}

func (s *PostService) Attach(ctx context.Context, actor model.Actor, id string, filename string, r io.Reader) (model.StoredFile, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		return model.StoredFile{}, err
	}
	if !actor.CanModify(post.UserID) {
		return model.StoredFile{}, model.ErrForbidden
	}

	stored, err := s.uploads.StoreAttachment(ctx, filename, r)
	if err != nil {
		return model.StoredFile{}, err
	}

	if err := s.posts.SetAttachment(ctx, post.ID, stored.Key, s.now().UTC()); err != nil {
		s.uploads.Remove(ctx, stored.Key)
		return model.StoredFile{}, err
	}

	s.uploads.Remove(ctx, post.Attachment)
	s.activity.Record(ctx, actor.UserID, "Attached file to post "+post.ID, actor.IP)
	return stored, nil
}

func (s *PostService) OpenAttachment(ctx context.Context, id string) (io.ReadCloser, storage.Object, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, storage.Object{}, err
	}
	return s.uploads.Open(ctx, post.Attachment)
}
