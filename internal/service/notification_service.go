package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"forum-backend/internal/event"
	"forum-backend/internal/model"
)

const (
	defaultNotificationLimit = 20
	maxNotificationLimit     = 100
)

type NotificationService struct {
	store NotificationStore
}

func NewNotificationService(store NotificationStore) *NotificationService {
	return &NotificationService{store: store}
}

func (s *NotificationService) List(ctx context.Context, actor model.Actor, query model.NotificationQuery) ([]model.Notification, error) {
	query.UserID = actor.UserID
	if query.Limit <= 0 {
		query.Limit = defaultNotificationLimit
	}
	if query.Limit > maxNotificationLimit {
		query.Limit = maxNotificationLimit
	}
	if query.Offset < 0 {
		query.Offset = 0
	}
	return s.store.List(ctx, query)
}

// MarkRead only touches the caller's notifications. No ids marks all.
func (s *NotificationService) MarkRead(ctx context.Context, actor model.Actor, ids []string) (int64, error) {
	return s.store.MarkRead(ctx, actor.UserID, ids)
}

var notificationTypes = map[event.Type]string{
	event.TypePostReplied:     model.NotificationReply,
	event.TypeContentLiked:    model.NotificationLike,
	event.TypeContentDisliked: model.NotificationDislike,
	event.TypeUserWarned:      model.NotificationWarning,
}

// NotificationDispatcher turns domain events into stored notifications.
type NotificationDispatcher struct {
	store NotificationStore
	bus   event.Bus
}

func NewNotificationDispatcher(store NotificationStore, bus event.Bus) *NotificationDispatcher {
	return &NotificationDispatcher{store: store, bus: bus}
}

// Run consumes events until ctx is done. ready, when not nil, is closed
// once the subscription is active.
func (d *NotificationDispatcher) Run(ctx context.Context, ready chan<- struct{}) {
	events, unsubscribe := d.bus.Subscribe()
	defer unsubscribe()

	if ready != nil {
		close(ready)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			d.handle(ctx, e)
		}
	}
}

func (d *NotificationDispatcher) handle(ctx context.Context, e event.Event) {
	typ, ok := notificationTypes[e.Type]
	if !ok || e.RecipientID == "" {
		return
	}

	n := model.Notification{
		ID:         uuid.NewString(),
		UserID:     e.RecipientID,
		ActorID:    e.ActorID,
		Type:       typ,
		Message:    e.Message,
		TargetType: e.TargetType,
		TargetID:   e.TargetID,
		CreatedAt:  e.Timestamp,
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	insertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := d.store.Insert(insertCtx, n); err != nil {
		slog.Error("failed to store notification", "event_id", e.ID, "type", e.Type, "recipient_id", e.RecipientID, "error", err)
	}
}
