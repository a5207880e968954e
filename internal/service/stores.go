package service

import (
	"context"
	"time"

	"forum-backend/internal/model"
)

// The interfaces below are the persistence needs of the services; the
// pgx repositories in internal/repository implement them.

type UserStore interface {
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	FindByAnyEmail(ctx context.Context, email string) (model.User, error)
	EmailInUse(ctx context.Context, email string, exceptID string) (bool, error)
	UsernameInUse(ctx context.Context, username string, exceptID string) (bool, error)
	Create(ctx context.Context, u model.User) error
	List(ctx context.Context) ([]model.User, error)
	UpdateProfile(ctx context.Context, id string, username string, email string) error
	SetRecoveryEmail(ctx context.Context, id string, email string) error
	SetBanned(ctx context.Context, id string, banned bool) error
	SetProfilePicture(ctx context.Context, id string, key string) error
	Anonymize(ctx context.Context, id string, username string, email string, passwordHash string) error
}

type ResetLedger interface {
	Replace(ctx context.Context, req model.ResetRequest) error
	FindActiveByToken(ctx context.Context, token string, now time.Time) (model.ResetRequest, error)
	Redeem(ctx context.Context, token string, now time.Time, check func(model.ResetRequest) (string, error)) (string, error)
	ListActive(ctx context.Context, now time.Time) ([]model.ResetRequestView, error)
	MarkUsed(ctx context.Context, id string, now time.Time) error
}

type ActivityStore interface {
	Insert(ctx context.Context, entry model.ActivityEntry) error
	Query(ctx context.Context, query model.ActivityQuery) ([]model.ActivityEntry, model.Meta, error)
	Recent(ctx context.Context, userID string, limit int) ([]model.ActivityEntry, error)
}

type CategoryStore interface {
	Create(ctx context.Context, c model.Category) error
	FindByID(ctx context.Context, id string) (model.Category, error)
	List(ctx context.Context) ([]model.Category, error)
	Update(ctx context.Context, c model.Category) error
	Delete(ctx context.Context, id string) error
}

type ThreadStore interface {
	Create(ctx context.Context, t model.Thread) error
	FindByID(ctx context.Context, id string) (model.Thread, error)
	List(ctx context.Context, categoryID string) ([]model.Thread, error)
	Update(ctx context.Context, t model.Thread) error
	Delete(ctx context.Context, id string) ([]string, error)
}

type PostStore interface {
	Create(ctx context.Context, p model.Post) error
	FindByID(ctx context.Context, id string) (model.Post, error)
	ListByThread(ctx context.Context, threadID string) ([]model.Post, error)
	UpdateContent(ctx context.Context, id string, content string, now time.Time) error
	SetAttachment(ctx context.Context, id string, key string, now time.Time) error
	Delete(ctx context.Context, id string) error
}

type LikeStore interface {
	Toggle(ctx context.Context, like model.Like) (string, model.Like, error)
	Counts(ctx context.Context, targetType string, targetID string, userID string) (model.LikeCounts, error)
}

type ReportStore interface {
	Create(ctx context.Context, rep model.Report) error
	FindByID(ctx context.Context, id string) (model.Report, error)
	List(ctx context.Context, query model.ReportQuery) ([]model.Report, error)
	UpdateStatus(ctx context.Context, id string, status string, notes string, now time.Time) error
	AppendNote(ctx context.Context, id string, note string, now time.Time) error
}

type NotificationStore interface {
	Insert(ctx context.Context, n model.Notification) error
	List(ctx context.Context, query model.NotificationQuery) ([]model.Notification, error)
	MarkRead(ctx context.Context, userID string, ids []string) (int64, error)
}
