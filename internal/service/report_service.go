package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"forum-backend/internal/event"
	"forum-backend/internal/model"
	"forum-backend/pkg/apierror"
)

type ReportService struct {
	reports  ReportStore
	users    UserStore
	threads  ThreadStore
	posts    PostStore
	bus      event.Bus
	activity ActivityRecorder
	now      func() time.Time
}

func NewReportService(reports ReportStore, users UserStore, threads ThreadStore, posts PostStore, bus event.Bus, activity ActivityRecorder) *ReportService {
	return &ReportService{
		reports:  reports,
		users:    users,
		threads:  threads,
		posts:    posts,
		bus:      bus,
		activity: activity,
		now:      time.Now,
	}
}

// reportedUser resolves the account responsible for a report target.
func (s *ReportService) reportedUser(ctx context.Context, targetType string, targetID string) (string, error) {
	switch targetType {
	case model.TargetUser:
		if !validID(targetID) {
			return "", model.ErrUserNotFound
		}
		user, err := s.users.FindByID(ctx, targetID)
		return user.ID, err
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

func (s *ReportService) Create(ctx context.Context, actor model.Actor, req model.ReportRequest) (model.Report, error) {
	ownerID, err := s.reportedUser(ctx, req.TargetType, req.TargetID)
	if err != nil {
		return model.Report{}, err
	}
	if ownerID == actor.UserID && req.TargetType == model.TargetUser {
		return model.Report{}, apierror.BadRequest("you cannot report yourself", "")
	}

	now := s.now().UTC()
	report := model.Report{
		ID:         uuid.NewString(),
		ReporterID: actor.UserID,
		Reporter:   actor.Username,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		Reason:     strings.TrimSpace(req.Reason),
		Status:     model.ReportPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.reports.Create(ctx, report); err != nil {
		return model.Report{}, err
	}

	s.activity.Record(ctx, actor.UserID, "Reported "+req.TargetType+" "+req.TargetID, actor.IP)
	return report, nil
}

func (s *ReportService) List(ctx context.Context, query model.ReportQuery) ([]model.Report, error) {
	return s.reports.List(ctx, query)
}

func (s *ReportService) get(ctx context.Context, id string) (model.Report, error) {
	if !validID(id) {
		return model.Report{}, model.ErrReportNotFound
	}
	return s.reports.FindByID(ctx, id)
}

func (s *ReportService) UpdateStatus(ctx context.Context, actor model.Actor, id string, req model.ReportStatusRequest) (model.Report, error) {
	report, err := s.get(ctx, id)
	if err != nil {
		return model.Report{}, err
	}

	if err := s.reports.UpdateStatus(ctx, report.ID, req.Status, strings.TrimSpace(req.AdminNotes), s.now().UTC()); err != nil {
		return model.Report{}, err
	}

	s.activity.Record(ctx, actor.UserID, "Updated report "+report.ID+" status to "+req.Status, actor.IP)
	return s.reports.FindByID(ctx, report.ID)
}

// Warn notifies the owner of the reported content and annotates the report.
func (s *ReportService) Warn(ctx context.Context, actor model.Actor, id string, message string) (model.Report, error) {
	report, err := s.get(ctx, id)
	if err != nil {
		return model.Report{}, err
	}

	ownerID, err := s.reportedUser(ctx, report.TargetType, report.TargetID)
	if err != nil {
		return model.Report{}, err
	}

	message = strings.TrimSpace(message)
	now := s.now().UTC()

	if err := s.reports.AppendNote(ctx, report.ID, "Warning sent: "+message, now); err != nil {
		return model.Report{}, err
	}

	s.bus.Publish(event.Event{
		Type:        event.TypeUserWarned,
		ActorID:     actor.UserID,
		RecipientID: ownerID,
		TargetType:  report.TargetType,
		TargetID:    report.TargetID,
		Message:     "Warning from moderators: " + message,
		Timestamp:   now,
	})

	s.activity.Record(ctx, actor.UserID, "Sent warning for report "+report.ID, actor.IP)
	return s.reports.FindByID(ctx, report.ID)
}
