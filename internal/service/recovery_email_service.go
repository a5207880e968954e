package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"forum-backend/internal/metrics"
	"forum-backend/internal/model"
	"forum-backend/internal/notify"
	"forum-backend/internal/session"
	"forum-backend/pkg/apierror"
)

const RecoveryChallengeTTL = 10 * time.Minute

// RecoveryEmailService binds a secondary email to an account after the
// owner proves control of it with a code. Each session holds at most one
// pending challenge.
type RecoveryEmailService struct {
	users      UserStore
	challenges session.ChallengeStore
	notifier   notify.Notifier
	activity   ActivityRecorder
	now        func() time.Time
}

func NewRecoveryEmailService(users UserStore, challenges session.ChallengeStore, notifier notify.Notifier, activity ActivityRecorder) *RecoveryEmailService {
	return &RecoveryEmailService{
		users:      users,
		challenges: challenges,
		notifier:   notifier,
		activity:   activity,
		now:        time.Now,
	}
}

func (s *RecoveryEmailService) Set(ctx context.Context, actor model.Actor, email string) error {
	email = strings.TrimSpace(email)
	if actor.SessionID == "" {
		return model.ErrUnauthorized
	}

	user, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return err
	}

	if strings.EqualFold(email, user.Email) {
		return model.ErrSameAsPrimary
	}

	inUse, err := s.users.EmailInUse(ctx, email, user.ID)
	if err != nil {
		return err
	}
	if inUse {
		return apierror.Conflict("email is already in use", "")
	}

	otp, err := GenerateOTP()
	if err != nil {
		return err
	}

	challenge := model.RecoveryChallenge{
		UserID:    user.ID,
		Email:     email,
		OTP:       otp,
		ExpiresAt: s.now().UTC().Add(RecoveryChallengeTTL),
	}
	if err := s.challenges.Put(ctx, actor.SessionID, challenge); err != nil {
		return err
	}

	msg, err := notify.NewRecoveryEmailMessage(email, notify.RecoveryEmail{
		Username:  user.Username,
		OTP:       otp,
		ExpiresIn: RecoveryChallengeTTL,
	})
	if err == nil {
		err = s.notifier.Send(ctx, msg)
	}
	if err != nil {
		metrics.OTPDelivery(string(notify.PurposeRecoveryEmail), metrics.DeliveryFailed)
		slog.Error("failed to deliver recovery email code", "user_id", user.ID, "error", err)
		if delErr := s.challenges.Delete(ctx, actor.SessionID); delErr != nil {
			slog.Error("failed to clear recovery challenge", "user_id", user.ID, "error", delErr)
		}
		return apierror.New("INTERNAL_ERROR", "could not deliver verification code", "", http.StatusInternalServerError)
	}

	metrics.OTPDelivery(string(notify.PurposeRecoveryEmail), metrics.DeliverySent)
	return nil
}

// Verify checks otp against the session's pending challenge. An expired
// challenge is cleared, so a later attempt reports no pending challenge.
func (s *RecoveryEmailService) Verify(ctx context.Context, actor model.Actor, otp string) (string, error) {
	if strings.TrimSpace(otp) == "" {
		return "", apierror.BadRequest("otp is required", "")
	}
	if actor.SessionID == "" {
		return "", model.ErrNoPendingChallenge
	}

	challenge, ok, err := s.challenges.Get(ctx, actor.SessionID)
	if err != nil {
		return "", err
	}
	if !ok || challenge.UserID != actor.UserID {
		return "", model.ErrNoPendingChallenge
	}

	if s.now().UTC().After(challenge.ExpiresAt) {
		if err := s.challenges.Delete(ctx, actor.SessionID); err != nil {
			return "", err
		}
		return "", model.ErrChallengeExpired
	}

	if !otpEqual(challenge.OTP, otp) {
		return "", model.ErrInvalidOTP
	}

	if err := s.users.SetRecoveryEmail(ctx, actor.UserID, challenge.Email); err != nil {
		return "", err
	}
	if err := s.challenges.Delete(ctx, actor.SessionID); err != nil {
		slog.Error("failed to clear recovery challenge", "user_id", actor.UserID, "error", err)
	}

	s.activity.Record(ctx, actor.UserID, "Added recovery email", actor.IP)
	return challenge.Email, nil
}

type RecoveryEmailView struct {
	RecoveryEmail *string `json:"recovery_email"`
	PrimaryEmail  string  `json:"primary_email"`
}

func (s *RecoveryEmailService) Get(ctx context.Context, actor model.Actor) (RecoveryEmailView, error) {
	user, err := s.users.FindByID(ctx, actor.UserID)
	if errors.Is(err, model.ErrUserNotFound) {
		return RecoveryEmailView{}, model.ErrUserNotFound
	}
	if err != nil {
		return RecoveryEmailView{}, err
	}

	view := RecoveryEmailView{PrimaryEmail: user.Email}
	if user.RecoveryEmail != "" {
		recovery := user.RecoveryEmail
		view.RecoveryEmail = &recovery
	}
	return view, nil
}
