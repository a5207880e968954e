package service

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"forum-backend/internal/metrics"
	"forum-backend/internal/model"
	"forum-backend/internal/notify"
	"forum-backend/internal/util"
	"forum-backend/pkg/apierror"
)

const ResetTTL = 30 * time.Minute

const resetDeliveryTimeout = 30 * time.Second

// ResetRequestedMessage is returned for every reset request so callers cannot
// learn whether an address is registered.
const ResetRequestedMessage = "If the email is registered, a reset code has been issued"

type PasswordResetConfig struct {
	AdminEmail  string
	FrontendURL string
	BcryptCost  int
}

// PasswordResetService drives the reset ledger: issuing token and OTP pairs,
// previewing a token and redeeming it exactly once.
type PasswordResetService struct {
	users    UserStore
	ledger   ResetLedger
	notifier notify.Notifier
	activity ActivityRecorder
	cfg      PasswordResetConfig
	now      func() time.Time
	inflight sync.WaitGroup
}

func NewPasswordResetService(users UserStore, ledger ResetLedger, notifier notify.Notifier, activity ActivityRecorder, cfg PasswordResetConfig) *PasswordResetService {
	return &PasswordResetService{
		users:    users,
		ledger:   ledger,
		notifier: notifier,
		activity: activity,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Request issues a new reset for email when it belongs to an account. The
// outcome is identical whether or not the email matched; failures after a
// match are logged rather than returned. The administrator notification is
// sent in the background and outlives ctx.
func (s *PasswordResetService) Request(ctx context.Context, email string, ip string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apierror.BadRequest("email is required", "")
	}

	metrics.PasswordReset(metrics.ResetRequested)

	user, err := s.users.FindByAnyEmail(ctx, email)
	if errors.Is(err, model.ErrUserNotFound) {
		slog.Debug("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return err
	}

	token, err := GenerateResetToken()
	if err != nil {
		return err
	}
	otp, err := GenerateOTP()
	if err != nil {
		return err
	}

	now := s.now().UTC()
	req := model.ResetRequest{
		ID:        util.NewULID(now),
		Email:     email,
		Token:     token,
		OTP:       otp,
		ExpiresAt: now.Add(ResetTTL),
		CreatedAt: now,
	}

	if err := s.ledger.Replace(ctx, req); err != nil {
		slog.Error("failed to store password reset", "user_id", user.ID, "error", err)
		return nil
	}

	s.activity.Record(ctx, user.ID, "Requested password reset", ip)
	detached := context.WithoutCancel(ctx)
	s.inflight.Go(func() {
		sendCtx, cancel := context.WithTimeout(detached, resetDeliveryTimeout)
		defer cancel()
		s.deliver(sendCtx, user, req)
	})

	return nil
}

// Wait blocks until every background notification has been attempted.
func (s *PasswordResetService) Wait() {
	s.inflight.Wait()
}

func (s *PasswordResetService) deliver(ctx context.Context, user model.User, req model.ResetRequest) {
	msg, err := notify.NewPasswordResetMessage(s.cfg.AdminEmail, notify.PasswordReset{
		Username:  user.Username,
		Email:     req.Email,
		OTP:       req.OTP,
		ResetLink: s.resetLink(req.Token),
		ExpiresIn: ResetTTL,
	})
	if err == nil {
		err = s.notifier.Send(ctx, msg)
	}

	if err != nil {
		metrics.OTPDelivery(string(notify.PurposePasswordReset), metrics.DeliveryFailed)
		slog.Error("failed to deliver password reset code", "reset_id", req.ID, "error", err)
		return
	}

	metrics.OTPDelivery(string(notify.PurposePasswordReset), metrics.DeliverySent)
	slog.Info("password reset code delivered to administrator", "reset_id", req.ID, "user_id", user.ID)
}

func (s *PasswordResetService) resetLink(token string) string {
	base := strings.TrimRight(s.cfg.FrontendURL, "/")
	return base + "/reset-password?token=" + url.QueryEscape(token)
}

// Validate previews an active token without consuming it.
func (s *PasswordResetService) Validate(ctx context.Context, token string) (model.TokenPreview, error) {
	if strings.TrimSpace(token) == "" {
		return model.TokenPreview{}, model.ErrInvalidOrExpired
	}

	req, err := s.ledger.FindActiveByToken(ctx, token, s.now().UTC())
	if err != nil {
		return model.TokenPreview{}, err
	}

	return model.TokenPreview{Valid: true, Email: MaskEmail(req.Email)}, nil
}

// Complete redeems token and otp, replacing the password. The password
// change and the ledger update commit together, and only one caller can
// redeem a given entry.
func (s *PasswordResetService) Complete(ctx context.Context, token string, otp string, password string, ip string) error {
	if token == "" || otp == "" || password == "" {
		return model.ErrMissingFields
	}
	if utf8.RuneCountInString(password) < minPasswordLen {
		return model.ErrWeakPassword
	}

	userID, err := s.ledger.Redeem(ctx, token, s.now().UTC(), func(entry model.ResetRequest) (string, error) {
		if !otpEqual(entry.OTP, otp) {
			return "", model.ErrInvalidOTP
		}
		return hashPassword(password, s.cfg.BcryptCost)
	})
	if err != nil {
		metrics.PasswordReset(metrics.ResetRejected)
		return err
	}

	metrics.PasswordReset(metrics.ResetCompleted)
	s.activity.Record(ctx, userID, "Reset password with OTP", ip)
	return nil
}

func (s *PasswordResetService) ListActive(ctx context.Context) ([]model.ResetRequestView, error) {
	return s.ledger.ListActive(ctx, s.now().UTC())
}

// MarkUsed retires an entry on an administrator's behalf.
func (s *PasswordResetService) MarkUsed(ctx context.Context, actor model.Actor, id string) error {
	if err := s.ledger.MarkUsed(ctx, id, s.now().UTC()); err != nil {
		return err
	}
	s.activity.Record(ctx, actor.UserID, "Marked password reset request "+id+" as used", actor.IP)
	return nil
}
