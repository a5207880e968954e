package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forum-backend/internal/model"
	"forum-backend/internal/session"
)

type recoveryFixture struct {
	svc      *RecoveryEmailService
	users    *fakeUsers
	store    *session.MemoryStore
	notifier *fakeNotifier
	activity *fakeActivity
	actor    model.Actor
	now      time.Time
}

func newRecoveryFixture(t *testing.T) *recoveryFixture {
	t.Helper()

	user := model.User{ID: uuid.NewString(), Username: "bob", Email: "bob@x.com", Role: model.RoleMember}
	other := model.User{ID: uuid.NewString(), Username: "carol", Email: "carol@x.com", Role: model.RoleMember}

	f := &recoveryFixture{
		users:    newFakeUsers(user, other),
		store:    session.NewMemoryStore(time.Hour),
		notifier: &fakeNotifier{},
		activity: &fakeActivity{},
		actor:    model.Actor{UserID: user.ID, Username: user.Username, Role: user.Role, SessionID: "jti-1"},
		now:      time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	f.svc = NewRecoveryEmailService(f.users, f.store, f.notifier, f.activity)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *recoveryFixture) sentOTP(t *testing.T) string {
	t.Helper()
	c, ok, err := f.store.Get(context.Background(), f.actor.SessionID)
	require.NoError(t, err)
	require.True(t, ok)
	return c.OTP
}

func TestRecoverySetRejectsPrimary(t *testing.T) {
	f := newRecoveryFixture(t)
	err := f.svc.Set(context.Background(), f.actor, "BOB@x.com")
	require.ErrorIs(t, err, model.ErrSameAsPrimary)
	assert.Equal(t, 0, f.store.Len())
}

func TestRecoverySetRejectsEmailOfAnotherUser(t *testing.T) {
	f := newRecoveryFixture(t)
	err := f.svc.Set(context.Background(), f.actor, "carol@x.com")
	assert.True(t, isStatus(err, http.StatusConflict))
}

func TestRecoverySetSendsCodeToCandidate(t *testing.T) {
	f := newRecoveryFixture(t)
	require.NoError(t, f.svc.Set(context.Background(), f.actor, "bob.alt@y.com"))

	msgs := f.notifier.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "bob.alt@y.com", msgs[0].To)
	assert.Contains(t, msgs[0].Text, f.sentOTP(t))
}

func TestRecoverySetOverwritesPendingChallenge(t *testing.T) {
	f := newRecoveryFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Set(ctx, f.actor, "first@y.com"))
	require.NoError(t, f.svc.Set(ctx, f.actor, "second@y.com"))

	assert.Equal(t, 1, f.store.Len())
	email, err := f.svc.Verify(ctx, f.actor, f.sentOTP(t))
	require.NoError(t, err)
	assert.Equal(t, "second@y.com", email)
}

func TestRecoverySetDeliveryFailureClearsSlot(t *testing.T) {
	f := newRecoveryFixture(t)
	f.notifier.err = errBoom

	err := f.svc.Set(context.Background(), f.actor, "bob.alt@y.com")
	assert.True(t, isStatus(err, http.StatusInternalServerError))
	assert.Equal(t, 0, f.store.Len())
}

func TestRecoveryVerifyWithoutChallenge(t *testing.T) {
	f := newRecoveryFixture(t)
	_, err := f.svc.Verify(context.Background(), f.actor, "123456")
	require.ErrorIs(t, err, model.ErrNoPendingChallenge)
}

func TestRecoveryVerifyIsSessionScoped(t *testing.T) {
	f := newRecoveryFixture(t)
	require.NoError(t, f.svc.Set(context.Background(), f.actor, "bob.alt@y.com"))
	otp := f.sentOTP(t)

	otherSession := f.actor
	otherSession.SessionID = "jti-2"
	_, err := f.svc.Verify(context.Background(), otherSession, otp)
	require.ErrorIs(t, err, model.ErrNoPendingChallenge)
}

func TestRecoveryVerifyWrongOTPKeepsChallenge(t *testing.T) {
	f := newRecoveryFixture(t)
	require.NoError(t, f.svc.Set(context.Background(), f.actor, "bob.alt@y.com"))
	otp := f.sentOTP(t)

	wrong := "100000"
	if otp == wrong {
		wrong = "100001"
	}
	_, err := f.svc.Verify(context.Background(), f.actor, wrong)
	require.ErrorIs(t, err, model.ErrInvalidOTP)
	assert.Equal(t, 1, f.store.Len())
}

func TestRecoveryVerifyExpiredClearsSlot(t *testing.T) {
	f := newRecoveryFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Set(ctx, f.actor, "bob.alt@y.com"))
	otp := f.sentOTP(t)

	f.now = f.now.Add(RecoveryChallengeTTL + time.Second)

	_, err := f.svc.Verify(ctx, f.actor, otp)
	require.ErrorIs(t, err, model.ErrChallengeExpired)

	_, err = f.svc.Verify(ctx, f.actor, otp)
	require.ErrorIs(t, err, model.ErrNoPendingChallenge)
	assert.Empty(t, f.users.get(f.actor.UserID).RecoveryEmail)
}

func TestRecoveryExpiredChallengeSurvivesJanitor(t *testing.T) {
	f := newRecoveryFixture(t)
	f.store = session.NewMemoryStore(SessionTTL)
	f.svc = NewRecoveryEmailService(f.users, f.store, f.notifier, f.activity)
	f.svc.now = func() time.Time { return f.now }
	ctx := context.Background()

	f.now = time.Now().UTC().Add(-15 * time.Minute)
	require.NoError(t, f.svc.Set(ctx, f.actor, "bob.alt@y.com"))
	otp := f.sentOTP(t)

	f.now = time.Now().UTC()
	assert.Equal(t, 0, f.store.Sweep())

	_, err := f.svc.Verify(ctx, f.actor, otp)
	require.ErrorIs(t, err, model.ErrChallengeExpired)
	assert.Equal(t, 0, f.store.Len())
}

func TestRecoveryVerifySuccess(t *testing.T) {
	f := newRecoveryFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Set(ctx, f.actor, "bob.alt@y.com"))

	email, err := f.svc.Verify(ctx, f.actor, f.sentOTP(t))
	require.NoError(t, err)
	assert.Equal(t, "bob.alt@y.com", email)
	assert.Equal(t, "bob.alt@y.com", f.users.get(f.actor.UserID).RecoveryEmail)
	assert.Equal(t, 0, f.store.Len())
	assert.Contains(t, f.activity.actions(), "Added recovery email")

	view, err := f.svc.Get(ctx, f.actor)
	require.NoError(t, err)
	require.NotNil(t, view.RecoveryEmail)
	assert.Equal(t, "bob.alt@y.com", *view.RecoveryEmail)
	assert.Equal(t, "bob@x.com", view.PrimaryEmail)
}
