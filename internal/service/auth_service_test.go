package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"forum-backend/internal/model"
)

func newTestAuthService(t *testing.T) (*AuthService, *fakeUsers, *fakeActivity) {
	t.Helper()

	users := newFakeUsers()
	activity := &fakeActivity{}
	tokens := newTestTokenService(t, time.Now())

	svc, err := NewAuthService(users, tokens, activity, bcrypt.MinCost)
	require.NoError(t, err)
	return svc, users, activity
}

func TestRegisterThenLogin(t *testing.T) {
	svc, _, activity := newTestAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, model.RegisterRequest{Username: "alice", Email: "alice@x.com", Password: "secret1"}, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, user.Role)

	session, err := svc.Login(ctx, "alice@x.com", "secret1", "10.0.0.1")
	require.NoError(t, err)

	claims, _, err := svc.Authenticate(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, model.RoleMember, claims.Role)

	assert.Contains(t, activity.actions(), "User registered: alice")
	assert.Contains(t, activity.actions(), "User login")
}

func TestRegisterDuplicates(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, model.RegisterRequest{Username: "alice", Email: "alice@x.com", Password: "secret1"}, "")
	require.NoError(t, err)

	_, err = svc.Register(ctx, model.RegisterRequest{Username: "other", Email: "ALICE@x.com", Password: "secret1"}, "")
	assert.True(t, isStatus(err, http.StatusConflict))

	_, err = svc.Register(ctx, model.RegisterRequest{Username: "Alice", Email: "new@x.com", Password: "secret1"}, "")
	assert.True(t, isStatus(err, http.StatusConflict))
}

func TestLoginUnknownAndWrongPasswordMatch(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, model.RegisterRequest{Username: "alice", Email: "alice@x.com", Password: "secret1"}, "")
	require.NoError(t, err)

	_, errUnknown := svc.Login(ctx, "nobody@x.com", "secret1", "")
	_, errWrong := svc.Login(ctx, "alice@x.com", "wrong-pass", "")

	require.ErrorIs(t, errUnknown, model.ErrInvalidCredentials)
	require.ErrorIs(t, errWrong, model.ErrInvalidCredentials)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
}

func TestLoginBannedAccount(t *testing.T) {
	svc, users, _ := newTestAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, model.RegisterRequest{Username: "alice", Email: "alice@x.com", Password: "secret1"}, "")
	require.NoError(t, err)
	require.NoError(t, users.SetBanned(ctx, user.ID, true))

	_, err = svc.Login(ctx, "alice@x.com", "secret1", "")
	require.ErrorIs(t, err, model.ErrAccountBanned)

	_, err = svc.Login(ctx, "alice@x.com", "wrong-pass", "")
	require.ErrorIs(t, err, model.ErrInvalidCredentials)
}

func TestAuthenticateRechecksAccount(t *testing.T) {
	svc, users, _ := newTestAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, model.RegisterRequest{Username: "alice", Email: "alice@x.com", Password: "secret1"}, "")
	require.NoError(t, err)
	session, err := svc.Login(ctx, "alice@x.com", "secret1", "")
	require.NoError(t, err)

	require.NoError(t, users.SetBanned(ctx, user.ID, true))
	_, _, err = svc.Authenticate(ctx, session.Token)
	require.ErrorIs(t, err, model.ErrAccountBanned)

	users.mu.Lock()
	delete(users.users, user.ID)
	users.mu.Unlock()
	_, _, err = svc.Authenticate(ctx, session.Token)
	require.ErrorIs(t, err, model.ErrInvalidToken)
}
