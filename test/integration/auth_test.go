//go:build integration

package integration

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forum-backend/internal/model"
	"forum-backend/internal/service"
)

func TestAuthFlowAndProtectedEndpoints(t *testing.T) {
	server := newServer(t)
	acc := server.signUp(t, "secret1")

	status, body := server.do(t, http.MethodGet, "/api/v1/auth/me", nil, acc.Token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, acc.User.ID, decodeData[model.User](t, body).ID)

	status, _ = server.do(t, http.MethodGet, "/api/v1/notifications", nil, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = server.do(t, http.MethodGet, "/api/v1/admin/users", nil, acc.Token)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", body.Error.Code)
}

func TestPasswordResetAgainstDatabase(t *testing.T) {
	server := newServer(t)
	acc := server.signUp(t, "secret1")
	admin := server.signUpAdmin(t)

	status, body := server.do(t, http.MethodPost, "/api/v1/password/request-reset", model.RequestResetRequest{Email: acc.Email}, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, service.ResetRequestedMessage, decodeData[model.MessageResponse](t, body).Message)

	status, body = server.do(t, http.MethodGet, "/api/v1/admin/password-reset-requests", nil, admin.Token)
	require.Equal(t, http.StatusOK, status)

	var entry model.ResetRequestView
	for _, candidate := range decodeData[[]model.ResetRequestView](t, body) {
		if candidate.Email == acc.Email {
			entry = candidate
		}
	}
	require.NotEmpty(t, entry.Token)

	status, body = server.do(t, http.MethodPost, "/api/v1/password/reset", model.CompleteResetRequest{
		Token:    entry.Token,
		OTP:      entry.OTP,
		Password: "changed1",
	}, "")
	require.Equal(t, http.StatusOK, status, body.Error)

	status, body = server.do(t, http.MethodPost, "/api/v1/password/reset", model.CompleteResetRequest{
		Token:    entry.Token,
		OTP:      entry.OTP,
		Password: "changed2",
	}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_OR_EXPIRED", body.Error.Code)

	server.login(t, acc.Email, "changed1")
}

func TestBannedAccountCannotLogIn(t *testing.T) {
	server := newServer(t)
	acc := server.signUp(t, "secret1")
	admin := server.signUpAdmin(t)

	status, _ := server.do(t, http.MethodPut, "/api/v1/users/"+acc.User.ID+"/ban", nil, admin.Token)
	require.Equal(t, http.StatusOK, status)

	status, body := server.do(t, http.MethodPost, "/api/v1/auth/login", model.LoginRequest{Email: acc.Email, Password: "secret1"}, "")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "ACCOUNT_BANNED", body.Error.Code)

	status, _ = server.do(t, http.MethodGet, "/api/v1/auth/me", nil, acc.Token)
	assert.Equal(t, http.StatusForbidden, status)

	var banned bool
	require.NoError(t, server.pool.QueryRow(context.Background(), `SELECT is_banned FROM users WHERE id = $1`, acc.User.ID).Scan(&banned))
	assert.True(t, banned)
}
