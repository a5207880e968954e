//go:build integration

package integration

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forum-backend/internal/event"
	"forum-backend/internal/model"
)

func hasNotification(t *testing.T, server *testServer, token string, kind string, targetID string) bool {
	t.Helper()

	status, body := server.do(t, http.MethodGet, "/api/v1/notifications", nil, token)
	if status != http.StatusOK {
		return false
	}
	for _, n := range decodeData[[]model.Notification](t, body) {
		if n.Type == kind && (targetID == "" || n.TargetID == targetID) {
			return true
		}
	}
	return false
}

func TestThreadReplyLikeFlow(t *testing.T) {
	server := newServer(t)
	admin := server.signUpAdmin(t)
	author := server.signUp(t, "secret1")
	replier := server.signUp(t, "secret1")

	status, body := server.do(t, http.MethodPost, "/api/v1/categories", model.CategoryRequest{Name: uniqueName("General ")}, author.Token)
	require.Equal(t, http.StatusForbidden, status)

	status, body = server.do(t, http.MethodPost, "/api/v1/categories", model.CategoryRequest{Name: uniqueName("General "), Description: "chat"}, admin.Token)
	require.Equal(t, http.StatusCreated, status, body.Error)
	category := decodeData[model.Category](t, body)

	status, body = server.do(t, http.MethodPost, "/api/v1/threads", model.ThreadRequest{
		Title:      "First thread",
		Content:    "Hello forum",
		CategoryID: category.ID,
	}, author.Token)
	require.Equal(t, http.StatusCreated, status, body.Error)
	thread := decodeData[model.Thread](t, body)
	assert.Equal(t, author.User.ID, thread.UserID)

	status, body = server.do(t, http.MethodPost, "/api/v1/posts", model.PostRequest{ThreadID: thread.ID, Content: "Welcome!"}, replier.Token)
	require.Equal(t, http.StatusCreated, status, body.Error)
	post := decodeData[model.Post](t, body)

	status, body = server.do(t, http.MethodGet, "/api/v1/posts/thread/"+thread.ID, nil, "")
	require.Equal(t, http.StatusOK, status)
	posts := decodeData[[]model.Post](t, body)
	require.Len(t, posts, 1)
	assert.Equal(t, post.ID, posts[0].ID)

	require.Eventually(t, func() bool {
		return hasNotification(t, server, author.Token, model.NotificationReply, "")
	}, 3*time.Second, 50*time.Millisecond)

	status, body = server.do(t, http.MethodPut, "/api/v1/posts/"+post.ID, model.UpdatePostRequest{Content: "edited"}, author.Token)
	assert.Equal(t, http.StatusForbidden, status)

	toggle := model.ToggleLikeRequest{TargetType: model.TargetPost, TargetID: post.ID, Value: 1}
	status, body = server.do(t, http.MethodPost, "/api/v1/likes/toggle", toggle, author.Token)
	require.Equal(t, http.StatusOK, status, body.Error)
	outcome := decodeData[model.LikeOutcome](t, body)
	require.NotNil(t, outcome.Counts)
	assert.Equal(t, 1, outcome.Counts.Likes)

	status, body = server.do(t, http.MethodGet, "/api/v1/likes/post/"+post.ID, nil, author.Token)
	require.Equal(t, http.StatusOK, status)
	counts := decodeData[model.LikeCounts](t, body)
	require.NotNil(t, counts.UserReaction)
	assert.Equal(t, 1, *counts.UserReaction)

	status, body = server.do(t, http.MethodPost, "/api/v1/likes/toggle", toggle, author.Token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, decodeData[model.LikeOutcome](t, body).Counts.Likes)

	status, _ = server.do(t, http.MethodDelete, "/api/v1/posts/"+post.ID+"/moderate", nil, admin.Token)
	require.Equal(t, http.StatusOK, status)

	status, body = server.do(t, http.MethodGet, "/api/v1/posts/thread/"+thread.ID, nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decodeData[[]model.Post](t, body))

	status, _ = server.do(t, http.MethodDelete, "/api/v1/threads/"+thread.ID, nil, author.Token)
	require.Equal(t, http.StatusOK, status)

	status, _ = server.do(t, http.MethodGet, "/api/v1/threads/"+thread.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestReportAndWarningFlow(t *testing.T) {
	server := newServer(t)
	admin := server.signUpAdmin(t)
	reporter := server.signUp(t, "secret1")
	offender := server.signUp(t, "secret1")

	request := model.ReportRequest{TargetType: model.TargetUser, TargetID: offender.User.ID, Reason: "spam everywhere"}
	status, body := server.do(t, http.MethodPost, "/api/v1/reports", request, reporter.Token)
	require.Equal(t, http.StatusCreated, status, body.Error)
	report := decodeData[model.Report](t, body)
	assert.Equal(t, model.ReportPending, report.Status)

	status, body = server.do(t, http.MethodPost, "/api/v1/reports", request, reporter.Token)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = server.do(t, http.MethodGet, "/api/v1/reports", nil, reporter.Token)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = server.do(t, http.MethodPost, "/api/v1/reports/"+report.ID+"/warning", model.WarningRequest{Message: "Please stop"}, admin.Token)
	require.Equal(t, http.StatusOK, status, body.Error)
	assert.Contains(t, decodeData[model.Report](t, body).AdminNotes, "Please stop")

	require.Eventually(t, func() bool {
		return hasNotification(t, server, offender.Token, model.NotificationWarning, "")
	}, 3*time.Second, 50*time.Millisecond)

	status, body = server.do(t, http.MethodPut, "/api/v1/reports/"+report.ID+"/status", model.ReportStatusRequest{Status: model.ReportResolved}, admin.Token)
	require.Equal(t, http.StatusOK, status, body.Error)
	assert.Equal(t, model.ReportResolved, decodeData[model.Report](t, body).Status)

	var actions int
	require.NoError(t, server.pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM logs WHERE user_id = $1`, reporter.User.ID).Scan(&actions))
	assert.GreaterOrEqual(t, actions, 2)
}

func TestNotificationStreamPushesReplies(t *testing.T) {
	server := newServer(t)
	admin := server.signUpAdmin(t)
	author := server.signUp(t, "secret1")
	replier := server.signUp(t, "secret1")

	status, body := server.do(t, http.MethodPost, "/api/v1/categories", model.CategoryRequest{Name: uniqueName("Live ")}, admin.Token)
	require.Equal(t, http.StatusCreated, status, body.Error)
	category := decodeData[model.Category](t, body)

	status, body = server.do(t, http.MethodPost, "/api/v1/threads", model.ThreadRequest{Title: "Live", Content: "stream me", CategoryID: category.ID}, author.Token)
	require.Equal(t, http.StatusCreated, status, body.Error)
	thread := decodeData[model.Thread](t, body)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/notifications/stream?token=" + author.Token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })

	// The hub registers the connection asynchronously.
	time.Sleep(100 * time.Millisecond)

	status, _ = server.do(t, http.MethodPost, "/api/v1/posts", model.PostRequest{ThreadID: thread.ID, Content: "hi"}, replier.Token)
	require.Equal(t, http.StatusCreated, status)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var pushed event.Event
	require.NoError(t, conn.ReadJSON(&pushed))
	assert.Equal(t, event.TypePostReplied, pushed.Type)
	assert.Equal(t, author.User.ID, pushed.RecipientID)
}
