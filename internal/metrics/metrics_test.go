package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAndHandler(t *testing.T) {
	Init()
	Init()

	before := testutil.ToFloat64(passwordResetEvents.WithLabelValues(ResetCompleted))
	PasswordReset(ResetCompleted)
	assert.Equal(t, before+1, testutil.ToFloat64(passwordResetEvents.WithLabelValues(ResetCompleted)))

	OTPDelivery("password_reset", DeliverySent)
	RequestStarted()
	RequestFinished(http.MethodGet, "/api/v1/health", "200", 0.01)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "forum_password_reset_events_total")
	assert.Contains(t, string(body), `forum_http_requests_total{method="GET",route="/api/v1/health",status="200"}`)
	assert.Contains(t, string(body), "forum_otp_deliveries_total")
}
