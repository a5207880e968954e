//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"forum-backend/internal/app"
	"forum-backend/internal/config"
	"forum-backend/internal/model"
)

// The suite runs against a disposable PostgreSQL database named by
// FORUM_TEST_DATABASE_URL and is skipped when it is unset.
const databaseURLEnv = "FORUM_TEST_DATABASE_URL"

type testServer struct {
	*httptest.Server
	pool *pgxpool.Pool
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *model.APIError `json:"error"`
	Meta    *model.Meta     `json:"meta"`
}

func testConfig(t *testing.T, databaseURL string) *config.Config {
	t.Helper()

	return &config.Config{
		AppEnv:                  config.EnvDevelopment,
		ServerPort:              "0",
		ServerReadHeaderTimeout: 5 * time.Second,
		ServerWriteTimeout:      30 * time.Second,
		ServerIdleTimeout:       60 * time.Second,
		RequestTimeout:          10 * time.Second,
		DatabaseURL:             databaseURL,
		DBMaxConns:              4,
		DBMinConns:              0,
		JWTSecret:               "integration-secret-integration-secret",
		BcryptCost:              4,
		CORSOrigins:             []string{"*"},
		RateLimitRPM:            0,
		AuthRateLimitRPM:        0,
		ResetRateLimitPerHour:   0,
		ResetAdminEmail:         "admin@forum.test",
		FrontendURL:             "http://localhost:3000",
		MailDriver:              config.MailDriverLog,
		StorageDriver:           config.StorageDriverLocal,
		UploadRoot:              t.TempDir(),
		OpenAPISpecPath:         "../../docs/openapi.yaml",
		LogLevel:                "error",
		LogFormat:               "json",
	}
}

func newServer(t *testing.T, tweak ...func(*config.Config)) *testServer {
	t.Helper()

	databaseURL := strings.TrimSpace(os.Getenv(databaseURLEnv))
	if databaseURL == "" {
		t.Skipf("%s is not set", databaseURLEnv)
	}

	cfg := testConfig(t, databaseURL)
	for _, fn := range tweak {
		fn(cfg)
	}

	application, err := app.New(cfg)
	require.NoError(t, err)
	t.Cleanup(application.Close)

	pool, err := pgxpool.New(context.Background(), databaseURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	server := httptest.NewServer(application.Handler())
	t.Cleanup(server.Close)

	return &testServer{Server: server, pool: pool}
}

func uniqueName(prefix string) string {
	return prefix + uuid.NewString()[:8]
}

func (s *testServer) do(t *testing.T, method string, path string, body any, token string) (int, envelope) {
	t.Helper()

	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}

	req, err := http.NewRequest(method, s.URL+path, &payload)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var parsed envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	return resp.StatusCode, parsed
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

type account struct {
	User  model.User
	Email string
	Token string
}

func (s *testServer) signUp(t *testing.T, password string) account {
	t.Helper()

	username := uniqueName("user")
	email := username + "@forum.test"
	status, body := s.do(t, http.MethodPost, "/api/v1/auth/register", model.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	}, "")
	require.Equal(t, http.StatusCreated, status, body.Error)

	return account{User: decodeData[model.User](t, body), Email: email, Token: s.login(t, email, password)}
}

func (s *testServer) login(t *testing.T, email string, password string) string {
	t.Helper()

	status, body := s.do(t, http.MethodPost, "/api/v1/auth/login", model.LoginRequest{Email: email, Password: password}, "")
	require.Equal(t, http.StatusOK, status, body.Error)
	return decodeData[model.SessionToken](t, body).Token
}

// signUpAdmin promotes a fresh account directly in the database; the token
// is reissued so its role claim reflects the promotion.
func (s *testServer) signUpAdmin(t *testing.T) account {
	t.Helper()

	acc := s.signUp(t, "admin-pass")
	_, err := s.pool.Exec(context.Background(), `UPDATE users SET role = $1 WHERE id = $2`, model.RoleAdmin, acc.User.ID)
	require.NoError(t, err)
	acc.User.Role = model.RoleAdmin
	acc.Token = s.login(t, acc.Email, "admin-pass")
	return acc
}
