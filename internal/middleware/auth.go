package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"forum-backend/internal/model"
)

// Authenticator verifies a session token and reloads its user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (model.SessionClaims, model.User, error)
}

type contextKey string

const (
	authClaimsContextKey contextKey = "auth_claims"
	clientIPContextKey   contextKey = "client_ip"
)

type AuthMiddleware struct {
	auth Authenticator
}

func NewAuthMiddleware(auth Authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[7:])
	return token, token != ""
}

// QueryToken lets websocket handshakes, which browsers cannot give an
// Authorization header, carry the session token as ?token=.
func QueryToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := bearerToken(r); !ok {
			if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" && websocket.IsWebSocketUpgrade(r) {
				r.Header.Set("Authorization", "Bearer "+token)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth rejects requests without a valid token for an active account.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid authorization header")
			return
		}

		claims, _, err := m.auth.Authenticate(r.Context(), token)
		if err != nil {
			if errors.Is(err, model.ErrAccountBanned) {
				writeJSONError(w, http.StatusForbidden, "ACCOUNT_BANNED", "account is banned")
				return
			}
			if !errors.Is(err, model.ErrInvalidToken) {
				writeJSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Unexpected server error")
				return
			}
			writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), authClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuth attaches claims when a valid token is presented and
// otherwise lets the request through anonymously.
func (m *AuthMiddleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token, ok := bearerToken(r); ok {
			if claims, _, err := m.auth.Authenticate(r.Context(), token); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), authClaimsContextKey, claims))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (m *AuthMiddleware) RequireRoles(allowedRoles ...string) func(http.Handler) http.Handler {
	roleSet := map[string]struct{}{}
	for _, role := range allowedRoles {
		roleSet[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}

			if _, exists := roleSet[strings.ToLower(claims.Role)]; !exists {
				writeJSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func ClaimsFromContext(ctx context.Context) (model.SessionClaims, bool) {
	claims, ok := ctx.Value(authClaimsContextKey).(model.SessionClaims)
	return claims, ok
}

// ActorFromRequest describes the caller of r for service calls.
func ActorFromRequest(r *http.Request) model.Actor {
	actor := model.Actor{IP: ClientIP(r)}

	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		return actor
	}

	actor.UserID = claims.UserID
	actor.Username = claims.Username
	actor.Role = claims.Role
	actor.SessionID = claims.TokenID
	return actor
}
