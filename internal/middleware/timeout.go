package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Timeout bounds the request context. Handlers observe the deadline through
// their database and storage calls; responses are not buffered, so file
// downloads stream directly. Websocket upgrades keep the connection's
// own lifetime.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if websocket.IsWebSocketUpgrade(r) {
				next.ServeHTTP(w, r)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
