package middleware

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"forum-backend/internal/metrics"
)

// Metrics records request counts and latencies by chi route pattern, so
// path parameters do not explode label cardinality.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.RequestStarted()
		started := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			metrics.RequestFinished(r.Method, route, strconv.Itoa(wrapped.status), time.Since(started).Seconds())
		}()

		next.ServeHTTP(wrapped, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	s.wroteHeader = true
	s.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
