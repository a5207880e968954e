package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// RealIP resolves the client address once and stores it on the context.
func RealIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), clientIPContextKey, resolveClientIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(clientIPContextKey).(string); ok && ip != "" {
		return ip
	}
	return resolveClientIP(r)
}

func resolveClientIP(r *http.Request) string {
	ip := ""
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		ip = strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}

	if ip == "" {
		ip = strings.TrimSpace(r.Header.Get("X-Real-IP"))
	}

	if ip == "" {
		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil {
			ip = host
		} else {
			ip = strings.TrimSpace(r.RemoteAddr)
		}
	}

	return normalizeIP(ip)
}

// normalizeIP folds loopback and IPv4-mapped IPv6 addresses to IPv4 form.
func normalizeIP(ip string) string {
	if ip == "" {
		return "unknown"
	}
	if ip == "::1" {
		return "127.0.0.1"
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ip
	}
	if v4 := parsed.To4(); v4 != nil {
		return v4.String()
	}
	return parsed.String()
}
