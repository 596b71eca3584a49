package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/blogem/people-directory/userctx"
)

// AccessLogger logs every POST/PUT/DELETE request with the acting user.
// Reads are logged at debug level.
func AccessLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			attrs := []any{
				"request_id", userctx.GetRequestID(r.Context()),
				"user", userctx.GetUsername(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"ip", getIPAddress(r),
				"status", rec.status,
				"duration", time.Since(start),
			}

			if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodDelete {
				logger.Info("request", attrs...)
				return
			}
			logger.Debug("request", attrs...)
		})
	}
}

// getIPAddress extracts IP address from request, checking X-Forwarded-For first
func getIPAddress(r *http.Request) string {
	// Check X-Forwarded-For header (proxy/load balancer)
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		// Take first IP if multiple
		ips := strings.Split(forwarded, ",")
		return strings.TrimSpace(ips[0])
	}

	// Check X-Real-IP header
	realIP := r.Header.Get("X-Real-IP")
	if realIP != "" {
		return realIP
	}

	// Fall back to RemoteAddr
	ip := r.RemoteAddr
	// Remove port if present
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
