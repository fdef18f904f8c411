// Package shield provides the HTTP middleware the service fronts its
// API with: request IDs, request logging, security headers, body
// limits and per-IP rate limiting.
//
// Usage:
//
//	r := chi.NewRouter()
//	r.Use(shield.RequestID)
//	r.Use(shield.RequestLogger(logger))
//	r.Use(shield.SecurityHeaders(shield.DefaultHeaders()))
//	r.Use(shield.MaxBody(2 << 20))
//	r.Use(shield.NewRateLimiter(120, time.Minute).Middleware)
package shield

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hazyhaar/refonte/idgen"
	"github.com/hazyhaar/refonte/kit"
)

var requestID = idgen.Prefixed("req_", idgen.Default)

// RequestID assigns every request an identifier, exposed in the
// context and echoed in the X-Request-ID response header. An inbound
// X-Request-ID is trusted and propagated instead.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = requestID()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := kit.WithRequestID(r.Context(), id)
		ctx = kit.WithRemoteAddr(ctx, r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// RequestLogger logs one line per request with status and duration.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w, status: 200}
			start := time.Now()
			next.ServeHTTP(sw, r)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", kit.GetRequestID(r.Context()),
			)
		})
	}
}

// MaxBody limits the request body size on every request.
func MaxBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
