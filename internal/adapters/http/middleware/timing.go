package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSlowRequest is the default threshold for slow request warnings.
const DefaultSlowRequest = 200 * time.Millisecond

// RequestIDHeader carries the per-request id in both directions.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestIDFromContext returns the id assigned by Timing, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestID reuses a well-formed incoming id so a proxy's id survives into our logs.
func requestID(r *http.Request) string {
	if in := r.Header.Get(RequestIDHeader); in != "" {
		if parsed, err := uuid.Parse(in); err == nil {
			return parsed.String()
		}
	}
	return uuid.NewString()
}

// LogHandler adds the request_id attribute to records logged with a request context.
type LogHandler struct {
	slog.Handler
}

// Handle implements slog.Handler.
func (h LogHandler) Handle(ctx context.Context, rec slog.Record) error {
	if id := RequestIDFromContext(ctx); id != "" {
		rec.AddAttrs(slog.String("request_id", id))
	}
	return h.Handler.Handle(ctx, rec)
}

// WithAttrs implements slog.Handler.
func (h LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return LogHandler{h.Handler.WithAttrs(attrs)}
}

// WithGroup implements slog.Handler.
func (h LogHandler) WithGroup(name string) slog.Handler {
	return LogHandler{h.Handler.WithGroup(name)}
}

// responseRecorder captures status and body size for the access log.
type responseRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

// WriteHeader records the status code.
// PRE: code is a valid HTTP status code
// POST: status stored, header written to the wrapped writer
func (rr *responseRecorder) WriteHeader(code int) {
	rr.status = code
	rr.ResponseWriter.WriteHeader(code)
}

// Write counts body bytes.
func (rr *responseRecorder) Write(b []byte) (int, error) {
	n, err := rr.ResponseWriter.Write(b)
	rr.bytes += n
	return n, err
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (rr *responseRecorder) Unwrap() http.ResponseWriter {
	return rr.ResponseWriter
}

var recorderPool = sync.Pool{
	New: func() any { return &responseRecorder{} },
}

// Timing returns middleware that assigns a request id and logs request duration.
// Requests under /static/ are passed through untouched.
// Normal requests log at DEBUG; requests at or above threshold log at WARN.
func Timing(threshold time.Duration) func(http.Handler) http.Handler {
	if threshold <= 0 {
		threshold = DefaultSlowRequest
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/static/") {
				next.ServeHTTP(w, r)
				return
			}

			id := requestID(r)
			w.Header().Set(RequestIDHeader, id)
			ctx := context.WithValue(r.Context(), requestIDKey{}, id)

			rec := recorderPool.Get().(*responseRecorder)
			rec.ResponseWriter, rec.status, rec.bytes = w, http.StatusOK, 0
			start := time.Now()

			defer func() {
				elapsed := time.Since(start)
				level, msg := slog.LevelDebug, "request"
				if elapsed >= threshold {
					level, msg = slog.LevelWarn, "slow_request"
				}
				slog.LogAttrs(ctx, level, msg,
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", rec.status),
					slog.Int("bytes", rec.bytes),
					slog.Float64("duration_ms", float64(elapsed.Microseconds())/1000.0),
				)
				rec.ResponseWriter = nil
				recorderPool.Put(rec)
			}()

			next.ServeHTTP(rec, r.WithContext(ctx))
		})
	}
}
