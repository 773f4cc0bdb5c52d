package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

// captureLogs redirects the default slog logger into a buffer for the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(LogHandler{slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})}))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

// TestTimingMiddleware_LogsRequest verifies a request line tagged with a uuid request id
// that handlers can read from the context.
func TestTimingMiddleware_LogsRequest(t *testing.T) {
	logs := captureLogs(t)
	var seen string
	handler := Timing(time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		w.Write([]byte("hello"))
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/home", nil))

	id := rr.Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("request id %q is not a uuid: %v", id, err)
	}
	if seen != id {
		t.Errorf("context id = %q, header id = %q", seen, id)
	}
	out := logs.String()
	for _, want := range []string{"msg=request", "path=/home", "bytes=5", "request_id=" + id} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q: %q", want, out)
		}
	}
}

// TestTimingMiddleware_IncomingRequestID verifies that only a well-formed incoming id is kept.
func TestTimingMiddleware_IncomingRequestID(t *testing.T) {
	captureLogs(t)
	handler := Timing(time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	upstream := uuid.NewString()

	tests := []struct {
		name     string
		incoming string
		wantSame bool
	}{
		{"uuid kept", upstream, true},
		{"garbage replaced", "not-a-uuid", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/home", nil)
			req.Header.Set(RequestIDHeader, tt.incoming)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			got := rr.Header().Get(RequestIDHeader)
			if (got == tt.incoming) != tt.wantSame {
				t.Errorf("request id = %q, incoming %q, wantSame %v", got, tt.incoming, tt.wantSame)
			}
			if _, err := uuid.Parse(got); err != nil {
				t.Errorf("request id %q is not a uuid", got)
			}
		})
	}
}

// TestLogHandler_NoRequestContext verifies records without a request id pass through unchanged.
func TestLogHandler_NoRequestContext(t *testing.T) {
	logs := captureLogs(t)
	slog.Default().With("component", "test").Info("plain")

	out := logs.String()
	if strings.Contains(out, "request_id") {
		t.Errorf("unexpected request_id: %q", out)
	}
	if !strings.Contains(out, "component=test") {
		t.Errorf("WithAttrs lost: %q", out)
	}
}

// TestTimingMiddleware_SkipsStatic verifies static assets are excluded from timing.
func TestTimingMiddleware_SkipsStatic(t *testing.T) {
	logs := captureLogs(t)
	handler := Timing(time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/static/style.css", nil))

	if logs.Len() != 0 {
		t.Errorf("expected no log for static asset, got %q", logs.String())
	}
	if rr.Header().Get(RequestIDHeader) != "" {
		t.Error("static asset should not get a request id")
	}
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

// TestTimingMiddleware_SlowRequest verifies the WARN line above the threshold.
func TestTimingMiddleware_SlowRequest(t *testing.T) {
	logs := captureLogs(t)
	handler := Timing(time.Nanosecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Millisecond)
		w.WriteHeader(http.StatusNotFound)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/missing", nil))

	out := logs.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "slow_request") {
		t.Errorf("expected slow_request warning, got %q", out)
	}
	if !strings.Contains(out, "status=404") {
		t.Errorf("expected captured status 404, got %q", out)
	}
}

// TestTimingMiddleware_HandlerPanic verifies that a panicking handler still
// runs the deferred logging and returns the writer to the pool.
func TestTimingMiddleware_HandlerPanic(t *testing.T) {
	logs := captureLogs(t)
	handler := Timing(time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic to propagate, got nil")
		}
		if !strings.Contains(logs.String(), "path=/panic") {
			t.Errorf("deferred log did not run: %q", logs.String())
		}
	}()

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/panic", nil))
}

// TestTimingMiddleware_PoolNoStateLeak verifies that recorder pool reuse
// does not leak status codes or byte counts between requests.
func TestTimingMiddleware_PoolNoStateLeak(t *testing.T) {
	logs := captureLogs(t)

	handler500 := Timing(time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal failure"))
	}))
	handler500.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/fail", nil))

	logs.Reset()
	handler200 := Timing(time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	rr := httptest.NewRecorder()
	handler200.ServeHTTP(rr, httptest.NewRequest("GET", "/ok", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(logs.String(), "status=200") || !strings.Contains(logs.String(), "bytes=2 ") {
		t.Errorf("pool leaked state: %q", logs.String())
	}
}

// BenchmarkTimingMiddleware measures per-request overhead.
func BenchmarkTimingMiddleware(b *testing.B) {
	handler := Timing(DefaultSlowRequest)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest("GET", "/bench", nil)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}
