package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func loggedInRequest(t *testing.T, m *SessionManager, target string) *http.Request {
	t.Helper()
	req := httptest.NewRequest("POST", "/login", nil)
	rr := httptest.NewRecorder()
	m.Login(req, 7, "alice")
	if err := m.Save(rr, req); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return carry(rr, httptest.NewRequest("GET", target, nil))
}

// TestAuth_SetsSession tests that a valid cookie lands in the request context.
func TestAuth_SetsSession(t *testing.T) {
	m := NewSessionManager(testKey, false)
	var got Session
	var ok bool
	h := Auth(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = GetSessionFromContext(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), loggedInRequest(t, m, "/home"))
	if !ok || got.UserID != 7 || got.Username != "alice" {
		t.Errorf("session = %+v, ok = %v", got, ok)
	}
}

// TestAuth_Anonymous tests that requests without a cookie pass through without a session.
func TestAuth_Anonymous(t *testing.T) {
	m := NewSessionManager(testKey, false)
	called := false
	h := Auth(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if _, ok := GetSessionFromContext(r.Context()); ok {
			t.Error("anonymous request should have no session")
		}
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/home", nil))
	if !called {
		t.Error("next handler not called")
	}
}

// TestRequireAuth_Redirects tests the gate redirect and its flash.
func TestRequireAuth_Redirects(t *testing.T) {
	m := NewSessionManager(testKey, false)
	h := Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("protected handler should not run")
		}),
		RequireAuth(m, "Please log in to access the home page."),
		Auth(m),
	)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/home", nil))
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/login" {
		t.Fatalf("got %d -> %q, want 302 -> /login", rr.Code, rr.Header().Get("Location"))
	}

	next := carry(rr, httptest.NewRequest("GET", "/login", nil))
	flashes := m.PopFlashes(next)
	if len(flashes) != 1 || flashes[0].Message != "Please log in to access the home page." {
		t.Errorf("unexpected flashes: %+v", flashes)
	}
}

// TestRequireAuth_Allows tests that a logged-in request reaches the handler.
func TestRequireAuth_Allows(t *testing.T) {
	m := NewSessionManager(testKey, false)
	h := Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) }),
		RequireAuth(m, "nope"),
		Auth(m),
	)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, loggedInRequest(t, m, "/home"))
	if rr.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418", rr.Code)
	}
}

// TestMiddleware_RejectionLogsCarryRequestID tests that gate and CSRF rejections
// are logged with the request id assigned by Timing.
func TestMiddleware_RejectionLogsCarryRequestID(t *testing.T) {
	m := NewSessionManager(testKey, false)
	unreachable := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run")
	})

	tests := []struct {
		name    string
		handler http.Handler
		method  string
		event   string
	}{
		{"gate redirect", Chain(unreachable, RequireAuth(m, "nope"), Auth(m), Timing(time.Minute)), "GET", "gate_redirect"},
		{"csrf rejection", Chain(unreachable, CSRF(testKey, CSRFOptions{}), Timing(time.Minute)), "POST", "csrf_rejected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := captureLogs(t)
			rr := httptest.NewRecorder()
			tt.handler.ServeHTTP(rr, httptest.NewRequest(tt.method, "/data_view", nil))

			id := rr.Header().Get(RequestIDHeader)
			if id == "" {
				t.Fatal("no request id assigned")
			}
			var line string
			for _, l := range strings.Split(logs.String(), "\n") {
				if strings.Contains(l, tt.event) {
					line = l
				}
			}
			if line == "" {
				t.Fatalf("no %s record in %q", tt.event, logs.String())
			}
			if !strings.Contains(line, "request_id="+id) {
				t.Errorf("%s record lacks request_id=%s: %q", tt.event, id, line)
			}
		})
	}
}

// TestSecurityHeaders tests the response headers.
func TestSecurityHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).
		ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	for _, h := range []string{"Content-Security-Policy", "X-Frame-Options", "X-Content-Type-Options", "Referrer-Policy"} {
		if rr.Header().Get(h) == "" {
			t.Errorf("missing header %s", h)
		}
	}
}

// TestCSRF_RejectsMissingToken tests that a form post without a token is refused.
func TestCSRF_RejectsMissingToken(t *testing.T) {
	h := CSRF(testKey, CSRFOptions{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run")
	}))
	req := httptest.NewRequest("POST", "/workout", strings.NewReader(url.Values{"date": {"2024-03-01"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rr.Code)
	}
}

// TestCSRF_SafeMethodPasses tests that GET requests are served and issue a token cookie.
func TestCSRF_SafeMethodPasses(t *testing.T) {
	h := CSRF(testKey, CSRFOptions{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/workout", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
	if len(rr.Result().Cookies()) == 0 {
		t.Error("expected a CSRF cookie")
	}
}
