package middleware

import (
	"context"
	"log/slog"
	"net/http"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const sessionContextKey contextKey = "session"

// Session is the login state carried by the session cookie.
// The flag is trusted for the life of the cookie; it is not re-checked against storage.
type Session struct {
	LoggedIn bool
	Username string
	UserID   int64
}

// Auth returns middleware that loads the session cookie and puts a logged-in
// Session in the request context.
// It does NOT block unauthenticated requests; use RequireAuth for that.
func Auth(m *SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s := m.Load(r); s.LoggedIn {
				r = r.WithContext(ContextWithSession(r.Context(), s))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth returns middleware that redirects anonymous requests to /login
// with the given flash message.
func RequireAuth(m *SessionManager, flash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := GetSessionFromContext(r.Context()); !ok {
				slog.InfoContext(r.Context(), "auth_event", "event", "gate_redirect", "path", r.URL.Path)
				m.AddFlash(r, FlashError, flash)
				if err := m.Save(w, r); err != nil {
					slog.ErrorContext(r.Context(), "session_save_failed", "error", err)
				}
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetSessionFromContext extracts the logged-in session from the request context.
func GetSessionFromContext(ctx context.Context) (Session, bool) {
	session, ok := ctx.Value(sessionContextKey).(Session)
	return session, ok
}

// ContextWithSession returns a context with the given session set.
func ContextWithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}
