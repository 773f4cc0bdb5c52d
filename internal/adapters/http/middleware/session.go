package middleware

import (
	"encoding/gob"
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
)

// SessionName is the cookie name carrying the signed session.
const SessionName = "liftlog_session"

const (
	keyLoggedIn = "logged_in"
	keyUsername = "username"
	keyUserID   = "user_id"
)

// Flash categories.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string
	Message  string
}

func init() {
	gob.Register(Flash{})
}

// SessionManager reads and writes the cookie-backed session.
// Session state lives entirely in the signed cookie; nothing is kept server side.
type SessionManager struct {
	store *sessions.CookieStore
}

// NewSessionManager creates a manager signing cookies with hashKey.
// PRE: len(hashKey) is 32 or 64
// POST: Cookies are HttpOnly, SameSite=Strict, scoped to "/" and live for the browser session
func NewSessionManager(hashKey []byte, secure bool) *SessionManager {
	store := sessions.NewCookieStore(hashKey)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   0,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
	return &SessionManager{store: store}
}

// session returns the request's session. A cookie that fails verification
// yields a fresh empty session.
func (m *SessionManager) session(r *http.Request) *sessions.Session {
	sess, err := m.store.Get(r, SessionName)
	if err != nil {
		slog.WarnContext(r.Context(), "session_decode_failed", "error", err, "path", r.URL.Path)
	}
	return sess
}

// Load reads the login state from the request cookie.
// POST: Session.LoggedIn is false when no valid session exists
func (m *SessionManager) Load(r *http.Request) Session {
	sess := m.session(r)
	var s Session
	s.LoggedIn, _ = sess.Values[keyLoggedIn].(bool)
	s.Username, _ = sess.Values[keyUsername].(string)
	s.UserID, _ = sess.Values[keyUserID].(int64)
	return s
}

// Login records the authenticated user. Call Save before writing the response.
// PRE: userID > 0, username non-empty
// POST: logged_in, username, user_id are set on the session
func (m *SessionManager) Login(r *http.Request, userID int64, username string) {
	sess := m.session(r)
	sess.Values[keyLoggedIn] = true
	sess.Values[keyUsername] = username
	sess.Values[keyUserID] = userID
}

// Logout clears the login state but keeps pending flashes.
// POST: logged_in, username, user_id are absent from the session
func (m *SessionManager) Logout(r *http.Request) {
	sess := m.session(r)
	delete(sess.Values, keyLoggedIn)
	delete(sess.Values, keyUsername)
	delete(sess.Values, keyUserID)
}

// AddFlash queues a message for the next rendered page.
func (m *SessionManager) AddFlash(r *http.Request, category, message string) {
	m.session(r).AddFlash(Flash{Category: category, Message: message})
}

// PopFlashes removes and returns all queued messages.
func (m *SessionManager) PopFlashes(r *http.Request) []Flash {
	var out []Flash
	for _, v := range m.session(r).Flashes() {
		if f, ok := v.(Flash); ok {
			out = append(out, f)
		}
	}
	return out
}

// Save writes the session cookie.
// PRE: Called before any body bytes or status are written
func (m *SessionManager) Save(w http.ResponseWriter, r *http.Request) error {
	return m.session(r).Save(r, w)
}
