package web

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"liftlog/internal/adapters/http/middleware"
	"liftlog/internal/adapters/storage"
	accountStore "liftlog/internal/adapters/storage/account"
	workoutStore "liftlog/internal/adapters/storage/workout"
	accountDomain "liftlog/internal/domain/account"
	workoutDomain "liftlog/internal/domain/workout"
)

func init() {
	accountDomain.HashCost = bcrypt.MinCost
}

var testSessionKey = bytes.Repeat([]byte("s"), 32)

// setupTestStores opens a migrated SQLite database and installs real stores.
func setupTestStores(t *testing.T) *Stores {
	t.Helper()
	ctx := context.Background()
	db, err := storage.Open(ctx, storage.DialectSQLite, storage.DefaultSQLiteDSN(filepath.Join(t.TempDir(), "web.db")))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.MigrateDB(ctx, db, storage.DialectSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return &Stores{
		UserStore:    accountStore.NewSQLStore(db),
		WorkoutStore: workoutStore.NewSQLStore(db),
	}
}

// testServer serves the routes without CSRF so forms can be posted directly.
func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	stores = setupTestStores(t)
	sessionManager = middleware.NewSessionManager(testSessionKey, false)
	SetEmailSender(nil, "")

	mux := http.NewServeMux()
	registerRoutes(mux)
	return newServer(t, middleware.Chain(mux, middleware.Auth(sessionManager)))
}

func newServer(t *testing.T, h http.Handler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

// browser is a cookie-keeping client that does not follow redirects.
type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func newBrowser(t *testing.T, srv *httptest.Server) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &browser{
		t:    t,
		base: srv.URL,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// page is a fully read response.
type page struct {
	Status   int
	Location string
	Body     string
}

func (b *browser) do(req *http.Request) page {
	b.t.Helper()
	resp, err := b.client.Do(req)
	if err != nil {
		b.t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		b.t.Fatalf("read body: %v", err)
	}
	return page{Status: resp.StatusCode, Location: resp.Header.Get("Location"), Body: string(body)}
}

func (b *browser) get(path string) page {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodGet, b.base+path, nil)
	if err != nil {
		b.t.Fatalf("new request: %v", err)
	}
	return b.do(req)
}

func (b *browser) post(path string, form url.Values) page {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodPost, b.base+path, strings.NewReader(form.Encode()))
	if err != nil {
		b.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

// follow asserts a 302 to want and returns the page it points at.
func (b *browser) follow(p page, want string) page {
	b.t.Helper()
	if p.Status != http.StatusFound || p.Location != want {
		b.t.Fatalf("got %d -> %q, want 302 -> %q", p.Status, p.Location, want)
	}
	return b.get(want)
}

func (b *browser) register(username, email, password string) page {
	b.t.Helper()
	return b.post("/register", url.Values{"username": {username}, "email": {email}, "password": {password}})
}

func (b *browser) login(username, password string) page {
	b.t.Helper()
	return b.post("/login", url.Values{"username": {username}, "password": {password}})
}

// signUp registers and logs in, failing the test on any unexpected redirect.
func (b *browser) signUp(username string) {
	b.t.Helper()
	b.follow(b.register(username, username+"@x.com", "secret1"), "/login")
	b.follow(b.login(username, "secret1"), "/home")
}

func workoutForm(date, exercise string) url.Values {
	return url.Values{
		"date":      {date},
		"body_part": {"legs"},
		"exercise":  {exercise},
		"weight":    {"100"},
		"reps":      {"5"},
	}
}

func listWorkouts(t *testing.T, userID int64) []workoutDomain.Workout {
	t.Helper()
	list, err := stores.WorkoutStore.List(context.Background(), workoutStore.ListFilter{UserID: userID})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	return list
}

func userID(t *testing.T, username string) int64 {
	t.Helper()
	u, err := stores.UserStore.GetByUsername(context.Background(), username)
	if err != nil {
		t.Fatalf("GetByUsername(%s): %v", username, err)
	}
	return u.ID
}

// userExists reports whether either identity is registered.
func userExists(t *testing.T, username, email string) bool {
	t.Helper()
	ok, err := stores.UserStore.ExistsByUsernameOrEmail(context.Background(), username, email)
	if err != nil {
		t.Fatalf("ExistsByUsernameOrEmail: %v", err)
	}
	return ok
}

func assertContains(t *testing.T, body, want string) {
	t.Helper()
	if !strings.Contains(body, want) {
		t.Errorf("body does not contain %q", want)
	}
}

func assertNotContains(t *testing.T, body, unwanted string) {
	t.Helper()
	if strings.Contains(body, unwanted) {
		t.Errorf("body unexpectedly contains %q", unwanted)
	}
}
