package web

import (
	"embed"
	"io/fs"
	"net/http"
	"time"

	"liftlog/internal/adapters/email"
	"liftlog/internal/adapters/http/middleware"
	accountStore "liftlog/internal/adapters/storage/account"
	workoutStore "liftlog/internal/adapters/storage/workout"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Stores holds all storage dependencies.
type Stores struct {
	UserStore    accountStore.Store
	WorkoutStore workoutStore.Store
}

// Options configures NewMux.
type Options struct {
	SessionKey     []byte // 32 or 64 bytes
	CSRFKey        []byte // 32 bytes
	Secure         bool   // production: Secure cookies and strict CSRF Referer checks
	TrustedOrigins []string
	SlowRequest    time.Duration
}

// Global stores instance (set by NewMux)
var stores *Stores

// Global session manager (set by NewMux)
var sessionManager *middleware.SessionManager

// Global email sender instance (set by SetEmailSender)
var emailSender email.Sender

// Email configuration
var emailFromAddress string

// SetEmailSender sets the global email sender for the application.
func SetEmailSender(sender email.Sender, from string) {
	emailSender = sender
	emailFromAddress = from
}

// NewMux wires HTTP handlers for the app.
// PRE: s has both stores set; opts carries valid keys
// POST: Returns the fully wrapped handler
func NewMux(s *Stores, opts Options) http.Handler {
	stores = s
	sessionManager = middleware.NewSessionManager(opts.SessionKey, opts.Secure)

	mux := http.NewServeMux()
	registerRoutes(mux)

	// Apply middleware: Timing -> Auth -> CSRF -> SecurityHeaders -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(opts.CSRFKey, middleware.CSRFOptions{
			Secure:         opts.Secure,
			TrustedOrigins: opts.TrustedOrigins,
		}),
		middleware.Auth(sessionManager),
		middleware.Timing(opts.SlowRequest),
	)
}

// registerRoutes binds every page to the mux.
func registerRoutes(mux *http.ServeMux) {
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))

	requireHome := middleware.RequireAuth(sessionManager, msgLoginForHome)
	requireData := middleware.RequireAuth(sessionManager, msgLoginForData)

	mux.HandleFunc("GET /{$}", handleIndex)
	mux.HandleFunc("GET /register", handleRegisterForm)
	mux.HandleFunc("POST /register", handleRegister)
	mux.HandleFunc("GET /login", handleLoginForm)
	mux.HandleFunc("POST /login", handleLogin)
	mux.Handle("GET /home", requireHome(http.HandlerFunc(handleHome)))
	mux.HandleFunc("GET /calendar", handleCalendar)
	mux.HandleFunc("GET /calendar/{year}/{month}", handleCalendar)
	mux.HandleFunc("GET /workout", handleWorkoutForm)
	mux.HandleFunc("POST /workout", handleAddWorkout)
	mux.Handle("GET /data_view", requireData(http.HandlerFunc(handleDataView)))
	mux.HandleFunc("GET /workouts", handleAllWorkouts)
	mux.HandleFunc("POST /delete_workout/{workout_id}", handleDeleteWorkout)
	mux.HandleFunc("GET /workout-check", handleWorkoutCheck)
	mux.HandleFunc("GET /logout", handleLogout)
}
