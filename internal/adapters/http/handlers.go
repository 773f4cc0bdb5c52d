package web

import (
	"bytes"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"liftlog/internal/adapters/http/middleware"
	"liftlog/internal/application/orchestrators"
	"liftlog/internal/application/projections"
	accountDomain "liftlog/internal/domain/account"
	calendarDomain "liftlog/internal/domain/calendar"
	workoutDomain "liftlog/internal/domain/workout"
)

// timeNow is a variable for testability.
var timeNow = time.Now

// Flash messages shown to the user.
const (
	msgUserExists       = "User with this email or username already exists!"
	msgTryAgain         = "An error occurred. Please try again."
	msgRegistered       = "Registration successful! Please log in."
	msgMissingLogin     = "Please enter both username and password."
	msgBadLogin         = "Invalid username or password. Please try again."
	msgLoggedIn         = "Login successful!"
	msgLoginForHome     = "Please log in to access the home page."
	msgLoginForWorkout  = "You must be logged in to add a workout."
	msgMissingFields    = "Please fill in all required fields"
	msgWorkoutAdded     = "Workout added successfully!"
	msgLoginForData     = "You must be logged in to view your data."
	msgWorkoutDeleted   = "Workout deleted successfully!"
	msgLoggedOut        = "You have been logged out."
	msgWorkoutErrPrefix = "Error adding workout: "
)

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set).
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// renderMarkdown converts workout notes to HTML.
func renderMarkdown(md string) template.HTML {
	if md == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "internal_error", "path", r.URL.Path, "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// renderTemplate renders a page inside layout.html. Pending flashes are
// consumed, and the session re-saved, before anything is written.
func renderTemplate(w http.ResponseWriter, r *http.Request, templateName string, data any) {
	sess, loggedIn := middleware.GetSessionFromContext(r.Context())
	flashes := sessionManager.PopFlashes(r)

	funcMap := template.FuncMap{
		"isLoggedIn":      func() bool { return loggedIn },
		"currentUsername": func() string { return sess.Username },
		"csrfField":       func() template.HTML { return csrf.TemplateField(r) },
		"flashes":         func() []middleware.Flash { return flashes },
		"renderMarkdown":  renderMarkdown,
	}

	tpl, err := template.New("layout.html").Funcs(funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+templateName)
	if err != nil {
		internalError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		internalError(w, r, err)
		return
	}
	if len(flashes) > 0 {
		if err := sessionManager.Save(w, r); err != nil {
			internalError(w, r, err)
			return
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// flashRedirect queues a flash message and redirects.
func flashRedirect(w http.ResponseWriter, r *http.Request, category, message, target string) {
	sessionManager.AddFlash(r, category, message)
	if err := sessionManager.Save(w, r); err != nil {
		internalError(w, r, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// parsePathInt accepts only unsigned decimal path segments.
func parsePathInt(s string) (int, bool) {
	if s == "" || strings.TrimLeft(s, "0123456789") != "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// handleIndex handles GET /
func handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/home", http.StatusFound)
}

// registerForm holds the values echoed back on a failed registration.
type registerForm struct {
	Username string
	Email    string
}

// handleRegisterForm handles GET /register
func handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	renderTemplate(w, r, "register.html", map[string]any{
		"Form":   registerForm{},
		"Errors": accountDomain.FieldErrors{},
	})
}

// handleRegister handles POST /register
func handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	input := orchestrators.RegisterInput{
		Username: strings.TrimSpace(r.FormValue("username")),
		Email:    strings.TrimSpace(r.FormValue("email")),
		Password: r.FormValue("password"),
	}
	deps := orchestrators.RegisterDeps{
		UserStore:   stores.UserStore,
		EmailSender: emailSender,
		EmailFrom:   emailFromAddress,
	}

	_, err := orchestrators.ExecuteRegister(r.Context(), input, deps)
	var verr *orchestrators.ValidationError
	switch {
	case err == nil:
		flashRedirect(w, r, middleware.FlashSuccess, msgRegistered, "/login")
	case errors.As(err, &verr):
		renderTemplate(w, r, "register.html", map[string]any{
			"Form":   registerForm{Username: input.Username, Email: input.Email},
			"Errors": verr.Fields,
		})
	case errors.Is(err, orchestrators.ErrUserExists):
		flashRedirect(w, r, middleware.FlashError, msgUserExists, "/register")
	default:
		if !errors.Is(err, accountDomain.ErrDuplicate) {
			slog.ErrorContext(r.Context(), "register_failed", "username", input.Username, "error", err)
		}
		flashRedirect(w, r, middleware.FlashError, msgTryAgain, "/register")
	}
}

// handleLoginForm handles GET /login
func handleLoginForm(w http.ResponseWriter, r *http.Request) {
	renderTemplate(w, r, "login.html", nil)
}

// handleLogin handles POST /login
func handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	input := orchestrators.LoginInput{
		Username: strings.TrimSpace(r.FormValue("username")),
		Password: r.FormValue("password"),
	}
	deps := orchestrators.LoginDeps{
		UserStore: stores.UserStore,
	}

	result, err := orchestrators.ExecuteLogin(r.Context(), input, deps)
	switch {
	case err == nil:
		sessionManager.Login(r, result.UserID, result.Username)
		flashRedirect(w, r, middleware.FlashSuccess, msgLoggedIn, "/home")
	case errors.Is(err, orchestrators.ErrMissingCredentials):
		flashRedirect(w, r, middleware.FlashError, msgMissingLogin, "/login")
	case errors.Is(err, orchestrators.ErrInvalidCredentials):
		flashRedirect(w, r, middleware.FlashError, msgBadLogin, "/login")
	default:
		slog.ErrorContext(r.Context(), "login_failed", "username", input.Username, "error", err)
		flashRedirect(w, r, middleware.FlashError, msgTryAgain, "/login")
	}
}

// handleHome handles GET /home
func handleHome(w http.ResponseWriter, r *http.Request) {
	renderTemplate(w, r, "home.html", nil)
}

// handleCalendar handles GET /calendar and GET /calendar/{year}/{month}
func handleCalendar(w http.ResponseWriter, r *http.Request) {
	now := timeNow()
	ym := calendarDomain.YearMonth{Year: now.Year(), Month: now.Month()}

	if ys, ms := r.PathValue("year"), r.PathValue("month"); ys != "" || ms != "" {
		year, okY := parsePathInt(ys)
		month, okM := parsePathInt(ms)
		if !okY || !okM {
			http.NotFound(w, r)
			return
		}
		ym = calendarDomain.YearMonth{Year: year, Month: time.Month(month)}
	}

	month, err := calendarDomain.Build(ym, now)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	renderTemplate(w, r, "calendar.html", map[string]any{
		"Month": month,
	})
}

// handleWorkoutForm handles GET /workout
func handleWorkoutForm(w http.ResponseWriter, r *http.Request) {
	renderTemplate(w, r, "workout.html", map[string]any{
		"Today": timeNow().Format(workoutDomain.DateLayout),
	})
}

// workoutInputErrors are reported back to the user verbatim.
var workoutInputErrors = []error{
	workoutDomain.ErrInvalidDate,
	workoutDomain.ErrInvalidWeight,
	workoutDomain.ErrInvalidReps,
	workoutDomain.ErrBodyPartTooLong,
	workoutDomain.ErrExerciseTooLong,
	workoutDomain.ErrNotesTooLong,
}

// handleAddWorkout handles POST /workout
func handleAddWorkout(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	sess, _ := middleware.GetSessionFromContext(r.Context())
	input := orchestrators.AddWorkoutInput{
		UserID: sess.UserID,
		Form: workoutDomain.Form{
			Date:     r.FormValue("date"),
			BodyPart: r.FormValue("body_part"),
			Exercise: r.FormValue("exercise"),
			Weight:   r.FormValue("weight"),
			Reps:     r.FormValue("reps"),
			Notes:    r.FormValue("notes"),
		},
	}
	deps := orchestrators.AddWorkoutDeps{
		WorkoutStore: stores.WorkoutStore,
	}

	_, err := orchestrators.ExecuteAddWorkout(r.Context(), input, deps)
	if err == nil {
		flashRedirect(w, r, middleware.FlashSuccess, msgWorkoutAdded, "/workout")
		return
	}
	if errors.Is(err, orchestrators.ErrNotAuthenticated) {
		flashRedirect(w, r, middleware.FlashError, msgLoginForWorkout, "/login")
		return
	}
	if errors.Is(err, workoutDomain.ErrMissingFields) {
		flashRedirect(w, r, middleware.FlashError, msgMissingFields, "/workout")
		return
	}
	for _, known := range workoutInputErrors {
		if errors.Is(err, known) {
			flashRedirect(w, r, middleware.FlashError, msgWorkoutErrPrefix+err.Error(), "/workout")
			return
		}
	}
	slog.ErrorContext(r.Context(), "add_workout_failed", "user_id", sess.UserID, "error", err)
	flashRedirect(w, r, middleware.FlashError, msgWorkoutErrPrefix+"could not save workout", "/workout")
}

// handleDataView handles GET /data_view
func handleDataView(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	result, err := projections.QueryGetWorkoutLog(r.Context(),
		projections.GetWorkoutLogQuery{UserID: sess.UserID},
		projections.GetWorkoutLogDeps{WorkoutStore: stores.WorkoutStore},
	)
	if errors.Is(err, projections.ErrNoOwner) {
		flashRedirect(w, r, middleware.FlashError, msgLoginForData, "/login")
		return
	}
	if err != nil {
		internalError(w, r, err)
		return
	}
	renderTemplate(w, r, "data.html", map[string]any{
		"Workouts": result.Workouts,
		"UserID":   sess.UserID,
		"AllUsers": false,
	})
}

// handleAllWorkouts handles GET /workouts.
// Lists every user's workouts without a session check.
func handleAllWorkouts(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	result, err := projections.QueryGetWorkoutLog(r.Context(),
		projections.GetWorkoutLogQuery{AllUsers: true},
		projections.GetWorkoutLogDeps{WorkoutStore: stores.WorkoutStore},
	)
	if err != nil {
		internalError(w, r, err)
		return
	}
	renderTemplate(w, r, "data.html", map[string]any{
		"Workouts": result.Workouts,
		"UserID":   sess.UserID,
		"AllUsers": true,
	})
}

// handleDeleteWorkout handles POST /delete_workout/{workout_id}
func handleDeleteWorkout(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePathInt(r.PathValue("workout_id"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	sess, _ := middleware.GetSessionFromContext(r.Context())
	deleted, err := orchestrators.ExecuteDeleteWorkout(r.Context(),
		orchestrators.DeleteWorkoutInput{WorkoutID: int64(id), UserID: sess.UserID},
		orchestrators.DeleteWorkoutDeps{WorkoutStore: stores.WorkoutStore},
	)
	switch {
	case errors.Is(err, orchestrators.ErrNotAuthenticated):
		flashRedirect(w, r, middleware.FlashError, msgLoginForData, "/login")
	case err != nil:
		slog.ErrorContext(r.Context(), "delete_workout_failed", "workout_id", id, "user_id", sess.UserID, "error", err)
		flashRedirect(w, r, middleware.FlashError, msgTryAgain, "/data_view")
	case deleted:
		flashRedirect(w, r, middleware.FlashSuccess, msgWorkoutDeleted, "/data_view")
	default:
		http.Redirect(w, r, "/data_view", http.StatusFound)
	}
}

// handleWorkoutCheck handles GET /workout-check
func handleWorkoutCheck(w http.ResponseWriter, r *http.Request) {
	renderTemplate(w, r, "workoutcheck.html", nil)
}

// handleLogout handles GET /logout
func handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := middleware.GetSessionFromContext(r.Context()); ok {
		slog.InfoContext(r.Context(), "auth_event", "event", "logout", "username", sess.Username)
	}
	sessionManager.Logout(r)
	flashRedirect(w, r, middleware.FlashInfo, msgLoggedOut, "/login")
}
