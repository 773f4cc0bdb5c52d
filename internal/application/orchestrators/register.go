package orchestrators

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"strings"
	textTemplate "text/template"

	"liftlog/internal/adapters/email"
	"liftlog/internal/domain/account"
)

// UserStoreForRegister defines the store interface needed by Register.
type UserStoreForRegister interface {
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	Create(ctx context.Context, u account.User) (int64, error)
}

// RegisterInput carries input for the register orchestrator.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// RegisterDeps holds dependencies for Register.
type RegisterDeps struct {
	UserStore   UserStoreForRegister
	EmailSender email.Sender // optional: nil skips the welcome email
	EmailFrom   string
}

// ValidationError reports per-field form errors.
type ValidationError struct {
	Fields account.FieldErrors
}

// Error implements error.
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, field := range []string{"username", "email", "password"} {
		if msg, ok := e.Fields[field]; ok {
			parts = append(parts, field+": "+msg)
		}
	}
	return "invalid registration: " + strings.Join(parts, "; ")
}

// ErrUserExists is returned when the username or email is already registered.
var ErrUserExists = errors.New("user with this email or username already exists")

// ExecuteRegister creates a new user account.
// PRE: none; input is validated here
// POST: One user row with a bcrypt hash, or no row and an error
// INVARIANT: Username and email are unique across users
func ExecuteRegister(ctx context.Context, input RegisterInput, deps RegisterDeps) (int64, error) {
	if fields := account.ValidateRegistration(input.Username, input.Email, input.Password); len(fields) > 0 {
		return 0, &ValidationError{Fields: fields}
	}

	exists, err := deps.UserStore.ExistsByUsernameOrEmail(ctx, input.Username, input.Email)
	if err != nil {
		return 0, err
	}
	if exists {
		slog.InfoContext(ctx, "auth_event", "event", "register_rejected", "username", input.Username, "reason", "exists")
		return 0, ErrUserExists
	}

	u := account.User{Username: input.Username, Email: input.Email}
	if err := u.SetPassword(input.Password); err != nil {
		return 0, err
	}

	id, err := deps.UserStore.Create(ctx, u)
	if err != nil {
		if errors.Is(err, account.ErrDuplicate) {
			slog.WarnContext(ctx, "auth_event", "event", "register_race", "username", input.Username)
		}
		return 0, err
	}
	slog.InfoContext(ctx, "auth_event", "event", "register_success", "username", input.Username, "user_id", id)

	sendWelcome(ctx, deps, u)
	return id, nil
}

const welcomeSubject = "Welcome to Liftlog"

var (
	welcomeHTML = template.Must(template.New("welcome_html").Parse(
		`<p>Hi {{.}},</p><p>Your Liftlog account is ready. Log in to start recording your workouts.</p>`,
	))
	welcomeText = textTemplate.Must(textTemplate.New("welcome_text").Parse(
		"Hi {{.}},\n\nYour Liftlog account is ready. Log in to start recording your workouts.\n",
	))
)

// sendWelcome is best effort; failures are logged only.
func sendWelcome(ctx context.Context, deps RegisterDeps, u account.User) {
	if deps.EmailSender == nil {
		return
	}
	var html, text strings.Builder
	if err := welcomeHTML.Execute(&html, u.Username); err != nil {
		slog.ErrorContext(ctx, "welcome_email_failed", "username", u.Username, "error", err)
		return
	}
	if err := welcomeText.Execute(&text, u.Username); err != nil {
		slog.ErrorContext(ctx, "welcome_email_failed", "username", u.Username, "error", err)
		return
	}
	id, err := deps.EmailSender.Send(ctx, email.Message{
		To:      u.Email,
		From:    deps.EmailFrom,
		Subject: welcomeSubject,
		HTML:    html.String(),
		Text:    text.String(),
		Tag:     "welcome",
	})
	if err != nil {
		slog.ErrorContext(ctx, "welcome_email_failed", "username", u.Username, "error", err)
		return
	}
	slog.InfoContext(ctx, "auth_event", "event", "welcome_sent", "username", u.Username, "message_id", id)
}
