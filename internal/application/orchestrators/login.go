package orchestrators

import (
	"context"
	"errors"
	"log/slog"

	"liftlog/internal/domain/account"
)

// UserStoreForLogin defines the store interface needed by Login.
type UserStoreForLogin interface {
	GetByUsername(ctx context.Context, username string) (account.User, error)
}

// LoginInput carries input for the login orchestrator.
type LoginInput struct {
	Username string
	Password string
}

// LoginResult carries the result of a successful login.
type LoginResult struct {
	UserID   int64
	Username string
}

// LoginDeps holds dependencies for Login.
type LoginDeps struct {
	UserStore UserStoreForLogin
}

var (
	ErrMissingCredentials = errors.New("username and password are required")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// ExecuteLogin validates credentials and returns the identity to store in the session.
// PRE: none
// POST: Returns the user on a matching password; otherwise ErrMissingCredentials or ErrInvalidCredentials
// INVARIANT: The error never reveals which of username or password was wrong
func ExecuteLogin(ctx context.Context, input LoginInput, deps LoginDeps) (LoginResult, error) {
	if input.Username == "" || input.Password == "" {
		return LoginResult{}, ErrMissingCredentials
	}

	u, err := deps.UserStore.GetByUsername(ctx, input.Username)
	if errors.Is(err, account.ErrNotFound) {
		slog.InfoContext(ctx, "auth_event", "event", "login_failed", "username", input.Username, "reason", "not_found")
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}

	if err := u.CheckPassword(input.Password); err != nil {
		slog.InfoContext(ctx, "auth_event", "event", "login_failed", "username", input.Username, "reason", "wrong_password")
		return LoginResult{}, ErrInvalidCredentials
	}

	slog.InfoContext(ctx, "auth_event", "event", "login_success", "username", u.Username, "user_id", u.ID)
	return LoginResult{UserID: u.ID, Username: u.Username}, nil
}
