package account

import (
	"context"

	domain "liftlog/internal/domain/account"
)

// Store persists User credentials.
type Store interface {
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	Create(ctx context.Context, u domain.User) (int64, error)
}
