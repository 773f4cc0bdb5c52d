package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"liftlog/internal/adapters/storage"
	domain "liftlog/internal/domain/account"
)

// SQLStore implements Store on the users table. The queries are portable
// between SQLite and MySQL.
type SQLStore struct {
	db storage.SQLDB
}

// NewSQLStore creates a new user store.
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

const selectUser = "SELECT id, username, email, password FROM users"

// GetByUsername retrieves a User by exact username.
// PRE: username is non-empty
// POST: Returns the user or domain.ErrNotFound
func (s *SQLStore) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	row := s.db.QueryRowContext(ctx, selectUser+" WHERE username = ?", username)
	return scanUser(row.Scan)
}

// ExistsByUsernameOrEmail reports whether either identity is already registered.
func (s *SQLStore) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM users WHERE email = ? OR username = ? LIMIT 1", email, username,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("user lookup failed: %w", err)
	}
	return true, nil
}

// Create inserts a new User and returns its id.
// PRE: u carries a password hash
// POST: Row committed; an invalid user is rejected before any SQL runs;
// a uniqueness race rolls back with domain.ErrDuplicate
func (s *SQLStore) Create(ctx context.Context, u domain.User) (int64, error) {
	if err := u.Validate(); err != nil {
		return 0, err
	}
	if u.PasswordHash == "" {
		return 0, domain.ErrEmptyPassword
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO users (username, email, password) VALUES (?, ?, ?)",
		u.Username, u.Email, u.PasswordHash,
	)
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return 0, domain.ErrDuplicate
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		if storage.IsUniqueViolation(err) {
			return 0, domain.ErrDuplicate
		}
		return 0, err
	}
	return id, nil
}

// scanUser extracts a User from a row scanner function.
func scanUser(scan func(dest ...any) error) (domain.User, error) {
	var u domain.User
	err := scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}
