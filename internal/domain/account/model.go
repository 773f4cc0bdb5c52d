package account

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/mail"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// Field length limits for registration.
const (
	MinUsernameLength = 2
	MaxUsernameLength = 45
	MaxEmailLength    = 100
	MinPasswordLength = 6
	MaxPasswordLength = 255
)

// HashCost is the bcrypt cost used by SetPassword. Tests lower it to bcrypt.MinCost.
var HashCost = 12

// Domain errors
var (
	ErrEmptyUsername  = errors.New("username is required")
	ErrUsernameLength = errors.New("username must be between 2 and 45 characters")
	ErrEmptyEmail     = errors.New("email is required")
	ErrInvalidEmail   = errors.New("email address is not valid")
	ErrEmailTooLong   = errors.New("email cannot exceed 100 characters")
	ErrEmptyPassword  = errors.New("password is required")
	ErrPasswordLength = errors.New("password must be between 6 and 255 characters")
	ErrWrongPassword  = errors.New("incorrect password")
	ErrNotFound       = errors.New("user not found")
	ErrDuplicate      = errors.New("username or email already taken")
)

// User holds a registered account. The plaintext password is never stored.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
}

// FieldErrors maps a form field name to its validation message.
type FieldErrors map[string]string

// ValidateRegistration checks the registration form constraints.
// PRE: none
// POST: Returns an empty map when every field is acceptable
func ValidateRegistration(username, email, password string) FieldErrors {
	errs := FieldErrors{}
	if err := validateUsername(username); err != nil {
		errs["username"] = err.Error()
	}
	if err := validateEmail(email); err != nil {
		errs["email"] = err.Error()
	}
	if err := validatePassword(password); err != nil {
		errs["password"] = err.Error()
	}
	return errs
}

// Validate checks the persisted fields of a User.
// PRE: User struct is populated
// POST: Returns nil if valid, error otherwise
func (u *User) Validate() error {
	if err := validateUsername(u.Username); err != nil {
		return err
	}
	return validateEmail(u.Email)
}

// SetPassword hashes and stores a password using bcrypt.
// PRE: plaintext satisfies the password length rules
// POST: PasswordHash is set to a bcrypt hash
func (u *User) SetPassword(plaintext string) error {
	if err := validatePassword(plaintext); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword(bcryptInput(plaintext), HashCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword verifies a plaintext password against the stored hash.
// INVARIANT: User fields are not mutated
func (u *User) CheckPassword(plaintext string) error {
	if u.PasswordHash == "" {
		return ErrWrongPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), bcryptInput(plaintext)); err != nil {
		return ErrWrongPassword
	}
	return nil
}

// bcryptInput returns the bytes handed to bcrypt. bcrypt rejects inputs over 72 bytes,
// so longer passwords are reduced to their base64 SHA-256 digest first. The limit is in
// bytes, unlike the character limits in validatePassword.
func bcryptInput(plaintext string) []byte {
	if len(plaintext) <= 72 {
		return []byte(plaintext)
	}
	sum := sha256.Sum256([]byte(plaintext))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

func validateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return ErrEmptyUsername
	}
	n := utf8.RuneCountInString(username)
	if n < MinUsernameLength || n > MaxUsernameLength {
		return ErrUsernameLength
	}
	return nil
}

func validateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return ErrEmptyEmail
	}
	if utf8.RuneCountInString(email) > MaxEmailLength {
		return ErrEmailTooLong
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return ErrEmptyPassword
	}
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength || n > MaxPasswordLength {
		return ErrPasswordLength
	}
	return nil
}
