package workout

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// DateLayout is the wire and storage format for workout dates.
const DateLayout = "2006-01-02"

// Max length constants for free-text fields, in characters.
const (
	MaxBodyPartLength = 100
	MaxExerciseLength = 100
	MaxNotesLength    = 255
)

// Domain errors
var (
	ErrMissingFields   = errors.New("date, body part, exercise, weight and reps are required")
	ErrInvalidDate     = errors.New("date must be in YYYY-MM-DD format")
	ErrInvalidWeight   = errors.New("weight must be a number")
	ErrInvalidReps     = errors.New("reps must be a whole number")
	ErrBodyPartTooLong = errors.New("body part cannot exceed 100 characters")
	ErrExerciseTooLong = errors.New("exercise cannot exceed 100 characters")
	ErrNotesTooLong    = errors.New("notes cannot exceed 255 characters")
	ErrMissingOwner    = errors.New("workout must belong to a user")
	ErrNotFound        = errors.New("workout not found")
)

// Workout is a single logged exercise entry owned by one user.
// Weight and Reps are nil when not recorded.
type Workout struct {
	ID       int64
	Date     time.Time
	BodyPart string
	Exercise string
	Weight   *float64
	Reps     *int
	Notes    string
	UserID   int64
}

// Form carries the raw submitted field values.
type Form struct {
	Date     string
	BodyPart string
	Exercise string
	Weight   string
	Reps     string
	Notes    string
}

// HasRequired reports whether every required field was supplied.
func (f Form) HasRequired() bool {
	return strings.TrimSpace(f.Date) != "" &&
		strings.TrimSpace(f.BodyPart) != "" &&
		strings.TrimSpace(f.Exercise) != "" &&
		strings.TrimSpace(f.Weight) != "" &&
		strings.TrimSpace(f.Reps) != ""
}

// Parse converts the form into a Workout owned by userID.
// PRE: none
// POST: returns a validated Workout, or the first parse/validation error
func (f Form) Parse(userID int64) (Workout, error) {
	if !f.HasRequired() {
		return Workout{}, ErrMissingFields
	}
	date, err := time.Parse(DateLayout, strings.TrimSpace(f.Date))
	if err != nil {
		return Workout{}, ErrInvalidDate
	}
	weight, err := strconv.ParseFloat(strings.TrimSpace(f.Weight), 64)
	if err != nil || math.IsNaN(weight) || math.IsInf(weight, 0) {
		return Workout{}, ErrInvalidWeight
	}
	reps, err := strconv.Atoi(strings.TrimSpace(f.Reps))
	if err != nil {
		return Workout{}, ErrInvalidReps
	}

	w := Workout{
		Date:     date,
		BodyPart: strings.TrimSpace(f.BodyPart),
		Exercise: strings.TrimSpace(f.Exercise),
		Weight:   &weight,
		Reps:     &reps,
		Notes:    strings.TrimSpace(f.Notes),
		UserID:   userID,
	}
	if err := w.Validate(); err != nil {
		return Workout{}, err
	}
	return w, nil
}

// Validate checks the Workout invariants.
// PRE: Workout struct is populated
// POST: Returns nil if valid, error otherwise
func (w *Workout) Validate() error {
	if w.UserID <= 0 {
		return ErrMissingOwner
	}
	if w.Date.IsZero() {
		return ErrInvalidDate
	}
	if w.BodyPart == "" || w.Exercise == "" {
		return ErrMissingFields
	}
	if utf8.RuneCountInString(w.BodyPart) > MaxBodyPartLength {
		return ErrBodyPartTooLong
	}
	if utf8.RuneCountInString(w.Exercise) > MaxExerciseLength {
		return ErrExerciseTooLong
	}
	if utf8.RuneCountInString(w.Notes) > MaxNotesLength {
		return ErrNotesTooLong
	}
	return nil
}

// OwnedBy reports whether the workout belongs to userID.
// INVARIANT: Workout fields are not mutated
func (w *Workout) OwnedBy(userID int64) bool {
	return userID > 0 && w.UserID == userID
}

// DateString returns the workout date in DateLayout.
func (w *Workout) DateString() string {
	return w.Date.Format(DateLayout)
}

// WeightString renders the weight without trailing zeros, or "" when unset.
func (w *Workout) WeightString() string {
	if w.Weight == nil {
		return ""
	}
	return strconv.FormatFloat(*w.Weight, 'f', -1, 64)
}

// RepsString renders reps, or "" when unset.
func (w *Workout) RepsString() string {
	if w.Reps == nil {
		return ""
	}
	return fmt.Sprint(*w.Reps)
}
