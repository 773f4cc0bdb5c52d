package orchestrators

import (
	"context"
	"errors"
	"log/slog"

	"liftlog/internal/domain/workout"
)

// WorkoutStoreForAdd defines the store interface needed by AddWorkout.
type WorkoutStoreForAdd interface {
	Create(ctx context.Context, w workout.Workout) (int64, error)
}

// AddWorkoutInput carries the raw form values and the session owner.
type AddWorkoutInput struct {
	UserID int64
	Form   workout.Form
}

// AddWorkoutDeps holds dependencies for AddWorkout.
type AddWorkoutDeps struct {
	WorkoutStore WorkoutStoreForAdd
}

// ErrNotAuthenticated is returned when an operation needs a logged-in user.
var ErrNotAuthenticated = errors.New("not authenticated")

// ExecuteAddWorkout parses and stores one workout for the given user.
// PRE: none; the form is parsed and validated here
// POST: Exactly one workout owned by UserID persisted, or nothing on error
// INVARIANT: Ownership comes from the session, never from the form
func ExecuteAddWorkout(ctx context.Context, input AddWorkoutInput, deps AddWorkoutDeps) (int64, error) {
	if input.UserID <= 0 {
		return 0, ErrNotAuthenticated
	}
	if !input.Form.HasRequired() {
		return 0, workout.ErrMissingFields
	}

	w, err := input.Form.Parse(input.UserID)
	if err != nil {
		return 0, err
	}

	id, err := deps.WorkoutStore.Create(ctx, w)
	if err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "workout_event", "event", "workout_added", "workout_id", id, "user_id", input.UserID)
	return id, nil
}
