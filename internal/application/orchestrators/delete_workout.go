package orchestrators

import (
	"context"
	"errors"
	"log/slog"

	"liftlog/internal/domain/workout"
)

// WorkoutStoreForDelete defines the store interface needed by DeleteWorkout.
type WorkoutStoreForDelete interface {
	GetByID(ctx context.Context, id int64) (workout.Workout, error)
	Delete(ctx context.Context, id int64) error
}

// DeleteWorkoutInput carries input for the delete orchestrator.
type DeleteWorkoutInput struct {
	WorkoutID int64
	UserID    int64
}

// DeleteWorkoutDeps holds dependencies for DeleteWorkout.
type DeleteWorkoutDeps struct {
	WorkoutStore WorkoutStoreForDelete
}

// ExecuteDeleteWorkout removes a workout owned by the requesting user.
// PRE: UserID > 0
// POST: No workout with WorkoutID owned by UserID remains; deleted reports whether a row was removed
// INVARIANT: A missing id and another user's id are both silent no-ops
func ExecuteDeleteWorkout(ctx context.Context, input DeleteWorkoutInput, deps DeleteWorkoutDeps) (deleted bool, err error) {
	if input.UserID <= 0 {
		return false, ErrNotAuthenticated
	}

	w, err := deps.WorkoutStore.GetByID(ctx, input.WorkoutID)
	if errors.Is(err, workout.ErrNotFound) {
		slog.InfoContext(ctx, "workout_event", "event", "delete_noop", "workout_id", input.WorkoutID, "user_id", input.UserID, "reason", "not_found")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !w.OwnedBy(input.UserID) {
		slog.WarnContext(ctx, "workout_event", "event", "delete_noop", "workout_id", input.WorkoutID, "user_id", input.UserID, "reason", "not_owner")
		return false, nil
	}

	if err := deps.WorkoutStore.Delete(ctx, input.WorkoutID); err != nil {
		return false, err
	}
	slog.InfoContext(ctx, "workout_event", "event", "workout_deleted", "workout_id", input.WorkoutID, "user_id", input.UserID)
	return true, nil
}
