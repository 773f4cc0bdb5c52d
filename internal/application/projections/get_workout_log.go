package projections

import (
	"context"
	"errors"

	workoutStore "liftlog/internal/adapters/storage/workout"
	"liftlog/internal/domain/workout"
)

// WorkoutLogStore defines the workout store interface needed by the workout log projection.
type WorkoutLogStore interface {
	List(ctx context.Context, filter workoutStore.ListFilter) ([]workout.Workout, error)
}

// GetWorkoutLogQuery carries input for the workout log projection.
// AllUsers must be set explicitly to list every user's workouts.
type GetWorkoutLogQuery struct {
	UserID   int64
	AllUsers bool
}

// GetWorkoutLogDeps holds dependencies for the workout log projection.
type GetWorkoutLogDeps struct {
	WorkoutStore WorkoutLogStore
}

// WorkoutLogResult carries the output of the workout log projection.
type WorkoutLogResult struct {
	Workouts []workout.Workout
}

// ErrNoOwner is returned when a scoped log is requested without a user.
var ErrNoOwner = errors.New("workout log requires a user")

// QueryGetWorkoutLog lists workouts newest date first.
// PRE: UserID > 0 unless AllUsers is set
// POST: Every returned workout belongs to UserID when AllUsers is false
func QueryGetWorkoutLog(ctx context.Context, query GetWorkoutLogQuery, deps GetWorkoutLogDeps) (WorkoutLogResult, error) {
	filter := workoutStore.ListFilter{UserID: query.UserID}
	if query.AllUsers {
		filter.UserID = 0
	} else if query.UserID <= 0 {
		return WorkoutLogResult{}, ErrNoOwner
	}

	list, err := deps.WorkoutStore.List(ctx, filter)
	if err != nil {
		return WorkoutLogResult{}, err
	}
	return WorkoutLogResult{Workouts: list}, nil
}
