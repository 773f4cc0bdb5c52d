package workout

import (
	"context"

	domain "liftlog/internal/domain/workout"
)

// Store persists Workout records.
type Store interface {
	GetByID(ctx context.Context, id int64) (domain.Workout, error)
	Create(ctx context.Context, w domain.Workout) (int64, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter ListFilter) ([]domain.Workout, error)
}

// ListFilter carries filtering parameters for List operations.
// A zero UserID lists every user's workouts.
type ListFilter struct {
	UserID int64
}
