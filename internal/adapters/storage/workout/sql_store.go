package workout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"liftlog/internal/adapters/storage"
	domain "liftlog/internal/domain/workout"
)

// SQLStore implements Store on the workouts table.
type SQLStore struct {
	db storage.SQLDB
}

// NewSQLStore creates a new workout store.
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

const selectWorkout = "SELECT id, date, body_part, exercise, weight, reps, notes, user_id FROM workouts"

// GetByID retrieves a Workout by id.
// PRE: id > 0
// POST: Returns the workout or domain.ErrNotFound
func (s *SQLStore) GetByID(ctx context.Context, id int64) (domain.Workout, error) {
	row := s.db.QueryRowContext(ctx, selectWorkout+" WHERE id = ?", id)
	w, err := scanWorkout(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Workout{}, domain.ErrNotFound
	}
	return w, err
}

// Create inserts a Workout and returns its id.
// PRE: w has been validated
// POST: Row committed, or nothing persisted on error
func (s *SQLStore) Create(ctx context.Context, w domain.Workout) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var weight sql.NullFloat64
	if w.Weight != nil {
		weight = sql.NullFloat64{Float64: *w.Weight, Valid: true}
	}
	var reps sql.NullInt64
	if w.Reps != nil {
		reps = sql.NullInt64{Int64: int64(*w.Reps), Valid: true}
	}
	var notes sql.NullString
	if w.Notes != "" {
		notes = sql.NullString{String: w.Notes, Valid: true}
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO workouts (date, body_part, exercise, weight, reps, notes, user_id) VALUES (?, ?, ?, ?, ?, ?, ?)",
		w.Date.Format(domain.DateLayout), w.BodyPart, w.Exercise, weight, reps, notes, w.UserID,
	)
	if err != nil {
		return 0, fmt.Errorf("insert workout: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// Delete removes a Workout. Deleting a missing id is not an error.
// PRE: id > 0
// POST: No row with the given id remains
func (s *SQLStore) Delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM workouts WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete workout: %w", err)
	}
	return tx.Commit()
}

// List retrieves workouts, most recent date first.
// PRE: filter has valid parameters
// POST: Returns matching entities ordered by date DESC, id DESC
func (s *SQLStore) List(ctx context.Context, filter ListFilter) ([]domain.Workout, error) {
	var queryBuilder strings.Builder
	var args []any

	queryBuilder.WriteString(selectWorkout)
	if filter.UserID > 0 {
		queryBuilder.WriteString(" WHERE user_id = ?")
		args = append(args, filter.UserID)
	}
	queryBuilder.WriteString(" ORDER BY date DESC, id DESC")

	rows, err := s.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Workout
	for rows.Next() {
		w, err := scanWorkout(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, w)
	}
	return results, rows.Err()
}

// scanWorkout extracts a Workout from a row scanner function.
func scanWorkout(scan func(dest ...any) error) (domain.Workout, error) {
	var (
		w      domain.Workout
		date   string
		weight sql.NullFloat64
		reps   sql.NullInt64
		notes  sql.NullString
	)
	if err := scan(&w.ID, &date, &w.BodyPart, &w.Exercise, &weight, &reps, &notes, &w.UserID); err != nil {
		return domain.Workout{}, err
	}

	parsed, err := parseDate(date)
	if err != nil {
		return domain.Workout{}, err
	}
	w.Date = parsed
	if weight.Valid {
		v := weight.Float64
		w.Weight = &v
	}
	if reps.Valid {
		v := int(reps.Int64)
		w.Reps = &v
	}
	w.Notes = notes.String
	return w, nil
}

// parseDate accepts the plain date layout plus the timestamp forms some drivers return.
func parseDate(s string) (time.Time, error) {
	formats := []string{
		domain.DateLayout,
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		t, err := time.Parse(f, s)
		if err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse workout date: %s", s)
}
