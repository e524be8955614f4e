package repository

import (
	"context"
	"time"

	"github.com/IkeLongo/collenback-strength-sub000/internal/models"
)

type CreateExceptionInput struct {
	CoachID   int64
	Date      time.Time
	Type      string
	StartTime *string
	EndTime   *string
	Note      *string
}

type ExceptionRepository struct {
	db DBTX
}

func NewExceptionRepository(db DBTX) *ExceptionRepository {
	return &ExceptionRepository{db: db}
}

func (r *ExceptionRepository) Create(ctx context.Context, input CreateExceptionInput) (*models.AvailabilityException, error) {
	query := `
		INSERT INTO availability_exceptions (coach_id, date, type, start_time, end_time, note)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, coach_id, date, type, start_time, end_time, note, created_at
	`
	var exception models.AvailabilityException
	err := r.db.QueryRow(ctx, query,
		input.CoachID,
		input.Date,
		input.Type,
		input.StartTime,
		input.EndTime,
		input.Note,
	).Scan(
		&exception.ID,
		&exception.CoachID,
		&exception.Date,
		&exception.Type,
		&exception.StartTime,
		&exception.EndTime,
		&exception.Note,
		&exception.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &exception, nil
}

// ListByCoachDateRange returns exceptions dated inside [from, to] inclusive.
// Multiple exceptions per date are allowed and unioned by the engine.
func (r *ExceptionRepository) ListByCoachDateRange(
	ctx context.Context,
	coachID int64,
	from time.Time,
	to time.Time,
) ([]models.AvailabilityException, error) {
	query := `
		SELECT id, coach_id, date, type, start_time, end_time, note, created_at
		FROM availability_exceptions
		WHERE coach_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, coachID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	exceptions := make([]models.AvailabilityException, 0)
	for rows.Next() {
		var exception models.AvailabilityException
		if err := rows.Scan(
			&exception.ID,
			&exception.CoachID,
			&exception.Date,
			&exception.Type,
			&exception.StartTime,
			&exception.EndTime,
			&exception.Note,
			&exception.CreatedAt,
		); err != nil {
			return nil, err
		}
		exceptions = append(exceptions, exception)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return exceptions, nil
}

func (r *ExceptionRepository) Delete(ctx context.Context, coachID, exceptionID int64) (bool, error) {
	query := `DELETE FROM availability_exceptions WHERE id = $1 AND coach_id = $2`
	tag, err := r.db.Exec(ctx, query, exceptionID, coachID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
