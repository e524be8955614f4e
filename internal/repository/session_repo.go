package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/IkeLongo/collenback-strength-sub000/internal/models"
)

const sessionColumns = `id, client_id, coach_id, service_id, scheduled_start, scheduled_end,
		status, pack_id, subscription_id, charged, cancellation_reason, cancelled_at,
		created_at, updated_at`

type CreateSessionInput struct {
	ClientID       int64
	CoachID        int64
	ServiceID      int64
	ScheduledStart time.Time
	ScheduledEnd   time.Time
	PackID         *int64
	SubscriptionID *int64
}

type SessionListFilter struct {
	ActorID   int64
	Role      string
	Status    string
	Timeframe string
	Limit     int
	Offset    int
}

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

func scanSession(row interface{ Scan(dest ...any) error }, session *models.Session) error {
	return row.Scan(
		&session.ID,
		&session.ClientID,
		&session.CoachID,
		&session.ServiceID,
		&session.ScheduledStart,
		&session.ScheduledEnd,
		&session.Status,
		&session.PackID,
		&session.SubscriptionID,
		&session.Charged,
		&session.CancellationReason,
		&session.CancelledAt,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
}

func (r *SessionRepository) Create(ctx context.Context, input CreateSessionInput) (*models.Session, error) {
	query := fmt.Sprintf(`
		INSERT INTO sessions (client_id, coach_id, service_id, scheduled_start, scheduled_end,
			status, pack_id, subscription_id, charged)
		VALUES ($1, $2, $3, $4, $5, 'scheduled', $6, $7, TRUE)
		RETURNING %s
	`, sessionColumns)

	var session models.Session
	err := scanSession(r.db.QueryRow(ctx, query,
		input.ClientID,
		input.CoachID,
		input.ServiceID,
		input.ScheduledStart,
		input.ScheduledEnd,
		input.PackID,
		input.SubscriptionID,
	), &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID int64) (*models.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE id = $1`, sessionColumns)
	var session models.Session
	if err := scanSession(r.db.QueryRow(ctx, query, sessionID), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) GetByIDForUpdate(ctx context.Context, sessionID int64) (*models.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE id = $1 FOR UPDATE`, sessionColumns)
	var session models.Session
	if err := scanSession(r.db.QueryRow(ctx, query, sessionID), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// LockOverlapping locks and returns any scheduled session for the coach whose
// half-open interval intersects [start, end). Run inside a transaction: the
// FOR UPDATE blocks a concurrent booking until this transaction finishes, so
// the second transaction re-evaluates against committed state.
func (r *SessionRepository) LockOverlapping(
	ctx context.Context,
	coachID int64,
	start time.Time,
	end time.Time,
) ([]models.Session, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM sessions
		WHERE coach_id = $1
		  AND status = 'scheduled'
		  AND scheduled_start < $3
		  AND scheduled_end > $2
		FOR UPDATE
	`, sessionColumns)

	rows, err := r.db.Query(ctx, query, coachID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		var session models.Session
		if err := scanSession(rows, &session); err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// ListScheduledInRange returns scheduled sessions for the coach overlapping
// [start, end). Read-only; the availability engine filters slots against it.
func (r *SessionRepository) ListScheduledInRange(
	ctx context.Context,
	coachID int64,
	start time.Time,
	end time.Time,
) ([]models.Session, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM sessions
		WHERE coach_id = $1
		  AND status = 'scheduled'
		  AND scheduled_start < $3
		  AND scheduled_end > $2
		ORDER BY scheduled_start ASC, id ASC
	`, sessionColumns)

	rows, err := r.db.Query(ctx, query, coachID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		var session models.Session
		if err := scanSession(rows, &session); err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *SessionRepository) List(ctx context.Context, filter SessionListFilter) ([]models.Session, int, error) {
	actorColumn := "client_id"
	if filter.Role == "coach" {
		actorColumn = "coach_id"
	}

	args := []any{filter.ActorID}
	whereParts := []string{fmt.Sprintf("%s = $1", actorColumn)}

	if status := strings.TrimSpace(filter.Status); status != "" {
		args = append(args, status)
		whereParts = append(whereParts, fmt.Sprintf("status = $%d", len(args)))
	}

	switch strings.TrimSpace(filter.Timeframe) {
	case "upcoming":
		whereParts = append(whereParts, "scheduled_end > NOW()")
	case "past":
		whereParts = append(whereParts, "scheduled_end <= NOW()")
	}

	where := strings.Join(whereParts, " AND ")

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM sessions WHERE %s`, where)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM sessions
		WHERE %s
		ORDER BY scheduled_start ASC, id ASC
		LIMIT $%d OFFSET $%d
	`, sessionColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		var session models.Session
		if err := scanSession(rows, &session); err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

// TransitionFromScheduled applies a terminal status only when the row is still
// scheduled, so concurrent conflicting transitions cannot both commit.
func (r *SessionRepository) TransitionFromScheduled(
	ctx context.Context,
	sessionID int64,
	nextStatus string,
	reason *string,
	cancelledAt *time.Time,
) (*models.Session, error) {
	query := fmt.Sprintf(`
		UPDATE sessions
		SET status = $2, cancellation_reason = $3, cancelled_at = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'scheduled'
		RETURNING %s
	`, sessionColumns)

	var session models.Session
	if err := scanSession(r.db.QueryRow(ctx, query, sessionID, nextStatus, reason, cancelledAt), &session); err != nil {
		return nil, err
	}
	return &session, nil
}
