package repository

import (
	"context"

	"github.com/IkeLongo/collenback-strength-sub000/internal/models"
)

type CreateRuleInput struct {
	CoachID   int64
	DayOfWeek int
	StartTime string
	EndTime   string
	Timezone  string
}

type RuleRepository struct {
	db DBTX
}

func NewRuleRepository(db DBTX) *RuleRepository {
	return &RuleRepository{db: db}
}

func (r *RuleRepository) Create(ctx context.Context, input CreateRuleInput) (*models.AvailabilityRule, error) {
	query := `
		INSERT INTO availability_rules (coach_id, day_of_week, start_time, end_time, timezone, is_active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING id, coach_id, day_of_week, start_time, end_time, timezone, is_active, created_at
	`
	var rule models.AvailabilityRule
	err := r.db.QueryRow(ctx, query,
		input.CoachID,
		input.DayOfWeek,
		input.StartTime,
		input.EndTime,
		input.Timezone,
	).Scan(
		&rule.ID,
		&rule.CoachID,
		&rule.DayOfWeek,
		&rule.StartTime,
		&rule.EndTime,
		&rule.Timezone,
		&rule.IsActive,
		&rule.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *RuleRepository) ListActiveByCoach(ctx context.Context, coachID int64) ([]models.AvailabilityRule, error) {
	query := `
		SELECT id, coach_id, day_of_week, start_time, end_time, timezone, is_active, created_at
		FROM availability_rules
		WHERE coach_id = $1 AND is_active
		ORDER BY day_of_week ASC, start_time ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, coachID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := make([]models.AvailabilityRule, 0)
	for rows.Next() {
		var rule models.AvailabilityRule
		if err := rows.Scan(
			&rule.ID,
			&rule.CoachID,
			&rule.DayOfWeek,
			&rule.StartTime,
			&rule.EndTime,
			&rule.Timezone,
			&rule.IsActive,
			&rule.CreatedAt,
		); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rules, nil
}

// Delete removes a rule outright. Rules are never mutated in place; callers
// delete and recreate on change.
func (r *RuleRepository) Delete(ctx context.Context, coachID, ruleID int64) (bool, error) {
	query := `DELETE FROM availability_rules WHERE id = $1 AND coach_id = $2`
	tag, err := r.db.Exec(ctx, query, ruleID, coachID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
