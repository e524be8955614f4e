package services

import (
	"context"
	"time"

	"github.com/IkeLongo/collenback-strength-sub000/internal/availability"
	"github.com/IkeLongo/collenback-strength-sub000/internal/models"
	"github.com/IkeLongo/collenback-strength-sub000/internal/repository"
)

const maxAvailabilityRangeDays = 31

type ruleStore interface {
	Create(ctx context.Context, input repository.CreateRuleInput) (*models.AvailabilityRule, error)
	ListActiveByCoach(ctx context.Context, coachID int64) ([]models.AvailabilityRule, error)
	Delete(ctx context.Context, coachID, ruleID int64) (bool, error)
}

type exceptionStore interface {
	Create(ctx context.Context, input repository.CreateExceptionInput) (*models.AvailabilityException, error)
	ListByCoachDateRange(ctx context.Context, coachID int64, from, to time.Time) ([]models.AvailabilityException, error)
	Delete(ctx context.Context, coachID, exceptionID int64) (bool, error)
}

type scheduledReader interface {
	ListScheduledInRange(ctx context.Context, coachID int64, start, end time.Time) ([]models.Session, error)
}

type AvailabilityService struct {
	rules      ruleStore
	exceptions exceptionStore
	sessions   scheduledReader
	engine     *availability.Engine
	loc        *time.Location
}

func NewAvailabilityService(
	rules ruleStore,
	exceptions exceptionStore,
	sessions scheduledReader,
	loc *time.Location,
) *AvailabilityService {
	return &AvailabilityService{
		rules:      rules,
		exceptions: exceptions,
		sessions:   sessions,
		engine:     availability.NewEngine(loc),
		loc:        loc,
	}
}

// Slots computes bookable slots for the coach inside [from, to). The result is
// advisory only; BookSession re-validates the chosen slot under locks.
func (s *AvailabilityService) Slots(
	ctx context.Context,
	coachID int64,
	from time.Time,
	to time.Time,
) ([]availability.Slot, error) {
	if coachID <= 0 || !to.After(from) {
		return nil, ErrInvalidInput
	}
	if to.Sub(from) > maxAvailabilityRangeDays*24*time.Hour {
		return nil, ErrInvalidInput
	}

	rules, err := s.rules.ListActiveByCoach(ctx, coachID)
	if err != nil {
		return nil, err
	}

	// The exception query runs on local calendar dates, widened a day each way
	// so windows straddling the UTC range edges still load.
	fromLocal := from.In(s.loc)
	toLocal := to.In(s.loc)
	exceptions, err := s.exceptions.ListByCoachDateRange(
		ctx, coachID,
		time.Date(fromLocal.Year(), fromLocal.Month(), fromLocal.Day()-1, 0, 0, 0, 0, time.UTC),
		time.Date(toLocal.Year(), toLocal.Month(), toLocal.Day()+1, 0, 0, 0, 0, time.UTC),
	)
	if err != nil {
		return nil, err
	}

	sessions, err := s.sessions.ListScheduledInRange(ctx, coachID, from, to)
	if err != nil {
		return nil, err
	}
	busy := make([]availability.Interval, 0, len(sessions))
	for _, session := range sessions {
		busy = append(busy, availability.Interval{Start: session.ScheduledStart, End: session.ScheduledEnd})
	}

	return s.engine.Slots(rules, exceptions, busy, from, to), nil
}

func (s *AvailabilityService) CreateRule(ctx context.Context, input repository.CreateRuleInput) (*models.AvailabilityRule, error) {
	if input.CoachID <= 0 || input.DayOfWeek < 0 || input.DayOfWeek > 6 {
		return nil, ErrInvalidInput
	}
	start, err := availability.ParseClock(input.StartTime)
	if err != nil {
		return nil, ErrInvalidInput
	}
	end, err := availability.ParseClock(input.EndTime)
	if err != nil || end <= start {
		return nil, ErrInvalidInput
	}
	if input.Timezone == "" {
		input.Timezone = s.loc.String()
	} else if _, err := time.LoadLocation(input.Timezone); err != nil {
		return nil, ErrInvalidInput
	}
	return s.rules.Create(ctx, input)
}

func (s *AvailabilityService) ListRules(ctx context.Context, coachID int64) ([]models.AvailabilityRule, error) {
	if coachID <= 0 {
		return nil, ErrInvalidInput
	}
	return s.rules.ListActiveByCoach(ctx, coachID)
}

func (s *AvailabilityService) DeleteRule(ctx context.Context, coachID, ruleID int64) (bool, error) {
	return s.rules.Delete(ctx, coachID, ruleID)
}

// CreateException validates the window shape per type: custom always carries
// both times, blocked carries both or neither (the all-day form).
func (s *AvailabilityService) CreateException(ctx context.Context, input repository.CreateExceptionInput) (*models.AvailabilityException, error) {
	if input.CoachID <= 0 {
		return nil, ErrInvalidInput
	}
	switch input.Type {
	case models.ExceptionTypeCustom:
		if input.StartTime == nil || input.EndTime == nil {
			return nil, ErrInvalidInput
		}
	case models.ExceptionTypeBlocked:
		if (input.StartTime == nil) != (input.EndTime == nil) {
			return nil, ErrInvalidInput
		}
	default:
		return nil, ErrInvalidInput
	}
	if input.StartTime != nil {
		start, err := availability.ParseClock(*input.StartTime)
		if err != nil {
			return nil, ErrInvalidInput
		}
		end, err := availability.ParseClock(*input.EndTime)
		if err != nil || end <= start {
			return nil, ErrInvalidInput
		}
	}
	input.Date = time.Date(input.Date.Year(), input.Date.Month(), input.Date.Day(), 0, 0, 0, 0, time.UTC)
	return s.exceptions.Create(ctx, input)
}

func (s *AvailabilityService) ListExceptions(ctx context.Context, coachID int64, from, to time.Time) ([]models.AvailabilityException, error) {
	if coachID <= 0 || to.Before(from) {
		return nil, ErrInvalidInput
	}
	return s.exceptions.ListByCoachDateRange(ctx, coachID, from, to)
}

func (s *AvailabilityService) DeleteException(ctx context.Context, coachID, exceptionID int64) (bool, error) {
	return s.exceptions.Delete(ctx, coachID, exceptionID)
}
