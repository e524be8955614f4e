package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IkeLongo/collenback-strength-sub000/internal/models"
	"github.com/IkeLongo/collenback-strength-sub000/internal/repository"
)

type stubRuleStore struct {
	rules   []models.AvailabilityRule
	created []repository.CreateRuleInput
}

func (s *stubRuleStore) Create(_ context.Context, input repository.CreateRuleInput) (*models.AvailabilityRule, error) {
	s.created = append(s.created, input)
	return &models.AvailabilityRule{
		ID:        int64(len(s.created)),
		CoachID:   input.CoachID,
		DayOfWeek: input.DayOfWeek,
		StartTime: input.StartTime,
		EndTime:   input.EndTime,
		Timezone:  input.Timezone,
		IsActive:  true,
	}, nil
}

func (s *stubRuleStore) ListActiveByCoach(context.Context, int64) ([]models.AvailabilityRule, error) {
	return s.rules, nil
}

func (s *stubRuleStore) Delete(context.Context, int64, int64) (bool, error) {
	return true, nil
}

type stubExceptionStore struct {
	exceptions []models.AvailabilityException
	created    []repository.CreateExceptionInput
}

func (s *stubExceptionStore) Create(_ context.Context, input repository.CreateExceptionInput) (*models.AvailabilityException, error) {
	s.created = append(s.created, input)
	return &models.AvailabilityException{
		ID:        int64(len(s.created)),
		CoachID:   input.CoachID,
		Date:      input.Date,
		Type:      input.Type,
		StartTime: input.StartTime,
		EndTime:   input.EndTime,
	}, nil
}

func (s *stubExceptionStore) ListByCoachDateRange(context.Context, int64, time.Time, time.Time) ([]models.AvailabilityException, error) {
	return s.exceptions, nil
}

func (s *stubExceptionStore) Delete(context.Context, int64, int64) (bool, error) {
	return true, nil
}

type stubScheduledReader struct {
	sessions []models.Session
}

func (s *stubScheduledReader) ListScheduledInRange(context.Context, int64, time.Time, time.Time) ([]models.Session, error) {
	return s.sessions, nil
}

func newStubAvailabilityService(t *testing.T, rules *stubRuleStore, exceptions *stubExceptionStore, sessions *stubScheduledReader) *AvailabilityService {
	t.Helper()
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	return NewAvailabilityService(rules, exceptions, sessions, loc)
}

func TestSlotsExcludesScheduledSessions(t *testing.T) {
	rules := &stubRuleStore{rules: []models.AvailabilityRule{{
		ID: 1, CoachID: 7, DayOfWeek: 1,
		StartTime: "09:00", EndTime: "12:00",
		Timezone: "America/Chicago", IsActive: true,
	}}}
	sessions := &stubScheduledReader{sessions: []models.Session{{
		CoachID:        7,
		ScheduledStart: time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC),
		ScheduledEnd:   time.Date(2026, 3, 9, 15, 0, 0, 0, time.UTC),
		Status:         models.SessionStatusScheduled,
	}}}

	svc := newStubAvailabilityService(t, rules, &stubExceptionStore{}, sessions)
	slots, err := svc.Slots(
		context.Background(), 7,
		time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
	)
	if err != nil {
		t.Fatalf("Slots: %v", err)
	}
	if len(slots) == 0 {
		t.Fatal("expected slots outside the busy hour")
	}
	for _, slot := range slots {
		if slot.Start.Equal(time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC)) {
			t.Fatal("booked 14:00 UTC must not be offered")
		}
	}
}

func TestSlotsRejectsBadRange(t *testing.T) {
	svc := newStubAvailabilityService(t, &stubRuleStore{}, &stubExceptionStore{}, &stubScheduledReader{})
	from := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	if _, err := svc.Slots(context.Background(), 7, from, from); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty range must fail, got %v", err)
	}
	if _, err := svc.Slots(context.Background(), 7, from, from.AddDate(0, 0, 60)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("oversized range must fail, got %v", err)
	}
	if _, err := svc.Slots(context.Background(), 0, from, from.AddDate(0, 0, 1)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing coach id must fail, got %v", err)
	}
}

func TestCreateRuleValidation(t *testing.T) {
	rules := &stubRuleStore{}
	svc := newStubAvailabilityService(t, rules, &stubExceptionStore{}, &stubScheduledReader{})
	ctx := context.Background()

	cases := []repository.CreateRuleInput{
		{CoachID: 7, DayOfWeek: 7, StartTime: "09:00", EndTime: "17:00"},
		{CoachID: 7, DayOfWeek: 1, StartTime: "17:00", EndTime: "09:00"},
		{CoachID: 7, DayOfWeek: 1, StartTime: "bogus", EndTime: "17:00"},
		{CoachID: 7, DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00", Timezone: "Not/AZone"},
	}
	for _, input := range cases {
		if _, err := svc.CreateRule(ctx, input); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %+v, got %v", input, err)
		}
	}

	rule, err := svc.CreateRule(ctx, repository.CreateRuleInput{
		CoachID: 7, DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00",
	})
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}
	if rule.Timezone != "America/Chicago" {
		t.Fatalf("expected defaulted timezone, got %q", rule.Timezone)
	}
}

func TestCreateExceptionValidation(t *testing.T) {
	svc := newStubAvailabilityService(t, &stubRuleStore{}, &stubExceptionStore{}, &stubScheduledReader{})
	ctx := context.Background()
	date := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	start, end := "10:00", "11:00"

	// Custom with one time missing.
	if _, err := svc.CreateException(ctx, repository.CreateExceptionInput{
		CoachID: 7, Date: date, Type: models.ExceptionTypeCustom, StartTime: &start,
	}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("custom exception needs both times, got %v", err)
	}
	// Blocked with one time missing.
	if _, err := svc.CreateException(ctx, repository.CreateExceptionInput{
		CoachID: 7, Date: date, Type: models.ExceptionTypeBlocked, EndTime: &end,
	}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blocked exception needs both times or neither, got %v", err)
	}
	// Unknown type.
	if _, err := svc.CreateException(ctx, repository.CreateExceptionInput{
		CoachID: 7, Date: date, Type: "vacation",
	}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unknown exception type must fail, got %v", err)
	}

	// All-day block and a full custom window pass.
	if _, err := svc.CreateException(ctx, repository.CreateExceptionInput{
		CoachID: 7, Date: date, Type: models.ExceptionTypeBlocked,
	}); err != nil {
		t.Fatalf("all-day block: %v", err)
	}
	exception, err := svc.CreateException(ctx, repository.CreateExceptionInput{
		CoachID: 7, Date: date.Add(5 * time.Hour), Type: models.ExceptionTypeCustom,
		StartTime: &start, EndTime: &end,
	})
	if err != nil {
		t.Fatalf("custom exception: %v", err)
	}
	if !exception.Date.Equal(date) {
		t.Fatalf("expected date truncated to midnight UTC, got %v", exception.Date)
	}
}
