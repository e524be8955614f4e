package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/IkeLongo/collenback-strength-sub000/internal/availability"
	"github.com/IkeLongo/collenback-strength-sub000/internal/models"
	"github.com/IkeLongo/collenback-strength-sub000/internal/repository"
	"github.com/gofiber/fiber/v2"
)

type stubAvailabilityService struct {
	slots            []availability.Slot
	slotsErr         error
	lastCoachID      int64
	lastFrom         time.Time
	lastTo           time.Time
	lastRuleInput    repository.CreateRuleInput
	lastExcInput     repository.CreateExceptionInput
	deleteRuleResult bool
}

func (s *stubAvailabilityService) Slots(_ context.Context, coachID int64, from, to time.Time) ([]availability.Slot, error) {
	s.lastCoachID = coachID
	s.lastFrom = from
	s.lastTo = to
	return s.slots, s.slotsErr
}

func (s *stubAvailabilityService) CreateRule(_ context.Context, input repository.CreateRuleInput) (*models.AvailabilityRule, error) {
	s.lastRuleInput = input
	return &models.AvailabilityRule{ID: 1, CoachID: input.CoachID, DayOfWeek: input.DayOfWeek}, nil
}

func (s *stubAvailabilityService) ListRules(_ context.Context, coachID int64) ([]models.AvailabilityRule, error) {
	s.lastCoachID = coachID
	return nil, nil
}

func (s *stubAvailabilityService) DeleteRule(_ context.Context, coachID, ruleID int64) (bool, error) {
	s.lastCoachID = coachID
	return s.deleteRuleResult, nil
}

func (s *stubAvailabilityService) CreateException(_ context.Context, input repository.CreateExceptionInput) (*models.AvailabilityException, error) {
	s.lastExcInput = input
	return &models.AvailabilityException{ID: 1, CoachID: input.CoachID, Type: input.Type}, nil
}

func (s *stubAvailabilityService) ListExceptions(_ context.Context, coachID int64, _, _ time.Time) ([]models.AvailabilityException, error) {
	s.lastCoachID = coachID
	return nil, nil
}

func (s *stubAvailabilityService) DeleteException(_ context.Context, coachID, exceptionID int64) (bool, error) {
	s.lastCoachID = coachID
	return true, nil
}

func newAvailabilityTestApp(service *stubAvailabilityService, role, userID string) *fiber.App {
	handler := &AvailabilityHandler{service: service}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("role", role)
		c.Locals("user_id", userID)
		return c.Next()
	})
	app.Get("/api/v1/availability/:coachId", handler.GetSlots)
	app.Post("/api/v1/schedule/rules", handler.CreateRule)
	app.Delete("/api/v1/schedule/rules/:id", handler.DeleteRule)
	app.Post("/api/v1/schedule/exceptions", handler.CreateException)
	return app
}

func TestGetSlotsReturnsEngineOutput(t *testing.T) {
	start := time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC)
	service := &stubAvailabilityService{
		slots: []availability.Slot{{
			Start: start,
			Options: []availability.SlotOption{
				{DurationMinutes: 30, End: start.Add(30 * time.Minute)},
				{DurationMinutes: 60, End: start.Add(time.Hour)},
			},
		}},
	}
	app := newAvailabilityTestApp(service, "user", "42")

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/availability/7?from=2026-03-09T00:00:00Z&to=2026-03-10T00:00:00Z", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastCoachID != 7 {
		t.Fatalf("expected coach 7, got %d", service.lastCoachID)
	}

	var body struct {
		Slots []availability.Slot `json:"slots"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(body.Slots) != 1 || len(body.Slots[0].Options) != 2 {
		t.Fatalf("unexpected slots payload: %+v", body.Slots)
	}
}

func TestGetSlotsRejectsBadTimestamps(t *testing.T) {
	service := &stubAvailabilityService{}
	app := newAvailabilityTestApp(service, "user", "42")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/availability/7?from=tomorrow&to=later", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateRuleUsesCoachIdentity(t *testing.T) {
	service := &stubAvailabilityService{}
	app := newAvailabilityTestApp(service, "coach", "9")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/schedule/rules", strings.NewReader(`{
		"day_of_week": 1, "start_time": "09:00", "end_time": "17:00"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastRuleInput.CoachID != 9 {
		t.Fatalf("expected coach's own id 9, got %d", service.lastRuleInput.CoachID)
	}
}

func TestCreateRuleAdminTargetsCoachParam(t *testing.T) {
	service := &stubAvailabilityService{}
	app := newAvailabilityTestApp(service, "admin", "1")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/schedule/rules?coach_id=9", strings.NewReader(`{
		"day_of_week": 1, "start_time": "09:00", "end_time": "17:00"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastRuleInput.CoachID != 9 {
		t.Fatalf("expected target coach 9, got %d", service.lastRuleInput.CoachID)
	}
}

func TestCreateRuleRejectsClientRole(t *testing.T) {
	service := &stubAvailabilityService{}
	app := newAvailabilityTestApp(service, "user", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/schedule/rules", strings.NewReader(`{
		"day_of_week": 1, "start_time": "09:00", "end_time": "17:00"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestDeleteRuleNotFound(t *testing.T) {
	service := &stubAvailabilityService{deleteRuleResult: false}
	app := newAvailabilityTestApp(service, "coach", "9")

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/schedule/rules/404", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestCreateExceptionMapsInvalidInput(t *testing.T) {
	service := &stubAvailabilityService{}
	app := newAvailabilityTestApp(service, "coach", "9")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/schedule/exceptions", strings.NewReader(`{
		"date": "not-a-date", "type": "blocked"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
