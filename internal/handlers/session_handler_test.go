package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/IkeLongo/collenback-strength-sub000/internal/models"
	"github.com/IkeLongo/collenback-strength-sub000/internal/repository"
	"github.com/IkeLongo/collenback-strength-sub000/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

type stubBookingService struct {
	bookResult     *models.SessionDetail
	bookErr        error
	listResult     []models.SessionDetail
	listTotal      int
	listErr        error
	getResult      *models.SessionDetail
	getErr         error
	cancelResult   *models.SessionDetail
	cancelErr      error
	completeResult *models.SessionDetail
	completeErr    error
	noShowResult   *models.SessionDetail
	noShowErr      error
	lastBookInput  services.BookSessionInput
	lastActorID    int64
	lastRole       string
	lastSessionID  int64
	lastReason     *string
	lastListFilter repository.SessionListFilter
}

func (s *stubBookingService) BookSession(_ context.Context, clientID int64, input services.BookSessionInput) (*models.SessionDetail, error) {
	s.lastActorID = clientID
	s.lastBookInput = input
	return s.bookResult, s.bookErr
}

func (s *stubBookingService) ListSessions(_ context.Context, actorID int64, role string, filter repository.SessionListFilter) ([]models.SessionDetail, int, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastListFilter = filter
	return s.listResult, s.listTotal, s.listErr
}

func (s *stubBookingService) GetSession(_ context.Context, actorID int64, role string, sessionID int64) (*models.SessionDetail, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastSessionID = sessionID
	return s.getResult, s.getErr
}

func (s *stubBookingService) CancelSession(_ context.Context, actorID int64, role string, sessionID int64, reason *string) (*models.SessionDetail, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastSessionID = sessionID
	s.lastReason = reason
	return s.cancelResult, s.cancelErr
}

func (s *stubBookingService) CompleteSession(_ context.Context, actorID int64, role string, sessionID int64) (*models.SessionDetail, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastSessionID = sessionID
	return s.completeResult, s.completeErr
}

func (s *stubBookingService) MarkNoShow(_ context.Context, actorID int64, role string, sessionID int64, reason *string) (*models.SessionDetail, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastSessionID = sessionID
	s.lastReason = reason
	return s.noShowResult, s.noShowErr
}

func newSessionTestApp(service *stubBookingService, role, userID string) *fiber.App {
	handler := &SessionHandler{service: service}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("role", role)
		c.Locals("user_id", userID)
		return c.Next()
	})
	app.Post("/api/v1/sessions/book", handler.BookSession)
	app.Get("/api/v1/sessions", handler.ListSessions)
	app.Get("/api/v1/sessions/:id", handler.GetSession)
	app.Post("/api/v1/sessions/:id/cancel", handler.CancelSession)
	app.Post("/api/v1/sessions/:id/complete", handler.CompleteSession)
	app.Post("/api/v1/sessions/:id/no-show", handler.MarkNoShow)
	return app
}

func TestBookSessionReturnsCreatedSession(t *testing.T) {
	service := &stubBookingService{
		bookResult: &models.SessionDetail{
			Session: models.Session{
				ID:             91,
				ClientID:       42,
				CoachID:        7,
				ServiceID:      3,
				Status:         "scheduled",
				ScheduledStart: time.Date(2026, 3, 15, 14, 0, 0, 0, time.UTC),
				ScheduledEnd:   time.Date(2026, 3, 15, 15, 0, 0, 0, time.UTC),
			},
		},
	}
	app := newSessionTestApp(service, "user", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/book", strings.NewReader(`{
		"coach_id": 7,
		"service_id": 3,
		"start": "2026-03-15T14:00:00Z",
		"duration_minutes": 60
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
	if service.lastActorID != 42 {
		t.Fatalf("expected actor id 42, got %d", service.lastActorID)
	}
	if service.lastBookInput.CoachID != 7 || service.lastBookInput.ServiceID != 3 {
		t.Fatalf("unexpected book input: %+v", service.lastBookInput)
	}
	if service.lastBookInput.DurationMinutes != 60 {
		t.Fatalf("expected 60 minutes, got %d", service.lastBookInput.DurationMinutes)
	}
}

func TestBookSessionRejectsCoachRole(t *testing.T) {
	service := &stubBookingService{}
	app := newSessionTestApp(service, "coach", "7")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/book", strings.NewReader(`{
		"coach_id": 7, "service_id": 3, "start": "2026-03-15T14:00:00Z", "duration_minutes": 60
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

func TestBookSessionMapsSlotTaken(t *testing.T) {
	service := &stubBookingService{bookErr: services.ErrSlotTaken}
	app := newSessionTestApp(service, "user", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/book", strings.NewReader(`{
		"coach_id": 7, "service_id": 3, "start": "2026-03-15T14:00:00Z", "duration_minutes": 60
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if body.Code != "SLOT_TAKEN" {
		t.Fatalf("expected SLOT_TAKEN code, got %q", body.Code)
	}
}

func TestBookSessionMapsNoEntitlement(t *testing.T) {
	service := &stubBookingService{bookErr: services.ErrNoEntitlement}
	app := newSessionTestApp(service, "user", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/book", strings.NewReader(`{
		"coach_id": 7, "service_id": 3, "start": "2026-03-15T14:00:00Z", "duration_minutes": 60
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", resp.StatusCode)
	}
	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if body.Code != "NO_ENTITLEMENT" {
		t.Fatalf("expected NO_ENTITLEMENT code, got %q", body.Code)
	}
}

func TestListSessionsPassesFilterAndPagination(t *testing.T) {
	service := &stubBookingService{
		listResult: []models.SessionDetail{{Session: models.Session{ID: 5, Status: "scheduled"}}},
		listTotal:  37,
	}
	app := newSessionTestApp(service, "coach", "9")

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/sessions?status=scheduled&timeframe=upcoming&page=2&limit=5", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastRole != "coach" {
		t.Fatalf("expected coach role, got %q", service.lastRole)
	}
	if service.lastListFilter.Status != "scheduled" || service.lastListFilter.Timeframe != "upcoming" {
		t.Fatalf("unexpected filter: %+v", service.lastListFilter)
	}
	if service.lastListFilter.Limit != 5 || service.lastListFilter.Offset != 5 {
		t.Fatalf("unexpected pagination: %+v", service.lastListFilter)
	}

	var body struct {
		Pagination models.PaginationMeta `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if body.Pagination.Total != 37 || body.Pagination.TotalPages != 8 {
		t.Fatalf("unexpected pagination meta: %+v", body.Pagination)
	}
}

func TestGetSessionReturnsNotFound(t *testing.T) {
	service := &stubBookingService{getErr: pgx.ErrNoRows}
	app := newSessionTestApp(service, "user", "42")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/999", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestCancelSessionForwardsReason(t *testing.T) {
	service := &stubBookingService{
		cancelResult: &models.SessionDetail{Session: models.Session{ID: 55, Status: "cancelled"}},
	}
	app := newSessionTestApp(service, "user", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/55/cancel",
		strings.NewReader(`{"reason":"sick"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastSessionID != 55 {
		t.Fatalf("expected session 55, got %d", service.lastSessionID)
	}
	if service.lastReason == nil || *service.lastReason != "sick" {
		t.Fatalf("expected forwarded reason, got %v", service.lastReason)
	}
}

func TestCompleteSessionMapsInvalidStatus(t *testing.T) {
	service := &stubBookingService{completeErr: services.ErrInvalidStatus}
	app := newSessionTestApp(service, "admin", "1")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/55/complete", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if body.Code != "INVALID_STATUS" {
		t.Fatalf("expected INVALID_STATUS code, got %q", body.Code)
	}
}

func TestMarkNoShowMapsSessionNotStarted(t *testing.T) {
	service := &stubBookingService{noShowErr: services.ErrSessionNotStarted}
	app := newSessionTestApp(service, "admin", "1")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/55/no-show", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if body.Code != "SESSION_NOT_STARTED" {
		t.Fatalf("expected SESSION_NOT_STARTED code, got %q", body.Code)
	}
}

func TestMapSessionErrorDefaultsToInternalServerError(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return mapSessionError(c, errors.New("boom"))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
}
