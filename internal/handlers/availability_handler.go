package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/IkeLongo/collenback-strength-sub000/internal/availability"
	"github.com/IkeLongo/collenback-strength-sub000/internal/models"
	"github.com/IkeLongo/collenback-strength-sub000/internal/repository"
	"github.com/IkeLongo/collenback-strength-sub000/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AvailabilityHandler struct {
	service availabilityApplicationService
}

type availabilityApplicationService interface {
	Slots(ctx context.Context, coachID int64, from, to time.Time) ([]availability.Slot, error)
	CreateRule(ctx context.Context, input repository.CreateRuleInput) (*models.AvailabilityRule, error)
	ListRules(ctx context.Context, coachID int64) ([]models.AvailabilityRule, error)
	DeleteRule(ctx context.Context, coachID, ruleID int64) (bool, error)
	CreateException(ctx context.Context, input repository.CreateExceptionInput) (*models.AvailabilityException, error)
	ListExceptions(ctx context.Context, coachID int64, from, to time.Time) ([]models.AvailabilityException, error)
	DeleteException(ctx context.Context, coachID, exceptionID int64) (bool, error)
}

func NewAvailabilityHandler(service *services.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: service}
}

func (h *AvailabilityHandler) GetSlots(c *fiber.Ctx) error {
	coachID, err := strconv.ParseInt(c.Params("coachId"), 10, 64)
	if err != nil || coachID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid coach id"})
	}

	from, err := time.Parse(time.RFC3339, strings.TrimSpace(c.Query("from")))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "from must be a valid RFC3339 timestamp"})
	}
	to, err := time.Parse(time.RFC3339, strings.TrimSpace(c.Query("to")))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "to must be a valid RFC3339 timestamp"})
	}

	slots, err := h.service.Slots(c.Context(), coachID, from, to)
	if err != nil {
		return mapAvailabilityError(c, err)
	}

	return c.JSON(fiber.Map{"slots": slots})
}

type createRuleRequest struct {
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Timezone  string `json:"timezone"`
}

func (h *AvailabilityHandler) CreateRule(c *fiber.Ctx) error {
	coachID, err := scheduleOwnerID(c)
	if err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden", "code": "FORBIDDEN"})
	}

	var req createRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	rule, err := h.service.CreateRule(c.Context(), repository.CreateRuleInput{
		CoachID:   coachID,
		DayOfWeek: req.DayOfWeek,
		StartTime: strings.TrimSpace(req.StartTime),
		EndTime:   strings.TrimSpace(req.EndTime),
		Timezone:  strings.TrimSpace(req.Timezone),
	})
	if err != nil {
		return mapAvailabilityError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"rule": rule})
}

func (h *AvailabilityHandler) ListRules(c *fiber.Ctx) error {
	coachID, err := scheduleOwnerID(c)
	if err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden", "code": "FORBIDDEN"})
	}

	rules, err := h.service.ListRules(c.Context(), coachID)
	if err != nil {
		return mapAvailabilityError(c, err)
	}
	return c.JSON(fiber.Map{"rules": rules})
}

func (h *AvailabilityHandler) DeleteRule(c *fiber.Ctx) error {
	coachID, err := scheduleOwnerID(c)
	if err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden", "code": "FORBIDDEN"})
	}

	ruleID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || ruleID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid rule id"})
	}

	deleted, err := h.service.DeleteRule(c.Context(), coachID, ruleID)
	if err != nil {
		return mapAvailabilityError(c, err)
	}
	if !deleted {
		return c.Status(fiber.StatusNotFound).
			JSON(fiber.Map{"error": "Rule not found", "code": "NOT_FOUND"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type createExceptionRequest struct {
	Date      string  `json:"date"`
	Type      string  `json:"type"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	Note      *string `json:"note"`
}

func (h *AvailabilityHandler) CreateException(c *fiber.Ctx) error {
	coachID, err := scheduleOwnerID(c)
	if err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden", "code": "FORBIDDEN"})
	}

	var req createExceptionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	date, err := time.Parse("2006-01-02", strings.TrimSpace(req.Date))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "date must be YYYY-MM-DD"})
	}

	exception, err := h.service.CreateException(c.Context(), repository.CreateExceptionInput{
		CoachID:   coachID,
		Date:      date,
		Type:      strings.TrimSpace(req.Type),
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Note:      req.Note,
	})
	if err != nil {
		return mapAvailabilityError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"exception": exception})
}

func (h *AvailabilityHandler) ListExceptions(c *fiber.Ctx) error {
	coachID, err := scheduleOwnerID(c)
	if err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden", "code": "FORBIDDEN"})
	}

	from, err := time.Parse("2006-01-02", strings.TrimSpace(c.Query("from")))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "from must be YYYY-MM-DD"})
	}
	to, err := time.Parse("2006-01-02", strings.TrimSpace(c.Query("to")))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "to must be YYYY-MM-DD"})
	}

	exceptions, err := h.service.ListExceptions(c.Context(), coachID, from, to)
	if err != nil {
		return mapAvailabilityError(c, err)
	}
	return c.JSON(fiber.Map{"exceptions": exceptions})
}

func (h *AvailabilityHandler) DeleteException(c *fiber.Ctx) error {
	coachID, err := scheduleOwnerID(c)
	if err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden", "code": "FORBIDDEN"})
	}

	exceptionID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || exceptionID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid exception id"})
	}

	deleted, err := h.service.DeleteException(c.Context(), coachID, exceptionID)
	if err != nil {
		return mapAvailabilityError(c, err)
	}
	if !deleted {
		return c.Status(fiber.StatusNotFound).
			JSON(fiber.Map{"error": "Exception not found", "code": "NOT_FOUND"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// scheduleOwnerID resolves which coach's schedule a management call targets:
// coaches act on their own schedule, admins pass ?coach_id.
func scheduleOwnerID(c *fiber.Ctx) (int64, error) {
	role, _ := c.Locals("role").(string)
	switch role {
	case "coach":
		return parseActorID(c)
	case "admin":
		coachID, err := strconv.ParseInt(strings.TrimSpace(c.Query("coach_id")), 10, 64)
		if err != nil || coachID <= 0 {
			return 0, errors.New("missing coach_id")
		}
		return coachID, nil
	default:
		return 0, errors.New("forbidden")
	}
}

func mapAvailabilityError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process availability request"})
	}
}
