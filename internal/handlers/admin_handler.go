package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/IkeLongo/collenback-strength-sub000/internal/repository"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// AdminHandler grants entitlements directly. These endpoints stand in for the
// payment-provider webhooks that would normally create packs and
// subscriptions.
type AdminHandler struct {
	userRepo         *repository.UserRepository
	packRepo         *repository.PackRepository
	subscriptionRepo *repository.SubscriptionRepository
}

func NewAdminHandler(
	userRepo *repository.UserRepository,
	packRepo *repository.PackRepository,
	subscriptionRepo *repository.SubscriptionRepository,
) *AdminHandler {
	return &AdminHandler{
		userRepo:         userRepo,
		packRepo:         packRepo,
		subscriptionRepo: subscriptionRepo,
	}
}

type grantPackRequest struct {
	UserID       int64   `json:"user_id"`
	ServiceID    int64   `json:"service_id"`
	TotalCredits int     `json:"total_credits"`
	ExpiresAt    *string `json:"expires_at"`
}

func (h *AdminHandler) GrantPack(c *fiber.Ctx) error {
	var req grantPackRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.UserID <= 0 || req.ServiceID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id and service_id are required"})
	}
	if req.TotalCredits <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "total_credits must be greater than 0"})
	}

	var expiresAt *time.Time
	if req.ExpiresAt != nil {
		parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(*req.ExpiresAt))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "expires_at must be a valid RFC3339 timestamp"})
		}
		expiresAt = &parsed
	}

	if _, err := h.userRepo.GetByID(c.Context(), req.UserID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).
				JSON(fiber.Map{"error": "User not found", "code": "NOT_FOUND"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to look up user"})
	}

	pack, err := h.packRepo.Grant(c.Context(), repository.GrantPackInput{
		UserID:       req.UserID,
		ServiceID:    req.ServiceID,
		TotalCredits: req.TotalCredits,
		ExpiresAt:    expiresAt,
	})
	if err != nil {
		return mapAdminError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"pack": pack})
}

type grantSubscriptionRequest struct {
	UserID             int64  `json:"user_id"`
	ServiceID          int64  `json:"service_id"`
	Status             string `json:"status"`
	CurrentPeriodStart string `json:"current_period_start"`
	CurrentPeriodEnd   string `json:"current_period_end"`
	SessionsPerPeriod  int    `json:"sessions_per_period"`
}

func (h *AdminHandler) GrantSubscription(c *fiber.Ctx) error {
	var req grantSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.UserID <= 0 || req.ServiceID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id and service_id are required"})
	}
	if req.SessionsPerPeriod <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "sessions_per_period must be greater than 0"})
	}
	if req.Status == "" {
		req.Status = "active"
	}
	if req.Status != "active" && req.Status != "trialing" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "status must be active or trialing"})
	}

	periodStart, err := time.Parse(time.RFC3339, strings.TrimSpace(req.CurrentPeriodStart))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "current_period_start must be a valid RFC3339 timestamp"})
	}
	periodEnd, err := time.Parse(time.RFC3339, strings.TrimSpace(req.CurrentPeriodEnd))
	if err != nil || !periodEnd.After(periodStart) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "current_period_end must be after current_period_start"})
	}

	if _, err := h.userRepo.GetByID(c.Context(), req.UserID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).
				JSON(fiber.Map{"error": "User not found", "code": "NOT_FOUND"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to look up user"})
	}

	subscription, err := h.subscriptionRepo.Create(c.Context(), repository.CreateSubscriptionInput{
		UserID:             req.UserID,
		ServiceID:          req.ServiceID,
		Status:             req.Status,
		CurrentPeriodStart: periodStart,
		CurrentPeriodEnd:   periodEnd,
		SessionsPerPeriod:  req.SessionsPerPeriod,
	})
	if err != nil {
		return mapAdminError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"subscription": subscription})
}

func mapAdminError(c *fiber.Ctx, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown service"})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to grant entitlement"})
}
