package routes

import (
	"log"
	"time"

	"github.com/IkeLongo/collenback-strength-sub000/internal/config"
	"github.com/IkeLongo/collenback-strength-sub000/internal/handlers"
	"github.com/IkeLongo/collenback-strength-sub000/internal/middleware"
	"github.com/IkeLongo/collenback-strength-sub000/internal/notifier"
	"github.com/IkeLongo/collenback-strength-sub000/internal/ratelimit"
	"github.com/IkeLongo/collenback-strength-sub000/internal/repository"
	"github.com/IkeLongo/collenback-strength-sub000/internal/services"
	eventws "github.com/IkeLongo/collenback-strength-sub000/internal/websocket"
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) error {
	loc, err := time.LoadLocation(cfg.BusinessTimezone)
	if err != nil {
		return err
	}

	userRepo := repository.NewUserRepository(db)
	ruleRepo := repository.NewRuleRepository(db)
	exceptionRepo := repository.NewExceptionRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	packRepo := repository.NewPackRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	catalogRepo := repository.NewServiceCatalogRepository(db)

	hub := eventws.NewHub()
	go hub.Run()

	availabilityService := services.NewAvailabilityService(ruleRepo, exceptionRepo, sessionRepo, loc)
	bookingService := services.NewBookingService(
		db,
		sessionRepo,
		ledgerRepo,
		catalogRepo,
		userRepo,
		notifier.New(hub),
		services.BookingPolicy{
			LateCancelWindow:     time.Duration(cfg.LateCancelHours) * time.Hour,
			SubscriptionLockWait: cfg.SubLockWait,
		},
	)

	authHandler := handlers.NewAuthHandler(userRepo, cfg.JWTSecret)
	availabilityHandler := handlers.NewAvailabilityHandler(availabilityService)
	sessionHandler := handlers.NewSessionHandler(bookingService)
	adminHandler := handlers.NewAdminHandler(userRepo, packRepo, subscriptionRepo)
	eventsHandler := handlers.NewEventsHandler(hub, cfg.JWTSecret)

	limiter := newLimiter(cfg)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", limiter.Middleware(), authHandler.Register)
	auth.Post("/login", limiter.Middleware(), authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret), limiter.Middleware())

	availability := authProtected.Group("/availability")
	availability.Get("/:coachId", availabilityHandler.GetSlots)

	schedule := authProtected.Group("/schedule", middleware.RequireRole("coach", "admin"))
	schedule.Post("/rules", availabilityHandler.CreateRule)
	schedule.Get("/rules", availabilityHandler.ListRules)
	schedule.Delete("/rules/:id", availabilityHandler.DeleteRule)
	schedule.Post("/exceptions", availabilityHandler.CreateException)
	schedule.Get("/exceptions", availabilityHandler.ListExceptions)
	schedule.Delete("/exceptions/:id", availabilityHandler.DeleteException)

	sessions := authProtected.Group("/sessions")
	sessions.Post("/book", sessionHandler.BookSession)
	sessions.Get("", sessionHandler.ListSessions)
	sessions.Get("/:id", sessionHandler.GetSession)
	sessions.Post("/:id/cancel", sessionHandler.CancelSession)
	sessions.Post("/:id/complete", sessionHandler.CompleteSession)
	sessions.Post("/:id/no-show", sessionHandler.MarkNoShow)

	admin := authProtected.Group("/admin", middleware.RequireRole("admin"))
	admin.Post("/packs", adminHandler.GrantPack)
	admin.Post("/subscriptions", adminHandler.GrantSubscription)

	api.Use("/v1/ws", eventsHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(eventsHandler.HandleWebSocket))

	return nil
}

func newLimiter(cfg *config.Config) *ratelimit.Limiter {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return ratelimit.New(ratelimit.NewRedisStore(client), cfg.RateLimit, cfg.RateLimitWindow)
	}
	log.Println("REDIS_ADDR not set, using in-memory rate limiter")
	return ratelimit.New(ratelimit.NewMemoryStore(), cfg.RateLimit, cfg.RateLimitWindow)
}
