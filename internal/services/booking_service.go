package services

import (
	"context"
	"errors"
	"time"

	"github.com/IkeLongo/collenback-strength-sub000/internal/models"
	"github.com/IkeLongo/collenback-strength-sub000/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidInput      = errors.New("invalid input")
	ErrCoachNotFound     = errors.New("coach not found")
	ErrSlotTaken         = errors.New("slot taken")
	ErrNoEntitlement     = errors.New("no entitlement")
	ErrReserveFailed     = errors.New("reserve failed")
	ErrSessionNotStarted = errors.New("session not started")
	ErrInvalidStatus     = errors.New("invalid status")
)

type userReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// Notifier delivers post-commit, best-effort booking events. Implementations
// must never block or return errors into the booking path.
type Notifier interface {
	SessionEvent(kind string, session *models.Session)
}

// BookingPolicy carries the tunable booking constants. LateCancelWindow is
// the lead-time boundary under which a cancellation consumes the credit
// instead of releasing it.
type BookingPolicy struct {
	LateCancelWindow     time.Duration
	SubscriptionLockWait time.Duration
}

type BookingService struct {
	db          *pgxpool.Pool
	sessionRepo *repository.SessionRepository
	ledgerRepo  *repository.LedgerRepository
	catalogRepo *repository.ServiceCatalogRepository
	userRepo    userReader
	notifier    Notifier
	policy      BookingPolicy
}

func NewBookingService(
	db *pgxpool.Pool,
	sessionRepo *repository.SessionRepository,
	ledgerRepo *repository.LedgerRepository,
	catalogRepo *repository.ServiceCatalogRepository,
	userRepo userReader,
	notifier Notifier,
	policy BookingPolicy,
) *BookingService {
	return &BookingService{
		db:          db,
		sessionRepo: sessionRepo,
		ledgerRepo:  ledgerRepo,
		catalogRepo: catalogRepo,
		userRepo:    userRepo,
		notifier:    notifier,
		policy:      policy,
	}
}

type BookSessionInput struct {
	CoachID         int64
	ServiceID       int64
	Start           time.Time
	DurationMinutes int
}

// BookSession atomically creates one scheduled session funded by one
// entitlement source, or fails with no partial state. The slot is
// re-validated here with row locks even though the availability endpoint
// already filtered it: time has passed since the client fetched slots, and
// this is the only race-safe check.
func (s *BookingService) BookSession(
	ctx context.Context,
	clientID int64,
	input BookSessionInput,
) (*models.SessionDetail, error) {
	if input.CoachID <= 0 || input.ServiceID <= 0 || input.DurationMinutes <= 0 {
		return nil, ErrInvalidInput
	}
	if clientID == input.CoachID {
		return nil, ErrInvalidInput
	}
	start := input.Start.UTC()
	if start.Before(time.Now().Add(-1 * time.Minute)) {
		return nil, ErrInvalidInput
	}
	end := start.Add(time.Duration(input.DurationMinutes) * time.Minute)

	coach, err := s.userRepo.GetByID(ctx, input.CoachID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCoachNotFound
		}
		return nil, err
	}
	if coach.Role != "coach" {
		return nil, ErrInvalidInput
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSessionRepo := repository.NewSessionRepository(tx)
	txLedgerRepo := repository.NewLedgerRepository(tx)
	txPackRepo := repository.NewPackRepository(tx)

	if err := advisoryXactLock(ctx, tx, coachLockName(input.CoachID)); err != nil {
		return nil, err
	}

	overlapping, err := txSessionRepo.LockOverlapping(ctx, input.CoachID, start, end)
	if err != nil {
		return nil, err
	}
	if len(overlapping) > 0 {
		return nil, ErrSlotTaken
	}

	now := time.Now().UTC()
	reservation, err := resolveEntitlement(
		ctx, tx,
		entitlementSources(s.policy.SubscriptionLockWait),
		clientID, input.ServiceID, now,
	)
	if err != nil {
		return nil, err
	}

	session, err := txSessionRepo.Create(ctx, repository.CreateSessionInput{
		ClientID:       clientID,
		CoachID:        input.CoachID,
		ServiceID:      input.ServiceID,
		ScheduledStart: start,
		ScheduledEnd:   end,
		PackID:         reservation.PackID,
		SubscriptionID: reservation.SubscriptionID,
	})
	if err != nil {
		return nil, err
	}

	if reservation.PackID != nil {
		// The fundable pack was selected under FOR UPDATE, but the guard
		// re-checks availability at write time anyway.
		reserved, err := txPackRepo.Reserve(ctx, *reservation.PackID)
		if err != nil {
			return nil, err
		}
		if !reserved {
			return nil, ErrReserveFailed
		}
	}

	if _, err := txLedgerRepo.Create(ctx, repository.CreateLedgerInput{
		UserID:         clientID,
		PackID:         reservation.PackID,
		SubscriptionID: reservation.SubscriptionID,
		SessionID:      session.ID,
		Type:           models.LedgerTypeReserve,
		Amount:         1,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.notifier.SessionEvent("booked", session)
	return s.decorate(ctx, session)
}

func (s *BookingService) GetSession(
	ctx context.Context,
	actorID int64,
	role string,
	sessionID int64,
) (*models.SessionDetail, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !canAccessSession(role, actorID, session) {
		return nil, ErrForbidden
	}
	return s.decorate(ctx, session)
}

func (s *BookingService) ListSessions(
	ctx context.Context,
	actorID int64,
	role string,
	filter repository.SessionListFilter,
) ([]models.SessionDetail, int, error) {
	filter.ActorID = actorID
	filter.Role = role
	sessions, total, err := s.sessionRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	sessionIDs := make([]int64, 0, len(sessions))
	serviceIDs := make([]int64, 0, len(sessions))
	for _, session := range sessions {
		sessionIDs = append(sessionIDs, session.ID)
		serviceIDs = append(serviceIDs, session.ServiceID)
	}

	ledgerBySession, err := s.ledgerRepo.ListBySessionIDs(ctx, sessionIDs)
	if err != nil {
		return nil, 0, err
	}
	metadata, err := s.catalogRepo.GetMetadata(ctx, serviceIDs)
	if err != nil {
		return nil, 0, err
	}

	details := make([]models.SessionDetail, 0, len(sessions))
	for _, session := range sessions {
		detail := models.SessionDetail{Session: session}
		detail.Ledger = ledgerBySession[session.ID]
		if service, ok := metadata[session.ServiceID]; ok {
			serviceCopy := service
			detail.Service = &serviceCopy
		}
		details = append(details, detail)
	}
	return details, total, nil
}

// CancelSession settles by lead time: enough notice releases the credit,
// late cancellation consumes it like a no-show.
func (s *BookingService) CancelSession(
	ctx context.Context,
	actorID int64,
	role string,
	sessionID int64,
	reason *string,
) (*models.SessionDetail, error) {
	return s.transition(ctx, actorID, role, sessionID, models.SessionStatusCancelled, reason)
}

// CompleteSession confirms attendance and consumes the entitlement.
func (s *BookingService) CompleteSession(
	ctx context.Context,
	actorID int64,
	role string,
	sessionID int64,
) (*models.SessionDetail, error) {
	return s.transition(ctx, actorID, role, sessionID, models.SessionStatusCompleted, nil)
}

// MarkNoShow records a missed session. Only valid once the session has
// started; marking a future session as missed is meaningless.
func (s *BookingService) MarkNoShow(
	ctx context.Context,
	actorID int64,
	role string,
	sessionID int64,
	reason *string,
) (*models.SessionDetail, error) {
	return s.transition(ctx, actorID, role, sessionID, models.SessionStatusNoShow, reason)
}

func (s *BookingService) transition(
	ctx context.Context,
	actorID int64,
	role string,
	sessionID int64,
	target string,
	reason *string,
) (*models.SessionDetail, error) {
	now := time.Now().UTC()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSessionRepo := repository.NewSessionRepository(tx)
	txLedgerRepo := repository.NewLedgerRepository(tx)
	txPackRepo := repository.NewPackRepository(tx)

	session, err := txSessionRepo.GetByIDForUpdate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := authorizeTransition(role, actorID, session, target); err != nil {
		return nil, err
	}

	// Repeating an already-applied terminal transition is a success with no
	// side effects, so retries and double-clicks stay harmless.
	if session.Status == target {
		return s.decorate(ctx, session)
	}
	if session.Terminal() {
		return nil, ErrInvalidStatus
	}
	if target == models.SessionStatusNoShow && now.Before(session.ScheduledStart) {
		return nil, ErrSessionNotStarted
	}

	settlement := settlementFor(target, session.ScheduledStart, now, s.policy.LateCancelWindow)

	var cancelledAt *time.Time
	if target != models.SessionStatusCompleted {
		cancelledAt = &now
	}
	updated, err := txSessionRepo.TransitionFromScheduled(ctx, sessionID, target, reason, cancelledAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStatus
		}
		return nil, err
	}

	if updated.PackID != nil || updated.SubscriptionID != nil {
		settled, err := txLedgerRepo.HasSettlement(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if !settled && settlement != "" {
			if _, err := txLedgerRepo.Create(ctx, repository.CreateLedgerInput{
				UserID:         updated.ClientID,
				PackID:         updated.PackID,
				SubscriptionID: updated.SubscriptionID,
				SessionID:      updated.ID,
				Type:           settlement,
				Amount:         1,
				Note:           reason,
			}); err != nil {
				return nil, err
			}
			if updated.PackID != nil {
				switch settlement {
				case models.LedgerTypeConsume:
					err = txPackRepo.ConsumeReserved(ctx, *updated.PackID)
				case models.LedgerTypeRelease:
					err = txPackRepo.ReleaseReserved(ctx, *updated.PackID)
				}
				if err != nil {
					return nil, err
				}
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.notifier.SessionEvent(target, updated)
	return s.decorate(ctx, updated)
}

// settlementFor decides how a terminal transition settles the reserved
// credit. Completion and no-show always consume; cancellation releases only
// with at least lateCancelWindow of notice.
func settlementFor(target string, scheduledStart, now time.Time, lateCancelWindow time.Duration) string {
	switch target {
	case models.SessionStatusCompleted, models.SessionStatusNoShow:
		return models.LedgerTypeConsume
	case models.SessionStatusCancelled:
		if scheduledStart.Sub(now) >= lateCancelWindow {
			return models.LedgerTypeRelease
		}
		return models.LedgerTypeConsume
	default:
		return ""
	}
}

func canAccessSession(role string, actorID int64, session *models.Session) bool {
	switch role {
	case "admin":
		return true
	case "user":
		return session.ClientID == actorID
	case "coach":
		return session.CoachID == actorID
	default:
		return false
	}
}

// authorizeTransition gates lifecycle transitions: completion and no-show are
// admin-only; cancellation is open to the booking client and admins.
func authorizeTransition(role string, actorID int64, session *models.Session, target string) error {
	switch target {
	case models.SessionStatusCancelled:
		if role == "admin" {
			return nil
		}
		if role == "user" && session.ClientID == actorID {
			return nil
		}
		return ErrForbidden
	case models.SessionStatusCompleted, models.SessionStatusNoShow:
		if role == "admin" {
			return nil
		}
		return ErrForbidden
	default:
		return ErrInvalidStatus
	}
}

func (s *BookingService) decorate(ctx context.Context, session *models.Session) (*models.SessionDetail, error) {
	detail := &models.SessionDetail{Session: *session}

	ledger, err := s.ledgerRepo.ListBySessionID(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	detail.Ledger = ledger

	metadata, err := s.catalogRepo.GetMetadata(ctx, []int64{session.ServiceID})
	if err != nil {
		return nil, err
	}
	if service, ok := metadata[session.ServiceID]; ok {
		serviceCopy := service
		detail.Service = &serviceCopy
	}
	return detail, nil
}
