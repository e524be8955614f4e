package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IkeLongo/collenback-strength-sub000/internal/repository"
	"github.com/jackc/pgx/v5"
)

// Reservation names the funding source selected for a booking. Exactly one of
// PackID/SubscriptionID is set.
type Reservation struct {
	PackID         *int64
	SubscriptionID *int64
	Source         string
}

const (
	sourceSubscription = "subscription"
	sourcePack         = "pack"

	subscriptionLockPoll = 100 * time.Millisecond
)

// advisoryXactLock blocks on a named transaction-scoped lock. Released
// automatically at commit or rollback.
func advisoryXactLock(ctx context.Context, tx pgx.Tx, name string) error {
	_, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtextextended($1, 0))", name)
	return err
}

// tryAdvisoryXactLock polls a named transaction-scoped lock until acquired or
// the wait budget runs out.
func tryAdvisoryXactLock(ctx context.Context, tx pgx.Tx, name string, wait time.Duration) (bool, error) {
	deadline := time.Now().Add(wait)
	for {
		var acquired bool
		err := tx.QueryRow(ctx, "SELECT pg_try_advisory_xact_lock(hashtextextended($1, 0))", name).
			Scan(&acquired)
		if err != nil {
			return false, err
		}
		if acquired {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(subscriptionLockPoll):
		}
	}
}

func coachLockName(coachID int64) string {
	return fmt.Sprintf("booking:coach:%d", coachID)
}

func subscriptionLockName(subscriptionID int64) string {
	return fmt.Sprintf("booking:subscription:%d", subscriptionID)
}

// entitlementSource probes one funding source type inside the booking
// transaction. A nil reservation with nil error means "no capacity here, try
// the next source".
type entitlementSource interface {
	tryReserve(ctx context.Context, tx pgx.Tx, userID, serviceID int64, now time.Time) (*Reservation, error)
}

// subscriptionSource drains active subscription quota, soonest period end
// first. Concurrent attempts against one subscription are serialized by a
// named lock scoped to that subscription id, so two requests cannot both see
// the last remaining quota slot.
type subscriptionSource struct {
	lockWait time.Duration
}

func (s subscriptionSource) tryReserve(
	ctx context.Context,
	tx pgx.Tx,
	userID int64,
	serviceID int64,
	now time.Time,
) (*Reservation, error) {
	candidates, err := repository.NewSubscriptionRepository(tx).
		ListFundingCandidates(ctx, userID, serviceID, now)
	if err != nil {
		return nil, err
	}

	ledger := repository.NewLedgerRepository(tx)
	for i := range candidates {
		candidate := candidates[i]

		acquired, err := tryAdvisoryXactLock(ctx, tx, subscriptionLockName(candidate.ID), s.lockWait)
		if err != nil {
			return nil, err
		}
		if !acquired {
			// Contended past the wait budget; try the next candidate rather
			// than failing the whole booking.
			continue
		}

		used, err := ledger.CountSubscriptionUsage(
			ctx,
			candidate.ID,
			*candidate.CurrentPeriodStart,
			*candidate.CurrentPeriodEnd,
		)
		if err != nil {
			return nil, err
		}
		if used < candidate.SessionsPerPeriod {
			id := candidate.ID
			return &Reservation{SubscriptionID: &id, Source: sourceSubscription}, nil
		}
	}
	return nil, nil
}

// packSource falls back to prepaid credit packs, expiring inventory first.
// The selected pack row is locked FOR UPDATE; the actual reservation still
// re-checks availability at write time.
type packSource struct{}

func (packSource) tryReserve(
	ctx context.Context,
	tx pgx.Tx,
	userID int64,
	serviceID int64,
	now time.Time,
) (*Reservation, error) {
	pack, err := repository.NewPackRepository(tx).LockFundable(ctx, userID, serviceID, now)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	id := pack.ID
	return &Reservation{PackID: &id, Source: sourcePack}, nil
}

// entitlementSources is the fixed funding priority: subscription quota before
// pack credits. Adding a source type means appending a provider here.
func entitlementSources(lockWait time.Duration) []entitlementSource {
	return []entitlementSource{
		subscriptionSource{lockWait: lockWait},
		packSource{},
	}
}

func resolveEntitlement(
	ctx context.Context,
	tx pgx.Tx,
	sources []entitlementSource,
	userID int64,
	serviceID int64,
	now time.Time,
) (*Reservation, error) {
	for _, source := range sources {
		reservation, err := source.tryReserve(ctx, tx, userID, serviceID, now)
		if err != nil {
			return nil, err
		}
		if reservation != nil {
			return reservation, nil
		}
	}
	return nil, ErrNoEntitlement
}
