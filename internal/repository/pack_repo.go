package repository

import (
	"context"
	"time"

	"github.com/IkeLongo/collenback-strength-sub000/internal/models"
	"github.com/jackc/pgx/v5"
)

const packColumns = `id, user_id, service_id, total_credits, credits_used, credits_reserved,
		expires_at, purchased_at`

type GrantPackInput struct {
	UserID       int64
	ServiceID    int64
	TotalCredits int
	ExpiresAt    *time.Time
}

type PackRepository struct {
	db DBTX
}

func NewPackRepository(db DBTX) *PackRepository {
	return &PackRepository{db: db}
}

func scanPack(row interface{ Scan(dest ...any) error }, pack *models.CreditPack) error {
	return row.Scan(
		&pack.ID,
		&pack.UserID,
		&pack.ServiceID,
		&pack.TotalCredits,
		&pack.CreditsUsed,
		&pack.CreditsReserved,
		&pack.ExpiresAt,
		&pack.PurchasedAt,
	)
}

func (r *PackRepository) Grant(ctx context.Context, input GrantPackInput) (*models.CreditPack, error) {
	query := `
		INSERT INTO credit_packs (user_id, service_id, total_credits, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + packColumns

	var pack models.CreditPack
	err := scanPack(r.db.QueryRow(ctx, query,
		input.UserID,
		input.ServiceID,
		input.TotalCredits,
		input.ExpiresAt,
	), &pack)
	if err != nil {
		return nil, err
	}
	return &pack, nil
}

func (r *PackRepository) GetByID(ctx context.Context, packID int64) (*models.CreditPack, error) {
	query := `SELECT ` + packColumns + ` FROM credit_packs WHERE id = $1`
	var pack models.CreditPack
	if err := scanPack(r.db.QueryRow(ctx, query, packID), &pack); err != nil {
		return nil, err
	}
	return &pack, nil
}

// LockFundable locks and returns the best fundable pack for (user, service):
// unexpired, at least one available credit, soonest expiry first so expiring
// inventory drains before open-ended packs, oldest purchase breaking ties.
func (r *PackRepository) LockFundable(
	ctx context.Context,
	userID int64,
	serviceID int64,
	now time.Time,
) (*models.CreditPack, error) {
	query := `
		SELECT ` + packColumns + `
		FROM credit_packs
		WHERE user_id = $1
		  AND service_id = $2
		  AND (expires_at IS NULL OR expires_at > $3)
		  AND total_credits - credits_used - credits_reserved >= 1
		ORDER BY expires_at ASC NULLS LAST, id ASC
		LIMIT 1
		FOR UPDATE
	`
	var pack models.CreditPack
	err := scanPack(r.db.QueryRow(ctx, query, userID, serviceID, now), &pack)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, pgx.ErrNoRows
		}
		return nil, err
	}
	return &pack, nil
}

// Reserve increments credits_reserved only while a credit is still available.
// The availability guard re-checks at write time; a zero-row result means a
// concurrent reservation won and the caller must roll back.
func (r *PackRepository) Reserve(ctx context.Context, packID int64) (bool, error) {
	query := `
		UPDATE credit_packs
		SET credits_reserved = credits_reserved + 1
		WHERE id = $1
		  AND total_credits - credits_used - credits_reserved >= 1
	`
	tag, err := r.db.Exec(ctx, query, packID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ConsumeReserved moves one credit from reserved to used, flooring reserved
// at zero.
func (r *PackRepository) ConsumeReserved(ctx context.Context, packID int64) error {
	query := `
		UPDATE credit_packs
		SET credits_reserved = GREATEST(credits_reserved - 1, 0),
		    credits_used = credits_used + 1
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, packID)
	return err
}

// ReleaseReserved returns one reserved credit to the pool, flooring at zero.
func (r *PackRepository) ReleaseReserved(ctx context.Context, packID int64) error {
	query := `
		UPDATE credit_packs
		SET credits_reserved = GREATEST(credits_reserved - 1, 0)
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, packID)
	return err
}
