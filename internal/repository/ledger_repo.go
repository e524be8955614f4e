package repository

import (
	"context"
	"time"

	"github.com/IkeLongo/collenback-strength-sub000/internal/models"
)

const ledgerColumns = `id, user_id, pack_id, subscription_id, session_id, type, amount, note, created_at`

type CreateLedgerInput struct {
	UserID         int64
	PackID         *int64
	SubscriptionID *int64
	SessionID      int64
	Type           string
	Amount         int
	Note           *string
}

// LedgerRepository writes and reads the append-only credit transaction
// ledger. Rows are never updated or deleted.
type LedgerRepository struct {
	db DBTX
}

func NewLedgerRepository(db DBTX) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func scanLedger(row interface{ Scan(dest ...any) error }, entry *models.CreditTransaction) error {
	return row.Scan(
		&entry.ID,
		&entry.UserID,
		&entry.PackID,
		&entry.SubscriptionID,
		&entry.SessionID,
		&entry.Type,
		&entry.Amount,
		&entry.Note,
		&entry.CreatedAt,
	)
}

func (r *LedgerRepository) Create(ctx context.Context, input CreateLedgerInput) (*models.CreditTransaction, error) {
	query := `
		INSERT INTO credit_transactions (user_id, pack_id, subscription_id, session_id, type, amount, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + ledgerColumns

	var entry models.CreditTransaction
	err := scanLedger(r.db.QueryRow(ctx, query,
		input.UserID,
		input.PackID,
		input.SubscriptionID,
		input.SessionID,
		input.Type,
		input.Amount,
		input.Note,
	), &entry)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// HasSettlement reports whether the session already has a consume or release
// row. Settlement writers check this first so retried no-show/cancel/complete
// calls never produce duplicate ledger rows.
func (r *LedgerRepository) HasSettlement(ctx context.Context, sessionID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM credit_transactions
			WHERE session_id = $1
			  AND type IN ('consume', 'release')
		)
	`
	var settled bool
	if err := r.db.QueryRow(ctx, query, sessionID).Scan(&settled); err != nil {
		return false, err
	}
	return settled, nil
}

// CountSubscriptionUsage derives period usage by counting distinct sessions
// holding a reserve or consume row for the subscription, scheduled inside
// [periodStart, periodEnd), and not released. There is deliberately no usage
// counter column to keep in sync with the ledger.
func (r *LedgerRepository) CountSubscriptionUsage(
	ctx context.Context,
	subscriptionID int64,
	periodStart time.Time,
	periodEnd time.Time,
) (int, error) {
	query := `
		SELECT COUNT(DISTINCT ct.session_id)
		FROM credit_transactions ct
		JOIN sessions s ON s.id = ct.session_id
		WHERE ct.subscription_id = $1
		  AND ct.type IN ('reserve', 'consume')
		  AND s.scheduled_start >= $2
		  AND s.scheduled_start < $3
		  AND NOT EXISTS (
			SELECT 1
			FROM credit_transactions released
			WHERE released.session_id = ct.session_id
			  AND released.subscription_id = ct.subscription_id
			  AND released.type = 'release'
		  )
	`
	var used int
	if err := r.db.QueryRow(ctx, query, subscriptionID, periodStart, periodEnd).Scan(&used); err != nil {
		return 0, err
	}
	return used, nil
}

func (r *LedgerRepository) ListBySessionID(ctx context.Context, sessionID int64) ([]models.CreditTransaction, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM credit_transactions
		WHERE session_id = $1
		ORDER BY id ASC
	`
	rows, err := r.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.CreditTransaction, 0)
	for rows.Next() {
		var entry models.CreditTransaction
		if err := scanLedger(rows, &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// ListBySessionIDs loads ledger rows for a batch of sessions, keyed by
// session id, for list decoration.
func (r *LedgerRepository) ListBySessionIDs(ctx context.Context, sessionIDs []int64) (map[int64][]models.CreditTransaction, error) {
	entries := make(map[int64][]models.CreditTransaction, len(sessionIDs))
	if len(sessionIDs) == 0 {
		return entries, nil
	}

	query := `
		SELECT ` + ledgerColumns + `
		FROM credit_transactions
		WHERE session_id = ANY($1)
		ORDER BY session_id ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, sessionIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var entry models.CreditTransaction
		if err := scanLedger(rows, &entry); err != nil {
			return nil, err
		}
		entries[entry.SessionID] = append(entries[entry.SessionID], entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
