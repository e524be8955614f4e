package models

import "time"

type CreditPack struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"user_id"`
	ServiceID       int64      `json:"service_id"`
	TotalCredits    int        `json:"total_credits"`
	CreditsUsed     int        `json:"credits_used"`
	CreditsReserved int        `json:"credits_reserved"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	PurchasedAt     time.Time  `json:"purchased_at"`
}

func (p *CreditPack) AvailableCredits() int {
	return p.TotalCredits - p.CreditsUsed - p.CreditsReserved
}

const (
	SubscriptionStatusTrialing = "trialing"
	SubscriptionStatusActive   = "active"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusPastDue  = "past_due"
)

// Subscription carries no usage counter; usage in the current period is
// derived by counting ledger rows so it can never drift from the ledger.
type Subscription struct {
	ID                 int64      `json:"id"`
	UserID             int64      `json:"user_id"`
	ServiceID          int64      `json:"service_id"`
	Status             string     `json:"status"`
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	SessionsPerPeriod  int        `json:"sessions_per_period"`
	CancelAtPeriodEnd  bool       `json:"cancel_at_period_end"`
	CreatedAt          time.Time  `json:"created_at"`
}

const (
	LedgerTypeReserve = "reserve"
	LedgerTypeConsume = "consume"
	LedgerTypeRelease = "release"
)

// CreditTransaction is an append-only ledger row. A session gets one reserve
// row at booking and at most one consume or release row when it settles.
type CreditTransaction struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	PackID         *int64    `json:"pack_id,omitempty"`
	SubscriptionID *int64    `json:"subscription_id,omitempty"`
	SessionID      int64     `json:"session_id"`
	Type           string    `json:"type"`
	Amount         int       `json:"amount"`
	Note           *string   `json:"note,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
