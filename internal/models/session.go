package models

import "time"

const (
	SessionStatusScheduled = "scheduled"
	SessionStatusCompleted = "completed"
	SessionStatusCancelled = "cancelled"
	SessionStatusNoShow    = "no_show"
)

type Session struct {
	ID                 int64      `json:"id"`
	ClientID           int64      `json:"client_id"`
	CoachID            int64      `json:"coach_id"`
	ServiceID          int64      `json:"service_id"`
	ScheduledStart     time.Time  `json:"scheduled_start"`
	ScheduledEnd       time.Time  `json:"scheduled_end"`
	Status             string     `json:"status"`
	PackID             *int64     `json:"pack_id,omitempty"`
	SubscriptionID     *int64     `json:"subscription_id,omitempty"`
	Charged            bool       `json:"charged"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (s *Session) Terminal() bool {
	return s.Status != SessionStatusScheduled
}

type SessionDetail struct {
	Session
	Service *ServiceMetadata    `json:"service,omitempty"`
	Ledger  []CreditTransaction `json:"ledger,omitempty"`
}
