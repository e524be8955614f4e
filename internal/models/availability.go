package models

import "time"

// AvailabilityRule is a recurring weekly window for a coach. Rules are never
// edited in place; changing one means deleting it and creating a replacement.
type AvailabilityRule struct {
	ID        int64     `json:"id"`
	CoachID   int64     `json:"coach_id"`
	DayOfWeek int       `json:"day_of_week"` // 0=Sunday .. 6=Saturday
	StartTime string    `json:"start_time"`  // "15:04" local business time
	EndTime   string    `json:"end_time"`
	Timezone  string    `json:"timezone"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	ExceptionTypeBlocked = "blocked"
	ExceptionTypeCustom  = "custom"
)

// AvailabilityException overrides a single calendar date. A blocked exception
// without times blocks the whole day; with times it blocks that sub-window.
// A custom exception adds an extra bookable window on top of the day's rules.
type AvailabilityException struct {
	ID        int64     `json:"id"`
	CoachID   int64     `json:"coach_id"`
	Date      time.Time `json:"date"`
	Type      string    `json:"type"`
	StartTime *string   `json:"start_time,omitempty"`
	EndTime   *string   `json:"end_time,omitempty"`
	Note      *string   `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
