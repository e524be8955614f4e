package models

// ServiceMetadata mirrors the read-only service catalog. Missing entries are
// treated as nil metadata and never block booking.
type ServiceMetadata struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Slug     string `json:"slug"`
}
