package catalog

import "time"

// Service is a bookable offering of a tenant. Duration falls back to the
// tenant policy default when zero.
type Service struct {
	ID          string
	TenantID    string
	Name        string
	DurationMin int
	PriceMin    *int
	PriceMax    *int
	Aliases     []string
	Enabled     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
