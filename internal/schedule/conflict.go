package schedule

import (
	"context"
	"fmt"
	"time"
)

// AppointmentSource exposes the queries the scheduling core needs against the
// appointment store. Implementations must only count active rows: status
// outside {cancelled, no_show} and not soft-deleted.
type AppointmentSource interface {
	// CountOverlapping counts active appointments whose [start,end) intersects
	// the given half-open interval. excludeID, when non-empty, removes one
	// appointment from consideration (used by reschedule).
	CountOverlapping(ctx context.Context, tenantID string, start, end time.Time, excludeID string) (int, error)
	// CountBetween counts active appointments starting inside [from, to).
	CountBetween(ctx context.Context, tenantID string, from, to time.Time) (int, error)
}

// ConflictChecker decides whether a candidate interval, expanded by the
// tenant's buffer, is free of active appointments.
type ConflictChecker struct {
	appts AppointmentSource
}

// NewConflictChecker builds a checker over the appointment source.
func NewConflictChecker(appts AppointmentSource) *ConflictChecker {
	if appts == nil {
		panic("schedule: appointment source required")
	}
	return &ConflictChecker{appts: appts}
}

// IsFree reports whether [start-buffer, start+duration+buffer) intersects no
// active appointment for the tenant.
func (c *ConflictChecker) IsFree(ctx context.Context, tenantID string, start time.Time, durationMin, bufferMin int) (bool, error) {
	return c.IsFreeExcluding(ctx, tenantID, start, durationMin, bufferMin, "")
}

// IsFreeExcluding is IsFree ignoring one appointment id, so a reschedule does
// not conflict with itself.
func (c *ConflictChecker) IsFreeExcluding(ctx context.Context, tenantID string, start time.Time, durationMin, bufferMin int, excludeID string) (bool, error) {
	if durationMin <= 0 {
		return false, NewValidationError("duration", fmt.Sprintf("%d minutes", durationMin))
	}
	if bufferMin < 0 {
		bufferMin = 0
	}
	from := start.Add(-time.Duration(bufferMin) * time.Minute)
	to := start.Add(time.Duration(durationMin+bufferMin) * time.Minute)

	n, err := c.appts.CountOverlapping(ctx, tenantID, from, to, excludeID)
	if err != nil {
		return false, fmt.Errorf("schedule: count overlaps: %w", err)
	}
	return n == 0, nil
}
