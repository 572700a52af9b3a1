package schedule

import (
	"context"
	"fmt"
	"time"
)

// DayHours is a tenant's recurring weekly schedule for one weekday: whether
// the day is open and up to two disjoint open windows.
type DayHours struct {
	IsOpen  bool
	Windows []Window
}

// DayException overrides the weekly schedule for one specific calendar date
// (holidays, one-off changes). When present it replaces the weekly row
// entirely for that date.
type DayException struct {
	IsOpen  bool
	Windows []Window
}

// HoursSource resolves a tenant's stored schedule. Missing weekday rows are
// reported as closed by the implementation, never as errors.
type HoursSource interface {
	// ExceptionFor returns the exception for the exact date, or nil when none exists.
	ExceptionFor(ctx context.Context, tenantID string, date CivilDate) (*DayException, error)
	// WeeklyFor returns the recurring schedule for the weekday.
	WeeklyFor(ctx context.Context, tenantID string, weekday time.Weekday) (DayHours, error)
}

// HoursProvider resolves the open windows for a tenant on a calendar date,
// consulting date exceptions before the weekly schedule.
type HoursProvider struct {
	src HoursSource
}

// NewHoursProvider builds a provider over the given source.
func NewHoursProvider(src HoursSource) *HoursProvider {
	if src == nil {
		panic("schedule: hours source required")
	}
	return &HoursProvider{src: src}
}

// OpenWindows returns the open windows for the date, empty when closed.
func (p *HoursProvider) OpenWindows(ctx context.Context, tenantID string, date CivilDate) ([]Window, error) {
	exc, err := p.src.ExceptionFor(ctx, tenantID, date)
	if err != nil {
		return nil, fmt.Errorf("schedule: load exception for %s: %w", date, err)
	}
	if exc != nil {
		if !exc.IsOpen {
			return nil, nil
		}
		return exc.Windows, nil
	}

	day, err := p.src.WeeklyFor(ctx, tenantID, date.Weekday())
	if err != nil {
		return nil, fmt.Errorf("schedule: load weekly hours for %s: %w", date.Weekday(), err)
	}
	if !day.IsOpen {
		return nil, nil
	}
	return day.Windows, nil
}
