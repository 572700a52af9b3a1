package tenantcfg

import (
	"time"

	"github.com/sazaba/wppai-server-sub000/internal/schedule"
)

// BusinessHours is one weekly-recurring opening row. A weekday with no row is
// closed.
type BusinessHours struct {
	TenantID  string
	Weekday   time.Weekday
	Windows   []schedule.Window
	UpdatedAt time.Time
}

// HoursException overrides the weekly hours on one civil date. Closed means
// the whole date is unavailable regardless of Windows.
type HoursException struct {
	TenantID  string
	Date      schedule.CivilDate
	Closed    bool
	Windows   []schedule.Window
	Reason    string
	UpdatedAt time.Time
}

// BookingPolicy holds the tenant's scheduling knobs, resolved against server
// defaults on load. Knobs the tenant never set take the default; an explicit
// zero is honored.
type BookingPolicy struct {
	TenantID             string
	Timezone             string
	BufferMin            int
	MinNoticeHours       int
	BookingWindowDays    int
	AllowSameDay         bool
	MaxDailyAppointments int
	BlackoutDates        []schedule.CivilDate
	RequireConfirmation  bool
	UpdatedAt            time.Time
}

// PolicyUpdate is an admin write to the booking policy. Nil knobs leave the
// field unset so server defaults apply; pointers to zero pin it to zero.
type PolicyUpdate struct {
	TenantID             string
	Timezone             string
	BufferMin            *int
	MinNoticeHours       *int
	BookingWindowDays    *int
	AllowSameDay         bool
	MaxDailyAppointments int
	BlackoutDates        []schedule.CivilDate
	RequireConfirmation  bool
}

// Defaults supplies fallback policy values for tenants that never configured
// one.
type Defaults struct {
	Timezone           string
	BufferMin          int
	MinNoticeHours     int
	BookingWindowDays  int
	ServiceDurationMin int
}

// SchedulePolicy converts the stored row into the policy the slot finder and
// conflict checker consume.
func (p *BookingPolicy) SchedulePolicy() schedule.Policy {
	return schedule.Policy{
		Timezone:             p.Timezone,
		BufferMin:            p.BufferMin,
		MinNoticeHours:       p.MinNoticeHours,
		BookingWindowDays:    p.BookingWindowDays,
		AllowSameDay:         p.AllowSameDay,
		MaxDailyAppointments: p.MaxDailyAppointments,
		BlackoutDates:        p.BlackoutDates,
		RequireConfirmation:  p.RequireConfirmation,
	}
}
