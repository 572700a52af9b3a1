package tenantcfg

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sazaba/wppai-server-sub000/internal/schedule"
)

// Querier is the subset of pgxpool.Pool the repository needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists per-tenant scheduling configuration in Postgres.
// Windows are stored as text arrays of "HH:MM-HH:MM" ranges.
type Repository struct {
	db       Querier
	defaults Defaults
}

func NewRepository(db Querier, defaults Defaults) *Repository {
	return &Repository{db: db, defaults: defaults}
}

// WeeklyHours returns the tenant's recurring hours keyed by weekday. Weekdays
// absent from the map are closed.
func (r *Repository) WeeklyHours(ctx context.Context, tenantID string) (map[time.Weekday][]schedule.Window, error) {
	rows, err := r.db.Query(ctx, `
		SELECT weekday, windows
		FROM business_hours
		WHERE tenant_id = $1
		ORDER BY weekday`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("tenantcfg: load weekly hours: %w", err)
	}
	defer rows.Close()

	weekly := make(map[time.Weekday][]schedule.Window)
	for rows.Next() {
		var weekday int
		var raw []string
		if err := rows.Scan(&weekday, &raw); err != nil {
			return nil, fmt.Errorf("tenantcfg: scan weekly hours: %w", err)
		}
		windows, err := decodeWindows(raw)
		if err != nil {
			return nil, fmt.Errorf("tenantcfg: weekday %d: %w", weekday, err)
		}
		weekly[time.Weekday(weekday)] = windows
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tenantcfg: iterate weekly hours: %w", err)
	}
	return weekly, nil
}

// SetWeeklyHours replaces the windows for one weekday. Passing no windows
// deletes the row, closing that weekday.
func (r *Repository) SetWeeklyHours(ctx context.Context, tenantID string, weekday time.Weekday, windows []schedule.Window) error {
	if len(windows) == 0 {
		_, err := r.db.Exec(ctx,
			`DELETE FROM business_hours WHERE tenant_id = $1 AND weekday = $2`,
			tenantID, int(weekday))
		if err != nil {
			return fmt.Errorf("tenantcfg: close weekday: %w", err)
		}
		return nil
	}
	if err := schedule.ValidateDayWindows(windows); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO business_hours (tenant_id, weekday, windows)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, weekday)
		DO UPDATE SET windows = EXCLUDED.windows, updated_at = now()`,
		tenantID, int(weekday), encodeWindows(windows))
	if err != nil {
		return fmt.Errorf("tenantcfg: set weekly hours: %w", err)
	}
	return nil
}

// ExceptionFor returns the hours exception on a date, or nil when the weekly
// schedule applies.
func (r *Repository) ExceptionFor(ctx context.Context, tenantID string, date schedule.CivilDate) (*HoursException, error) {
	row := r.db.QueryRow(ctx, `
		SELECT closed, windows, reason
		FROM hours_exceptions
		WHERE tenant_id = $1 AND on_date = $2`,
		tenantID, civilToTime(date))

	var closed bool
	var raw []string
	var reason string
	err := row.Scan(&closed, &raw, &reason)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tenantcfg: load exception: %w", err)
	}
	windows, err := decodeWindows(raw)
	if err != nil {
		return nil, fmt.Errorf("tenantcfg: exception %s: %w", date, err)
	}
	return &HoursException{
		TenantID: tenantID,
		Date:     date,
		Closed:   closed,
		Windows:  windows,
		Reason:   reason,
	}, nil
}

// UpsertException records an override for one date.
func (r *Repository) UpsertException(ctx context.Context, exc *HoursException) error {
	if err := schedule.ValidateDayWindows(exc.Windows); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO hours_exceptions (tenant_id, on_date, closed, windows, reason)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_id, on_date)
		DO UPDATE SET closed = EXCLUDED.closed, windows = EXCLUDED.windows,
		              reason = EXCLUDED.reason, updated_at = now()`,
		exc.TenantID, civilToTime(exc.Date), exc.Closed, encodeWindows(exc.Windows), exc.Reason)
	if err != nil {
		return fmt.Errorf("tenantcfg: upsert exception: %w", err)
	}
	return nil
}

// DeleteException removes the override, restoring the weekly schedule.
func (r *Repository) DeleteException(ctx context.Context, tenantID string, date schedule.CivilDate) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM hours_exceptions WHERE tenant_id = $1 AND on_date = $2`,
		tenantID, civilToTime(date))
	if err != nil {
		return fmt.Errorf("tenantcfg: delete exception: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return schedule.ErrNotFound
	}
	return nil
}

// Policy loads the tenant's booking policy, filling unset knobs from server
// defaults. Knobs are stored as NULL until the tenant sets them, so an
// explicit zero survives the round trip; the select folds NULL into -1 for
// scanning. Tenants without a stored row get a pure-defaults policy.
func (r *Repository) Policy(ctx context.Context, tenantID string) (*BookingPolicy, error) {
	row := r.db.QueryRow(ctx, `
		SELECT COALESCE(timezone, ''), COALESCE(buffer_min, -1),
		       COALESCE(min_notice_hours, -1), COALESCE(booking_window_days, -1),
		       allow_same_day, max_daily_appointments, blackout_dates,
		       require_confirmation, updated_at
		FROM booking_policies
		WHERE tenant_id = $1`, tenantID)

	pol := &BookingPolicy{TenantID: tenantID}
	var blackouts []time.Time
	err := row.Scan(
		&pol.Timezone, &pol.BufferMin, &pol.MinNoticeHours, &pol.BookingWindowDays,
		&pol.AllowSameDay, &pol.MaxDailyAppointments, &blackouts,
		&pol.RequireConfirmation, &pol.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		pol.BufferMin, pol.MinNoticeHours, pol.BookingWindowDays = -1, -1, -1
	} else if err != nil {
		return nil, fmt.Errorf("tenantcfg: load policy: %w", err)
	}
	for _, b := range blackouts {
		pol.BlackoutDates = append(pol.BlackoutDates, schedule.CivilDate{
			Year: b.Year(), Month: b.Month(), Day: b.Day(),
		})
	}
	r.applyDefaults(pol)
	return pol, nil
}

// UpsertPolicy stores the tenant's booking policy. Nil knobs are written as
// NULL so server defaults keep applying; explicit zeroes stick.
func (r *Repository) UpsertPolicy(ctx context.Context, upd *PolicyUpdate) error {
	blackouts := make([]time.Time, 0, len(upd.BlackoutDates))
	for _, d := range upd.BlackoutDates {
		blackouts = append(blackouts, civilToTime(d))
	}
	var tz *string
	if upd.Timezone != "" {
		tz = &upd.Timezone
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO booking_policies (tenant_id, timezone, buffer_min, min_notice_hours,
		        booking_window_days, allow_same_day, max_daily_appointments,
		        blackout_dates, require_confirmation)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (tenant_id)
		DO UPDATE SET timezone = EXCLUDED.timezone,
		              buffer_min = EXCLUDED.buffer_min,
		              min_notice_hours = EXCLUDED.min_notice_hours,
		              booking_window_days = EXCLUDED.booking_window_days,
		              allow_same_day = EXCLUDED.allow_same_day,
		              max_daily_appointments = EXCLUDED.max_daily_appointments,
		              blackout_dates = EXCLUDED.blackout_dates,
		              require_confirmation = EXCLUDED.require_confirmation,
		              updated_at = now()`,
		upd.TenantID, tz, upd.BufferMin, upd.MinNoticeHours,
		upd.BookingWindowDays, upd.AllowSameDay, upd.MaxDailyAppointments,
		blackouts, upd.RequireConfirmation)
	if err != nil {
		return fmt.Errorf("tenantcfg: upsert policy: %w", err)
	}
	return nil
}

// applyDefaults resolves unset knobs, which arrive as "" or -1 from the
// policy select. An explicit zero is a real setting and is left alone.
func (r *Repository) applyDefaults(pol *BookingPolicy) {
	if pol.Timezone == "" {
		pol.Timezone = r.defaults.Timezone
	}
	if pol.BufferMin < 0 {
		pol.BufferMin = r.defaults.BufferMin
	}
	if pol.MinNoticeHours < 0 {
		pol.MinNoticeHours = r.defaults.MinNoticeHours
	}
	if pol.BookingWindowDays <= 0 {
		pol.BookingWindowDays = r.defaults.BookingWindowDays
	}
}

func civilToTime(d schedule.CivilDate) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func encodeWindows(windows []schedule.Window) []string {
	out := make([]string, 0, len(windows))
	for _, w := range windows {
		out = append(out, schedule.FormatClock(w.StartMin)+"-"+schedule.FormatClock(w.EndMin))
	}
	return out
}

func decodeWindows(raw []string) ([]schedule.Window, error) {
	var out []schedule.Window
	for _, v := range raw {
		start, end, ok := strings.Cut(v, "-")
		if !ok {
			return nil, schedule.NewValidationError("window", fmt.Sprintf("want HH:MM-HH:MM, got %q", v))
		}
		w, err := schedule.ParseWindow(start, end)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}
