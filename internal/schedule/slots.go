package schedule

import (
	"context"
	"fmt"
	"time"
)

// SlotStepMin is the candidate granularity inside an open window.
const SlotStepMin = 15

// DefaultMaxCandidates bounds the raw search when the caller does not.
const DefaultMaxCandidates = 40

// presentation bounds, purely for conversational readability
const (
	maxPerHalfDay = 2
	maxPresented  = 6
)

// Slot is a curated candidate with its stable 1-based presentation index.
type Slot struct {
	Index int
	Start time.Time
}

// SlotFinder enumerates bookable start instants for a tenant under its
// policy, then curates a bounded subset for presentation.
type SlotFinder struct {
	hours     *HoursProvider
	conflicts *ConflictChecker
	appts     AppointmentSource
	now       func() time.Time
}

// NewSlotFinder wires the finder to its collaborators. nowFn defaults to
// time.Now and exists for tests.
func NewSlotFinder(hours *HoursProvider, conflicts *ConflictChecker, appts AppointmentSource, nowFn func() time.Time) *SlotFinder {
	if hours == nil || conflicts == nil || appts == nil {
		panic("schedule: slot finder requires hours, conflicts and appointments")
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	return &SlotFinder{hours: hours, conflicts: conflicts, appts: appts, now: nowFn}
}

// FindSlots scans calendar dates from fromHint forward, bounded by the
// policy's booking window, and returns up to maxResults conflict-free start
// instants that honor buffer, minimum notice, blackout dates, the same-day
// rule and the daily cap. A zero fromHint starts the scan today.
//
// The same-day check and the minimum-notice filter both use the tenant's
// civil zone and the same now instant, so they cannot disagree near midnight.
func (f *SlotFinder) FindSlots(ctx context.Context, tenantID string, pol Policy, durationMin int, fromHint CivilDate, maxResults int) ([]time.Time, error) {
	if durationMin <= 0 {
		return nil, NewValidationError("duration", fmt.Sprintf("%d minutes", durationMin))
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxCandidates
	}

	conv, err := LoadZone(pol.Timezone)
	if err != nil {
		return nil, err
	}

	now := f.now()
	today := conv.CivilDate(now)
	horizon := today.AddDays(pol.BookingWindowDays)
	earliest := now.Add(time.Duration(pol.MinNoticeHours) * time.Hour)

	start := fromHint
	if start.IsZero() || start.Before(today) {
		start = today
	}
	if start.After(horizon) {
		return nil, NewPolicyViolation("booking_window", fmt.Sprintf("%s is beyond the %d-day horizon", start, pol.BookingWindowDays))
	}

	var slots []time.Time
	for date := start; !date.After(horizon) && len(slots) < maxResults; date = date.AddDays(1) {
		if date == today && !pol.AllowSameDay {
			continue
		}
		if pol.IsBlackout(date) {
			continue
		}

		if pol.MaxDailyAppointments > 0 {
			full, err := f.dayAtCapacity(ctx, tenantID, pol, conv, date)
			if err != nil {
				return nil, err
			}
			if full {
				continue
			}
		}

		windows, err := f.hours.OpenWindows(ctx, tenantID, date)
		if err != nil {
			return nil, err
		}

		for _, w := range windows {
			// A candidate whose end lands exactly on the window end is valid.
			for min := w.StartMin; min+durationMin <= w.EndMin && len(slots) < maxResults; min += SlotStepMin {
				candidate, err := conv.ToInstant(date, min)
				if err != nil {
					return nil, err
				}
				if candidate.Before(earliest) {
					continue
				}
				free, err := f.conflicts.IsFree(ctx, tenantID, candidate, durationMin, pol.BufferMin)
				if err != nil {
					return nil, err
				}
				if free {
					slots = append(slots, candidate)
				}
			}
		}
	}

	return slots, nil
}

// dayAtCapacity reports whether the tenant already holds its daily maximum of
// active appointments on the civil date.
func (f *SlotFinder) dayAtCapacity(ctx context.Context, tenantID string, pol Policy, conv *Converter, date CivilDate) (bool, error) {
	dayStart, err := conv.ToInstant(date, 0)
	if err != nil {
		return false, err
	}
	dayEnd, err := conv.ToInstant(date.AddDays(1), 0)
	if err != nil {
		return false, err
	}
	n, err := f.appts.CountBetween(ctx, tenantID, dayStart, dayEnd)
	if err != nil {
		return false, fmt.Errorf("schedule: count daily appointments: %w", err)
	}
	return n >= pol.MaxDailyAppointments, nil
}

// Curate trims raw candidates to a readable subset: per calendar day at most
// two morning (civil hour < 12) and two afternoon starts, at most six
// overall, chronological, with stable 1-based indices. This bound shapes the
// conversational reply only; the raw search is unlimited.
func Curate(candidates []time.Time, loc *time.Location) []Slot {
	type halfDayCount struct {
		morning   int
		afternoon int
	}
	perDay := make(map[CivilDate]*halfDayCount)

	var out []Slot
	for _, c := range candidates {
		if len(out) >= maxPresented {
			break
		}
		day := CivilDateOf(c, loc)
		counts := perDay[day]
		if counts == nil {
			counts = &halfDayCount{}
			perDay[day] = counts
		}
		if c.In(loc).Hour() < 12 {
			if counts.morning >= maxPerHalfDay {
				continue
			}
			counts.morning++
		} else {
			if counts.afternoon >= maxPerHalfDay {
				continue
			}
			counts.afternoon++
		}
		out = append(out, Slot{Index: len(out) + 1, Start: c})
	}
	return out
}
