package schedule

import (
	"fmt"
	"time"
)

// Converter maps civil date/time tuples in a named zone to absolute instants
// and back.
type Converter struct {
	name string
	loc  *time.Location
}

// LoadZone resolves an IANA zone name. An unknown zone is a tenant
// misconfiguration, so callers treat the error as fatal for the request.
func LoadZone(name string) (*Converter, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("schedule: load zone %q: %w", name, err)
	}
	return &Converter{name: name, loc: loc}, nil
}

// Location exposes the underlying location for formatting.
func (c *Converter) Location() *time.Location {
	return c.loc
}

// Name returns the IANA zone name the converter was built from.
func (c *Converter) Name() string {
	return c.name
}

// ToInstant converts a civil (date, minutes-from-midnight) tuple in the
// converter's zone to an absolute instant.
//
// The conversion starts from a naive guess that assumes UTC offset zero,
// reads the guess back as wall-clock time in the target zone, and shifts the
// guess by the observed wall-clock delta. A single pass lands on the right
// instant everywhere except exactly at a DST transition boundary, where the
// requested wall-clock time may not exist; that approximation is accepted.
func (c *Converter) ToInstant(d CivilDate, minOfDay int) (time.Time, error) {
	if !d.Valid() {
		return time.Time{}, NewValidationError("date", fmt.Sprintf("%s is not a calendar date", d))
	}
	if minOfDay < 0 || minOfDay >= 24*60 {
		return time.Time{}, NewValidationError("time", fmt.Sprintf("minute of day %d out of range", minOfDay))
	}

	guess := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).
		Add(time.Duration(minOfDay) * time.Minute)

	observed := guess.In(c.loc)
	delta := civilMinutes(d, minOfDay) - civilMinutes(
		CivilDate{Year: observed.Year(), Month: observed.Month(), Day: observed.Day()},
		observed.Hour()*60+observed.Minute(),
	)

	return guess.Add(time.Duration(delta) * time.Minute), nil
}

// CivilWeekday returns the wall-clock weekday of an instant in the zone.
func (c *Converter) CivilWeekday(t time.Time) time.Weekday {
	return t.In(c.loc).Weekday()
}

// CivilDate returns the wall-clock calendar date of an instant in the zone.
func (c *Converter) CivilDate(t time.Time) CivilDate {
	return CivilDateOf(t, c.loc)
}

// MinuteOfDay returns the wall-clock minutes since midnight of an instant in
// the zone.
func (c *Converter) MinuteOfDay(t time.Time) int {
	local := t.In(c.loc)
	return local.Hour()*60 + local.Minute()
}

// civilMinutes flattens a civil tuple to minutes on a proleptic calendar so
// two tuples can be subtracted.
func civilMinutes(d CivilDate, minOfDay int) int64 {
	t := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
	return t.Unix()/60 + int64(minOfDay)
}
