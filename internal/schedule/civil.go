package schedule

import (
	"fmt"
	"time"
)

// CivilDate is a wall-clock calendar date with no attached zone. It is only
// meaningful relative to a tenant's configured location.
type CivilDate struct {
	Year  int
	Month time.Month
	Day   int
}

// CivilDateOf returns the calendar date of an instant in the given location.
func CivilDateOf(t time.Time, loc *time.Location) CivilDate {
	local := t.In(loc)
	return CivilDate{Year: local.Year(), Month: local.Month(), Day: local.Day()}
}

// ParseCivilDate parses a date in "2006-01-02" form.
func ParseCivilDate(v string) (CivilDate, error) {
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return CivilDate{}, NewValidationError("date", fmt.Sprintf("want YYYY-MM-DD, got %q", v))
	}
	return CivilDate{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// String renders the date in "2006-01-02" form.
func (d CivilDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// IsZero reports whether the date is unset.
func (d CivilDate) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// AddDays returns the date n calendar days later, normalizing across month
// and year boundaries.
func (d CivilDate) AddDays(n int) CivilDate {
	t := time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC)
	return CivilDate{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// Weekday returns the day of week for the date.
func (d CivilDate) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday()
}

// Before reports whether d falls strictly before other.
func (d CivilDate) Before(other CivilDate) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// After reports whether d falls strictly after other.
func (d CivilDate) After(other CivilDate) bool {
	return other.Before(d)
}

// Valid reports whether the tuple names a real calendar date.
func (d CivilDate) Valid() bool {
	if d.Month < time.January || d.Month > time.December || d.Day < 1 {
		return false
	}
	t := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
	return t.Year() == d.Year && t.Month() == d.Month && t.Day() == d.Day
}

// Window is a contiguous open interval of civil time within a single day,
// expressed in minutes from midnight. [StartMin, EndMin).
type Window struct {
	StartMin int
	EndMin   int
}

// ParseWindow builds a window from "HH:MM" boundaries.
func ParseWindow(start, end string) (Window, error) {
	startMin, err := ParseClock(start)
	if err != nil {
		return Window{}, err
	}
	endMin, err := ParseClock(end)
	if err != nil {
		return Window{}, err
	}
	if startMin >= endMin {
		return Window{}, NewValidationError("window", fmt.Sprintf("start %s not before end %s", start, end))
	}
	return Window{StartMin: startMin, EndMin: endMin}, nil
}

// ParseClock converts "HH:MM" to minutes from midnight.
func ParseClock(v string) (int, error) {
	if v == "" {
		return 0, NewValidationError("clock", "empty")
	}
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, NewValidationError("clock", fmt.Sprintf("want HH:MM, got %q", v))
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock renders minutes from midnight as "HH:MM".
func FormatClock(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

// Overlaps reports whether two windows intersect.
func (w Window) Overlaps(other Window) bool {
	return w.StartMin < other.EndMin && w.EndMin > other.StartMin
}

// MaxDayWindows caps how many open ranges a single day may carry.
const MaxDayWindows = 2

// ValidateDayWindows checks that a day's windows stay within the cap and are
// pairwise disjoint. Overlapping ranges would make the slot scan emit the
// same start twice.
func ValidateDayWindows(windows []Window) error {
	if len(windows) > MaxDayWindows {
		return NewValidationError("windows", fmt.Sprintf("at most %d ranges per day", MaxDayWindows))
	}
	for i := range windows {
		for j := i + 1; j < len(windows); j++ {
			if windows[i].Overlaps(windows[j]) {
				return NewValidationError("windows", fmt.Sprintf("%s-%s overlaps %s-%s",
					FormatClock(windows[i].StartMin), FormatClock(windows[i].EndMin),
					FormatClock(windows[j].StartMin), FormatClock(windows[j].EndMin)))
			}
		}
	}
	return nil
}
