package schedule

import (
	"context"
	"time"
)

type fakeHoursSource struct {
	exceptions map[string]*DayException
	weekly     map[time.Weekday]DayHours
}

func newFakeHoursSource() *fakeHoursSource {
	return &fakeHoursSource{
		exceptions: make(map[string]*DayException),
		weekly:     make(map[time.Weekday]DayHours),
	}
}

func (f *fakeHoursSource) ExceptionFor(_ context.Context, _ string, date CivilDate) (*DayException, error) {
	return f.exceptions[date.String()], nil
}

func (f *fakeHoursSource) WeeklyFor(_ context.Context, _ string, weekday time.Weekday) (DayHours, error) {
	return f.weekly[weekday], nil
}

type fakeAppointment struct {
	id         string
	start, end time.Time
}

type fakeApptSource struct {
	appts []fakeAppointment
}

func (f *fakeApptSource) CountOverlapping(_ context.Context, _ string, start, end time.Time, excludeID string) (int, error) {
	n := 0
	for _, a := range f.appts {
		if excludeID != "" && a.id == excludeID {
			continue
		}
		if a.start.Before(end) && a.end.After(start) {
			n++
		}
	}
	return n, nil
}

func (f *fakeApptSource) CountBetween(_ context.Context, _ string, from, to time.Time) (int, error) {
	n := 0
	for _, a := range f.appts {
		if !a.start.Before(from) && a.start.Before(to) {
			n++
		}
	}
	return n, nil
}
