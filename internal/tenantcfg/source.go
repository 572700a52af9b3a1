package tenantcfg

import (
	"context"
	"time"

	"github.com/sazaba/wppai-server-sub000/internal/schedule"
)

// HoursSource adapts the repository to the schedule.HoursSource interface
// consumed by the slot finder.
type HoursSource struct {
	repo *Repository
}

func NewHoursSource(repo *Repository) *HoursSource {
	return &HoursSource{repo: repo}
}

func (s *HoursSource) ExceptionFor(ctx context.Context, tenantID string, date schedule.CivilDate) (*schedule.DayException, error) {
	exc, err := s.repo.ExceptionFor(ctx, tenantID, date)
	if err != nil {
		return nil, err
	}
	if exc == nil {
		return nil, nil
	}
	return &schedule.DayException{IsOpen: !exc.Closed, Windows: exc.Windows}, nil
}

func (s *HoursSource) WeeklyFor(ctx context.Context, tenantID string, weekday time.Weekday) (schedule.DayHours, error) {
	weekly, err := s.repo.WeeklyHours(ctx, tenantID)
	if err != nil {
		return schedule.DayHours{}, err
	}
	windows, ok := weekly[weekday]
	if !ok || len(windows) == 0 {
		return schedule.DayHours{}, nil
	}
	return schedule.DayHours{IsOpen: true, Windows: windows}, nil
}
