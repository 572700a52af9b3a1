package schedule

// Policy holds the per-tenant booking rules applied during slot search and
// booking.
type Policy struct {
	Timezone             string
	BufferMin            int
	MinNoticeHours       int
	BookingWindowDays    int
	AllowSameDay         bool
	MaxDailyAppointments int // 0 means uncapped
	BlackoutDates        []CivilDate
	RequireConfirmation  bool
}

// IsBlackout reports whether the date is explicitly excluded from booking.
func (p Policy) IsBlackout(d CivilDate) bool {
	for _, b := range p.BlackoutDates {
		if b == d {
			return true
		}
	}
	return false
}
