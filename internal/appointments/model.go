package appointments

import "time"

// Status tracks the lifecycle of an appointment.
type Status string

const (
	StatusPending     Status = "pending"
	StatusConfirmed   Status = "confirmed"
	StatusRescheduled Status = "rescheduled"
	StatusCancelled   Status = "cancelled"
	StatusNoShow      Status = "no_show"
)

// Active reports whether the status still blocks its time slot.
func (s Status) Active() bool {
	return s != StatusCancelled && s != StatusNoShow
}

// Appointment is a booked interval for a tenant. Rows are never hard-deleted;
// cancellation sets Status and DeletedAt and the row stays for audit and
// conflict history.
type Appointment struct {
	ID             string
	TenantID       string
	ConversationID string
	CustomerName   string
	CustomerPhone  string
	ServiceName    string
	StartAt        time.Time
	EndAt          time.Time
	Timezone       string
	Status         Status
	Notes          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
}

// DurationMin derives the service duration from the stored interval.
func (a *Appointment) DurationMin() int {
	return int(a.EndAt.Sub(a.StartAt) / time.Minute)
}
