package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sazaba/wppai-server-sub000/internal/observability/metrics"
	"github.com/sazaba/wppai-server-sub000/internal/schedule"
	"github.com/sazaba/wppai-server-sub000/pkg/logging"
)

var apptTracer = otel.Tracer("wppai.internal.appointments")

// Service runs booking transactions: create, reschedule, cancel. Every write
// revalidates non-overlap inside the same database transaction that performs
// it, closing the race between pre-check and insert.
type Service struct {
	db      DB
	repo    *Repository
	logger  *logging.Logger
	metrics *metrics.SchedulingMetrics
	clock   func() time.Time
}

// NewService constructs the booking service.
func NewService(db DB, repo *Repository, logger *logging.Logger, m *metrics.SchedulingMetrics) *Service {
	if db == nil || repo == nil {
		panic("appointments: db and repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{db: db, repo: repo, logger: logger, metrics: m, clock: time.Now}
}

// BookRequest carries everything needed to create an appointment.
type BookRequest struct {
	TenantID            string
	ConversationID      string
	ServiceName         string
	DurationMin         int
	BufferMin           int
	Start               time.Time
	Timezone            string
	CustomerName        string
	CustomerPhone       string
	Notes               string
	RequireConfirmation bool
}

// Validate checks the request shape before touching the store.
func (r *BookRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.TenantID) == "":
		return schedule.NewValidationError("tenant", "empty")
	case strings.TrimSpace(r.ServiceName) == "":
		return schedule.NewValidationError("service", "empty")
	case r.DurationMin <= 0:
		return schedule.NewValidationError("duration", fmt.Sprintf("%d minutes", r.DurationMin))
	case r.Start.IsZero():
		return schedule.NewValidationError("start", "empty")
	case strings.TrimSpace(r.CustomerName) == "":
		return schedule.NewValidationError("name", "empty")
	case strings.TrimSpace(r.CustomerPhone) == "":
		return schedule.NewValidationError("phone", "empty")
	}
	return nil
}

// Book atomically creates an appointment. Inside one transaction it
// re-checks the buffered interval for overlaps, guards against duplicate
// submissions (same tenant+phone+start returns the existing row), and
// inserts with the initial status dictated by the confirmation policy.
func (s *Service) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	ctx, span := apptTracer.Start(ctx, "appointments.book")
	defer span.End()
	span.SetAttributes(
		attribute.String("wppai.tenant_id", req.TenantID),
		attribute.String("wppai.service", req.ServiceName),
	)

	if err := req.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("appointments: begin book tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Duplicate-submission guard: repeating an identical request is a no-op
	// success returning the row the first request created.
	if dup, err := s.repo.findActiveDuplicate(ctx, tx, req.TenantID, req.CustomerPhone, req.Start); err != nil {
		return nil, err
	} else if dup != nil {
		s.logger.Info("duplicate booking request ignored",
			"tenant_id", req.TenantID, "appointment_id", dup.ID, "start_at", req.Start)
		return dup, nil
	}

	end := req.Start.Add(time.Duration(req.DurationMin) * time.Minute)
	buffer := time.Duration(req.BufferMin) * time.Minute
	overlaps, err := s.repo.countOverlapping(ctx, tx, req.TenantID, req.Start.Add(-buffer), end.Add(buffer), "")
	if err != nil {
		return nil, err
	}
	if overlaps > 0 {
		s.metrics.ObserveConflict()
		span.SetAttributes(attribute.Bool("wppai.conflict", true))
		return nil, schedule.ErrConflict
	}

	status := StatusConfirmed
	if req.RequireConfirmation {
		status = StatusPending
	}
	appt := &Appointment{
		ID:             uuid.NewString(),
		TenantID:       req.TenantID,
		ConversationID: req.ConversationID,
		CustomerName:   strings.TrimSpace(req.CustomerName),
		CustomerPhone:  strings.TrimSpace(req.CustomerPhone),
		ServiceName:    req.ServiceName,
		StartAt:        req.Start.UTC(),
		EndAt:          end.UTC(),
		Timezone:       req.Timezone,
		Status:         status,
		Notes:          req.Notes,
	}
	if err := s.repo.insert(ctx, tx, appt); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("appointments: commit book tx: %w", err)
	}

	s.metrics.ObserveBooking(string(status))
	s.logger.Info("appointment booked",
		"tenant_id", appt.TenantID,
		"appointment_id", appt.ID,
		"service", appt.ServiceName,
		"start_at", appt.StartAt,
		"status", appt.Status,
	)
	return appt, nil
}

// Reschedule moves an active appointment to a new start, keeping its stored
// duration and re-checking overlap against everyone except itself inside the
// transaction. Repeating an identical reschedule is a no-op success.
func (s *Service) Reschedule(ctx context.Context, tenantID, id string, newStart time.Time, bufferMin int) (*Appointment, error) {
	ctx, span := apptTracer.Start(ctx, "appointments.reschedule")
	defer span.End()
	span.SetAttributes(attribute.String("wppai.tenant_id", tenantID))

	if newStart.IsZero() {
		return nil, schedule.NewValidationError("start", "empty")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("appointments: begin reschedule tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := s.repo.getByID(ctx, tx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !appt.Status.Active() || appt.DeletedAt != nil {
		return nil, schedule.ErrNotFound
	}
	if appt.StartAt.Equal(newStart.UTC()) && appt.Status == StatusRescheduled {
		return appt, nil
	}

	durationMin := appt.DurationMin()
	newEnd := newStart.Add(time.Duration(durationMin) * time.Minute)
	buffer := time.Duration(bufferMin) * time.Minute
	overlaps, err := s.repo.countOverlapping(ctx, tx, tenantID, newStart.Add(-buffer), newEnd.Add(buffer), appt.ID)
	if err != nil {
		return nil, err
	}
	if overlaps > 0 {
		s.metrics.ObserveConflict()
		return nil, schedule.ErrConflict
	}

	if err := s.repo.updateSchedule(ctx, tx, tenantID, id, newStart.UTC(), newEnd.UTC(), StatusRescheduled); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("appointments: commit reschedule tx: %w", err)
	}

	appt.StartAt = newStart.UTC()
	appt.EndAt = newEnd.UTC()
	appt.Status = StatusRescheduled
	s.metrics.ObserveBooking(string(StatusRescheduled))
	s.logger.Info("appointment rescheduled",
		"tenant_id", tenantID, "appointment_id", id, "start_at", appt.StartAt)
	return appt, nil
}

// Cancel soft-deletes an appointment. Cancelling an already-cancelled
// appointment is a no-op success; the row is never removed.
func (s *Service) Cancel(ctx context.Context, tenantID, id string) (*Appointment, error) {
	ctx, span := apptTracer.Start(ctx, "appointments.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("wppai.tenant_id", tenantID))

	appt, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if appt.Status == StatusCancelled {
		return appt, nil
	}

	now := s.clock().UTC()
	if err := s.repo.markCancelled(ctx, s.db, tenantID, id, now); err != nil {
		return nil, err
	}

	appt.Status = StatusCancelled
	appt.DeletedAt = &now
	appt.UpdatedAt = now
	s.metrics.ObserveBooking(string(StatusCancelled))
	s.logger.Info("appointment cancelled", "tenant_id", tenantID, "appointment_id", id)
	return appt, nil
}

// CancelMany cancels a batch of ids in one statement and returns how many
// rows changed. Ids already cancelled count as zero, keeping the batch
// idempotent.
func (s *Service) CancelMany(ctx context.Context, tenantID string, ids []string) (int, error) {
	ctx, span := apptTracer.Start(ctx, "appointments.cancel_many")
	defer span.End()
	span.SetAttributes(
		attribute.String("wppai.tenant_id", tenantID),
		attribute.Int("wppai.batch_size", len(ids)),
	)

	n, err := s.repo.MarkCancelledMany(ctx, tenantID, ids, s.clock().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("appointments cancelled in batch", "tenant_id", tenantID, "count", n)
	}
	return n, nil
}

// ListDay returns the tenant's active appointments on a civil date.
func (s *Service) ListDay(ctx context.Context, tenantID string, conv *schedule.Converter, date schedule.CivilDate) ([]Appointment, error) {
	from, err := conv.ToInstant(date, 0)
	if err != nil {
		return nil, err
	}
	to, err := conv.ToInstant(date.AddDays(1), 0)
	if err != nil {
		return nil, err
	}
	return s.repo.ListBetween(ctx, tenantID, from, to)
}

// IsConflict reports whether err is the slot-conflict error.
func IsConflict(err error) bool {
	return errors.Is(err, schedule.ErrConflict)
}
