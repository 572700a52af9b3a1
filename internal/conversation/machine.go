package conversation

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sazaba/wppai-server-sub000/internal/appointments"
	"github.com/sazaba/wppai-server-sub000/internal/catalog"
	"github.com/sazaba/wppai-server-sub000/internal/observability/metrics"
	"github.com/sazaba/wppai-server-sub000/internal/schedule"
	"github.com/sazaba/wppai-server-sub000/internal/tenantcfg"
	"github.com/sazaba/wppai-server-sub000/pkg/logging"
)

var convTracer = otel.Tracer("wppai.internal.conversation")

// SlotSource finds bookable start instants under a tenant policy.
type SlotSource interface {
	FindSlots(ctx context.Context, tenantID string, pol schedule.Policy, durationMin int, fromHint schedule.CivilDate, maxResults int) ([]time.Time, error)
}

// Booker creates appointments transactionally.
type Booker interface {
	Book(ctx context.Context, req appointments.BookRequest) (*appointments.Appointment, error)
}

// ServiceLister returns a tenant's bookable services.
type ServiceLister interface {
	ListEnabled(ctx context.Context, tenantID string) ([]catalog.Service, error)
}

// PolicyLoader resolves a tenant's booking policy.
type PolicyLoader interface {
	Policy(ctx context.Context, tenantID string) (*tenantcfg.BookingPolicy, error)
}

// Reply is the single outbound message produced for one inbound turn.
type Reply struct {
	Text         string        `json:"text"`
	State        State         `json:"state"`
	Confirmation *Confirmation `json:"confirmation,omitempty"`
}

// Machine drives the guided booking dialogue. Each inbound message advances
// the session one state and yields exactly one reply.
type Machine struct {
	sessions   *SessionStore
	services   ServiceLister
	policies   PolicyLoader
	slots      SlotSource
	booker     Booker
	logger     *logging.Logger
	metrics    *metrics.SchedulingMetrics
	defaultMin int
	clock      func() time.Time
}

// NewMachine wires the dialogue to its collaborators. defaultDurationMin
// applies to services without a stored duration.
func NewMachine(sessions *SessionStore, services ServiceLister, policies PolicyLoader, slots SlotSource, booker Booker, logger *logging.Logger, m *metrics.SchedulingMetrics, defaultDurationMin int) *Machine {
	if sessions == nil || services == nil || policies == nil || slots == nil || booker == nil {
		panic("conversation: machine requires all collaborators")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if defaultDurationMin <= 0 {
		defaultDurationMin = 60
	}
	return &Machine{
		sessions:   sessions,
		services:   services,
		policies:   policies,
		slots:      slots,
		booker:     booker,
		logger:     logger,
		metrics:    m,
		defaultMin: defaultDurationMin,
		clock:      time.Now,
	}
}

var abortWords = []string{"cancelar", "cancela", "cancel", "olvidalo", "dejalo", "no gracias", "ya no", "stop", "exit"}

func wantsAbort(text string) bool {
	t := normalizeText(text)
	for _, w := range abortWords {
		if containsWord(t, w) || t == w {
			return true
		}
	}
	return false
}

// HandleMessage advances one conversation turn. callerPhone is the channel's
// sender number when known; it pre-fills the contact step so customers only
// get asked for their name.
func (m *Machine) HandleMessage(ctx context.Context, tenantID, conversationID, text, callerPhone string) (*Reply, error) {
	ctx, span := convTracer.Start(ctx, "conversation.handle_message")
	defer span.End()
	span.SetAttributes(attribute.String("wppai.tenant_id", tenantID))

	started := m.clock()
	sess, err := m.sessions.Get(ctx, tenantID, conversationID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("wppai.conversation_state", string(sess.State)))

	if sess.CustomerPhone == "" && callerPhone != "" {
		sess.CustomerPhone = normalizePhone(callerPhone)
	}

	if sess.State != StateIdle && sess.State != StateDone && sess.State != StateAborted && wantsAbort(text) {
		if err := m.sessions.Delete(ctx, tenantID, conversationID); err != nil {
			return nil, err
		}
		m.logger.Info("booking flow aborted", "tenant_id", tenantID, "conversation_id", conversationID)
		return &Reply{Text: replyAborted(), State: StateAborted}, nil
	}

	reply, err := m.step(ctx, sess, text)
	if err != nil {
		return nil, err
	}
	if reply.State == StateAborted || reply.State == StateDone {
		if err := m.sessions.Delete(ctx, tenantID, conversationID); err != nil {
			return nil, err
		}
	} else {
		sess.State = reply.State
		if err := m.sessions.Save(ctx, sess); err != nil {
			return nil, err
		}
	}

	m.metrics.ObserveTurnLatency(string(reply.State), m.clock().Sub(started).Seconds())
	return reply, nil
}

func (m *Machine) step(ctx context.Context, sess *Session, text string) (*Reply, error) {
	switch sess.State {
	case StateIdle, StateDone, StateAborted:
		return m.startFlow(ctx, sess, text)
	case StateAwaitService:
		return m.handleService(ctx, sess, text)
	case StateAwaitWhen:
		return m.handleWhen(ctx, sess, text)
	case StateAwaitSlot:
		return m.handleSlot(ctx, sess, text)
	case StateAwaitContact:
		return m.handleContact(ctx, sess, text)
	default:
		return nil, fmt.Errorf("conversation: unknown state %q", sess.State)
	}
}

// startFlow greets and lists services. When the opening message already names
// a service, the greeting is skipped and the flow jumps ahead.
func (m *Machine) startFlow(ctx context.Context, sess *Session, text string) (*Reply, error) {
	services, err := m.services.ListEnabled(ctx, sess.TenantID)
	if err != nil {
		return nil, fmt.Errorf("conversation: list services: %w", err)
	}
	if len(services) == 0 {
		return &Reply{Text: replyNoServices(), State: StateIdle}, nil
	}

	if svc := catalog.Match(services, text); svc != nil {
		m.adoptService(sess, svc)
		return m.afterServiceChosen(ctx, sess, text)
	}
	return &Reply{Text: replyAskService(services), State: StateAwaitService}, nil
}

func (m *Machine) handleService(ctx context.Context, sess *Session, text string) (*Reply, error) {
	services, err := m.services.ListEnabled(ctx, sess.TenantID)
	if err != nil {
		return nil, fmt.Errorf("conversation: list services: %w", err)
	}
	svc := catalog.Match(services, text)
	if svc == nil {
		return &Reply{Text: replyServiceNotFound(), State: StateAwaitService}, nil
	}
	m.adoptService(sess, svc)
	return m.afterServiceChosen(ctx, sess, text)
}

func (m *Machine) adoptService(sess *Session, svc *catalog.Service) {
	sess.ServiceID = svc.ID
	sess.ServiceName = svc.Name
	sess.DurationMin = svc.DurationMin
	if sess.DurationMin <= 0 {
		sess.DurationMin = m.defaultMin
	}
}

// afterServiceChosen checks whether the same message already carries a date,
// collapsing two turns into one when it does.
func (m *Machine) afterServiceChosen(ctx context.Context, sess *Session, text string) (*Reply, error) {
	pol, conv, err := m.loadPolicy(ctx, sess.TenantID)
	if err != nil {
		return nil, err
	}
	if date, ok := ParseDateExpression(text, conv.Location(), m.clock()); ok {
		return m.presentSlots(ctx, sess, pol, conv, date)
	}
	return &Reply{Text: replyAskWhen(sess.ServiceName), State: StateAwaitWhen}, nil
}

func (m *Machine) handleWhen(ctx context.Context, sess *Session, text string) (*Reply, error) {
	pol, conv, err := m.loadPolicy(ctx, sess.TenantID)
	if err != nil {
		return nil, err
	}
	date, ok := ParseDateExpression(text, conv.Location(), m.clock())
	if !ok {
		return &Reply{Text: replyDateNotUnderstood(), State: StateAwaitWhen}, nil
	}
	return m.presentSlots(ctx, sess, pol, conv, date)
}

// presentSlots searches forward from the requested date, so a fully booked
// date naturally falls through to the nearest later openings.
func (m *Machine) presentSlots(ctx context.Context, sess *Session, pol *tenantcfg.BookingPolicy, conv *schedule.Converter, date schedule.CivilDate) (*Reply, error) {
	candidates, err := m.slots.FindSlots(ctx, sess.TenantID, pol.SchedulePolicy(), sess.DurationMin, date, schedule.DefaultMaxCandidates)
	if schedule.IsPolicyViolation(err) {
		return &Reply{Text: replyBeyondWindow(pol.BookingWindowDays), State: StateAwaitWhen}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("conversation: find slots: %w", err)
	}
	if len(candidates) == 0 {
		return &Reply{Text: replyNoSlots(date), State: StateAwaitWhen}, nil
	}

	curated := schedule.Curate(candidates, conv.Location())
	sess.DateHint = date.String()
	sess.Slots = curated
	m.metrics.ObserveSlotsOffered(len(curated))
	return &Reply{Text: replySlots(curated, conv.Location()), State: StateAwaitSlot}, nil
}

var choiceRe = regexp.MustCompile(`\d+`)

func (m *Machine) handleSlot(ctx context.Context, sess *Session, text string) (*Reply, error) {
	raw := choiceRe.FindString(text)
	choice, err := strconv.Atoi(raw)
	if raw == "" || err != nil || choice < 1 || choice > len(sess.Slots) {
		return &Reply{Text: replySlotNotUnderstood(len(sess.Slots)), State: StateAwaitSlot}, nil
	}

	sess.ChosenStart = sess.Slots[choice-1].Start
	if sess.CustomerName != "" && sess.CustomerPhone != "" {
		return m.book(ctx, sess)
	}
	return &Reply{Text: replyAskContact(), State: StateAwaitContact}, nil
}

func (m *Machine) handleContact(ctx context.Context, sess *Session, text string) (*Reply, error) {
	name, phone := ExtractContact(text)
	if name != "" {
		sess.CustomerName = name
	}
	if phone != "" {
		sess.CustomerPhone = phone
	}
	if sess.CustomerName == "" || sess.CustomerPhone == "" {
		return &Reply{Text: replyContactIncomplete(), State: StateAwaitContact}, nil
	}
	return m.book(ctx, sess)
}

// book runs the booking transaction. When the chosen slot was taken in the
// meantime, a fresh search from the same date is presented instead of failing
// the conversation.
func (m *Machine) book(ctx context.Context, sess *Session) (*Reply, error) {
	pol, conv, err := m.loadPolicy(ctx, sess.TenantID)
	if err != nil {
		return nil, err
	}

	appt, err := m.booker.Book(ctx, appointments.BookRequest{
		TenantID:            sess.TenantID,
		ConversationID:      sess.ConversationID,
		ServiceName:         sess.ServiceName,
		DurationMin:         sess.DurationMin,
		BufferMin:           pol.BufferMin,
		Start:               sess.ChosenStart,
		Timezone:            pol.Timezone,
		CustomerName:        sess.CustomerName,
		CustomerPhone:       sess.CustomerPhone,
		RequireConfirmation: pol.RequireConfirmation,
	})
	if errors.Is(err, schedule.ErrConflict) {
		date, derr := schedule.ParseCivilDate(sess.DateHint)
		if derr != nil {
			date = conv.CivilDate(m.clock())
		}
		reply, rerr := m.presentSlots(ctx, sess, pol, conv, date)
		if rerr != nil {
			return nil, rerr
		}
		reply.Text = replySlotTaken() + reply.Text
		return reply, nil
	}
	if err != nil {
		return nil, fmt.Errorf("conversation: book appointment: %w", err)
	}

	label := StartLabel(appt.StartAt, conv.Location())
	m.logger.Info("conversation booked appointment",
		"tenant_id", sess.TenantID,
		"conversation_id", sess.ConversationID,
		"appointment_id", appt.ID,
	)
	return &Reply{
		Text:  replyConfirmed(appt.ServiceName, label, appt.Status == appointments.StatusPending),
		State: StateDone,
		Confirmation: &Confirmation{
			AppointmentID: appt.ID,
			ServiceName:   appt.ServiceName,
			StartLabel:    label,
			Status:        string(appt.Status),
		},
	}, nil
}

func (m *Machine) loadPolicy(ctx context.Context, tenantID string) (*tenantcfg.BookingPolicy, *schedule.Converter, error) {
	pol, err := m.policies.Policy(ctx, tenantID)
	if err != nil {
		return nil, nil, fmt.Errorf("conversation: load policy: %w", err)
	}
	conv, err := schedule.LoadZone(pol.Timezone)
	if err != nil {
		return nil, nil, err
	}
	return pol, conv, nil
}
