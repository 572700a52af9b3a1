package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sazaba/wppai-server-sub000/internal/schedule"
)

// State identifies where a conversation sits in the booking flow.
type State string

const (
	StateIdle         State = "idle"
	StateAwaitService State = "await_service"
	StateAwaitWhen    State = "await_when"
	StateAwaitSlot    State = "await_slot"
	StateAwaitContact State = "await_name_phone"
	StateDone         State = "done"
	StateAborted      State = "aborted"
)

// Session is the per-conversation booking progress, shared across server
// instances through Redis.
type Session struct {
	TenantID       string          `json:"tenant_id"`
	ConversationID string          `json:"conversation_id"`
	State          State           `json:"state"`
	ServiceID      string          `json:"service_id,omitempty"`
	ServiceName    string          `json:"service_name,omitempty"`
	DurationMin    int             `json:"duration_min,omitempty"`
	DateHint       string          `json:"date_hint,omitempty"`
	Slots          []schedule.Slot `json:"slots,omitempty"`
	ChosenStart    time.Time       `json:"chosen_start,omitempty"`
	CustomerName   string          `json:"customer_name,omitempty"`
	CustomerPhone  string          `json:"customer_phone,omitempty"`
	AppointmentID  string          `json:"appointment_id,omitempty"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// SessionStore keeps sessions in Redis under a sliding TTL, so an abandoned
// conversation expires back to idle on its own.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore builds a store. ttl <= 0 falls back to 30 minutes.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SessionStore{client: client, ttl: ttl}
}

func sessionKey(tenantID, conversationID string) string {
	return fmt.Sprintf("session:%s:%s", tenantID, conversationID)
}

// Get loads the session, returning a fresh idle one when none exists or the
// previous one expired.
func (s *SessionStore) Get(ctx context.Context, tenantID, conversationID string) (*Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(tenantID, conversationID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return &Session{
			TenantID:       tenantID,
			ConversationID: conversationID,
			State:          StateIdle,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("conversation: load session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("conversation: decode session: %w", err)
	}
	return &sess, nil
}

// Save stores the session and resets its TTL. Every saved turn slides the
// expiry forward.
func (s *SessionStore) Save(ctx context.Context, sess *Session) error {
	sess.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("conversation: encode session: %w", err)
	}
	key := sessionKey(sess.TenantID, sess.ConversationID)
	if err := s.client.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("conversation: save session: %w", err)
	}
	return nil
}

// Delete drops the session, returning the conversation to idle.
func (s *SessionStore) Delete(ctx context.Context, tenantID, conversationID string) error {
	if err := s.client.Del(ctx, sessionKey(tenantID, conversationID)).Err(); err != nil {
		return fmt.Errorf("conversation: delete session: %w", err)
	}
	return nil
}
