package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/avvvet/coffeebuddy/internal/models"
	logx "github.com/avvvet/coffeebuddy/pkg/logger"
	lcmemory "github.com/tmc/langchaingo/memory"
	"github.com/tmc/langchaingo/schema"
)

// Manager is the process-wide session registry. It is created once at
// startup, injected into the pipeline and closed on shutdown. Sessions are
// never evicted, so memory grows with the number of distinct users.
//
// The registry mutex guards the maps and every session field. Lock gives
// callers a per-user critical section spanning several calls, so two
// messages from the same user are processed one after the other while
// different users proceed in parallel.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*session
	locks    map[string]*sync.Mutex
	closed   bool
}

type session struct {
	userID      string
	displayName string
	history     *lcmemory.ChatMessageHistory
	slots       models.Slots
	delivered   bool
}

// NewManager creates an empty session registry
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*session),
		locks:    make(map[string]*sync.Mutex),
	}
}

// Lock blocks until the caller holds userID's critical section and returns
// the function that releases it.
func (m *Manager) Lock(userID string) func() {
	m.mu.Lock()
	l, ok := m.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[userID] = l
	}
	m.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// GetOrCreate returns the session for userID, creating an empty one on first
// contact. The display name of an existing session is not overwritten.
func (m *Manager) GetOrCreate(ctx context.Context, userID, displayName string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return Session{}, ErrManagerClosed
	}

	s, ok := m.sessions[userID]
	if !ok {
		s = newSession(userID, displayName)
		m.sessions[userID] = s
		logx.Debug().Str("user_id", userID).Int("active_sessions", len(m.sessions)).Msg("created session")
	}

	return s.snapshot(ctx)
}

// Get returns a copy of an existing session.
func (m *Manager) Get(ctx context.Context, userID string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return s.snapshot(ctx)
}

// AppendTurn adds one turn to the end of userID's history.
func (m *Manager) AppendTurn(ctx context.Context, userID string, role models.Role, content string) error {
	if !role.Valid() {
		return fmt.Errorf("memory: unknown role %q", role)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok {
		return ErrSessionNotFound
	}

	var err error
	switch role {
	case models.RoleUser:
		err = s.history.AddUserMessage(ctx, content)
	case models.RoleAssistant:
		err = s.history.AddAIMessage(ctx, content)
	}
	if err != nil {
		return fmt.Errorf("failed to add %s turn: %w", role, err)
	}
	return nil
}

// MergeSlots writes extracted over the session's slots and reports whether
// the order is now complete. Completeness is re-evaluated on every call.
func (m *Manager) MergeSlots(ctx context.Context, userID string, extracted models.Slots) (Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok {
		return Session{}, false, ErrSessionNotFound
	}

	s.slots = s.slots.Merge(extracted)

	snap, err := s.snapshot(ctx)
	if err != nil {
		return Session{}, false, err
	}
	return snap, s.slots.Complete(), nil
}

// MarkDelivered flips the delivered flag and reports whether this call did
// the flip. It returns false when the order was already delivered.
func (m *Manager) MarkDelivered(userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok {
		return false, ErrSessionNotFound
	}
	if s.delivered {
		return false, nil
	}
	s.delivered = true
	return true, nil
}

// Reset drops userID's history, slots and delivered flag so a new order
// can start. The display name is kept.
func (m *Manager) Reset(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok {
		return ErrSessionNotFound
	}

	if err := s.history.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	s.slots = models.Slots{}
	s.delivered = false

	logx.Info().Str("user_id", userID).Msg("session reset")
	return nil
}

// ActiveSessionCount returns the number of sessions held in memory
func (m *Manager) ActiveSessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close drops every session. Later calls to GetOrCreate fail.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	logx.Info().Int("sessions", len(m.sessions)).Msg("closing session manager")
	m.sessions = make(map[string]*session)
	m.closed = true
	return nil
}

func newSession(userID, displayName string) *session {
	return &session{
		userID:      userID,
		displayName: displayName,
		history:     lcmemory.NewChatMessageHistory(),
		slots:       models.Slots{},
	}
}

func (s *session) snapshot(ctx context.Context) (Session, error) {
	msgs, err := s.history.Messages(ctx)
	if err != nil {
		return Session{}, fmt.Errorf("failed to read history: %w", err)
	}

	turns := make([]models.Turn, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.GetType() {
		case schema.ChatMessageTypeHuman:
			turns = append(turns, models.Turn{Role: models.RoleUser, Content: msg.GetContent()})
		case schema.ChatMessageTypeAI:
			turns = append(turns, models.Turn{Role: models.RoleAssistant, Content: msg.GetContent()})
		default:
			logx.Warn().Str("user_id", s.userID).Str("type", string(msg.GetType())).Msg("unknown message type in history, skipping")
		}
	}

	return Session{
		UserID:      s.userID,
		DisplayName: s.displayName,
		History:     turns,
		Slots:       s.slots.Clone(),
		Delivered:   s.delivered,
	}, nil
}
