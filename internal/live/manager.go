package live

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tradearena/internal/match"
)

const defaultConnBuffer = 32

// Conn is one spectator's outbound queue. The serving request owns the
// Conn; the manager only holds a registration for fan-out and drops it as
// soon as the connection closes or stalls.
type Conn struct {
	viewerID string
	ch       chan Event
	once     sync.Once
}

func newConn(viewerID string, buf int) *Conn {
	if buf <= 0 {
		buf = defaultConnBuffer
	}
	return &Conn{viewerID: viewerID, ch: make(chan Event, buf)}
}

// Events is the stream the serving task drains until it is closed.
func (c *Conn) Events() <-chan Event { return c.ch }

// ViewerID returns the viewer this connection belongs to ("" for anonymous).
func (c *Conn) ViewerID() string { return c.viewerID }

func (c *Conn) close() {
	c.once.Do(func() { close(c.ch) })
}

// send is non-blocking. A full buffer means the consumer stalled; the
// caller treats that as a closed connection.
func (c *Conn) send(ev Event) bool {
	select {
	case c.ch <- ev:
		return true
	default:
		return false
	}
}

// Session is the public view of a live session.
type Session struct {
	ID        string    `json:"id"`
	MatchID   string    `json:"match_id"`
	OwnerID   string    `json:"owner_id"`
	Pair      string    `json:"pair"`
	CreatedAt time.Time `json:"created_at"`
	Open      bool      `json:"open"`
}

type session struct {
	Session

	mu     sync.Mutex
	closed bool
	conns  map[*Conn]struct{}
}

// Manager is the process-wide live session registry: one owned object
// constructed at startup, torn down at shutdown. It tracks sessions and
// their spectator connections and fans events out best-effort.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*session
	byMatch  map[string]string

	logger     *zap.Logger
	connBuffer int

	droppedSends atomic.Uint64
}

func NewManager(logger *zap.Logger, connBuffer int) *Manager {
	if connBuffer <= 0 {
		connBuffer = defaultConnBuffer
	}
	return &Manager{
		sessions:   map[string]*session{},
		byMatch:    map[string]string{},
		logger:     logger,
		connBuffer: connBuffer,
	}
}

// CreateSession opens a broadcast session for a match. At most one open
// session per match; a second create fails with ErrSessionExists.
func (m *Manager) CreateSession(matchID, ownerID, pair string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.byMatch[matchID]; ok {
		return Session{}, fmt.Errorf("%w: match %s has session %s", match.ErrSessionExists, matchID, existing)
	}
	s := &session{
		Session: Session{
			ID:        uuid.NewString(),
			MatchID:   matchID,
			OwnerID:   ownerID,
			Pair:      pair,
			CreatedAt: time.Now().UTC(),
			Open:      true,
		},
		conns: map[*Conn]struct{}{},
	}
	m.sessions[s.ID] = s
	m.byMatch[matchID] = s.ID
	if m.logger != nil {
		m.logger.Info("live session created",
			zap.String("session_id", s.ID),
			zap.String("match_id", matchID),
		)
	}
	return s.Session, nil
}

// Lookup returns the session's public view.
func (m *Manager) Lookup(sessionID string) (Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return Session{}, false
	}
	s.mu.Lock()
	out := s.Session
	out.Open = !s.closed
	s.mu.Unlock()
	return out, true
}

// SessionForMatch returns the id of the match's open session, if any.
func (m *Manager) SessionForMatch(matchID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byMatch[matchID]
	return id, ok
}

// AddConnection registers a spectator sink and sends the current spectator
// count to that connection only.
func (m *Manager) AddConnection(sessionID, viewerID string) (*Conn, error) {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", match.ErrSessionNotFound, sessionID)
	}

	c := newConn(viewerID, m.connBuffer)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s is closed", match.ErrSessionNotFound, sessionID)
	}
	s.conns[c] = struct{}{}
	count := len(s.conns)
	c.send(Event{
		Type:      EventSpectatorCount,
		SessionID: s.ID,
		MatchID:   s.MatchID,
		At:        time.Now().UTC(),
		Payload:   map[string]any{"count": count},
	})
	s.mu.Unlock()
	return c, nil
}

// RemoveConnection unregisters and closes a sink. Safe to call repeatedly
// and after the session is gone.
func (m *Manager) RemoveConnection(sessionID string, c *Conn) {
	if c == nil {
		return
	}
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if ok {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
	}
	c.close()
}

// Broadcast delivers an event to every registered connection of the
// session. Sends are independent and best-effort: a stalled or closed
// connection is evicted without affecting the others. Events broadcast by
// one caller are delivered to each connection in broadcast order.
func (m *Manager) Broadcast(sessionID string, ev Event) {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return
	}
	ev.SessionID = s.ID
	ev.MatchID = s.MatchID
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	var stalled []*Conn
	for c := range s.conns {
		if !c.send(ev) {
			stalled = append(stalled, c)
		}
	}
	for _, c := range stalled {
		delete(s.conns, c)
	}
	s.mu.Unlock()

	for _, c := range stalled {
		c.close()
		m.droppedSends.Add(1)
	}
	if len(stalled) > 0 && m.logger != nil {
		m.logger.Debug("evicted stalled spectators",
			zap.String("session_id", sessionID),
			zap.Int("evicted", len(stalled)),
			zap.Uint64("dropped_total", m.droppedSends.Load()),
		)
	}
}

// BroadcastToMatch fans an event out to the match's open session, if one
// exists. No session is not an error.
func (m *Manager) BroadcastToMatch(matchID string, ev Event) {
	if id, ok := m.SessionForMatch(matchID); ok {
		m.Broadcast(id, ev)
	}
}

// SpectatorCount returns the number of registered connections. Connections
// mid-teardown count until their removal completes.
func (m *Manager) SpectatorCount(sessionID string) int {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// StoreReaction validates a spectator reaction against the allow-list and
// broadcasts it. A closed or unknown session is a no-op failure.
func (m *Manager) StoreReaction(sessionID, viewerID, reaction string) error {
	if !ReactionAllowed(reaction) {
		return fmt.Errorf("reaction %q not allowed", reaction)
	}
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", match.ErrSessionNotFound, sessionID)
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return fmt.Errorf("%w: %s is closed", match.ErrSessionNotFound, sessionID)
	}
	m.Broadcast(sessionID, Event{
		Type:    EventReaction,
		Payload: map[string]any{"viewer_id": viewerID, "reaction": reaction},
	})
	return nil
}

// CloseSession notifies spectators, closes every connection, and frees the
// match slot. Idempotent.
func (m *Manager) CloseSession(sessionID string) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if ok {
		delete(m.byMatch, s.MatchID)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	conns := make([]*Conn, 0, len(s.conns))
	for c := range s.conns {
		c.send(Event{
			Type:      EventSessionClosed,
			SessionID: s.ID,
			MatchID:   s.MatchID,
			At:        time.Now().UTC(),
		})
		conns = append(conns, c)
		delete(s.conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
	if m.logger != nil {
		m.logger.Info("live session closed", zap.String("session_id", sessionID))
	}
}

// CloseSessionsForMatch closes the match's open session, if any.
func (m *Manager) CloseSessionsForMatch(matchID string) {
	if id, ok := m.SessionForMatch(matchID); ok {
		m.CloseSession(id)
	}
}

// GC drops closed sessions from the registry and returns how many were
// collected. Run periodically; closed sessions linger only so that late
// RemoveConnection calls stay cheap no-ops.
func (m *Manager) GC() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		s.mu.Lock()
		dead := s.closed && len(s.conns) == 0
		s.mu.Unlock()
		if dead {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Shutdown closes every open session.
func (m *Manager) Shutdown() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	for _, id := range ids {
		m.CloseSession(id)
	}
}
