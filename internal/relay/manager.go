package relay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fenggwsx/dmrelay/internal/chat"
	"github.com/fenggwsx/dmrelay/internal/config"
	"github.com/fenggwsx/dmrelay/internal/storage"
)

// Conn is a live client connection as seen by the manager. Deliver and Replay must not block;
// transports queue the messages and write them asynchronously. Replay hands over a whole room
// history at once and is not subject to slow-consumer limits.
type Conn interface {
	ID() string
	Deliver(msg chat.Message)
	Replay(history []chat.Message)
}

// LeavePolicy decides what leaving does to unread counters.
type LeavePolicy int

const (
	// LeaveResetSelf clears the leaving user's own counter.
	LeaveResetSelf LeavePolicy = iota
	// LeaveResetNone leaves every counter as it is.
	LeaveResetNone
)

// ParseLeavePolicy maps a config value to a policy.
func ParseLeavePolicy(s string) (LeavePolicy, error) {
	switch s {
	case config.LeaveResetSelf, "":
		return LeaveResetSelf, nil
	case config.LeaveResetNone:
		return LeaveResetNone, nil
	default:
		return 0, fmt.Errorf("unknown leave policy %q", s)
	}
}

type session struct {
	conn Conn
	room chat.RoomID
	user chat.UserID
}

// Manager binds connections to rooms and applies join, send and leave to the shared state.
type Manager struct {
	log    *slog.Logger
	state  *chat.State
	store  storage.Store
	hub    *Hub
	policy LeavePolicy

	// mu orders session changes against broadcasts, so a joining connection sees the full
	// history followed by every later message exactly once.
	mu       sync.Mutex
	sessions map[string]session

	saveMu   sync.Mutex
	savedVer uint64
}

// NewManager wires a manager around loaded state. store may be nil to disable persistence.
func NewManager(log *slog.Logger, state *chat.State, store storage.Store, policy LeavePolicy) *Manager {
	m := &Manager{
		log:      log,
		state:    state,
		store:    store,
		hub:      NewHub(),
		policy:   policy,
		sessions: make(map[string]session),
	}
	m.savedVer = state.Version()
	return m
}

// Join binds conn to the room of self and peer, clears the unread counter of self and replays
// the room history to conn only. Joining again moves the connection to the new room.
func (m *Manager) Join(conn Conn, self, peer chat.UserID) (chat.RoomID, error) {
	if err := chat.ValidateUser(self); err != nil {
		return "", err
	}
	if err := chat.ValidateUser(peer); err != nil {
		return "", err
	}
	room := chat.Resolve(self, peer)

	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.sessions[conn.ID()]; ok {
		m.hub.Unregister(prev.room, conn.ID())
		m.log.Debug("session rebound", "conn", conn.ID(), "from", prev.room, "to", room)
	}
	m.sessions[conn.ID()] = session{conn: conn, room: room, user: self}

	history := m.state.Join(room, self)
	m.hub.Register(room, conn)
	if len(history) > 0 {
		conn.Replay(history)
	}

	m.log.Info("room joined", "room", room, "user", self, "conn", conn.ID(), "replayed", len(history))
	return room, nil
}

// Send records msg in the room bound to conn and broadcasts it to every joined connection,
// the sender included.
func (m *Manager) Send(conn Conn, msg chat.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[conn.ID()]
	if !ok {
		return ErrNotJoined
	}
	if msg.Sender == "" {
		return ErrMissingSender
	}
	if err := m.state.Post(s.room, msg); err != nil {
		return err
	}
	m.hub.Broadcast(s.room, msg)

	m.log.Debug("message relayed", "room", s.room, "sender", msg.Sender, "conn", conn.ID(), "bytes", len(msg.Payload))
	return nil
}

// Leave persists the full state, applies the leave policy and unbinds conn.
func (m *Manager) Leave(ctx context.Context, conn Conn) error {
	s, ok := m.unbind(conn)
	if !ok {
		return ErrNotJoined
	}

	// A failed save is logged by Flush; in-memory state stays authoritative.
	_ = m.Flush(ctx)

	if m.policy == LeaveResetSelf {
		m.state.Reset(s.room, s.user)
	}
	m.log.Info("room left", "room", s.room, "user", s.user, "conn", conn.ID())
	return nil
}

// Disconnect cleans up after a closed transport connection. It behaves like Leave for a joined
// connection and does nothing otherwise.
func (m *Manager) Disconnect(ctx context.Context, conn Conn) {
	if _, ok := m.Session(conn); !ok {
		return
	}
	if err := m.Leave(ctx, conn); err != nil {
		m.log.Debug("disconnect", "conn", conn.ID(), "err", err)
	}
}

// Session reports the room and user bound to conn.
func (m *Manager) Session(conn Conn) (chat.RoomID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[conn.ID()]
	return s.room, ok
}

// Members returns how many connections are joined to the room.
func (m *Manager) Members(room chat.RoomID) int {
	return m.hub.Members(room)
}

func (m *Manager) unbind(conn Conn) (session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[conn.ID()]
	if !ok {
		return session{}, false
	}
	m.hub.Unregister(s.room, conn.ID())
	delete(m.sessions, conn.ID())
	return s, true
}

// Flush saves a consistent snapshot of the state. Saves are serialized so an older snapshot
// never replaces a newer one.
func (m *Manager) Flush(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	snap, ver := m.state.Snapshot()
	started := time.Now()
	if err := m.store.Save(ctx, snap); err != nil {
		m.log.Error("snapshot save failed", "err", err)
		return fmt.Errorf("flush: %w", err)
	}
	m.savedVer = ver
	m.log.Debug("snapshot saved", "rooms", len(snap.Rooms), "version", ver, "took", time.Since(started))
	return nil
}

// Dirty reports whether the state changed since the last successful save.
func (m *Manager) Dirty() bool {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()
	return m.state.Version() != m.savedVer
}

// RunFlusher saves the state every interval while it is dirty, until ctx is canceled.
func (m *Manager) RunFlusher(ctx context.Context, interval time.Duration) {
	if interval <= 0 || m.store == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if m.Dirty() {
				_ = m.Flush(ctx)
			}
		}
	}
}

// Close performs the final flush on shutdown.
func (m *Manager) Close(ctx context.Context) error {
	return m.Flush(ctx)
}
