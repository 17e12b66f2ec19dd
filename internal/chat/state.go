package chat

import (
	"fmt"
	"slices"
	"sync"
)

// State owns the registry and tracker and serializes every mutation, so a message append and
// its counter increment are never observed apart.
type State struct {
	mu       sync.RWMutex
	registry *Registry
	tracker  *Tracker
	version  uint64
}

// NewState returns empty state.
func NewState() *State {
	return &State{
		registry: NewRegistry(),
		tracker:  NewTracker(),
	}
}

// NewStateFromSnapshot rebuilds state from a persisted snapshot.
func NewStateFromSnapshot(snap Snapshot) (*State, error) {
	snap = snap.normalized()
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	s := NewState()
	for id, rec := range snap.Rooms {
		room := s.registry.GetOrCreate(id)
		room.history = make([]Message, 0, len(rec.History))
		for _, msg := range rec.History {
			room.history = append(room.history, msg.clone())
		}
	}
	for id, users := range snap.Unread {
		s.registry.GetOrCreate(id)
		counters := s.tracker.room(id)
		for u, n := range users {
			counters[u] = n
		}
	}
	return s, nil
}

// Join creates the room if needed, clears the unread counter of u and returns the history
// to replay.
func (s *State) Join(id RoomID, u UserID) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.registry.GetOrCreate(id)
	s.tracker.ResetOnJoin(id, u)
	s.version++
	return slices.Collect(s.registry.History(id))
}

// Post appends msg to the room and counts it as unread for the receiving participant.
func (s *State) Post(id RoomID, msg Message) error {
	if !id.Contains(msg.Sender) {
		return fmt.Errorf("%w: %s in %s", ErrNotParticipant, msg.Sender, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.registry.Has(id) {
		return fmt.Errorf("%w: %s", ErrUnknownRoom, id)
	}
	s.tracker.IncrementFor(id, id.Peer(msg.Sender))
	if err := s.registry.Append(id, msg.clone()); err != nil {
		return err
	}
	s.version++
	return nil
}

// Reset sets the unread counter of u in the room to zero.
func (s *State) Reset(id RoomID, u UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tracker.ResetOnJoin(id, u)
	s.version++
}

// History returns a copy of the room history.
func (s *State) History(id RoomID) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Collect(s.registry.History(id))
}

// Rooms returns every room id in sorted order.
func (s *State) Rooms() []RoomID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.Rooms()
}

// CountFor returns the unread count of u in the room.
func (s *State) CountFor(id RoomID, u UserID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tracker.CountFor(id, u)
}

// TotalFor returns the unread total of u across all rooms.
func (s *State) TotalFor(u UserID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tracker.TotalFor(u)
}

// View runs fn with read access to the registry and tracker.
func (s *State) View(fn func(*Registry, *Tracker)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.registry, s.tracker)
}

// Version increases on every mutation.
func (s *State) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Snapshot returns a deep copy of the state and the version it reflects.
func (s *State) Snapshot() (Snapshot, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := EmptySnapshot()
	for id, room := range s.registry.rooms {
		rec := RoomRecord{}
		if len(room.history) > 0 {
			rec.History = make([]Message, 0, len(room.history))
			for _, msg := range room.history {
				rec.History = append(rec.History, msg.clone())
			}
		}
		snap.Rooms[id] = rec
	}
	for id, users := range s.tracker.counts {
		counters := make(map[UserID]int, len(users))
		for u, n := range users {
			counters[u] = n
		}
		snap.Unread[id] = counters
	}
	return snap, s.version
}
