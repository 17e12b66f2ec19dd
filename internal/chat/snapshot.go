package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Snapshot is the full persisted copy of the registry and tracker.
type Snapshot struct {
	Rooms  map[RoomID]RoomRecord     `json:"activeRooms"`
	Unread map[RoomID]map[UserID]int `json:"unreadMessages"`
}

// RoomRecord is the persisted form of a room.
type RoomRecord struct {
	History []Message `json:"history,omitempty"`
}

// EmptySnapshot returns a snapshot with no rooms.
func EmptySnapshot() Snapshot {
	return Snapshot{
		Rooms:  make(map[RoomID]RoomRecord),
		Unread: make(map[RoomID]map[UserID]int),
	}
}

// Encode serializes the snapshot as JSON.
func (s Snapshot) Encode() ([]byte, error) {
	if s.Rooms == nil || s.Unread == nil {
		s = s.normalized()
	}
	return json.Marshal(s)
}

// DecodeSnapshot parses data produced by Encode. Blank input decodes to an empty snapshot.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return EmptySnapshot(), nil
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	s = s.normalized()
	if err := s.Validate(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// Validate checks the invariants a loaded snapshot must hold.
func (s Snapshot) Validate() error {
	for id, rec := range s.Rooms {
		if !id.Valid() {
			return fmt.Errorf("%w: malformed room id %q", ErrCorruptSnapshot, id)
		}
		for i, msg := range rec.History {
			if msg.Sender == "" {
				return fmt.Errorf("%w: room %s message %d has no sender", ErrCorruptSnapshot, id, i)
			}
		}
	}
	for id, users := range s.Unread {
		if !id.Valid() {
			return fmt.Errorf("%w: malformed room id %q", ErrCorruptSnapshot, id)
		}
		for u, n := range users {
			if n < 0 {
				return fmt.Errorf("%w: negative counter for %s in %s", ErrCorruptSnapshot, u, id)
			}
		}
	}
	return nil
}

func (s Snapshot) normalized() Snapshot {
	if s.Rooms == nil {
		s.Rooms = make(map[RoomID]RoomRecord)
	}
	if s.Unread == nil {
		s.Unread = make(map[RoomID]map[UserID]int)
	}
	return s
}
