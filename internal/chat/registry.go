package chat

import (
	"fmt"
	"iter"
	"slices"
)

// Room holds the append-only history of a conversation. Membership is implied by its id.
type Room struct {
	ID      RoomID
	history []Message
}

// Len returns the number of messages in the history.
func (r *Room) Len() int { return len(r.history) }

// Registry maps room ids to rooms. It is not safe for concurrent use; State serializes access.
type Registry struct {
	rooms map[RoomID]*Room
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[RoomID]*Room)}
}

// GetOrCreate returns the room, creating it with an empty history when absent.
func (r *Registry) GetOrCreate(id RoomID) *Room {
	if room, ok := r.rooms[id]; ok {
		return room
	}
	room := &Room{ID: id}
	r.rooms[id] = room
	return room
}

// Has reports whether the room exists.
func (r *Registry) Has(id RoomID) bool {
	_, ok := r.rooms[id]
	return ok
}

// Append adds msg to the end of the room history.
func (r *Registry) Append(id RoomID, msg Message) error {
	room, ok := r.rooms[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRoom, id)
	}
	room.history = append(room.history, msg)
	return nil
}

// History yields the room messages in insertion order. Unknown rooms yield nothing.
func (r *Registry) History(id RoomID) iter.Seq[Message] {
	return func(yield func(Message) bool) {
		room, ok := r.rooms[id]
		if !ok {
			return
		}
		for _, msg := range room.history {
			if !yield(msg) {
				return
			}
		}
	}
}

// Rooms returns every known room id in sorted order.
func (r *Registry) Rooms() []RoomID {
	ids := make([]RoomID, 0, len(r.rooms))
	for id := range r.rooms {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
