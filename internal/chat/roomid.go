package chat

import (
	"fmt"
	"strings"
)

// RoomSeparator joins the two participant ids of a room.
const RoomSeparator = "-"

// UserID identifies a chat participant.
type UserID string

// RoomID is the canonical identity of a two-party conversation.
type RoomID string

// Resolve derives the room shared by a and b. The result does not depend on argument order.
func Resolve(a, b UserID) RoomID {
	if b < a {
		a, b = b, a
	}
	return RoomID(string(a) + RoomSeparator + string(b))
}

// ValidateUser rejects ids that cannot appear as a room component.
func ValidateUser(u UserID) error {
	s := string(u)
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidUser)
	}
	if strings.Contains(s, RoomSeparator) {
		return fmt.Errorf("%w: %q contains %q", ErrInvalidUser, s, RoomSeparator)
	}
	return nil
}

// Participants splits the room id into its two user ids.
func (id RoomID) Participants() (UserID, UserID) {
	a, b, _ := strings.Cut(string(id), RoomSeparator)
	return UserID(a), UserID(b)
}

// Valid reports whether the id has exactly two non-empty components.
func (id RoomID) Valid() bool {
	a, b, ok := strings.Cut(string(id), RoomSeparator)
	return ok && a != "" && b != "" && !strings.Contains(b, RoomSeparator)
}

// Contains reports whether u is one of the two participants.
func (id RoomID) Contains(u UserID) bool {
	a, b := id.Participants()
	return u != "" && (a == u || b == u)
}

// Peer returns the participant that is not u. For a room between a user and themselves the
// peer is u.
func (id RoomID) Peer(u UserID) UserID {
	a, b := id.Participants()
	if a == u {
		return b
	}
	return a
}

func (id RoomID) String() string { return string(id) }
