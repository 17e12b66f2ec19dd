package chat

import "github.com/samber/lo"

// Tracker keeps per-room, per-user unread counters. Counters are created on first reference,
// so no operation fails on a user that was never seen. Not safe for concurrent use.
type Tracker struct {
	counts map[RoomID]map[UserID]int
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{counts: make(map[RoomID]map[UserID]int)}
}

func (t *Tracker) room(id RoomID) map[UserID]int {
	users, ok := t.counts[id]
	if !ok {
		users = make(map[UserID]int)
		t.counts[id] = users
	}
	return users
}

// ResetOnJoin marks everything in the room as seen by u.
func (t *Tracker) ResetOnJoin(id RoomID, u UserID) {
	t.room(id)[u] = 0
}

// IncrementFor records one more unseen message for u.
func (t *Tracker) IncrementFor(id RoomID, u UserID) {
	t.room(id)[u]++
}

// CountFor returns the unread count, zero when absent.
func (t *Tracker) CountFor(id RoomID, u UserID) int {
	return t.counts[id][u]
}

// TotalFor sums the counters of u across every room that includes u.
func (t *Tracker) TotalFor(u UserID) int {
	rooms := lo.Filter(lo.Keys(t.counts), func(id RoomID, _ int) bool {
		return id.Contains(u)
	})
	return lo.SumBy(rooms, func(id RoomID) int {
		return t.CountFor(id, u)
	})
}
