// Package query exposes read-only views over the relay state.
package query

import (
	"github.com/samber/lo"

	"github.com/fenggwsx/dmrelay/internal/chat"
)

// RoomSummary pairs a room with the caller's unread count in it.
type RoomSummary struct {
	RoomID      chat.RoomID `json:"roomId"`
	UnreadCount int         `json:"unreadCount"`
}

// Service answers room listing and unread total queries.
type Service struct {
	state *chat.State
}

// NewService returns a query facade over state.
func NewService(state *chat.State) *Service {
	return &Service{state: state}
}

// ListRooms returns every room that includes u, sorted by id. Users without rooms get an empty
// slice.
func (s *Service) ListRooms(u chat.UserID) []RoomSummary {
	summaries := make([]RoomSummary, 0)
	s.state.View(func(reg *chat.Registry, tr *chat.Tracker) {
		rooms := lo.Filter(reg.Rooms(), func(id chat.RoomID, _ int) bool {
			return id.Contains(u)
		})
		summaries = append(summaries, lo.Map(rooms, func(id chat.RoomID, _ int) RoomSummary {
			return RoomSummary{RoomID: id, UnreadCount: tr.CountFor(id, u)}
		})...)
	})
	return summaries
}

// UnreadTotal returns the sum of the unread counts of u across its rooms.
func (s *Service) UnreadTotal(u chat.UserID) int {
	return s.state.TotalFor(u)
}
