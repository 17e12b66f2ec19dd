package query

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/fenggwsx/dmrelay/internal/chat"
)

func seededState(t *testing.T) *chat.State {
	t.Helper()
	s := chat.NewState()
	amyBob := chat.Resolve("amy", "bob")
	s.Join(amyBob, "amy")
	s.Join(amyBob, "bob")
	require.NoError(t, s.Post(amyBob, chat.Message{Sender: "amy", Payload: []byte(`"hi"`)}))
	require.NoError(t, s.Post(amyBob, chat.Message{Sender: "bob", Payload: []byte(`"yo"`)}))

	amyDan := chat.Resolve("dan", "amy")
	s.Join(amyDan, "dan")
	require.NoError(t, s.Post(amyDan, chat.Message{Sender: "dan", Payload: []byte(`"hey"`)}))
	require.NoError(t, s.Post(amyDan, chat.Message{Sender: "dan", Payload: []byte(`"there?"`)}))
	return s
}

func TestService_ListRooms(t *testing.T) {
	svc := NewService(seededState(t))

	require.Equal(t, []RoomSummary{
		{RoomID: "amy-bob", UnreadCount: 1},
		{RoomID: "amy-dan", UnreadCount: 2},
	}, svc.ListRooms("amy"))
	require.Equal(t, []RoomSummary{{RoomID: "amy-bob", UnreadCount: 1}}, svc.ListRooms("bob"))
}

func TestService_ListRoomsUnknownUser(t *testing.T) {
	svc := NewService(seededState(t))
	rooms := svc.ListRooms("carol")
	require.NotNil(t, rooms)
	require.Empty(t, rooms)
	// Substrings of a participant id are not participants.
	require.Empty(t, svc.ListRooms("am"))
}

func TestService_UnreadTotalMatchesRoomSum(t *testing.T) {
	svc := NewService(seededState(t))
	for _, u := range []chat.UserID{"amy", "bob", "dan", "carol"} {
		sum := lo.SumBy(svc.ListRooms(u), func(r RoomSummary) int { return r.UnreadCount })
		require.Equal(t, sum, svc.UnreadTotal(u), "user %s", u)
		for _, r := range svc.ListRooms(u) {
			require.True(t, r.RoomID.Contains(u))
		}
	}
	require.Equal(t, 3, svc.UnreadTotal("amy"))
}
