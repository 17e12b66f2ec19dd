package relay

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fenggwsx/dmrelay/internal/chat"
)

func TestHub_BroadcastReachesRoomOnly(t *testing.T) {
	h := NewHub()
	a, b, other := newConn(), newConn(), newConn()
	h.Register("amy-bob", a)
	h.Register("amy-bob", b)
	h.Register("bob-carol", other)

	h.Broadcast("amy-bob", text("amy", "hi"))

	require.Len(t, a.received(), 1)
	require.Len(t, b.received(), 1)
	require.Empty(t, other.received())
}

func TestHub_UnregisterDropsEmptyRooms(t *testing.T) {
	h := NewHub()
	a := newConn()
	h.Register("amy-bob", a)
	h.Register("amy-bob", a)
	require.Equal(t, 1, h.Members("amy-bob"))

	h.Unregister("amy-bob", a.ID())
	h.Unregister("amy-bob", a.ID())
	require.Equal(t, 0, h.Members("amy-bob"))

	h.Broadcast("amy-bob", chat.Message{Sender: "amy"})
	require.Empty(t, a.received())
}
