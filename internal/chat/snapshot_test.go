package chat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// amyBobScenario plays the two-user exchange used across the package tests.
func amyBobScenario(t *testing.T) *State {
	t.Helper()
	s := NewState()
	id := Resolve("amy", "bob")
	s.Join(id, "amy")
	s.Join(id, "bob")
	require.NoError(t, s.Post(id, msg("amy", "hi")))
	require.NoError(t, s.Post(id, msg("bob", "yo")))
	return s
}

func TestSnapshot_RoundTripReproducesState(t *testing.T) {
	s := amyBobScenario(t)
	snap, _ := s.Snapshot()

	data, err := snap.Encode()
	require.NoError(t, err)

	decoded, err := DecodeSnapshot(data)
	require.NoError(t, err)
	require.Equal(t, snap, decoded)

	restored, err := NewStateFromSnapshot(decoded)
	require.NoError(t, err)
	id := Resolve("amy", "bob")
	require.Equal(t, s.History(id), restored.History(id))
	require.Equal(t, 1, restored.CountFor(id, "amy"))
	require.Equal(t, 1, restored.CountFor(id, "bob"))
	require.Equal(t, s.TotalFor("amy"), restored.TotalFor("amy"))
}

func TestSnapshot_ReadsChatHistoryLayout(t *testing.T) {
	data := []byte(`{
		"activeRooms": {"amy-bob": {"history": [{"sender":"amy","payload":{"text":"hi","at":1}}]}, "bob-carol": {}},
		"unreadMessages": {"amy-bob": {"amy": 0, "bob": 1}, "bob-carol": {"bob": 0}}
	}`)
	snap, err := DecodeSnapshot(data)
	require.NoError(t, err)
	require.Len(t, snap.Rooms, 2)
	require.Empty(t, snap.Rooms["bob-carol"].History)
	require.JSONEq(t, `{"text":"hi","at":1}`, string(snap.Rooms["amy-bob"].History[0].Payload))
	require.Equal(t, 1, snap.Unread["amy-bob"]["bob"])
}

func TestDecodeSnapshot_BlankIsEmpty(t *testing.T) {
	for _, in := range []string{"", "  \n"} {
		snap, err := DecodeSnapshot([]byte(in))
		require.NoError(t, err)
		require.Empty(t, snap.Rooms)
		require.NotNil(t, snap.Unread)
	}
}

func TestDecodeSnapshot_Corrupt(t *testing.T) {
	cases := map[string]string{
		"truncated":        `{"activeRooms": {`,
		"wrong type":       `{"activeRooms": []}`,
		"malformed room":   `{"activeRooms": {"amy": {}}}`,
		"missing sender":   `{"activeRooms": {"amy-bob": {"history": [{"payload":"hi"}]}}}`,
		"negative counter": `{"unreadMessages": {"amy-bob": {"amy": -1}}}`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeSnapshot([]byte(in))
			require.ErrorIs(t, err, ErrCorruptSnapshot)
		})
	}
}

func TestNewStateFromSnapshot_UnreadOnlyRoomIsRegistered(t *testing.T) {
	snap := EmptySnapshot()
	snap.Unread["amy-bob"] = map[UserID]int{"amy": 2}
	s, err := NewStateFromSnapshot(snap)
	require.NoError(t, err)
	require.Equal(t, []RoomID{"amy-bob"}, s.Rooms())
	require.Equal(t, 2, s.TotalFor("amy"))
}
