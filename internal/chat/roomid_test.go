package chat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolve_IsSymmetric(t *testing.T) {
	pairs := [][2]UserID{
		{"amy", "bob"},
		{"bob", "amy"},
		{"Zed", "alice"},
		{"same", "same"},
		{"a", "ab"},
	}
	for _, p := range pairs {
		require.Equal(t, Resolve(p[0], p[1]), Resolve(p[1], p[0]))
	}
	require.Equal(t, RoomID("amy-bob"), Resolve("bob", "amy"))
}

func TestRoomID_Participants(t *testing.T) {
	id := Resolve("bob", "amy")
	a, b := id.Participants()
	require.Equal(t, UserID("amy"), a)
	require.Equal(t, UserID("bob"), b)
	require.Equal(t, UserID("bob"), id.Peer("amy"))
	require.Equal(t, UserID("amy"), id.Peer("bob"))
	require.True(t, id.Valid())
}

func TestRoomID_ContainsMatchesWholeComponents(t *testing.T) {
	id := Resolve("amy", "bob")
	require.True(t, id.Contains("amy"))
	require.True(t, id.Contains("bob"))
	require.False(t, id.Contains("am"))
	require.False(t, id.Contains("y-b"))
	require.False(t, id.Contains(""))
}

func TestValidateUser(t *testing.T) {
	require.NoError(t, ValidateUser("amy"))
	require.ErrorIs(t, ValidateUser(""), ErrInvalidUser)
	require.ErrorIs(t, ValidateUser("  "), ErrInvalidUser)
	require.ErrorIs(t, ValidateUser("mary-jane"), ErrInvalidUser)
}

func TestRoomID_Valid(t *testing.T) {
	require.False(t, RoomID("amy").Valid())
	require.False(t, RoomID("-bob").Valid())
	require.False(t, RoomID("amy-").Valid())
	require.False(t, RoomID("a-b-c").Valid())
}
