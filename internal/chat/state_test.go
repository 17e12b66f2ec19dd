package chat

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestState_JoinWithoutSendsLeavesCounterAtZero(t *testing.T) {
	s := NewState()
	id := Resolve("amy", "bob")
	history := s.Join(id, "amy")
	require.Empty(t, history)
	require.Equal(t, 0, s.CountFor(id, "amy"))
	require.Equal(t, []RoomID{"amy-bob"}, s.Rooms())
}

func TestState_PostCountsForReceiver(t *testing.T) {
	s := NewState()
	id := Resolve("amy", "bob")
	s.Join(id, "amy")

	const n = 5
	for i := 0; i < n; i++ {
		require.NoError(t, s.Post(id, msg("amy", fmt.Sprint(i))))
	}
	require.Equal(t, n, s.CountFor(id, "bob"))
	require.Equal(t, 0, s.CountFor(id, "amy"))
	require.Len(t, s.History(id), n)

	history := s.Join(id, "bob")
	require.Len(t, history, n)
	for i, m := range history {
		require.Equal(t, UserID("amy"), m.Sender)
		require.JSONEq(t, fmt.Sprintf("%q", fmt.Sprint(i)), string(m.Payload))
	}
	require.Equal(t, 0, s.CountFor(id, "bob"))
}

func TestState_PostRejectsUnknownRoomAndStranger(t *testing.T) {
	s := NewState()
	id := Resolve("amy", "bob")
	require.ErrorIs(t, s.Post(id, msg("amy", "hi")), ErrUnknownRoom)

	s.Join(id, "amy")
	require.ErrorIs(t, s.Post(id, msg("carol", "hi")), ErrNotParticipant)
	require.Empty(t, s.History(id))
	require.Equal(t, 0, s.TotalFor("bob"))
}

func TestState_ConcurrentPostsKeepCountersInStep(t *testing.T) {
	s := NewState()
	id := Resolve("amy", "bob")
	s.Join(id, "amy")
	s.Join(id, "bob")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.Post(id, msg("amy", "a"))
		}()
		go func() {
			defer wg.Done()
			_ = s.Post(id, msg("bob", "b"))
		}()
	}
	wg.Wait()

	require.Len(t, s.History(id), 100)
	require.Equal(t, 50, s.CountFor(id, "amy"))
	require.Equal(t, 50, s.CountFor(id, "bob"))
}

func TestState_VersionAdvancesOnMutation(t *testing.T) {
	s := NewState()
	v0 := s.Version()
	s.Join("amy-bob", "amy")
	require.Greater(t, s.Version(), v0)
	v1 := s.Version()
	_ = s.CountFor("amy-bob", "amy")
	require.Equal(t, v1, s.Version())
}

func TestState_SnapshotIsDetached(t *testing.T) {
	s := NewState()
	id := Resolve("amy", "bob")
	s.Join(id, "amy")
	require.NoError(t, s.Post(id, msg("amy", "hi")))

	snap, _ := s.Snapshot()
	require.NoError(t, s.Post(id, msg("bob", "yo")))

	require.Len(t, snap.Rooms[id].History, 1)
	require.Equal(t, 1, snap.Unread[id]["bob"])
	require.Equal(t, 0, snap.Unread[id]["amy"])
}
