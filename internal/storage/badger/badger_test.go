package badger

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"github.com/fenggwsx/dmrelay/internal/chat"
	"github.com/fenggwsx/dmrelay/internal/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(config.StoreConfig{Backend: config.StoreBadger, Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_LoadMissingKeyIsEmpty(t *testing.T) {
	store := newTestStore(t)
	snap, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, snap.Rooms)
}

func TestStore_SaveThenLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	want := chat.EmptySnapshot()
	want.Rooms["amy-bob"] = chat.RoomRecord{History: []chat.Message{
		{Sender: "amy", Payload: json.RawMessage(`"hi"`)},
		{Sender: "bob", Payload: json.RawMessage(`"yo"`)},
	}}
	want.Unread["amy-bob"] = map[chat.UserID]int{"amy": 1, "bob": 1}

	require.NoError(t, store.Save(ctx, want))
	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestStore_LoadCorrupt(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.db.Update(func(txn *badger.Txn) error {
		return txn.Set(snapshotKey, []byte("not json"))
	}))
	_, err := store.Load(context.Background())
	require.ErrorIs(t, err, chat.ErrCorruptSnapshot)
}
