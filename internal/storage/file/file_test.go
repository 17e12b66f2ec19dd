package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fenggwsx/dmrelay/internal/chat"
	"github.com/fenggwsx/dmrelay/internal/config"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "chatHistory.json")
	store, err := NewStore(config.StoreConfig{Backend: config.StoreFile, Path: path})
	require.NoError(t, err)
	return store, path
}

func sampleSnapshot() chat.Snapshot {
	snap := chat.EmptySnapshot()
	snap.Rooms["amy-bob"] = chat.RoomRecord{History: []chat.Message{
		{Sender: "amy", Payload: json.RawMessage(`"hi"`)},
		{Sender: "bob", Payload: json.RawMessage(`{"text":"yo"}`)},
	}}
	snap.Unread["amy-bob"] = map[chat.UserID]int{"amy": 1, "bob": 1}
	return snap
}

func TestStore_LoadMissingFileIsEmpty(t *testing.T) {
	store, _ := newTestStore(t)
	snap, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, snap.Rooms)
	require.Empty(t, snap.Unread)
}

func TestStore_SaveThenLoad(t *testing.T) {
	store, path := newTestStore(t)
	ctx := context.Background()
	want := sampleSnapshot()

	require.NoError(t, store.Save(ctx, want))
	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, want, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestStore_SaveReplacesPrevious(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, sampleSnapshot()))
	require.NoError(t, store.Save(ctx, chat.EmptySnapshot()))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, got.Rooms)
}

func TestStore_LoadCorrupt(t *testing.T) {
	store, path := newTestStore(t)
	require.NoError(t, os.WriteFile(path, []byte(`{"activeRooms":`), 0o644))
	_, err := store.Load(context.Background())
	require.ErrorIs(t, err, chat.ErrCorruptSnapshot)
}
