package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fenggwsx/dmrelay/internal/chat"
	"github.com/fenggwsx/dmrelay/internal/config"
)

func TestOpen_EveryBackendRoundTrips(t *testing.T) {
	backends := map[string]string{
		config.StoreFile:   "chatHistory.json",
		config.StoreSQLite: "relay.db",
		config.StoreBadger: "badger",
	}
	for backend, name := range backends {
		t.Run(backend, func(t *testing.T) {
			store, err := Open(config.StoreConfig{Backend: backend, Path: filepath.Join(t.TempDir(), name)})
			require.NoError(t, err)
			defer store.Close()

			state := chat.NewState()
			id := chat.Resolve("amy", "bob")
			state.Join(id, "amy")
			state.Join(id, "bob")
			require.NoError(t, state.Post(id, chat.Message{Sender: "amy", Payload: []byte(`"hi"`)}))
			require.NoError(t, state.Post(id, chat.Message{Sender: "bob", Payload: []byte(`"yo"`)}))

			snap, _ := state.Snapshot()
			require.NoError(t, store.Save(context.Background(), snap))

			loaded, err := store.Load(context.Background())
			require.NoError(t, err)
			restored, err := chat.NewStateFromSnapshot(loaded)
			require.NoError(t, err)
			require.Equal(t, state.History(id), restored.History(id))
			require.Equal(t, 1, restored.CountFor(id, "amy"))
			require.Equal(t, 1, restored.CountFor(id, "bob"))
		})
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(config.StoreConfig{Backend: "postgres", Path: "x"})
	require.Error(t, err)
}
