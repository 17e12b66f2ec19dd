//go:generate go run go.uber.org/mock/mockgen -source=storage.go -destination=../mocks/mock_storage.go -package=mocks

package storage

import (
	"context"

	"github.com/fenggwsx/dmrelay/internal/chat"
)

// Store persists whole-state snapshots of the relay.
//
// Load returns an empty snapshot when nothing was saved yet and an error wrapping
// chat.ErrCorruptSnapshot when stored data cannot be decoded. Save replaces any prior
// snapshot atomically.
type Store interface {
	Close() error
	Load(ctx context.Context) (chat.Snapshot, error)
	Save(ctx context.Context, snap chat.Snapshot) error
}
