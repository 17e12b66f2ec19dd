package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/fenggwsx/dmrelay/internal/chat"
	"github.com/fenggwsx/dmrelay/internal/config"
)

// snapshotKey holds the latest encoded snapshot.
var snapshotKey = []byte("snapshot:current")

// Store keeps the snapshot under a single BadgerDB key.
type Store struct {
	db *badger.DB
}

// NewStore opens (or creates) a BadgerDB directory at the configured path.
func NewStore(cfg config.StoreConfig) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions(cfg.Path).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("badger store: open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load reads the snapshot key. A missing key yields an empty snapshot.
func (s *Store) Load(ctx context.Context) (chat.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return chat.Snapshot{}, err
	}
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(snapshotKey)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return chat.EmptySnapshot(), nil
	}
	if err != nil {
		return chat.Snapshot{}, fmt.Errorf("badger store: read: %w", err)
	}
	return chat.DecodeSnapshot(data)
}

// Save overwrites the snapshot key in one update transaction.
func (s *Store) Save(ctx context.Context, snap chat.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := snap.Encode()
	if err != nil {
		return fmt.Errorf("badger store: encode: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(snapshotKey, data)
	})
}
