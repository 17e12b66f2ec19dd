package storage

import (
	"fmt"

	"github.com/fenggwsx/dmrelay/internal/config"
	"github.com/fenggwsx/dmrelay/internal/storage/badger"
	"github.com/fenggwsx/dmrelay/internal/storage/file"
	"github.com/fenggwsx/dmrelay/internal/storage/sqlite"
)

// Open returns the store selected by cfg.Backend.
func Open(cfg config.StoreConfig) (Store, error) {
	var (
		store Store
		err   error
	)
	switch cfg.Backend {
	case config.StoreFile, "":
		store, err = openFile(cfg)
	case config.StoreSQLite:
		store, err = openSQLite(cfg)
	case config.StoreBadger:
		store, err = openBadger(cfg)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Backend, err)
	}
	return store, nil
}

func openFile(cfg config.StoreConfig) (Store, error) {
	s, err := file.NewStore(cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openSQLite(cfg config.StoreConfig) (Store, error) {
	s, err := sqlite.NewStore(cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openBadger(cfg config.StoreConfig) (Store, error) {
	s, err := badger.NewStore(cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}
