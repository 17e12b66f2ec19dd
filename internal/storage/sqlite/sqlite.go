package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fenggwsx/dmrelay/internal/chat"
	"github.com/fenggwsx/dmrelay/internal/config"
)

// Store is a GORM-backed SQLite implementation of storage.Store.
type Store struct {
	db *gorm.DB
}

type roomModel struct {
	ID string `gorm:"primaryKey"`
}

func (roomModel) TableName() string { return "rooms" }

type messageModel struct {
	ID      uint   `gorm:"primaryKey"`
	RoomID  string `gorm:"index:idx_messages_room_seq,priority:1"`
	Seq     int    `gorm:"index:idx_messages_room_seq,priority:2"`
	Sender  string
	Payload string
}

func (messageModel) TableName() string { return "messages" }

type unreadModel struct {
	RoomID string `gorm:"primaryKey"`
	UserID string `gorm:"primaryKey"`
	Count  int
}

func (unreadModel) TableName() string { return "unread_counters" }

// NewStore opens a SQLite database at the provided path and applies the schema.
func NewStore(cfg config.StoreConfig) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate applies schema updates.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&roomModel{}, &messageModel{}, &unreadModel{})
}

// Load assembles a snapshot from the stored rows.
func (s *Store) Load(ctx context.Context) (chat.Snapshot, error) {
	db := s.db.WithContext(ctx)

	var rooms []roomModel
	if err := db.Order("id").Find(&rooms).Error; err != nil {
		return chat.Snapshot{}, fmt.Errorf("sqlite store: rooms: %w", err)
	}
	var messages []messageModel
	if err := db.Order("room_id").Order("seq").Find(&messages).Error; err != nil {
		return chat.Snapshot{}, fmt.Errorf("sqlite store: messages: %w", err)
	}
	var counters []unreadModel
	if err := db.Find(&counters).Error; err != nil {
		return chat.Snapshot{}, fmt.Errorf("sqlite store: unread: %w", err)
	}

	snap := chat.EmptySnapshot()
	for _, r := range rooms {
		snap.Rooms[chat.RoomID(r.ID)] = chat.RoomRecord{}
	}
	for _, m := range messages {
		id := chat.RoomID(m.RoomID)
		rec, ok := snap.Rooms[id]
		if !ok {
			return chat.Snapshot{}, fmt.Errorf("%w: message %d references missing room %s", chat.ErrCorruptSnapshot, m.ID, id)
		}
		msg := chat.Message{Sender: chat.UserID(m.Sender)}
		if m.Payload != "" {
			if !json.Valid([]byte(m.Payload)) {
				return chat.Snapshot{}, fmt.Errorf("%w: message %d payload is not JSON", chat.ErrCorruptSnapshot, m.ID)
			}
			msg.Payload = json.RawMessage(m.Payload)
		}
		rec.History = append(rec.History, msg)
		snap.Rooms[id] = rec
	}
	for _, c := range counters {
		id := chat.RoomID(c.RoomID)
		users, ok := snap.Unread[id]
		if !ok {
			users = make(map[chat.UserID]int)
			snap.Unread[id] = users
		}
		users[chat.UserID(c.UserID)] = c.Count
	}

	if err := snap.Validate(); err != nil {
		return chat.Snapshot{}, err
	}
	return snap, nil
}

// Save replaces every stored row with the snapshot in a single transaction.
func (s *Store) Save(ctx context.Context, snap chat.Snapshot) error {
	rooms := make([]roomModel, 0, len(snap.Rooms))
	messages := make([]messageModel, 0)
	for id, rec := range snap.Rooms {
		rooms = append(rooms, roomModel{ID: string(id)})
		for i, msg := range rec.History {
			messages = append(messages, messageModel{
				RoomID:  string(id),
				Seq:     i,
				Sender:  string(msg.Sender),
				Payload: string(msg.Payload),
			})
		}
	}
	counters := make([]unreadModel, 0)
	for id, users := range snap.Unread {
		for u, n := range users {
			counters = append(counters, unreadModel{RoomID: string(id), UserID: string(u), Count: n})
		}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range []string{"messages", "unread_counters", "rooms"} {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("sqlite store: clear %s: %w", table, err)
			}
		}
		if len(rooms) > 0 {
			if err := tx.CreateInBatches(&rooms, 200).Error; err != nil {
				return fmt.Errorf("sqlite store: rooms: %w", err)
			}
		}
		if len(messages) > 0 {
			if err := tx.CreateInBatches(&messages, 200).Error; err != nil {
				return fmt.Errorf("sqlite store: messages: %w", err)
			}
		}
		if len(counters) > 0 {
			if err := tx.CreateInBatches(&counters, 200).Error; err != nil {
				return fmt.Errorf("sqlite store: unread: %w", err)
			}
		}
		return nil
	})
}
