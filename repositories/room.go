//go:generate go run go.uber.org/mock/mockgen -source=room.go -destination=../mocks/mock_room_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	goerrors "errors"
	"fmt"
	"strings"
	"time"

	"chat-relay/domain"
	"chat-relay/errors"

	"github.com/dgraph-io/badger/v4"
)

type IRoomRepository interface {
	CreateRoom(room domain.RoomID, members []domain.UserID) error
	DeleteRoom(room domain.RoomID) error
	AddMember(room domain.RoomID, user domain.UserID) error
	RemoveMember(room domain.RoomID, user domain.UserID) error
	AllMemberships() (map[domain.RoomID][]domain.UserID, error)
}

// Room is the stored room row. Membership rows are stored separately
// under "member:{room}:{user}" so adds and removals are single-key
// writes.
type Room struct {
	Identity  domain.RoomID `json:"identity"`
	CreatedAt time.Time     `json:"created_at"`
}

type RoomRepository struct {
	db *badger.DB
}

func NewRoomRepository(db *badger.DB) RoomRepository {
	return RoomRepository{db: db}
}

func roomKey(room domain.RoomID) []byte {
	return []byte("room:" + string(room))
}

func memberKey(room domain.RoomID, user domain.UserID) []byte {
	return []byte("member:" + string(room) + ":" + string(user))
}

// CreateRoom persists the room row and one membership row per initial
// member in a single transaction.
func (r RoomRepository) CreateRoom(room domain.RoomID, members []domain.UserID) error {
	data, err := json.Marshal(Room{Identity: room, CreatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}

	return r.db.Update(func(txn *badger.Txn) error {
		key := roomKey(room)
		if _, err := txn.Get(key); err == nil {
			return errors.ErrRoomAlreadyExists
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}
		for _, member := range members {
			if err := txn.Set(memberKey(room, member), nil); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteRoom removes the room row and all its membership rows.
func (r RoomRepository) DeleteRoom(room domain.RoomID) error {
	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(roomKey(room)); err != nil {
			return err
		}
		prefix := []byte("member:" + string(room) + ":")
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)

		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r RoomRepository) AddMember(room domain.RoomID, user domain.UserID) error {
	return r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(roomKey(room)); err != nil {
			if goerrors.Is(err, badger.ErrKeyNotFound) {
				return errors.ErrRoomNotFound
			}
			return err
		}
		return txn.Set(memberKey(room, user), nil)
	})
}

func (r RoomRepository) RemoveMember(room domain.RoomID, user domain.UserID) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(memberKey(room, user))
	})
}

// AllMemberships loads the full membership table, used to warm the
// room directory at startup.
func (r RoomRepository) AllMemberships() (map[domain.RoomID][]domain.UserID, error) {
	memberships := make(map[domain.RoomID][]domain.UserID)
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		roomPrefix := []byte("room:")
		for it.Seek(roomPrefix); it.ValidForPrefix(roomPrefix); it.Next() {
			room := domain.RoomID(it.Item().Key()[len(roomPrefix):])
			memberships[room] = nil
		}

		memberPrefix := []byte("member:")
		for it.Seek(memberPrefix); it.ValidForPrefix(memberPrefix); it.Next() {
			rest := string(it.Item().Key()[len(memberPrefix):])
			// Room identities cannot contain ':'; the remainder is the user.
			idx := strings.Index(rest, ":")
			if idx < 0 {
				continue
			}
			room := domain.RoomID(rest[:idx])
			memberships[room] = append(memberships[room], domain.UserID(rest[idx+1:]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return memberships, nil
}
