//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"chat-relay/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IMessageRepository interface {
	StoreMessage(message domain.ChatMessage) error
	GetMessages(room domain.RoomID) ([]domain.ChatMessage, error)
}

// MessageRepository is the append-only message log. Fanout treats a
// failed append as best-effort: the caller logs and keeps delivering.
type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

type storedMessage struct {
	ID      uuid.UUID     `json:"id"`
	Sender  domain.UserID `json:"sender"`
	Room    domain.RoomID `json:"room"`
	Content string        `json:"content"`
	At      int64         `json:"at"`
}

// StoreMessage persists one message. The key is
// "msg:{room}:{timestamp_padded}:{uuid}":
//  1. the 19-digit zero padding makes lexicographic order chronological,
//  2. the UUID disambiguates two messages landing on the same nanosecond.
func (m MessageRepository) StoreMessage(message domain.ChatMessage) error {
	id := uuid.New()
	key := fmt.Sprintf("msg:%s:%019d:%s", message.Room, time.Now().UnixNano(), id)
	data, err := json.Marshal(storedMessage{
		ID:      id,
		Sender:  message.Sender,
		Room:    message.Room,
		Content: message.Content,
		At:      message.Timestamp,
	})
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// GetMessages returns a room's history in chronological order, capped
// at limitMessages when configured.
func (m MessageRepository) GetMessages(room domain.RoomID) ([]domain.ChatMessage, error) {
	var stored []storedMessage
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("msg:%s:", room))
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(stored) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				break
			}
			err := it.Item().Value(func(val []byte) error {
				var msg storedMessage
				if err := json.Unmarshal(val, &msg); err != nil {
					return err
				}
				stored = append(stored, msg)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return lo.Map(stored, func(msg storedMessage, _ int) domain.ChatMessage {
		return domain.ChatMessage{
			Sender:    msg.Sender,
			Room:      msg.Room,
			Content:   msg.Content,
			Timestamp: msg.At,
		}
	}), nil
}
