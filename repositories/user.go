//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	goerrors "errors"
	"fmt"
	"time"

	"chat-relay/domain"
	"chat-relay/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

type IUserRepository interface {
	CreateUser(identity domain.UserID, passwordHash string) error
	GetUser(identity domain.UserID) (User, error)
	ListUsers() ([]domain.UserID, error)
}

// User is the stored representation of a registered identity. The
// password hash is opaque here; only the auth package interprets it.
type User struct {
	Identity     domain.UserID `json:"identity"`
	PasswordHash string        `json:"password_hash"`
	CreatedAt    time.Time     `json:"created_at"`
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) UserRepository {
	return UserRepository{db: db}
}

func userKey(identity domain.UserID) []byte {
	return []byte("user:" + string(identity))
}

// CreateUser persists a new user. Registration of an existing
// identity is a conflict, never an overwrite.
func (u UserRepository) CreateUser(identity domain.UserID, passwordHash string) error {
	data, err := json.Marshal(User{
		Identity:     identity,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}

	return u.db.Update(func(txn *badger.Txn) error {
		key := userKey(identity)
		if _, err := txn.Get(key); err == nil {
			return errors.ErrUserAlreadyExists
		}
		return txn.Set(key, data)
	})
}

func (u UserRepository) GetUser(identity domain.UserID) (User, error) {
	var user User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(identity))
		if err != nil {
			if goerrors.Is(err, badger.ErrKeyNotFound) {
				return errors.ErrUserNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &user)
		})
	})
	return user, err
}

// ListUsers returns every registered identity via a prefix scan.
// Keys only, values are never touched.
func (u UserRepository) ListUsers() ([]domain.UserID, error) {
	var keys []string
	err := u.db.View(func(txn *badger.Txn) error {
		prefix := []byte("user:")
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(keys, func(k string, _ int) domain.UserID {
		return domain.UserID(k)
	}), nil
}
