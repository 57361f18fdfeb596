package runtime

import (
	"fmt"
	"log/slog"
	"testing"

	"chat-relay/domain"
	"chat-relay/errors"

	"github.com/stretchr/testify/require"
)

// roomStoreStub records membership writes and can be told to fail,
// to exercise the cache revert path.
type roomStoreStub struct {
	created map[domain.RoomID][]domain.UserID
	fail    bool
	addHook func() error
}

func newRoomStoreStub() *roomStoreStub {
	return &roomStoreStub{created: make(map[domain.RoomID][]domain.UserID)}
}

func (s *roomStoreStub) CreateRoom(room domain.RoomID, members []domain.UserID) error {
	if s.fail {
		return fmt.Errorf("store unavailable")
	}
	s.created[room] = append([]domain.UserID(nil), members...)
	return nil
}

func (s *roomStoreStub) DeleteRoom(room domain.RoomID) error {
	delete(s.created, room)
	return nil
}

func (s *roomStoreStub) AddMember(room domain.RoomID, user domain.UserID) error {
	if s.addHook != nil {
		return s.addHook()
	}
	if s.fail {
		return fmt.Errorf("store unavailable")
	}
	s.created[room] = append(s.created[room], user)
	return nil
}

func (s *roomStoreStub) RemoveMember(room domain.RoomID, user domain.UserID) error {
	if s.fail {
		return fmt.Errorf("store unavailable")
	}
	kept := s.created[room][:0]
	for _, member := range s.created[room] {
		if member != user {
			kept = append(kept, member)
		}
	}
	s.created[room] = kept
	return nil
}

func (s *roomStoreStub) AllMemberships() (map[domain.RoomID][]domain.UserID, error) {
	return s.created, nil
}

func allRegistered(domain.UserID) bool { return true }

func Test_Create_Filters_To_Registered_Users_And_Includes_Creator(t *testing.T) {
	req := require.New(t)
	store := newRoomStoreStub()
	directory := NewDirectory(slog.Default(), store)

	registered := func(id domain.UserID) bool { return id == "alice" || id == "bob" }

	members, err := directory.Create("lobby", []domain.UserID{"bob", "ghost"}, "alice", registered)
	req.NoError(err)
	req.ElementsMatch([]domain.UserID{"alice", "bob"}, members)
	req.ElementsMatch([]domain.UserID{"alice", "bob"}, store.created["lobby"])
}

func Test_Create_Fails_When_No_Member_Is_Registered(t *testing.T) {
	req := require.New(t)
	directory := NewDirectory(slog.Default(), newRoomStoreStub())

	nobody := func(domain.UserID) bool { return false }
	_, err := directory.Create("lobby", []domain.UserID{"ghost"}, "phantom", nobody)
	req.ErrorIs(err, errors.ErrEmptyMemberList)
}

func Test_Create_Rejects_Duplicate_Room(t *testing.T) {
	req := require.New(t)
	directory := NewDirectory(slog.Default(), newRoomStoreStub())

	_, err := directory.Create("lobby", nil, "alice", allRegistered)
	req.NoError(err)
	_, err = directory.Create("lobby", nil, "bob", allRegistered)
	req.ErrorIs(err, errors.ErrRoomAlreadyExists)
}

func Test_Create_Rejects_Invalid_Room_Identity(t *testing.T) {
	req := require.New(t)
	directory := NewDirectory(slog.Default(), newRoomStoreStub())

	_, err := directory.Create("", nil, "alice", allRegistered)
	req.Error(err)
	_, err = directory.Create("bad:name", nil, "alice", allRegistered)
	req.Error(err)
}

func Test_Create_Reverts_Cache_On_Store_Failure(t *testing.T) {
	req := require.New(t)
	store := newRoomStoreStub()
	store.fail = true
	directory := NewDirectory(slog.Default(), store)

	_, err := directory.Create("lobby", nil, "alice", allRegistered)
	req.Error(err)

	// The failed room does not exist in the cache either.
	_, err = directory.Members("lobby")
	req.ErrorIs(err, errors.ErrRoomNotFound)
}

func Test_Add_Member_Twice_Is_A_Conflict(t *testing.T) {
	req := require.New(t)
	directory := NewDirectory(slog.Default(), newRoomStoreStub())

	_, err := directory.Create("lobby", nil, "alice", allRegistered)
	req.NoError(err)

	req.NoError(directory.AddMember("lobby", "bob"))
	req.ErrorIs(directory.AddMember("lobby", "bob"), errors.ErrAlreadyMember)
}

func Test_Add_Member_Reverts_Cache_On_Store_Failure(t *testing.T) {
	req := require.New(t)
	store := newRoomStoreStub()
	directory := NewDirectory(slog.Default(), store)

	_, err := directory.Create("lobby", nil, "alice", allRegistered)
	req.NoError(err)

	store.fail = true
	req.Error(directory.AddMember("lobby", "bob"))

	members, err := directory.Members("lobby")
	req.NoError(err)
	req.ElementsMatch([]domain.UserID{"alice"}, members)
}

func Test_Remove_Member_Requires_Membership(t *testing.T) {
	req := require.New(t)
	directory := NewDirectory(slog.Default(), newRoomStoreStub())

	_, err := directory.Create("lobby", nil, "alice", allRegistered)
	req.NoError(err)

	_, err = directory.RemoveMember("lobby", "bob")
	req.ErrorIs(err, errors.ErrUserNotFound)
	_, err = directory.RemoveMember("ghost", "alice")
	req.ErrorIs(err, errors.ErrRoomNotFound)

	remaining, err := directory.RemoveMember("lobby", "alice")
	req.NoError(err)
	req.Zero(remaining)
}

func Test_Last_Member_Leaving_Removes_The_Room(t *testing.T) {
	req := require.New(t)
	store := newRoomStoreStub()
	directory := NewDirectory(slog.Default(), store)

	_, err := directory.Create("lobby", []domain.UserID{"bob"}, "alice", allRegistered)
	req.NoError(err)

	remaining, err := directory.RemoveMember("lobby", "bob")
	req.NoError(err)
	req.Equal(1, remaining)

	remaining, err = directory.RemoveMember("lobby", "alice")
	req.NoError(err)
	req.Zero(remaining)

	// Cache and store both dropped the room.
	_, err = directory.Members("lobby")
	req.ErrorIs(err, errors.ErrRoomNotFound)
	req.NotContains(store.created, domain.RoomID("lobby"))
}

func Test_Add_Member_Revert_Does_Not_Resurrect_A_Removed_Room(t *testing.T) {
	req := require.New(t)
	store := newRoomStoreStub()
	directory := NewDirectory(slog.Default(), store)

	_, err := directory.Create("lobby", nil, "alice", allRegistered)
	req.NoError(err)

	// The room disappears from the cache while the membership write
	// is in flight, and the write itself fails.
	store.addHook = func() error {
		directory.mu.Lock()
		delete(directory.rooms, "lobby")
		directory.mu.Unlock()
		return fmt.Errorf("store unavailable")
	}
	req.Error(directory.AddMember("lobby", "bob"))

	// The revert must not re-create the entry.
	_, err = directory.Members("lobby")
	req.ErrorIs(err, errors.ErrRoomNotFound)
}

func Test_RoomsFor_Is_Sorted(t *testing.T) {
	req := require.New(t)
	directory := NewDirectory(slog.Default(), newRoomStoreStub())

	for _, room := range []domain.RoomID{"zulu", "alpha", "mike"} {
		_, err := directory.Create(room, nil, "alice", allRegistered)
		req.NoError(err)
	}

	req.Equal([]domain.RoomID{"alpha", "mike", "zulu"}, directory.RoomsFor("alice"))
}

func Test_Load_Warms_The_Cache(t *testing.T) {
	req := require.New(t)
	store := newRoomStoreStub()
	store.created["lobby"] = []domain.UserID{"alice", "bob"}
	directory := NewDirectory(slog.Default(), store)

	req.NoError(directory.Load())

	members, err := directory.Members("lobby")
	req.NoError(err)
	req.ElementsMatch([]domain.UserID{"alice", "bob"}, members)
}
