package runtime

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"

	"github.com/samber/lo"
)

// Directory is the room membership source of truth for fanout,
// mirrored write-through to the room store. Mutations update the
// cache under the exclusive lock, then write the store outside it; a
// failed store write reverts the cache so both sides agree again at
// quiescence.
type Directory struct {
	mu    sync.RWMutex
	log   *slog.Logger
	store repositories.IRoomRepository
	rooms map[domain.RoomID][]domain.UserID
}

func NewDirectory(log *slog.Logger, store repositories.IRoomRepository) *Directory {
	return &Directory{
		log:   log,
		store: store,
		rooms: make(map[domain.RoomID][]domain.UserID),
	}
}

// Load warms the cache from the store. Called once at startup, before
// any session is accepted.
func (d *Directory) Load() error {
	memberships, err := d.store.AllMemberships()
	if err != nil {
		return fmt.Errorf("load room memberships: %w", err)
	}
	d.mu.Lock()
	d.rooms = memberships
	d.mu.Unlock()
	return nil
}

// Create registers a new room. The requested member list is filtered
// to registered identities; the creator is always included even when
// omitted. Fails on a duplicate room identity or when the filtered
// list ends up empty. Rooms are never created implicitly by message
// traffic.
func (d *Directory) Create(room domain.RoomID, requested []domain.UserID,
	creator domain.UserID, registered func(domain.UserID) bool) ([]domain.UserID, error) {
	if room == "" || strings.Contains(string(room), ":") {
		return nil, fmt.Errorf("invalid room identity %q", room)
	}

	members := lo.Filter(requested, func(id domain.UserID, _ int) bool {
		return registered(id)
	})
	if !lo.Contains(members, creator) && registered(creator) {
		members = append(members, creator)
	}
	if len(members) == 0 {
		return nil, errors.ErrEmptyMemberList
	}
	members = lo.Uniq(members)

	d.mu.Lock()
	if _, ok := d.rooms[room]; ok {
		d.mu.Unlock()
		return nil, errors.ErrRoomAlreadyExists
	}
	d.rooms[room] = members
	d.mu.Unlock()

	if err := d.store.CreateRoom(room, members); err != nil {
		d.log.Error("Room store write failed, reverting cache", "room", string(room), "error", err)
		d.mu.Lock()
		delete(d.rooms, room)
		d.mu.Unlock()
		return nil, err
	}
	return members, nil
}

// AddMember adds a registered user to an existing room. Duplicate
// membership is a conflict by design, not silently accepted.
func (d *Directory) AddMember(room domain.RoomID, user domain.UserID) error {
	d.mu.Lock()
	members, ok := d.rooms[room]
	if !ok {
		d.mu.Unlock()
		return errors.ErrRoomNotFound
	}
	if lo.Contains(members, user) {
		d.mu.Unlock()
		return errors.ErrAlreadyMember
	}
	d.rooms[room] = append(members, user)
	d.mu.Unlock()

	if err := d.store.AddMember(room, user); err != nil {
		d.log.Error("Membership store write failed, reverting cache", "room", string(room), "user", string(user), "error", err)
		d.mu.Lock()
		// The room may have been removed while the write was in
		// flight; reverting must not resurrect it.
		if current, ok := d.rooms[room]; ok {
			d.rooms[room] = lo.Without(current, user)
		}
		d.mu.Unlock()
		return err
	}
	return nil
}

// RemoveMember removes a user from a room's membership and returns
// how many members remain. The last member leaving removes the room
// itself, cache and store: rooms are never created empty and never
// linger empty.
func (d *Directory) RemoveMember(room domain.RoomID, user domain.UserID) (int, error) {
	d.mu.Lock()
	members, ok := d.rooms[room]
	if !ok {
		d.mu.Unlock()
		return 0, errors.ErrRoomNotFound
	}
	if !lo.Contains(members, user) {
		d.mu.Unlock()
		return 0, errors.ErrUserNotFound
	}
	remaining := lo.Without(members, user)
	if len(remaining) == 0 {
		delete(d.rooms, room)
	} else {
		d.rooms[room] = remaining
	}
	d.mu.Unlock()

	if len(remaining) == 0 {
		if err := d.store.DeleteRoom(room); err != nil {
			d.log.Error("Room store delete failed, reverting cache", "room", string(room), "error", err)
			d.mu.Lock()
			d.rooms[room] = []domain.UserID{user}
			d.mu.Unlock()
			return 0, err
		}
		return 0, nil
	}

	if err := d.store.RemoveMember(room, user); err != nil {
		d.log.Error("Membership store delete failed, reverting cache", "room", string(room), "user", string(user), "error", err)
		d.mu.Lock()
		if current, ok := d.rooms[room]; ok {
			d.rooms[room] = append(current, user)
		}
		d.mu.Unlock()
		return 0, err
	}
	return len(remaining), nil
}

// Members returns a copy of a room's membership in insertion order.
func (d *Directory) Members(room domain.RoomID) ([]domain.UserID, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	members, ok := d.rooms[room]
	if !ok {
		return nil, errors.ErrRoomNotFound
	}
	out := make([]domain.UserID, len(members))
	copy(out, members)
	return out, nil
}

// RoomsFor returns the rooms a user belongs to, sorted so catch-up
// replay is deterministic.
func (d *Directory) RoomsFor(user domain.UserID) []domain.RoomID {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var rooms []domain.RoomID
	for room, members := range d.rooms {
		if lo.Contains(members, user) {
			rooms = append(rooms, room)
		}
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i] < rooms[j] })
	return rooms
}
