// Package runtime owns the shared connection state: user presence,
// room membership, and event fanout. It orchestrates delivery without
// containing business logic or domain rules.
package runtime

import (
	"fmt"
	"log/slog"
	"sync"

	"chat-relay/domain"
	"chat-relay/errors"
)

// presence is the two-state union for one user: connected with a live
// delivery channel, or disconnected with an ordered queue of
// undelivered events. Exactly one state holds at any time and only
// the registry mutates it, under its lock.
type presence struct {
	connected bool
	delivery  chan domain.OutboundEvent
	queue     []domain.OutboundEvent
}

// Registry maps every registered identity to its presence. Reads take
// the shared lock; any mutation (presence transition, queue append)
// takes the exclusive lock for that single mutation only. Channel
// sends are non-blocking, so no lock is ever held across a blocking
// operation.
type Registry struct {
	mu           sync.RWMutex
	log          *slog.Logger
	users        map[domain.UserID]*presence
	deliverySize int
}

func NewRegistry(log *slog.Logger, deliverySize int) *Registry {
	return &Registry{
		log:          log,
		users:        make(map[domain.UserID]*presence),
		deliverySize: deliverySize,
	}
}

// AddUser seeds a disconnected presence for a registered identity.
// Idempotent; an existing entry keeps its state and queue.
func (r *Registry) AddUser(id domain.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		r.users[id] = &presence{}
	}
}

// Knows reports whether the identity is registered.
func (r *Registry) Knows(id domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[id]
	return ok
}

// Connect transitions a user to connected. It enforces the
// single-active-session invariant: a second connect for the same
// identity is rejected. On success the disconnected queue is drained
// and returned for catch-up replay, in original enqueue order.
func (r *Registry) Connect(id domain.UserID) (<-chan domain.OutboundEvent, []domain.OutboundEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.users[id]
	if !ok {
		return nil, nil, errors.ErrUserNotFound
	}
	if entry.connected {
		return nil, nil, errors.ErrAlreadyConnected
	}

	drained := entry.queue
	entry.queue = nil
	entry.delivery = make(chan domain.OutboundEvent, r.deliverySize)
	entry.connected = true
	return entry.delivery, drained, nil
}

// Disconnect transitions a user back to disconnected with an empty
// queue. Events already drained by the session are not requeued.
func (r *Registry) Disconnect(id domain.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.users[id]
	if !ok {
		return
	}
	entry.connected = false
	entry.delivery = nil
	entry.queue = nil
}

// Deliver routes one event to a user: a non-blocking send on the
// delivery channel when connected, an unbounded queue append when
// disconnected. A full channel drops the event; a missing presence is
// logged and skipped. Neither is fatal to the caller.
func (r *Registry) Deliver(id domain.UserID, ev domain.OutboundEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.users[id]
	if !ok {
		r.log.Error(fmt.Sprintf("Presence not found for %s, skipping delivery", id))
		return
	}

	if !entry.connected {
		entry.queue = append(entry.queue, ev)
		return
	}

	select {
	case entry.delivery <- ev:
	default:
		r.log.Warn("Delivery channel full, dropping event", "user", string(id))
	}
}

// PurgeRoom drops every queued event scoped to the given room.
// Queued events are room-scoped and must not surface after leaving.
func (r *Registry) PurgeRoom(id domain.UserID, room domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.users[id]
	if !ok {
		return
	}

	kept := entry.queue[:0]
	for _, ev := range entry.queue {
		if scoped, ok := domain.EventRoom(ev); ok && scoped == room {
			continue
		}
		kept = append(kept, ev)
	}
	entry.queue = kept
}
