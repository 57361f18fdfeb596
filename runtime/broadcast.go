package runtime

import (
	"log/slog"
	"time"

	"chat-relay/domain"
	"chat-relay/repositories"
)

// Broadcaster fans one event out to every member of a room: live
// delivery on the member's channel when connected, queued delivery
// otherwise. Chat messages are durably appended to the message log
// first; persistence and delivery are deliberately not transactional
// with each other.
type Broadcaster struct {
	log       *slog.Logger
	directory *Directory
	registry  *Registry
	messages  repositories.IMessageRepository
}

func NewBroadcaster(log *slog.Logger, directory *Directory, registry *Registry,
	messages repositories.IMessageRepository) *Broadcaster {
	return &Broadcaster{
		log:       log,
		directory: directory,
		registry:  registry,
		messages:  messages,
	}
}

// Broadcast persists the message and delivers it to every member of
// its room, the sender included. A failed store append is logged and
// fanout proceeds; a failed delivery never blocks the others.
func (b *Broadcaster) Broadcast(msg domain.ChatMessage) error {
	members, err := b.directory.Members(msg.Room)
	if err != nil {
		return err
	}

	if err := b.messages.StoreMessage(msg); err != nil {
		b.log.Error("Message append failed, delivering anyway", "room", string(msg.Room), "error", err)
	}

	ev := domain.MessageEvent{Message: msg}
	for _, member := range members {
		b.registry.Deliver(member, ev)
	}
	return nil
}

// BroadcastEvent delivers a non-message event to every current member
// of a room, without touching the message log.
func (b *Broadcaster) BroadcastEvent(room domain.RoomID, ev domain.OutboundEvent) error {
	members, err := b.directory.Members(room)
	if err != nil {
		return err
	}
	for _, member := range members {
		b.registry.Deliver(member, ev)
	}
	return nil
}

// System broadcasts a synthetic notification message from the system
// sender into a room.
func (b *Broadcaster) System(room domain.RoomID, content string) error {
	return b.Broadcast(domain.ChatMessage{
		Sender:    domain.SystemSender,
		Room:      room,
		Content:   content,
		Timestamp: time.Now().Unix(),
	})
}
