// Package domain contains core concepts of the chat system.
// Messages are immutable and validated by the domain.
// No runtime, network, or UI logic should be added here.
package domain

// UserID identifies a registered user. Equality is case-sensitive
// exact match; it is used as a map key everywhere.
type UserID string

// RoomID identifies a chat room.
type RoomID string

// SystemSender is the sender of synthetic room notifications
// (room created, member added, member left).
const SystemSender UserID = "server"

// ChatMessage represents an immutable chat event.
// It is persisted verbatim and never mutated after creation.
type ChatMessage struct {
	Sender    UserID `json:"sender"`
	Room      RoomID `json:"room"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}
