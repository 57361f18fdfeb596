package domain

import (
	"encoding/json"
	"fmt"
)

// OutboundEvent is the closed set of server-to-client events. Events
// are delivered live on a session's channel or queued while the user
// is disconnected.
type OutboundEvent interface {
	isOutboundEvent()
}

// MessageEvent delivers a chat message to a room member.
type MessageEvent struct {
	Message ChatMessage
}

// MemberAdded notifies that a user joined a room. Adder is empty for
// the synthetic notices replayed during catch-up.
type MemberAdded struct {
	Room  RoomID `json:"room"`
	Added UserID `json:"added"`
	Adder UserID `json:"adder,omitempty"`
}

// MemberLeft notifies that a user left a room.
type MemberLeft struct {
	Room RoomID `json:"room"`
	User UserID `json:"user"`
}

// UserList carries all registered identities, sent to the requester only.
type UserList struct {
	Users []UserID
}

// TimedInStatus answers a CheckTime action.
type TimedInStatus struct {
	TimedIn bool
}

// ErrorEvent reports a failed action back to the acting user.
type ErrorEvent struct {
	Text string
}

func (MessageEvent) isOutboundEvent()  {}
func (MemberAdded) isOutboundEvent()   {}
func (MemberLeft) isOutboundEvent()    {}
func (UserList) isOutboundEvent()      {}
func (TimedInStatus) isOutboundEvent() {}
func (ErrorEvent) isOutboundEvent()    {}

// EventRoom reports the room an event is scoped to. Queued events for
// a room must not survive the user leaving it, so the offline queue is
// purged by this scope. Roomless events (UserList, TimedInStatus,
// Error) are never purged.
func EventRoom(ev OutboundEvent) (RoomID, bool) {
	switch e := ev.(type) {
	case MessageEvent:
		return e.Message.Room, true
	case MemberAdded:
		return e.Room, true
	case MemberLeft:
		return e.Room, true
	default:
		return "", false
	}
}

// EncodeOutboundEvent serializes an event into the wire envelope.
func EncodeOutboundEvent(ev OutboundEvent) ([]byte, error) {
	var name string
	var payload any
	switch e := ev.(type) {
	case MessageEvent:
		name, payload = "Message", e.Message
	case MemberAdded:
		name, payload = "MemberAdded", e
	case MemberLeft:
		name, payload = "MemberLeft", e
	case UserList:
		name, payload = "UserList", e.Users
	case TimedInStatus:
		name, payload = "TimedInStatus", e.TimedIn
	case ErrorEvent:
		name, payload = "Error", e.Text
	default:
		return nil, fmt.Errorf("unknown outbound event %T", ev)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Action: name, Data: data})
}

// DecodeOutboundEvent is the inverse of EncodeOutboundEvent. The
// server only emits events, but test clients and tooling need to read
// them back.
func DecodeOutboundEvent(data []byte) (OutboundEvent, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode event envelope: %w", err)
	}

	switch env.Action {
	case "Message":
		var msg ChatMessage
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return nil, err
		}
		return MessageEvent{Message: msg}, nil
	case "MemberAdded":
		var ev MemberAdded
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case "MemberLeft":
		var ev MemberLeft
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case "UserList":
		var users []UserID
		if err := json.Unmarshal(env.Data, &users); err != nil {
			return nil, err
		}
		return UserList{Users: users}, nil
	case "TimedInStatus":
		var timedIn bool
		if err := json.Unmarshal(env.Data, &timedIn); err != nil {
			return nil, err
		}
		return TimedInStatus{TimedIn: timedIn}, nil
	case "Error":
		var text string
		if err := json.Unmarshal(env.Data, &text); err != nil {
			return nil, err
		}
		return ErrorEvent{Text: text}, nil
	default:
		return nil, fmt.Errorf("unknown event %q", env.Action)
	}
}
