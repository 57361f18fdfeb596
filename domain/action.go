package domain

import (
	"encoding/json"
	"fmt"
)

// InboundAction is the closed set of client-to-server actions.
// Each variant carries its own payload; the dispatcher matches the
// union exhaustively.
type InboundAction interface {
	isInboundAction()
}

// SendMessage posts a message to a room. Sender and timestamp are
// assigned server-side from the authenticated session.
type SendMessage struct {
	Room    RoomID `json:"room"`
	Content string `json:"content"`
}

// Report forwards a free-form user report to the report log.
type Report struct {
	Text string `json:"text"`
}

// Leave removes the acting user from a room.
type Leave struct {
	Room RoomID `json:"room"`
}

// AddMember adds another registered user to a room.
type AddMember struct {
	Room RoomID `json:"room"`
	User UserID `json:"user"`
}

// ListUsers requests the full list of registered identities.
type ListUsers struct{}

// TimeIn clocks the acting user in.
type TimeIn struct {
	Note string `json:"note"`
}

// TimeOut clocks the acting user out.
type TimeOut struct {
	Note string `json:"note"`
}

// CheckTime requests the acting user's clocked-in status.
type CheckTime struct{}

func (SendMessage) isInboundAction() {}
func (Report) isInboundAction()      {}
func (Leave) isInboundAction()       {}
func (AddMember) isInboundAction()   {}
func (ListUsers) isInboundAction()   {}
func (TimeIn) isInboundAction()      {}
func (TimeOut) isInboundAction()     {}
func (CheckTime) isInboundAction()   {}

// envelope is the wire representation of both unions:
// a discriminator plus a type-appropriate payload.
type envelope struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// DecodeInboundAction parses a single inbound frame into its typed
// action. Unknown discriminators and malformed payloads are errors;
// the caller decides whether to drop or answer.
func DecodeInboundAction(data []byte) (InboundAction, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode action envelope: %w", err)
	}

	decode := func(v InboundAction) (InboundAction, error) {
		if len(env.Data) == 0 {
			return nil, fmt.Errorf("action %q: missing payload", env.Action)
		}
		if err := json.Unmarshal(env.Data, v); err != nil {
			return nil, fmt.Errorf("action %q: %w", env.Action, err)
		}
		return v, nil
	}

	switch env.Action {
	case "SendMessage":
		act, err := decode(&SendMessage{})
		if err != nil {
			return nil, err
		}
		return *act.(*SendMessage), nil
	case "Report":
		act, err := decode(&Report{})
		if err != nil {
			return nil, err
		}
		return *act.(*Report), nil
	case "Leave":
		act, err := decode(&Leave{})
		if err != nil {
			return nil, err
		}
		return *act.(*Leave), nil
	case "AddMember":
		act, err := decode(&AddMember{})
		if err != nil {
			return nil, err
		}
		return *act.(*AddMember), nil
	case "ListUsers":
		return ListUsers{}, nil
	case "TimeIn":
		act, err := decode(&TimeIn{})
		if err != nil {
			return nil, err
		}
		return *act.(*TimeIn), nil
	case "TimeOut":
		act, err := decode(&TimeOut{})
		if err != nil {
			return nil, err
		}
		return *act.(*TimeOut), nil
	case "CheckTime":
		return CheckTime{}, nil
	default:
		return nil, fmt.Errorf("unknown action %q", env.Action)
	}
}
