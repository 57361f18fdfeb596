// Package dispatch routes decoded inbound actions to their handlers.
// The action union is matched exhaustively; every handler works
// through the explicit Deps set, never through ambient state.
package dispatch

import (
	"fmt"
	"log/slog"
	"time"

	"chat-relay/domain"
	"chat-relay/moderation"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/services"
)

// Deps is the capability set handlers act through: store access,
// presence registry, room directory, fanout, and the side services.
type Deps struct {
	Log         *slog.Logger
	Users       repositories.IUserRepository
	Registry    *runtime.Registry
	Directory   *runtime.Directory
	Broadcaster *runtime.Broadcaster
	Moderator   *moderation.Moderator
	TimeClock   services.ITimeClockService
	Reports     *services.ReportLog
}

type Dispatcher struct {
	deps Deps
}

func NewDispatcher(deps Deps) *Dispatcher {
	return &Dispatcher{deps: deps}
}

// Dispatch handles one action from an authenticated user. Domain
// failures never tear the connection down: the acting user gets a
// best-effort Error event and the loop continues.
func (d *Dispatcher) Dispatch(sender domain.UserID, act domain.InboundAction) {
	switch a := act.(type) {
	case domain.SendMessage:
		d.handleSendMessage(sender, a)
	case domain.Report:
		d.handleReport(sender, a)
	case domain.Leave:
		d.handleLeave(sender, a)
	case domain.AddMember:
		d.handleAddMember(sender, a)
	case domain.ListUsers:
		d.handleListUsers(sender)
	case domain.TimeIn:
		d.failOnError(sender, d.deps.TimeClock.ClockIn(sender, a.Note))
	case domain.TimeOut:
		d.failOnError(sender, d.deps.TimeClock.ClockOut(sender, a.Note))
	case domain.CheckTime:
		d.handleCheckTime(sender)
	default:
		d.deps.Log.Error(fmt.Sprintf("Unhandled action %T from %s", act, sender))
	}
}

func (d *Dispatcher) handleSendMessage(sender domain.UserID, a domain.SendMessage) {
	content := a.Content
	if d.deps.Moderator != nil {
		content = d.deps.Moderator.Censor(content)
	}
	d.failOnError(sender, d.deps.Broadcaster.Broadcast(domain.ChatMessage{
		Sender:    sender,
		Room:      a.Room,
		Content:   content,
		Timestamp: time.Now().Unix(),
	}))
}

func (d *Dispatcher) handleReport(sender domain.UserID, a domain.Report) {
	d.failOnError(sender, d.deps.Reports.Write(sender, a.Text))
}

// handleLeave removes the membership, purges queued events scoped to
// the left room, then notifies the now-reduced room.
func (d *Dispatcher) handleLeave(sender domain.UserID, a domain.Leave) {
	remaining, err := d.deps.Directory.RemoveMember(a.Room, sender)
	if err != nil {
		d.fail(sender, err)
		return
	}
	d.deps.Registry.PurgeRoom(sender, a.Room)

	if remaining == 0 {
		// The last member left; the room is gone, nobody to notify.
		d.deps.Log.Info("Room removed with its last member", "room", string(a.Room), "user", string(sender))
		return
	}

	if err := d.deps.Broadcaster.BroadcastEvent(a.Room, domain.MemberLeft{Room: a.Room, User: sender}); err != nil {
		d.deps.Log.Error("Leave notification failed", "room", string(a.Room), "error", err)
	}
	d.failOnError(sender, d.deps.Broadcaster.System(a.Room, fmt.Sprintf("%s left the room", sender)))
}

func (d *Dispatcher) handleAddMember(sender domain.UserID, a domain.AddMember) {
	if !d.deps.Registry.Knows(a.User) {
		d.fail(sender, fmt.Errorf("user %q not found", a.User))
		return
	}
	if err := d.deps.Directory.AddMember(a.Room, a.User); err != nil {
		d.fail(sender, err)
		return
	}

	// Tell the added user directly so a live client learns its new
	// room without waiting for the next catch-up.
	d.deps.Registry.Deliver(a.User, domain.MemberAdded{Room: a.Room, Added: a.User, Adder: sender})
	d.failOnError(sender, d.deps.Broadcaster.System(a.Room,
		fmt.Sprintf("%s added %s to the room", sender, a.User)))
}

// handleListUsers answers the requester only, never the room.
func (d *Dispatcher) handleListUsers(sender domain.UserID) {
	users, err := d.deps.Users.ListUsers()
	if err != nil {
		d.fail(sender, err)
		return
	}
	d.deps.Registry.Deliver(sender, domain.UserList{Users: users})
}

func (d *Dispatcher) handleCheckTime(sender domain.UserID) {
	timedIn, err := d.deps.TimeClock.Status(sender)
	if err != nil {
		d.fail(sender, err)
		return
	}
	d.deps.Registry.Deliver(sender, domain.TimedInStatus{TimedIn: timedIn})
}

// fail applies the uniform streaming error contract: log, then a
// best-effort Error event to the acting user.
func (d *Dispatcher) fail(sender domain.UserID, err error) {
	d.deps.Log.Warn("Action failed", "user", string(sender), "error", err)
	d.deps.Registry.Deliver(sender, domain.ErrorEvent{Text: err.Error()})
}

func (d *Dispatcher) failOnError(sender domain.UserID, err error) {
	if err != nil {
		d.fail(sender, err)
	}
}
