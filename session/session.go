// Package session owns one live streaming connection: the credential
// handshake, the catch-up replay, and the event loop that multiplexes
// shutdown, outbound delivery, and inbound frames.
package session

import (
	"fmt"
	"log/slog"
	"time"

	"chat-relay/auth"
	"chat-relay/dispatch"
	"chat-relay/domain"
	"chat-relay/runtime"

	"github.com/gorilla/websocket"
)

// Session drives a single authenticated connection through
// Handshaking, Authenticating, CatchUp, Streaming, and Closing.
type Session struct {
	log        *slog.Logger
	conn       *websocket.Conn
	tokens     auth.TokenService
	registry   *runtime.Registry
	directory  *runtime.Directory
	dispatcher *dispatch.Dispatcher
	authWindow time.Duration
}

func New(log *slog.Logger, conn *websocket.Conn, tokens auth.TokenService,
	registry *runtime.Registry, directory *runtime.Directory,
	dispatcher *dispatch.Dispatcher, authWindow time.Duration) *Session {
	return &Session{
		log:        log,
		conn:       conn,
		tokens:     tokens,
		registry:   registry,
		directory:  directory,
		dispatcher: dispatcher,
		authWindow: authWindow,
	}
}

type inboundFrame struct {
	messageType int
	data        []byte
	err         error
}

// Run owns the connection until it terminates. shutdown is the
// process-wide stop signal; when it closes, the session sends a close
// frame, flips presence back to disconnected, and returns.
func (s *Session) Run(shutdown <-chan struct{}) {
	defer s.conn.Close()

	id, ok := s.authenticate()
	if !ok {
		// Silent reject: close frame, no payload.
		s.writeClose()
		return
	}

	delivery, drained, err := s.registry.Connect(id)
	if err != nil {
		s.log.Warn("Connect rejected", "user", string(id), "error", err)
		s.writeClose()
		return
	}
	defer s.registry.Disconnect(id)

	s.log.Info("User connected", "user", string(id))

	if !s.catchUp(id, drained) {
		s.writeClose()
		return
	}

	s.stream(id, delivery, shutdown)
	s.log.Info("User disconnected", "user", string(id))
}

// authenticate reads the first frame within the handshake window and
// validates the credential it carries. A missing frame, a timeout, a
// bad signature, or an expired claim all reject silently.
func (s *Session) authenticate() (domain.UserID, bool) {
	if err := s.conn.SetReadDeadline(time.Now().Add(s.authWindow)); err != nil {
		return "", false
	}
	_, frame, err := s.conn.ReadMessage()
	if err != nil {
		s.log.Warn("No credential frame received", "error", err)
		return "", false
	}
	if err := s.conn.SetReadDeadline(time.Time{}); err != nil {
		return "", false
	}

	id, err := s.tokens.Validate(string(frame))
	if err != nil {
		s.log.Warn("Credential rejected", "error", err)
		return "", false
	}
	return id, true
}

// catchUp replays, in order: one MemberAdded notice per room the user
// currently belongs to, so a client can rebuild its room list without
// a separate query, then every queued event in original enqueue order.
func (s *Session) catchUp(id domain.UserID, drained []domain.OutboundEvent) bool {
	for _, room := range s.directory.RoomsFor(id) {
		if !s.send(domain.MemberAdded{Room: room, Added: id}) {
			return false
		}
	}
	for _, ev := range drained {
		if !s.send(ev) {
			return false
		}
	}
	return true
}

// stream is the cooperative select loop over the three event sources:
// process shutdown, this session's delivery channel, and inbound
// frames. Each iteration handles exactly one ready event.
func (s *Session) stream(id domain.UserID, delivery <-chan domain.OutboundEvent, shutdown <-chan struct{}) {
	loopDone := make(chan struct{})
	defer close(loopDone)

	frames := make(chan inboundFrame)
	go s.readPump(frames, loopDone)

	for {
		select {
		case <-shutdown:
			s.writeClose()
			return

		case ev := <-delivery:
			// Best effort: a failed write is dropped, the loop continues.
			s.send(ev)

		case frame, ok := <-frames:
			if !ok || frame.err != nil {
				// Close frame or read failure.
				s.writeClose()
				return
			}
			s.handleFrame(id, frame)
		}
	}
}

// readPump feeds inbound frames to the event loop. Control frames are
// consumed by the websocket library; a client close surfaces here as
// a read error.
func (s *Session) readPump(frames chan<- inboundFrame, loopDone <-chan struct{}) {
	for {
		messageType, data, err := s.conn.ReadMessage()
		select {
		case frames <- inboundFrame{messageType: messageType, data: data, err: err}:
		case <-loopDone:
			return
		}
		if err != nil {
			close(frames)
			return
		}
	}
}

// handleFrame decodes one inbound frame and dispatches it. A frame
// that is not text or binary is ignored; an undecodable action is
// logged and dropped with the connection left open.
func (s *Session) handleFrame(id domain.UserID, frame inboundFrame) {
	if frame.messageType != websocket.TextMessage && frame.messageType != websocket.BinaryMessage {
		return
	}
	act, err := domain.DecodeInboundAction(frame.data)
	if err != nil {
		s.log.Error(fmt.Sprintf("Failed to parse action: %v", err), "user", string(id))
		return
	}
	s.dispatcher.Dispatch(id, act)
}

func (s *Session) send(ev domain.OutboundEvent) bool {
	data, err := domain.EncodeOutboundEvent(ev)
	if err != nil {
		s.log.Error("Failed to encode event", "error", err)
		return true
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.log.Warn("Write failed", "error", err)
		return false
	}
	return true
}

// writeClose sends the close frame. Idempotent by construction: a
// second close write fails and is ignored.
func (s *Session) writeClose() {
	_ = s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
