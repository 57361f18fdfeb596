package server

import (
	"net/http"

	"chat-relay/session"
)

// handleConnect upgrades the connection and hands it to a session.
// Authentication happens inside the session: the first frame must
// carry the signed credential.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	sess := session.New(s.log, conn, s.tokens, s.registry, s.directory, s.dispatcher, s.authWindow)
	sess.Run(s.shutdown)
}
