package server

import (
	"net/http"
	"strings"

	"chat-relay/domain"
)

type authedHandler func(w http.ResponseWriter, r *http.Request, id domain.UserID)

const bearerPrefix = "Bearer "

// withAuth validates the bearer credential and passes the claimed
// identity to the handler. The identity must also still exist in the
// registry; a valid token for a purged user is unauthorized.
func (s *Server) withAuth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			http.Error(w, "missing credential", http.StatusUnauthorized)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
		if token == "" {
			http.Error(w, "missing credential", http.StatusUnauthorized)
			return
		}

		id, err := s.tokens.Validate(token)
		if err != nil {
			http.Error(w, "invalid credential", http.StatusUnauthorized)
			return
		}
		if !s.registry.Knows(id) {
			http.Error(w, "unknown identity", http.StatusUnauthorized)
			return
		}
		next(w, r, id)
	}
}
