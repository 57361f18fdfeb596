// Package server exposes the request/response surface and the
// streaming endpoint. Handlers translate HTTP to the same services
// and fanout used by the streaming path.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"chat-relay/auth"
	"chat-relay/dispatch"
	"chat-relay/moderation"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/services"

	"github.com/gorilla/websocket"
)

type Server struct {
	log         *slog.Logger
	authService services.IAuthService
	tokens      auth.TokenService
	registry    *runtime.Registry
	directory   *runtime.Directory
	broadcaster *runtime.Broadcaster
	dispatcher  *dispatch.Dispatcher
	moderator   *moderation.Moderator
	messages    repositories.IMessageRepository
	upgrader    websocket.Upgrader
	authWindow  time.Duration
	shutdown    <-chan struct{}
}

func NewServer(log *slog.Logger, authService services.IAuthService, tokens auth.TokenService,
	registry *runtime.Registry, directory *runtime.Directory, broadcaster *runtime.Broadcaster,
	dispatcher *dispatch.Dispatcher, moderator *moderation.Moderator,
	messages repositories.IMessageRepository,
	authWindow time.Duration, shutdown <-chan struct{}) *Server {
	return &Server{
		log:         log,
		authService: authService,
		tokens:      tokens,
		registry:    registry,
		directory:   directory,
		broadcaster: broadcaster,
		dispatcher:  dispatcher,
		moderator:   moderator,
		messages:    messages,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin policy is handled upstream; the core accepts any.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		authWindow: authWindow,
		shutdown:   shutdown,
	}
}

// Routes wires every endpoint on a fresh mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("GET /auth/check/{name}", s.handleCheckUser)

	mux.HandleFunc("POST /chat/rooms", s.withAuth(s.handleCreateRoom))
	mux.HandleFunc("POST /chat/rooms/{room}/members/{user}", s.withAuth(s.handleAddMember))
	mux.HandleFunc("GET /chat/rooms", s.withAuth(s.handleListRooms))
	mux.HandleFunc("GET /chat/rooms/{room}/messages", s.withAuth(s.handleGetMessages))
	mux.HandleFunc("POST /chat/messages", s.withAuth(s.handlePostMessage))

	mux.HandleFunc("GET /chat/connect", s.handleConnect)

	return mux
}
