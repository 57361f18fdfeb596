package server

import (
	"encoding/json"
	goerrors "errors"
	"fmt"
	"net/http"
	"time"

	"chat-relay/domain"
	"chat-relay/errors"

	"github.com/samber/lo"
)

type credentialsRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type createRoomRequest struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

type postMessageRequest struct {
	Room    string `json:"room"`
	Content string `json:"content"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request", http.StatusBadRequest)
		return
	}

	token, err := s.authService.Register(domain.UserID(req.Name), req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, tokenResponse{Token: token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request", http.StatusBadRequest)
		return
	}

	token, err := s.authService.Login(domain.UserID(req.Name), req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, tokenResponse{Token: token})
}

func (s *Server) handleCheckUser(w http.ResponseWriter, r *http.Request) {
	if !s.authService.Exists(domain.UserID(r.PathValue("name"))) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request, id domain.UserID) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request", http.StatusBadRequest)
		return
	}

	requested := make([]domain.UserID, 0, len(req.Members))
	for _, member := range req.Members {
		requested = append(requested, domain.UserID(member))
	}

	members, err := s.directory.Create(domain.RoomID(req.Name), requested, id, s.registry.Knows)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.broadcaster.System(domain.RoomID(req.Name), fmt.Sprintf("%s created the room", id)); err != nil {
		s.log.Error("Room creation notice failed", "room", req.Name, "error", err)
	}

	s.writeJSON(w, map[string]any{"name": req.Name, "members": members})
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request, id domain.UserID) {
	room := domain.RoomID(r.PathValue("room"))
	user := domain.UserID(r.PathValue("user"))

	if !s.registry.Knows(user) {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	if err := s.directory.AddMember(room, user); err != nil {
		s.writeError(w, err)
		return
	}

	s.registry.Deliver(user, domain.MemberAdded{Room: room, Added: user, Adder: id})
	if err := s.broadcaster.System(room, fmt.Sprintf("%s added %s to the room", id, user)); err != nil {
		s.log.Error("Add notice failed", "room", string(room), "error", err)
	}
	w.WriteHeader(http.StatusOK)
}

// handleGetMessages serves a room's history to its members only.
func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request, id domain.UserID) {
	room := domain.RoomID(r.PathValue("room"))

	members, err := s.directory.Members(room)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !lo.Contains(members, id) {
		// Non-members learn nothing, not even that the room exists.
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	messages, err := s.messages.GetMessages(room)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if messages == nil {
		messages = []domain.ChatMessage{}
	}
	s.writeJSON(w, messages)
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request, id domain.UserID) {
	rooms := s.directory.RoomsFor(id)
	names := make([]string, 0, len(rooms))
	for _, room := range rooms {
		names = append(names, string(room))
	}
	s.writeJSON(w, names)
}

// handlePostMessage is the synchronous path into the same fanout used
// by the streaming path.
func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request, id domain.UserID) {
	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request", http.StatusBadRequest)
		return
	}

	content := req.Content
	if s.moderator != nil {
		content = s.moderator.Censor(content)
	}

	err := s.broadcaster.Broadcast(domain.ChatMessage{
		Sender:    id,
		Room:      domain.RoomID(req.Room),
		Content:   content,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("Response encoding failed", "error", err)
	}
}

// writeError maps domain errors onto the HTTP status contract.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case goerrors.Is(err, errors.ErrUserAlreadyExists),
		goerrors.Is(err, errors.ErrRoomAlreadyExists),
		goerrors.Is(err, errors.ErrAlreadyMember):
		status = http.StatusConflict
	case goerrors.Is(err, errors.ErrUserNotFound),
		goerrors.Is(err, errors.ErrRoomNotFound),
		goerrors.Is(err, errors.ErrEmptyMemberList):
		status = http.StatusNotFound
	case goerrors.Is(err, errors.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case goerrors.Is(err, errors.ErrInvalidPassword):
		status = http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
	}
	http.Error(w, err.Error(), status)
}
