//go:generate go run go.uber.org/mock/mockgen -source=auth_service.go -destination=../mocks/mock_auth_service.go -package=mocks
package services

import (
	"fmt"

	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
	"chat-relay/runtime"
)

type IAuthService interface {
	Register(identity domain.UserID, password string) (string, error)
	Login(identity domain.UserID, password string) (string, error)
	Exists(identity domain.UserID) bool
}

// AuthService sits at the credential boundary: it owns registration,
// login, and token issuance. A successful registration also seeds a
// disconnected presence so fanout can queue for the new user
// immediately.
type AuthService struct {
	users    repositories.IUserRepository
	registry *runtime.Registry
	tokens   auth.TokenService
}

func NewAuthService(users repositories.IUserRepository, registry *runtime.Registry,
	tokens auth.TokenService) *AuthService {
	return &AuthService{users: users, registry: registry, tokens: tokens}
}

func (s *AuthService) Register(identity domain.UserID, password string) (string, error) {
	req := auth.RegisterRequest{Name: string(identity), Password: password}

	// Business rules first, before any expensive hashing.
	if err := auth.ValidateRegister(req); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidPassword, err)
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing failed: %w", err)
	}

	if err := s.users.CreateUser(identity, hashed); err != nil {
		return "", err // propagates ErrUserAlreadyExists on a taken identity
	}
	s.registry.AddUser(identity)

	token, err := s.tokens.Generate(identity)
	if err != nil {
		return "", errors.ErrTokenGeneration
	}
	return token, nil
}

func (s *AuthService) Login(identity domain.UserID, password string) (string, error) {
	user, err := s.users.GetUser(identity)
	if err != nil {
		// Generic error to prevent user enumeration.
		return "", errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return "", errors.ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(identity)
	if err != nil {
		return "", errors.ErrTokenGeneration
	}
	return token, nil
}

func (s *AuthService) Exists(identity domain.UserID) bool {
	_, err := s.users.GetUser(identity)
	return err == nil
}
