package services

import (
	"log/slog"
	"testing"
	"time"

	"chat-relay/auth"
	"chat-relay/errors"
	"chat-relay/repositories"
	"chat-relay/runtime"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	options := badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(options)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func authFixture(t *testing.T) (*AuthService, *runtime.Registry, auth.TokenService) {
	t.Helper()
	registry := runtime.NewRegistry(slog.Default(), 16)
	tokens := auth.NewTokenService("test-secret", time.Hour)
	service := NewAuthService(repositories.NewUserRepository(openTestDB(t)), registry, tokens)
	return service, registry, tokens
}

func Test_Register_Issues_A_Valid_Token(t *testing.T) {
	req := require.New(t)
	service, registry, tokens := authFixture(t)

	token, err := service.Register("alice", "Sup3rSecret")
	req.NoError(err)

	identity, err := tokens.Validate(token)
	req.NoError(err)
	req.Equal("alice", string(identity))

	// Registration seeds a presence so fanout can queue immediately.
	req.True(registry.Knows("alice"))
}

func Test_Register_Taken_Identity_Is_A_Conflict(t *testing.T) {
	req := require.New(t)
	service, _, _ := authFixture(t)

	_, err := service.Register("alice", "Sup3rSecret")
	req.NoError(err)

	_, err = service.Register("alice", "An0therSecret")
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func Test_Register_Rejects_Weak_Password(t *testing.T) {
	req := require.New(t)
	service, registry, _ := authFixture(t)

	_, err := service.Register("alice", "weak")
	req.ErrorIs(err, errors.ErrInvalidPassword)
	req.False(registry.Knows("alice"))
}

func Test_Login_With_The_Right_Password(t *testing.T) {
	req := require.New(t)
	service, _, tokens := authFixture(t)

	_, err := service.Register("alice", "Sup3rSecret")
	req.NoError(err)

	token, err := service.Login("alice", "Sup3rSecret")
	req.NoError(err)

	identity, err := tokens.Validate(token)
	req.NoError(err)
	req.Equal("alice", string(identity))
}

func Test_Login_Failures_Are_Indistinguishable(t *testing.T) {
	req := require.New(t)
	service, _, _ := authFixture(t)

	_, err := service.Register("alice", "Sup3rSecret")
	req.NoError(err)

	// Wrong password and unknown user produce the same error.
	_, wrongPassword := service.Login("alice", "NotTheOne1")
	_, unknownUser := service.Login("ghost", "Sup3rSecret")
	req.ErrorIs(wrongPassword, errors.ErrInvalidCredentials)
	req.ErrorIs(unknownUser, errors.ErrInvalidCredentials)
}

func Test_Exists(t *testing.T) {
	req := require.New(t)
	service, _, _ := authFixture(t)

	_, err := service.Register("alice", "Sup3rSecret")
	req.NoError(err)

	req.True(service.Exists("alice"))
	req.False(service.Exists("ghost"))
}
