package runtime

import (
	"log/slog"
	"sync"
	"testing"

	"chat-relay/domain"
	"chat-relay/errors"

	"github.com/stretchr/testify/require"
)

func Test_Connect_Requires_A_Registered_User(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default(), 16)

	_, _, err := registry.Connect("ghost")
	req.ErrorIs(err, errors.ErrUserNotFound)
}

func Test_Second_Connect_Is_Rejected(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default(), 16)
	registry.AddUser("alice")

	_, _, err := registry.Connect("alice")
	req.NoError(err)

	_, _, err = registry.Connect("alice")
	req.ErrorIs(err, errors.ErrAlreadyConnected)
}

func Test_Concurrent_Connects_Allow_Exactly_One_Session(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default(), 16)
	registry.AddUser("alice")

	const attempts = 32
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := registry.Connect("alice")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded int
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			req.ErrorIs(err, errors.ErrAlreadyConnected)
		}
	}
	req.Equal(1, succeeded)
}

func Test_Deliver_Queues_While_Disconnected(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default(), 16)
	registry.AddUser("alice")

	first := domain.MessageEvent{Message: domain.ChatMessage{Room: "lobby", Content: "first"}}
	second := domain.MessageEvent{Message: domain.ChatMessage{Room: "lobby", Content: "second"}}
	registry.Deliver("alice", first)
	registry.Deliver("alice", second)

	_, drained, err := registry.Connect("alice")
	req.NoError(err)
	req.Equal([]domain.OutboundEvent{first, second}, drained)
}

func Test_Deliver_Uses_The_Channel_While_Connected(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default(), 16)
	registry.AddUser("alice")

	delivery, drained, err := registry.Connect("alice")
	req.NoError(err)
	req.Empty(drained)

	ev := domain.MessageEvent{Message: domain.ChatMessage{Room: "lobby", Content: "hi"}}
	registry.Deliver("alice", ev)

	select {
	case got := <-delivery:
		req.Equal(ev, got)
	default:
		t.Fatal("expected the event on the delivery channel")
	}
}

func Test_Disconnect_Drops_The_Queue(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default(), 16)
	registry.AddUser("alice")

	_, _, err := registry.Connect("alice")
	req.NoError(err)
	registry.Disconnect("alice")

	// Queue restarts empty; only events delivered after the disconnect
	// show up at the next connect.
	ev := domain.MessageEvent{Message: domain.ChatMessage{Room: "lobby", Content: "later"}}
	registry.Deliver("alice", ev)

	_, drained, err := registry.Connect("alice")
	req.NoError(err)
	req.Equal([]domain.OutboundEvent{ev}, drained)
}

func Test_Full_Channel_Drops_The_Event(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default(), 1)
	registry.AddUser("alice")

	delivery, _, err := registry.Connect("alice")
	req.NoError(err)

	registry.Deliver("alice", domain.ErrorEvent{Text: "kept"})
	registry.Deliver("alice", domain.ErrorEvent{Text: "dropped"})

	req.Len(delivery, 1)
	req.Equal(domain.ErrorEvent{Text: "kept"}, <-delivery)
}

func Test_Purge_Removes_Only_Events_For_That_Room(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default(), 16)
	registry.AddUser("alice")

	lobbyMsg := domain.MessageEvent{Message: domain.ChatMessage{Room: "lobby", Content: "bye"}}
	devMsg := domain.MessageEvent{Message: domain.ChatMessage{Room: "dev", Content: "stays"}}
	status := domain.TimedInStatus{TimedIn: true}
	registry.Deliver("alice", lobbyMsg)
	registry.Deliver("alice", devMsg)
	registry.Deliver("alice", status)

	registry.PurgeRoom("alice", "lobby")

	_, drained, err := registry.Connect("alice")
	req.NoError(err)
	req.Equal([]domain.OutboundEvent{devMsg, status}, drained)
}
