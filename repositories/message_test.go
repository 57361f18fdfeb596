package repositories

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"chat-relay/domain"

	"github.com/stretchr/testify/require"
)

func Test_Store_And_Get_Messages_In_Order(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)

	at := time.Now().Unix()
	for i := range 5 {
		err := repository.StoreMessage(domain.ChatMessage{
			Sender:    "alice",
			Room:      "lobby",
			Content:   fmt.Sprintf("message %d", i),
			Timestamp: at + int64(i),
		})
		req.NoError(err)
	}

	messages, err := repository.GetMessages("lobby")
	req.NoError(err)
	req.Len(messages, 5)
	for i, msg := range messages {
		req.Equal(fmt.Sprintf("message %d", i), msg.Content)
	}
}

func Test_Get_Messages_Is_Scoped_To_The_Room(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)

	req.NoError(repository.StoreMessage(domain.ChatMessage{Sender: "alice", Room: "lobby", Content: "in lobby"}))
	req.NoError(repository.StoreMessage(domain.ChatMessage{Sender: "alice", Room: "dev", Content: "in dev"}))

	messages, err := repository.GetMessages("lobby")
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal("in lobby", messages[0].Content)
}

func Test_Get_Messages_Honors_Limit(t *testing.T) {
	req := require.New(t)
	limit := 2
	repository := NewMessageRepository(openTestDB(t), slog.Default(), &limit)

	for i := range 5 {
		err := repository.StoreMessage(domain.ChatMessage{
			Sender:  "alice",
			Room:    "lobby",
			Content: fmt.Sprintf("message %d", i),
		})
		req.NoError(err)
	}

	messages, err := repository.GetMessages("lobby")
	req.NoError(err)
	req.Len(messages, limit)
}
