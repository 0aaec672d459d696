//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"community_chat_service/internal/chat/domain"
	"community_chat_service/pkg/database"
	"community_chat_service/pkg/logger"
	testtool "community_chat_service/pkg/test_tool"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRedisPubSub(t *testing.T) {
	logger.SetNewNop()
	ctx := context.Background()

	container, host, port, err := testtool.SetupContainer(ctx, testcontainers.ContainerRequest{
		Image:        "redis:7",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	client, err := database.NewRedisClient(host+":"+port, "", nil, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	ps := NewRedisPubSub(client)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	got := make(chan domain.RoomEvent, 1)
	require.NoError(t, ps.Subscribe(subCtx, domain.RoomChannel("r1"), func(e domain.RoomEvent) { got <- e }))

	require.NoError(t, ps.Publish(ctx, domain.RoomChannel("r1"), domain.RoomEvent{
		Action: domain.MessagesExpired, RoomID: "r1", Removed: []string{"m1"},
	}))

	select {
	case e := <-got:
		assert.Equal(t, domain.MessagesExpired, e.Action)
		assert.Equal(t, []string{"m1"}, e.Removed)
	case <-time.After(5 * time.Second):
		t.Fatal("event not delivered")
	}
}
