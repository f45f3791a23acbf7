package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clippy-oss/homie/im-client/internal/domain"
	"github.com/clippy-oss/homie/im-client/internal/lang"
	"github.com/clippy-oss/homie/im-client/internal/repository"
	"github.com/clippy-oss/homie/im-client/internal/service"
)

type fixedAllocator string

func (a fixedAllocator) NewGID() string { return string(a) }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	ctx := context.Background()

	db, err := repository.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	alice := &domain.Member{ID: 1, Account: "alice", RealName: "Alice"}
	dir := service.NewMemberDirectory(repository.NewMemberRepository(db))
	require.NoError(t, dir.Put(ctx, alice))
	require.NoError(t, dir.Put(ctx, &domain.Member{ID: 2, Account: "bob", RealName: "Bob"}))

	bus := domain.NewEventBus()
	svc := service.NewChatService(
		service.NewSession(alice, dir, lang.Default(), nil),
		repository.NewChatRepository(db),
		repository.NewMessageRepository(db),
		service.NewLoopbackRemote(),
		bus,
	)
	svc.SetAllocator(fixedAllocator("g1"))
	return NewServer(svc, domain.DefaultOrder(), ServerConfig{})
}

func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

func TestChatTools(t *testing.T) {
	s := newTestServer(t)

	out, isErr := call(t, s.handleCreateChat, map[string]any{"members": "2", "name": "Team"})
	require.False(t, isErr, out)
	assert.Contains(t, out, "GID: g1")

	out, isErr = call(t, s.handleListChats, map[string]any{"order": "-name"})
	require.False(t, isErr, out)
	assert.Contains(t, out, "Found 1 chat(s)")
	assert.Contains(t, out, "Team")

	out, isErr = call(t, s.handleGetChat, map[string]any{"gid": "g1"})
	require.False(t, isErr, out)
	assert.Contains(t, out, "Bob (2)")

	out, isErr = call(t, s.handleRenameChat, map[string]any{"gid": "g1", "name": "Crew"})
	require.False(t, isErr, out)
	assert.Contains(t, out, "renamed to Crew")

	out, _ = call(t, s.handleToggleStar, map[string]any{"gid": "g1"})
	assert.Contains(t, out, "starred")

	out, _ = call(t, s.handleSetMute, map[string]any{"gid": "g1"})
	assert.Contains(t, out, "muted")

	out, isErr = call(t, s.handleChatPermissions, map[string]any{"gid": "g1"})
	require.False(t, isErr, out)
	assert.Contains(t, out, "Owner: true")
}

func TestMessageTools(t *testing.T) {
	s := newTestServer(t)
	_, isErr := call(t, s.handleCreateChat, map[string]any{"members": "2"})
	require.False(t, isErr)

	_, err := s.chatSvc.Receive(context.Background(), []*domain.Message{
		{GID: "m1", ChatGID: "g1", SenderID: 2, Type: domain.MessageTypeText, Content: "hello", Date: time.Now().Add(time.Minute)},
	})
	require.NoError(t, err)

	out, isErr := call(t, s.handleGetMessages, map[string]any{"gid": "g1"})
	require.False(t, isErr, out)
	assert.Contains(t, out, "Bob [unread]")
	assert.Contains(t, out, "hello")

	out, _ = call(t, s.handleMarkRead, map[string]any{"gid": "g1"})
	assert.Contains(t, out, "Marked 1 message(s)")

	out, isErr = call(t, s.handleSendMessage, map[string]any{"gid": "g1", "text": "hi back"})
	require.False(t, isErr, out)
	assert.Contains(t, out, "Message sent successfully")
}

func TestToolErrors(t *testing.T) {
	s := newTestServer(t)

	out, isErr := call(t, s.handleGetChat, map[string]any{"gid": "missing"})
	assert.True(t, isErr)
	assert.Contains(t, out, "chat not found")

	_, isErr = call(t, s.handleSendMessage, map[string]any{"gid": "g1"})
	assert.True(t, isErr)

	out, isErr = call(t, s.handleCreateChat, map[string]any{"members": "bob"})
	assert.True(t, isErr)
	assert.Contains(t, out, "Invalid member id")

	out, isErr = call(t, s.handleSearchMembers, map[string]any{"query": "bo"})
	require.False(t, isErr, out)
	assert.Contains(t, out, "Bob (@bob)")
}
