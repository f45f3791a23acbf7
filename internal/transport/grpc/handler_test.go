package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/clippy-oss/homie/im-client/internal/domain"
	"github.com/clippy-oss/homie/im-client/internal/lang"
	"github.com/clippy-oss/homie/im-client/internal/repository"
	"github.com/clippy-oss/homie/im-client/internal/service"
)

type fixedAllocator string

func (a fixedAllocator) NewGID() string { return string(a) }

func startServer(t *testing.T) (*Client, *grpc.ClientConn) {
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
	presence := service.NewPresenceTracker(bus)
	svc := service.NewChatService(
		service.NewSession(alice, dir, lang.Default(), presence),
		repository.NewChatRepository(db),
		repository.NewMessageRepository(db),
		service.NewLoopbackRemote(),
		bus,
	)
	svc.SetAllocator(fixedAllocator("g1"))

	srv := NewServer(NewHandler(svc, presence, bus, domain.DefaultOrder()), ServerConfig{})
	lis := bufconn.Listen(1 << 20)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return NewClient(conn), conn
}

func TestCreateListAndPermissions(t *testing.T) {
	client, _ := startServer(t)
	ctx := context.Background()

	resp, err := client.Call(ctx, "CreateChat", map[string]any{"name": "Team", "members": []any{2}})
	require.NoError(t, err)
	chat := resp["chat"].(map[string]any)
	assert.Equal(t, "g1", chat["gid"])
	assert.Equal(t, "ok", chat["status"])
	assert.Equal(t, []any{float64(1), float64(2)}, chat["members"])

	resp, err = client.Call(ctx, "ListChats", map[string]any{"order": "-name"})
	require.NoError(t, err)
	assert.Equal(t, float64(1), resp["count"])

	resp, err = client.Call(ctx, "GetPermissions", map[string]any{"gid": "g1"})
	require.NoError(t, err)
	perms := resp["permissions"].(map[string]any)
	assert.Equal(t, true, perms["is_owner"])
	assert.Equal(t, "all", perms["committers_type"])

	resp, err = client.Call(ctx, "SetCommitters", map[string]any{"gid": "g1", "value": "2,1"})
	require.NoError(t, err)
	perms = resp["permissions"].(map[string]any)
	assert.Equal(t, []any{float64(1), float64(2)}, perms["whitelist"])
}

func TestErrorCodes(t *testing.T) {
	client, _ := startServer(t)
	ctx := context.Background()

	_, err := client.Call(ctx, "GetChat", map[string]any{"gid": "nope"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.Call(ctx, "GetChat", map[string]any{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.Call(ctx, "DeliverChat", map[string]any{"chat": map[string]any{
		"gid":        "ops",
		"id":         "r9",
		"type":       "group",
		"name":       "Ops",
		"created_by": "2",
		"members":    []any{1, 2},
		"committers": domain.CommittersValueAdmins,
	}})
	require.NoError(t, err)

	_, err = client.Call(ctx, "RenameChat", map[string]any{"gid": "ops", "name": "Mine"})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = client.Call(ctx, "SendMessage", map[string]any{"gid": "ops", "text": "hi"})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}

func TestDeliverAndReadMessages(t *testing.T) {
	client, _ := startServer(t)
	ctx := context.Background()

	_, err := client.Call(ctx, "CreateChat", map[string]any{"name": "Team", "members": []any{2}})
	require.NoError(t, err)

	date := time.Now().Add(time.Minute).UTC().Format(time.RFC3339Nano)
	resp, err := client.Call(ctx, "DeliverMessages", map[string]any{"messages": []any{
		map[string]any{"gid": "m1", "chat_gid": "g1", "sender_id": 2, "content": "hi", "date": date},
		map[string]any{"gid": "m2", "chat_gid": "g1", "sender_id": 2, "content": "no date"},
	}})
	require.NoError(t, err)
	assert.Equal(t, float64(1), resp["accepted"])

	resp, err = client.Call(ctx, "GetMessages", map[string]any{"gid": "g1"})
	require.NoError(t, err)
	require.Equal(t, float64(1), resp["count"])
	msg := resp["messages"].([]any)[0].(map[string]any)
	assert.Equal(t, "hi", msg["content"])
	assert.Equal(t, true, msg["unread"])

	resp, err = client.Call(ctx, "MarkRead", map[string]any{"gid": "g1"})
	require.NoError(t, err)
	assert.Equal(t, float64(1), resp["count"])

	resp, err = client.Call(ctx, "GetChat", map[string]any{"gid": "g1"})
	require.NoError(t, err)
	assert.Equal(t, float64(0), resp["chat"].(map[string]any)["unread_count"])
}

func TestHealthCheck(t *testing.T) {
	_, conn := startServer(t)

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestStreamEvents(t *testing.T) {
	client, _ := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := client.StreamEvents(ctx, map[string]any{"types": []any{"presence.updated"}})
	require.NoError(t, err)

	// The subscription is set up asynchronously, so keep reporting until the
	// first event comes through.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				client.Call(ctx, "ReportPresence", map[string]any{"member_id": 2, "online": true})
			}
		}
	}()

	event := new(structpb.Struct)
	require.NoError(t, stream.RecvMsg(event))
	m := event.AsMap()
	assert.Equal(t, "presence.updated", m["type"])
	assert.Equal(t, float64(2), m["member_id"])
	assert.Equal(t, true, m["online"])
}
