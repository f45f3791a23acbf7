package mcp

import (
	"context"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/clippy-oss/homie/im-client/internal/domain"
	"github.com/clippy-oss/homie/im-client/internal/service"
)

type ServerConfig struct {
	Address string
}

type Server struct {
	mcpServer  *server.MCPServer
	sseServer  *server.SSEServer
	httpServer *http.Server
	chatSvc    *service.ChatService
	order      domain.Order
	config     ServerConfig
}

// NewServer exposes chatSvc as MCP tools. order is the listing order used when
// a call does not name one.
func NewServer(chatSvc *service.ChatService, order domain.Order, config ServerConfig) *Server {
	s := &Server{
		chatSvc: chatSvc,
		order:   order,
		config:  config,
	}

	s.mcpServer = server.NewMCPServer(
		"im-client",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.registerTools()

	s.sseServer = server.NewSSEServer(s.mcpServer,
		server.WithKeepAliveInterval(30*time.Second),
	)

	return s
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("im_list_chats",
			mcp.WithDescription("List chats. By default starred chats come first, then chats with unread messages, then the most recently active ones"),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of chats to return (default 20, max 100)"),
			),
			mcp.WithString("order",
				mcp.Description("Space separated sort keys, e.g. 'name -createdDate'. A leading '-' token reverses the whole order. Keys: star, notice, lastActiveTime, online, createdDate, name, namePinyin, id, mute, public, type, membersCount"),
			),
		),
		s.handleListChats,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("im_get_chat",
			mcp.WithDescription("Get a single chat with its members and last message"),
			mcp.WithString("gid",
				mcp.Required(),
				mcp.Description("Global id of the chat"),
			),
		),
		s.handleGetChat,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("im_chat_permissions",
			mcp.WithDescription("Show what the current user may do in a chat"),
			mcp.WithString("gid",
				mcp.Required(),
				mcp.Description("Global id of the chat"),
			),
		),
		s.handleChatPermissions,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("im_get_messages",
			mcp.WithDescription("Get the most recent messages of a chat"),
			mcp.WithString("gid",
				mcp.Required(),
				mcp.Description("Global id of the chat"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of messages to return (default 50, max 100)"),
			),
		),
		s.handleGetMessages,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("im_send_message",
			mcp.WithDescription("Send a text message to a chat"),
			mcp.WithString("gid",
				mcp.Required(),
				mcp.Description("Global id of the chat"),
			),
			mcp.WithString("text",
				mcp.Required(),
				mcp.Description("Message text to send"),
			),
		),
		s.handleSendMessage,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("im_mark_read",
			mcp.WithDescription("Mark every unread message of a chat as read"),
			mcp.WithString("gid",
				mcp.Required(),
				mcp.Description("Global id of the chat"),
			),
		),
		s.handleMarkRead,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("im_create_chat",
			mcp.WithDescription("Create a chat with the given members"),
			mcp.WithString("members",
				mcp.Required(),
				mcp.Description("Comma-separated member ids, not including yourself"),
			),
			mcp.WithString("name",
				mcp.Description("Group name"),
			),
			mcp.WithString("type",
				mcp.Description("'group' (default) or 'one2one'"),
			),
		),
		s.handleCreateChat,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("im_rename_chat",
			mcp.WithDescription("Rename a group chat"),
			mcp.WithString("gid",
				mcp.Required(),
				mcp.Description("Global id of the chat"),
			),
			mcp.WithString("name",
				mcp.Required(),
				mcp.Description("New name"),
			),
		),
		s.handleRenameChat,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("im_toggle_star",
			mcp.WithDescription("Star or unstar a chat"),
			mcp.WithString("gid",
				mcp.Required(),
				mcp.Description("Global id of the chat"),
			),
		),
		s.handleToggleStar,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("im_set_mute",
			mcp.WithDescription("Mute or unmute notifications of a chat"),
			mcp.WithString("gid",
				mcp.Required(),
				mcp.Description("Global id of the chat"),
			),
			mcp.WithBoolean("mute",
				mcp.Description("true to mute (default), false to unmute"),
			),
		),
		s.handleSetMute,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("im_search_members",
			mcp.WithDescription("Search known members by account or name"),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("Search query text"),
			),
		),
		s.handleSearchMembers,
	)
}

func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.Handle("/sse", s.sseServer.SSEHandler())
	mux.Handle("/message", s.sseServer.MessageHandler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	s.httpServer = &http.Server{
		Addr:    s.config.Address,
		Handler: mux,
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
