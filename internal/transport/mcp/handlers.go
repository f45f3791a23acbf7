package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/clippy-oss/homie/im-client/internal/domain"
	"github.com/clippy-oss/homie/im-client/internal/service"
)

func clamp(v, def, max int) int {
	if v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}

func toolError(what string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, domain.ErrChatNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: chat not found", what))
	case errors.Is(err, domain.ErrPermissionDenied):
		return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: you are not allowed to do that in this chat", what))
	}
	return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: %v", what, err))
}

func writeChat(b *strings.Builder, v service.ChatView) {
	flags := []string{string(v.Type), v.Status.String()}
	if v.Star {
		flags = append(flags, "starred")
	}
	if v.Mute {
		flags = append(flags, "muted")
	}
	if v.Public {
		flags = append(flags, "public")
	}
	if v.Online {
		flags = append(flags, "online")
	}
	fmt.Fprintf(b, "%s (%s)\n", v.DisplayName, strings.Join(flags, ", "))
	fmt.Fprintf(b, "   GID: %s\n", v.GID)
	if v.NoticeCount > 0 {
		fmt.Fprintf(b, "   Unread: %d message(s)\n", v.NoticeCount)
	}
	if v.LastMessage != nil {
		preview := v.LastMessage.Content
		if len(preview) > 60 {
			preview = preview[:60] + "..."
		}
		fmt.Fprintf(b, "   Last: %s\n", preview)
	}
	if !v.LastActiveTime.IsZero() {
		fmt.Fprintf(b, "   Active: %s\n", v.LastActiveTime.Format("2006-01-02 15:04"))
	}
}

func (s *Server) handleListChats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := clamp(request.GetInt("limit", 20), 20, 100)
	order := s.order
	if keys := request.GetString("order", ""); keys != "" {
		order = domain.ParseOrder(keys)
	}

	chats := s.chatSvc.List(order)
	if len(chats) == 0 {
		return mcp.NewToolResultText("No chats found."), nil
	}
	if len(chats) > limit {
		chats = chats[:limit]
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Found %d chat(s):\n\n", len(chats))
	for i, chat := range chats {
		fmt.Fprintf(&result, "%d. ", i+1)
		writeChat(&result, chat)
		result.WriteString("\n")
	}
	return mcp.NewToolResultText(result.String()), nil
}

func (s *Server) handleGetChat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gid := request.GetString("gid", "")
	if gid == "" {
		return mcp.NewToolResultError("gid is required"), nil
	}
	chat, err := s.chatSvc.Get(gid)
	if err != nil {
		return toolError("get chat", err), nil
	}

	var result strings.Builder
	writeChat(&result, chat)
	members := make([]string, 0, len(chat.Members))
	dir := s.chatSvc.Session().Directory()
	for _, id := range chat.Members {
		members = append(members, fmt.Sprintf("%s (%d)", dir.Resolve(id).DisplayName(), id))
	}
	fmt.Fprintf(&result, "   Members (%d): %s\n", chat.MembersCount, strings.Join(members, ", "))
	return mcp.NewToolResultText(result.String()), nil
}

func (s *Server) handleChatPermissions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gid := request.GetString("gid", "")
	if gid == "" {
		return mcp.NewToolResultError("gid is required"), nil
	}
	p, err := s.chatSvc.Permissions(gid)
	if err != nil {
		return toolError("get permissions", err), nil
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Permissions in %s:\n", gid)
	fmt.Fprintf(&result, "  Owner: %v\n  Admin: %v\n  Read-only: %v\n", p.IsOwner, p.IsAdmin, p.Readonly)
	fmt.Fprintf(&result, "  Rename: %v\n  Invite: %v\n  Make public: %v\n", p.CanRename, p.CanInvite, p.CanMakePublic)
	fmt.Fprintf(&result, "  Set committers: %v\n  Exit: %v\n  Join: %v\n", p.CanSetCommitters, p.CanExit, p.CanJoin)
	fmt.Fprintf(&result, "  Committers: %s\n", p.CommittersType)
	if len(p.Whitelist) > 0 {
		ids := make([]string, len(p.Whitelist))
		for i, id := range p.Whitelist {
			ids[i] = id.String()
		}
		fmt.Fprintf(&result, "  Whitelist: %s\n", strings.Join(ids, ", "))
	}
	return mcp.NewToolResultText(result.String()), nil
}

func (s *Server) handleGetMessages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gid := request.GetString("gid", "")
	if gid == "" {
		return mcp.NewToolResultError("gid is required"), nil
	}
	limit := clamp(request.GetInt("limit", 50), 50, domain.MaxMessageCount)

	messages, err := s.chatSvc.Messages(ctx, gid, limit)
	if err != nil {
		return toolError("get messages", err), nil
	}
	if len(messages) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No messages found in chat %s", gid)), nil
	}

	session := s.chatSvc.Session()
	var result strings.Builder
	fmt.Fprintf(&result, "Messages from %s (%d):\n\n", gid, len(messages))
	for _, msg := range messages {
		sender := "Me"
		if msg.SenderID != session.UserID() {
			sender = session.Directory().Resolve(msg.SenderID).DisplayName()
			if sender == "" {
				sender = msg.SenderID.String()
			}
		}
		unread := ""
		if msg.Unread {
			unread = " [unread]"
		}
		fmt.Fprintf(&result, "[%s] %s%s:\n", msg.Date.Format("2006-01-02 15:04"), sender, unread)
		if msg.Type == domain.MessageTypeText {
			fmt.Fprintf(&result, "  %s\n", msg.Content)
		} else {
			fmt.Fprintf(&result, "  [%s] %s\n", msg.Type, msg.Content)
		}
		fmt.Fprintf(&result, "  GID: %s\n\n", msg.GID)
	}
	return mcp.NewToolResultText(result.String()), nil
}

func (s *Server) handleSendMessage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gid := request.GetString("gid", "")
	if gid == "" {
		return mcp.NewToolResultError("gid is required"), nil
	}
	text := request.GetString("text", "")
	if text == "" {
		return mcp.NewToolResultError("text is required"), nil
	}

	msg, err := s.chatSvc.Send(ctx, gid, text)
	if err != nil {
		return toolError("send message", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Message sent successfully!\nGID: %s\nTimestamp: %s\nTo: %s",
		msg.GID, msg.Date.Format("2006-01-02 15:04:05"), gid)), nil
}

func (s *Server) handleMarkRead(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gid := request.GetString("gid", "")
	if gid == "" {
		return mcp.NewToolResultError("gid is required"), nil
	}
	n, err := s.chatSvc.MarkRead(ctx, gid)
	if err != nil {
		return toolError("mark as read", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Marked %d message(s) as read in chat %s", n, gid)), nil
}

func (s *Server) handleCreateChat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := request.GetString("members", "")
	var members []domain.MemberID
	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		id, err := domain.ParseMemberID(token)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid member id %q", token)), nil
		}
		members = append(members, id)
	}
	if len(members) == 0 {
		return mcp.NewToolResultError("members is required"), nil
	}

	chat, err := s.chatSvc.Create(ctx, service.CreateChatRequest{
		Type:    domain.ChatType(request.GetString("type", "")),
		Name:    request.GetString("name", ""),
		Members: members,
	})
	if err != nil && chat.GID == "" {
		return toolError("create chat", err), nil
	}

	var result strings.Builder
	if err != nil {
		fmt.Fprintf(&result, "Chat created locally but the server rejected it: %v\n", err)
	} else {
		result.WriteString("Chat created:\n")
	}
	writeChat(&result, chat)
	return mcp.NewToolResultText(result.String()), nil
}

func (s *Server) handleRenameChat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gid := request.GetString("gid", "")
	name := request.GetString("name", "")
	if gid == "" {
		return mcp.NewToolResultError("gid is required"), nil
	}
	if name == "" {
		return mcp.NewToolResultError("name is required"), nil
	}
	chat, err := s.chatSvc.Rename(ctx, gid, name)
	if err != nil {
		return toolError("rename chat", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Chat %s renamed to %s", gid, chat.Name)), nil
}

func (s *Server) handleToggleStar(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gid := request.GetString("gid", "")
	if gid == "" {
		return mcp.NewToolResultError("gid is required"), nil
	}
	chat, err := s.chatSvc.ToggleStar(ctx, gid)
	if err != nil {
		return toolError("star chat", err), nil
	}
	if chat.Star {
		return mcp.NewToolResultText(fmt.Sprintf("Chat %s starred", gid)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Chat %s unstarred", gid)), nil
}

func (s *Server) handleSetMute(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gid := request.GetString("gid", "")
	if gid == "" {
		return mcp.NewToolResultError("gid is required"), nil
	}
	chat, err := s.chatSvc.SetMute(ctx, gid, request.GetBool("mute", true))
	if err != nil {
		return toolError("mute chat", err), nil
	}
	if chat.Mute {
		return mcp.NewToolResultText(fmt.Sprintf("Chat %s muted", gid)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Chat %s unmuted", gid)), nil
}

func (s *Server) handleSearchMembers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := request.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}
	members, err := s.chatSvc.Session().Directory().Search(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Search failed: %v", err)), nil
	}
	if len(members) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No members found matching '%s'", query)), nil
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Members matching '%s' (%d found):\n\n", query, len(members))
	for i, m := range members {
		fmt.Fprintf(&result, "%d. %s (@%s)\n   ID: %d\n", i+1, m.DisplayName(), m.Account, m.ID)
	}
	return mcp.NewToolResultText(result.String()), nil
}
