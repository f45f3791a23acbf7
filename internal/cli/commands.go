package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/clippy-oss/homie/im-client/internal/domain"
	"github.com/clippy-oss/homie/im-client/internal/service"
)

// JoinLinkPrefix starts the link that lets other clients join a public chat.
const JoinLinkPrefix = "imclient://join/"

// CommandHandler handles CLI commands
type CommandHandler struct {
	chatSvc  *service.ChatService
	presence *service.PresenceTracker
	eventBus domain.EventBus
	order    domain.Order
}

// NewCommandHandler creates a new command handler. order is used by /chats
// when no sort keys are given.
func NewCommandHandler(chatSvc *service.ChatService, presence *service.PresenceTracker, eventBus domain.EventBus, order domain.Order) *CommandHandler {
	return &CommandHandler{
		chatSvc:  chatSvc,
		presence: presence,
		eventBus: eventBus,
		order:    order,
	}
}

// Command represents a parsed command
type Command struct {
	Name string
	Args []string
}

// ParseCommand parses a command string (e.g., "/send g1 Hello")
func ParseCommand(input string) (*Command, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("empty command")
	}

	if !strings.HasPrefix(input, "/") {
		return nil, fmt.Errorf("commands must start with /")
	}

	parts := strings.Fields(input)
	name := strings.TrimPrefix(parts[0], "/")
	return &Command{Name: name, Args: parts[1:]}, nil
}

// Execute executes a command and returns the result
func (h *CommandHandler) Execute(ctx context.Context, cmd *Command) (any, error) {
	switch cmd.Name {
	case "help", "h":
		return h.cmdHelp()
	case "whoami", "s":
		return h.cmdWhoami()
	case "chats", "ls":
		return h.cmdChats(cmd.Args)
	case "show":
		return h.cmdShow(cmd.Args)
	case "open":
		return h.cmdOpen(ctx, cmd.Args)
	case "messages", "msg":
		return h.cmdMessages(ctx, cmd.Args)
	case "send":
		return h.cmdSend(ctx, cmd.Args)
	case "read":
		return h.cmdRead(ctx, cmd.Args)
	case "create":
		return h.cmdCreate(ctx, cmd.Args)
	case "direct", "dm":
		return h.cmdDirect(ctx, cmd.Args)
	case "retry":
		return h.cmdRetry(ctx, cmd.Args)
	case "rename":
		return h.cmdRename(ctx, cmd.Args)
	case "star":
		return h.cmdStar(ctx, cmd.Args)
	case "mute":
		return h.cmdMute(ctx, cmd.Args)
	case "public":
		return h.cmdPublic(ctx, cmd.Args)
	case "invite":
		return h.cmdInvite(ctx, cmd.Args)
	case "committers":
		return h.cmdCommitters(ctx, cmd.Args)
	case "whitelist", "wl":
		return h.cmdWhitelist(ctx, cmd.Args)
	case "perms":
		return h.cmdPerms(cmd.Args)
	case "leave":
		return h.cmdLeave(ctx, cmd.Args)
	case "share":
		return h.cmdShare(cmd.Args)
	case "members":
		return h.cmdMembers(ctx, cmd.Args)
	case "presence":
		return h.cmdPresence(cmd.Args)
	case "quit", "exit", "q":
		return map[string]bool{"quit": true}, nil
	default:
		return nil, fmt.Errorf("unknown command: %s. Type /help for available commands", cmd.Name)
	}
}

func (h *CommandHandler) cmdHelp() (any, error) {
	help := `Available commands:

Chats:
  /chats, /ls [keys...]    List chats, optionally ordered by sort keys (e.g. -star name)
  /show <gid>              Show one chat
  /open <gid>              Open a chat and mark it read
  /create <name> <ids...>  Create a group chat
  /direct, /dm <id>        Open a one-to-one chat
  /retry <gid>             Submit a chat the server has not confirmed
  /rename <gid> <name>     Rename a chat
  /star <gid>              Toggle the star flag
  /mute <gid> on|off       Mute or unmute a chat
  /public <gid> on|off     Make a group public or private
  /invite <gid> <ids...>   Invite members
  /committers <gid> <v>    Set who may post: $ADMINS, $ALL or ids like 2,3
  /whitelist, /wl <gid> add|remove <id>  Edit the whitelist
  /perms <gid>             Show what you may do in a chat
  /share <gid>             Show the join link of a public chat
  /leave <gid>             Leave a group chat

Messages:
  /messages, /msg <gid> [limit]  Show messages of a chat
  /send <gid> <text>       Send a text message
  /read <gid>              Mark a chat read

Members:
  /members [query]         List or search members
  /presence <id> on|off    Report a member online or offline

Other:
  /whoami, /s              Show the signed in user
  /help, /h                Show this help
  /quit, /exit, /q         Exit the CLI`

	return map[string]string{"help": help}, nil
}

func (h *CommandHandler) cmdWhoami() (any, error) {
	session := h.chatSvc.Session()
	user := session.CurrentUser()
	return SessionInfo{
		UserID:     int64(user.ID),
		Name:       user.DisplayName(),
		ActiveChat: session.ActiveChat(),
		Chats:      len(h.chatSvc.List(h.order)),
	}, nil
}

func (h *CommandHandler) cmdChats(args []string) (any, error) {
	order := h.order
	if len(args) > 0 {
		order = domain.ParseOrder(strings.Join(args, " "))
	}

	views := h.chatSvc.List(order)
	result := make([]ChatInfo, len(views))
	for i, v := range views {
		result[i] = newChatInfo(v)
	}
	return map[string]any{"chats": result, "count": len(result)}, nil
}

func (h *CommandHandler) cmdShow(args []string) (any, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("usage: /show <gid>")
	}
	view, err := h.chatSvc.Get(args[0])
	if err != nil {
		return nil, err
	}
	return newChatInfo(view), nil
}

func (h *CommandHandler) cmdOpen(ctx context.Context, args []string) (any, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("usage: /open <gid>")
	}
	view, err := h.chatSvc.Activate(ctx, args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to open chat: %w", err)
	}
	return newChatInfo(view), nil
}

func (h *CommandHandler) cmdMessages(ctx context.Context, args []string) (any, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("usage: /messages <gid> [limit]")
	}

	limit := 50
	if len(args) > 1 {
		if l, err := strconv.Atoi(args[1]); err == nil && l > 0 {
			limit = l
		}
	}

	messages, err := h.chatSvc.Messages(ctx, args[0], limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}

	self := h.chatSvc.Session().UserID()
	result := make([]MessageInfo, len(messages))
	for i, msg := range messages {
		result[i] = newMessageInfo(msg, self)
	}
	return map[string]any{"messages": result, "count": len(result)}, nil
}

func (h *CommandHandler) cmdSend(ctx context.Context, args []string) (any, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("usage: /send <gid> <text>")
	}

	msg, err := h.chatSvc.Send(ctx, args[0], strings.Join(args[1:], " "))
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	return newMessageInfo(msg, h.chatSvc.Session().UserID()), nil
}

func (h *CommandHandler) cmdRead(ctx context.Context, args []string) (any, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("usage: /read <gid>")
	}

	n, err := h.chatSvc.MarkRead(ctx, args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to mark as read: %w", err)
	}
	return map[string]any{
		"message": fmt.Sprintf("%d message(s) marked as read", n),
		"count":   n,
	}, nil
}

func parseMemberIDs(args []string) ([]domain.MemberID, error) {
	var ids []domain.MemberID
	for _, arg := range args {
		for _, token := range strings.Split(arg, ",") {
			if token == "" {
				continue
			}
			id, err := domain.ParseMemberID(strings.TrimSpace(token))
			if err != nil {
				return nil, fmt.Errorf("invalid member id %q", token)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// chatResult reports the chat even when the server rejected the change, so the
// caller sees the failed status.
func chatResult(view service.ChatView, err error, what string) (any, error) {
	if err != nil {
		if view.GID == "" {
			return nil, fmt.Errorf("failed to %s: %w", what, err)
		}
		return nil, fmt.Errorf("failed to %s (chat %s is %s): %w", what, view.GID, view.Status, err)
	}
	return newChatInfo(view), nil
}

func (h *CommandHandler) cmdCreate(ctx context.Context, args []string) (any, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("usage: /create <name> <ids...>")
	}
	ids, err := parseMemberIDs(args[1:])
	if err != nil {
		return nil, err
	}
	view, err := h.chatSvc.Create(ctx, service.CreateChatRequest{
		Type:    domain.ChatTypeGroup,
		Name:    args[0],
		Members: ids,
	})
	return chatResult(view, err, "create chat")
}

func (h *CommandHandler) cmdDirect(ctx context.Context, args []string) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("usage: /direct <id>")
	}
	ids, err := parseMemberIDs(args)
	if err != nil {
		return nil, err
	}
	view, err := h.chatSvc.Create(ctx, service.CreateChatRequest{
		Type:    domain.ChatTypeOne2One,
		Members: ids,
	})
	return chatResult(view, err, "open direct chat")
}

func (h *CommandHandler) cmdRetry(ctx context.Context, args []string) (any, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("usage: /retry <gid>")
	}
	view, err := h.chatSvc.Submit(ctx, args[0])
	return chatResult(view, err, "submit chat")
}

func (h *CommandHandler) cmdRename(ctx context.Context, args []string) (any, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("usage: /rename <gid> <name>")
	}
	view, err := h.chatSvc.Rename(ctx, args[0], strings.Join(args[1:], " "))
	return chatResult(view, err, "rename chat")
}

func (h *CommandHandler) cmdStar(ctx context.Context, args []string) (any, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("usage: /star <gid>")
	}
	view, err := h.chatSvc.ToggleStar(ctx, args[0])
	return chatResult(view, err, "star chat")
}

func parseSwitch(arg string) (bool, error) {
	switch strings.ToLower(arg) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", arg)
}

func (h *CommandHandler) cmdMute(ctx context.Context, args []string) (any, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("usage: /mute <gid> on|off")
	}
	mute, err := parseSwitch(args[1])
	if err != nil {
		return nil, err
	}
	view, err := h.chatSvc.SetMute(ctx, args[0], mute)
	return chatResult(view, err, "mute chat")
}

func (h *CommandHandler) cmdPublic(ctx context.Context, args []string) (any, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("usage: /public <gid> on|off")
	}
	public, err := parseSwitch(args[1])
	if err != nil {
		return nil, err
	}
	view, err := h.chatSvc.SetPublic(ctx, args[0], public)
	return chatResult(view, err, "change visibility")
}

func (h *CommandHandler) cmdInvite(ctx context.Context, args []string) (any, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("usage: /invite <gid> <ids...>")
	}
	ids, err := parseMemberIDs(args[1:])
	if err != nil {
		return nil, err
	}
	view, err := h.chatSvc.Invite(ctx, args[0], ids...)
	return chatResult(view, err, "invite members")
}

func (h *CommandHandler) cmdCommitters(ctx context.Context, args []string) (any, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("usage: /committers <gid> $ADMINS|$ALL|<ids>")
	}
	view, err := h.chatSvc.SetCommitters(ctx, args[0], strings.Join(args[1:], ","))
	if err != nil {
		return chatResult(view, err, "set committers")
	}
	return h.cmdPerms(args[:1])
}

func (h *CommandHandler) cmdWhitelist(ctx context.Context, args []string) (any, error) {
	if len(args) < 3 {
		return nil, fmt.Errorf("usage: /whitelist <gid> add|remove <id>")
	}
	id, err := domain.ParseMemberID(args[2])
	if err != nil {
		return nil, fmt.Errorf("invalid member id %q", args[2])
	}

	var changed bool
	switch args[1] {
	case "add":
		changed, err = h.chatSvc.AddToWhitelist(ctx, args[0], id)
	case "remove", "rm":
		changed, err = h.chatSvc.RemoveFromWhitelist(ctx, args[0], id)
	default:
		return nil, fmt.Errorf("unknown whitelist action %q", args[1])
	}
	if err != nil {
		return nil, fmt.Errorf("failed to edit whitelist: %w", err)
	}
	return map[string]any{"changed": changed}, nil
}

func (h *CommandHandler) cmdPerms(args []string) (any, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("usage: /perms <gid>")
	}
	perms, err := h.chatSvc.Permissions(args[0])
	if err != nil {
		return nil, err
	}
	return newPermissionsInfo(perms), nil
}

func (h *CommandHandler) cmdLeave(ctx context.Context, args []string) (any, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("usage: /leave <gid>")
	}
	if err := h.chatSvc.Exit(ctx, args[0]); err != nil {
		return nil, fmt.Errorf("failed to leave chat: %w", err)
	}
	return map[string]string{"message": "Left chat " + args[0]}, nil
}

// ShareInfo carries the join link of a public chat.
type ShareInfo struct {
	GID  string `json:"gid"`
	Link string `json:"link"`
}

func (h *CommandHandler) cmdShare(args []string) (any, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("usage: /share <gid>")
	}
	perms, err := h.chatSvc.Permissions(args[0])
	if err != nil {
		return nil, err
	}
	if !perms.CanJoin {
		return nil, fmt.Errorf("chat %s is not public", args[0])
	}
	return ShareInfo{GID: args[0], Link: JoinLinkPrefix + args[0]}, nil
}

type MemberInfo struct {
	ID      int64  `json:"id"`
	Account string `json:"account,omitempty"`
	Name    string `json:"name"`
	Online  bool   `json:"online"`
}

func (h *CommandHandler) cmdMembers(ctx context.Context, args []string) (any, error) {
	members, err := h.chatSvc.Session().Directory().Search(ctx, strings.Join(args, " "))
	if err != nil {
		return nil, fmt.Errorf("failed to search members: %w", err)
	}
	result := make([]MemberInfo, len(members))
	for i, m := range members {
		result[i] = MemberInfo{
			ID:      int64(m.ID),
			Account: m.Account,
			Name:    m.DisplayName(),
			Online:  h.presence.IsOnline(m.ID),
		}
	}
	return map[string]any{"members": result, "count": len(result)}, nil
}

func (h *CommandHandler) cmdPresence(args []string) (any, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("usage: /presence <id> on|off")
	}
	id, err := domain.ParseMemberID(args[0])
	if err != nil {
		return nil, fmt.Errorf("invalid member id %q", args[0])
	}
	online, err := parseSwitch(args[1])
	if err != nil {
		return nil, err
	}
	h.presence.Report(id, online)
	return map[string]string{"message": "Presence reported"}, nil
}

// SubscribeEvents forwards domain events as CLI events until ctx is done.
func (h *CommandHandler) SubscribeEvents(ctx context.Context, eventTypes []domain.EventType) <-chan Event {
	if len(eventTypes) == 0 {
		eventTypes = []domain.EventType{
			domain.EventTypeMessageReceived,
			domain.EventTypeChatStatus,
			domain.EventTypeChatRemoved,
		}
	}

	domainChan := h.eventBus.Subscribe(eventTypes)
	resultChan := make(chan Event)
	self := h.chatSvc.Session().UserID()

	go func() {
		defer close(resultChan)
		defer h.eventBus.Unsubscribe(domainChan)
		for {
			var evt domain.Event
			select {
			case <-ctx.Done():
				return
			case e, ok := <-domainChan:
				if !ok {
					return
				}
				evt = e
			}

			var eventType string
			var data any

			switch e := evt.(type) {
			case domain.MessageReceivedEvent:
				eventType = "message_received"
				msgs := make([]MessageInfo, len(e.Messages))
				for i, msg := range e.Messages {
					msgs[i] = newMessageInfo(msg, self)
				}
				data = map[string]any{"chat_gid": e.ChatGID, "messages": msgs}
			case domain.MessageReadEvent:
				eventType = "message_read"
				data = map[string]any{"chat_gid": e.ChatGID, "message_gids": e.MessageGIDs}
			case domain.ChatStatusEvent:
				eventType = "chat_status"
				data = map[string]any{"chat_gid": e.ChatGID, "status": e.Status.String()}
			case domain.ChatRemovedEvent:
				eventType = "chat_removed"
				data = map[string]any{"chat_gid": e.ChatGID}
			case domain.PresenceUpdatedEvent:
				eventType = "presence"
				data = map[string]any{"member_id": int64(e.MemberID), "online": e.Online}
			default:
				continue
			}

			select {
			case resultChan <- Event{Type: eventType, Timestamp: time.Now(), Data: data}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return resultChan
}
