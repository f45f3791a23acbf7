package grpc

import (
	"context"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/clippy-oss/homie/im-client/internal/domain"
	"github.com/clippy-oss/homie/im-client/internal/service"
)

type Handler struct {
	chatSvc  *service.ChatService
	presence *service.PresenceTracker
	eventBus domain.EventBus
	order    domain.Order
}

func NewHandler(chatSvc *service.ChatService, presence *service.PresenceTracker, eventBus domain.EventBus, order domain.Order) *Handler {
	return &Handler{
		chatSvc:  chatSvc,
		presence: presence,
		eventBus: eventBus,
		order:    order,
	}
}

var _ ChatServiceServer = (*Handler)(nil)

func chatReply(view service.ChatView, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(map[string]any{"chat": chatToMap(view)})
}

func (h *Handler) ListChats(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	order := h.order
	if keys := str(req, "order"); keys != "" {
		order = domain.ParseOrder(keys)
	}

	views := h.chatSvc.List(order)
	if limit := int(num(req, "limit")); limit > 0 && len(views) > limit {
		views = views[:limit]
	}

	chats := make([]any, len(views))
	for i, v := range views {
		chats[i] = chatToMap(v)
	}
	return reply(map[string]any{"chats": chats, "count": len(chats)})
}

func (h *Handler) GetChat(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	gid, err := requireGID(req)
	if err != nil {
		return nil, err
	}
	return chatReply(h.chatSvc.Get(gid))
}

func (h *Handler) OpenChat(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	gid, err := requireGID(req)
	if err != nil {
		return nil, err
	}
	return chatReply(h.chatSvc.Activate(ctx, gid))
}

func (h *Handler) CreateChat(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	members := memberIDs(req.GetFields()["members"])
	if len(members) == 0 {
		return nil, status.Error(codes.InvalidArgument, "members are required")
	}
	view, err := h.chatSvc.Create(ctx, service.CreateChatRequest{
		Type:    domain.ChatType(str(req, "type")),
		Name:    str(req, "name"),
		Members: members,
	})
	return chatReply(view, err)
}

func (h *Handler) SubmitChat(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	gid, err := requireGID(req)
	if err != nil {
		return nil, err
	}
	return chatReply(h.chatSvc.Submit(ctx, gid))
}

func (h *Handler) RenameChat(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	gid, err := requireGID(req)
	if err != nil {
		return nil, err
	}
	return chatReply(h.chatSvc.Rename(ctx, gid, str(req, "name")))
}

func (h *Handler) ToggleStar(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	gid, err := requireGID(req)
	if err != nil {
		return nil, err
	}
	return chatReply(h.chatSvc.ToggleStar(ctx, gid))
}

func (h *Handler) SetMute(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	gid, err := requireGID(req)
	if err != nil {
		return nil, err
	}
	return chatReply(h.chatSvc.SetMute(ctx, gid, flag(req, "mute")))
}

func (h *Handler) SetPublic(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	gid, err := requireGID(req)
	if err != nil {
		return nil, err
	}
	return chatReply(h.chatSvc.SetPublic(ctx, gid, flag(req, "public")))
}

func (h *Handler) SetCommitters(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	gid, err := requireGID(req)
	if err != nil {
		return nil, err
	}
	if _, err := h.chatSvc.SetCommitters(ctx, gid, str(req, "value")); err != nil {
		return nil, toStatus(err)
	}
	return h.GetPermissions(ctx, req)
}

func (h *Handler) EditWhitelist(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	gid, err := requireGID(req)
	if err != nil {
		return nil, err
	}
	if !has(req, "member_id") {
		return nil, status.Error(codes.InvalidArgument, "member_id is required")
	}
	id := domain.MemberID(num(req, "member_id"))

	var changed bool
	switch str(req, "action") {
	case "add":
		changed, err = h.chatSvc.AddToWhitelist(ctx, gid, id)
	case "remove":
		changed, err = h.chatSvc.RemoveFromWhitelist(ctx, gid, id)
	default:
		return nil, status.Error(codes.InvalidArgument, "action must be add or remove")
	}
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(map[string]any{"changed": changed})
}

func (h *Handler) InviteMembers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	gid, err := requireGID(req)
	if err != nil {
		return nil, err
	}
	return chatReply(h.chatSvc.Invite(ctx, gid, memberIDs(req.GetFields()["members"])...))
}

func (h *Handler) ExitChat(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	gid, err := requireGID(req)
	if err != nil {
		return nil, err
	}
	if err := h.chatSvc.Exit(ctx, gid); err != nil {
		return nil, toStatus(err)
	}
	return reply(map[string]any{"success": true})
}

func (h *Handler) GetPermissions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	gid, err := requireGID(req)
	if err != nil {
		return nil, err
	}
	perms, err := h.chatSvc.Permissions(gid)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(map[string]any{"permissions": permissionsToMap(perms)})
}

func (h *Handler) GetMessages(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	gid, err := requireGID(req)
	if err != nil {
		return nil, err
	}
	limit := int(num(req, "limit"))
	if limit <= 0 {
		limit = 50
	}

	messages, err := h.chatSvc.Messages(ctx, gid, limit)
	if err != nil {
		return nil, toStatus(err)
	}
	out := make([]any, len(messages))
	for i, msg := range messages {
		out[i] = messageToMap(msg)
	}
	return reply(map[string]any{"messages": out, "count": len(out)})
}

func (h *Handler) SendMessage(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	gid, err := requireGID(req)
	if err != nil {
		return nil, err
	}
	text := str(req, "text")
	if text == "" {
		return nil, status.Error(codes.InvalidArgument, "no content provided")
	}
	msg, err := h.chatSvc.Send(ctx, gid, text)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(map[string]any{"message": messageToMap(msg)})
}

func (h *Handler) MarkRead(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	gid, err := requireGID(req)
	if err != nil {
		return nil, err
	}
	n, err := h.chatSvc.MarkRead(ctx, gid)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(map[string]any{"count": n})
}

// DeliverMessages is the entry point for messages pushed by the server.
func (h *Handler) DeliverMessages(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var msgs []*domain.Message
	for _, v := range req.GetFields()["messages"].GetListValue().GetValues() {
		msg, err := messageFromStruct(v.GetStructValue())
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		msgs = append(msgs, msg)
	}
	accepted, err := h.chatSvc.Receive(ctx, msgs)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(map[string]any{"accepted": accepted})
}

// DeliverChat registers or refreshes a chat pushed by the server.
func (h *Handler) DeliverChat(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	record, err := chatRecordFromStruct(req.GetFields()["chat"].GetStructValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if record.GID == "" {
		return nil, status.Error(codes.InvalidArgument, "chat.gid is required")
	}
	return chatReply(h.chatSvc.Adopt(ctx, record))
}

func (h *Handler) ReportPresence(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if !has(req, "member_id") {
		return nil, status.Error(codes.InvalidArgument, "member_id is required")
	}
	h.presence.Report(domain.MemberID(num(req, "member_id")), flag(req, "online"))
	return reply(map[string]any{"success": true})
}

func (h *Handler) StreamEvents(req *structpb.Struct, stream grpc.ServerStream) error {
	var eventTypes []domain.EventType
	for _, v := range req.GetFields()["types"].GetListValue().GetValues() {
		eventTypes = append(eventTypes, domain.EventType(v.GetStringValue()))
	}
	if len(eventTypes) == 0 {
		eventTypes = []domain.EventType{
			domain.EventTypeChatStatus,
			domain.EventTypeChatUpdated,
			domain.EventTypeChatRemoved,
			domain.EventTypeMessageReceived,
			domain.EventTypeMessageRead,
		}
	}

	eventCh := h.eventBus.Subscribe(eventTypes)
	defer h.eventBus.Unsubscribe(eventCh)

	for {
		select {
		case <-stream.Context().Done():
			return nil
		case event, ok := <-eventCh:
			if !ok {
				return nil
			}
			m := eventToMap(event)
			if m == nil {
				continue
			}
			out, err := structpb.NewStruct(m)
			if err != nil {
				return status.Errorf(codes.Internal, "failed to encode event: %v", err)
			}
			if err := stream.SendMsg(out); err != nil {
				if err == io.EOF {
					return nil
				}
				return err
			}
		}
	}
}
