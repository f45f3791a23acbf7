package grpc

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/clippy-oss/homie/im-client/internal/domain"
	"github.com/clippy-oss/homie/im-client/internal/service"
)

// Conversion helpers. structpb only accepts []any and map[string]any for
// composite values, so ids and lists are converted explicitly.

func str(in *structpb.Struct, key string) string {
	return in.GetFields()[key].GetStringValue()
}

func num(in *structpb.Struct, key string) int64 {
	return int64(in.GetFields()[key].GetNumberValue())
}

func flag(in *structpb.Struct, key string) bool {
	return in.GetFields()[key].GetBoolValue()
}

func has(in *structpb.Struct, key string) bool {
	_, ok := in.GetFields()[key]
	return ok
}

func requireGID(in *structpb.Struct) (string, error) {
	gid := str(in, "gid")
	if gid == "" {
		return "", status.Error(codes.InvalidArgument, "gid is required")
	}
	return gid, nil
}

func memberIDs(v *structpb.Value) []domain.MemberID {
	var ids []domain.MemberID
	for _, item := range v.GetListValue().GetValues() {
		ids = append(ids, domain.MemberID(item.GetNumberValue()))
	}
	return ids
}

func idList(ids []domain.MemberID) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

func timeValue(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func chatToMap(v service.ChatView) map[string]any {
	m := map[string]any{
		"gid":              v.GID,
		"id":               v.ID,
		"type":             string(v.Type),
		"name":             v.Name,
		"display_name":     v.DisplayName,
		"status":           v.Status.String(),
		"star":             v.Star,
		"mute":             v.Mute,
		"public":           v.Public,
		"hidden":           v.Hidden,
		"online":           v.Online,
		"unread_count":     v.NoticeCount,
		"members_count":    v.MembersCount,
		"members":          idList(v.Members),
		"created_by":       v.CreatedBy,
		"created_date":     timeValue(v.CreatedDate),
		"last_active_time": timeValue(v.LastActiveTime),
	}
	if v.LastMessage != nil {
		m["last_message"] = messageToMap(*v.LastMessage)
	}
	return m
}

func messageToMap(msg domain.Message) map[string]any {
	return map[string]any{
		"id":        msg.ID,
		"gid":       msg.GID,
		"chat_gid":  msg.ChatGID,
		"sender_id": int64(msg.SenderID),
		"type":      string(msg.Type),
		"content":   msg.Content,
		"date":      timeValue(msg.Date),
		"order":     msg.Order,
		"unread":    msg.Unread,
	}
}

func messageFromStruct(in *structpb.Struct) (*domain.Message, error) {
	date, err := parseTime(str(in, "date"))
	if err != nil {
		return nil, fmt.Errorf("invalid date: %w", err)
	}
	msgType := domain.MessageType(str(in, "type"))
	if msgType == "" {
		msgType = domain.MessageTypeText
	}
	return &domain.Message{
		ID:       str(in, "id"),
		GID:      str(in, "gid"),
		ChatGID:  str(in, "chat_gid"),
		SenderID: domain.MemberID(num(in, "sender_id")),
		Type:     msgType,
		Content:  str(in, "content"),
		Date:     date,
		Order:    num(in, "order"),
	}, nil
}

func chatRecordFromStruct(in *structpb.Struct) (domain.ChatRecord, error) {
	created, err := parseTime(str(in, "created_date"))
	if err != nil {
		return domain.ChatRecord{}, fmt.Errorf("invalid created_date: %w", err)
	}
	var admins []string
	for _, item := range in.GetFields()["admins"].GetListValue().GetValues() {
		switch v := item.GetKind().(type) {
		case *structpb.Value_StringValue:
			admins = append(admins, v.StringValue)
		case *structpb.Value_NumberValue:
			admins = append(admins, domain.MemberID(v.NumberValue).String())
		}
	}
	return domain.ChatRecord{
		ID:          str(in, "id"),
		GID:         str(in, "gid"),
		Type:        domain.ChatType(str(in, "type")),
		Name:        str(in, "name"),
		CreatedBy:   str(in, "created_by"),
		CreatedDate: created,
		Public:      flag(in, "public"),
		Admins:      admins,
		Members:     memberIDs(in.GetFields()["members"]),
		Committers:  str(in, "committers"),
	}, nil
}

func permissionsToMap(p service.Permissions) map[string]any {
	return map[string]any{
		"is_admin":           p.IsAdmin,
		"is_owner":           p.IsOwner,
		"readonly":           p.Readonly,
		"can_rename":         p.CanRename,
		"can_invite":         p.CanInvite,
		"can_make_public":    p.CanMakePublic,
		"can_set_committers": p.CanSetCommitters,
		"can_exit":           p.CanExit,
		"can_join":           p.CanJoin,
		"committers_type":    string(p.CommittersType),
		"whitelist":          idList(p.Whitelist),
	}
}

func eventToMap(event domain.Event) map[string]any {
	m := map[string]any{
		"type":      string(event.Type()),
		"timestamp": timeValue(event.Timestamp()),
	}
	switch e := event.(type) {
	case domain.ChatStatusEvent:
		m["chat_gid"] = e.ChatGID
		m["status"] = e.Status.String()
	case domain.ChatUpdatedEvent:
		m["chat_gid"] = e.Chat.GID
		m["name"] = e.Chat.Name
		m["members"] = idList(e.Chat.Members)
	case domain.ChatRemovedEvent:
		m["chat_gid"] = e.ChatGID
	case domain.MessageReceivedEvent:
		m["chat_gid"] = e.ChatGID
		msgs := make([]any, len(e.Messages))
		for i, msg := range e.Messages {
			msgs[i] = messageToMap(msg)
		}
		m["messages"] = msgs
	case domain.MessageReadEvent:
		m["chat_gid"] = e.ChatGID
		gids := make([]any, len(e.MessageGIDs))
		for i, gid := range e.MessageGIDs {
			gids[i] = gid
		}
		m["message_gids"] = gids
	case domain.PresenceUpdatedEvent:
		m["member_id"] = int64(e.MemberID)
		m["online"] = e.Online
	default:
		return nil
	}
	return m
}

// toStatus maps service errors onto gRPC codes.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, domain.ErrChatNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrPermissionDenied):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, service.ErrChatBusy):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, service.ErrRemoteRejected):
		return status.Error(codes.Aborted, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

func reply(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}
