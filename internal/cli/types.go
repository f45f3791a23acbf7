package cli

import (
	"time"

	"github.com/clippy-oss/homie/im-client/internal/domain"
	"github.com/clippy-oss/homie/im-client/internal/service"
)

// Request represents a JSON request in headless mode
type Request struct {
	ID      string         `json:"id,omitempty"`
	Command string         `json:"command"`
	Params  map[string]any `json:"params,omitempty"`
}

// Response represents a JSON response in headless mode
type Response struct {
	ID      string `json:"id,omitempty"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Event represents a real-time event in headless mode
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

type ChatInfo struct {
	GID             string    `json:"gid"`
	ID              string    `json:"id,omitempty"`
	Name            string    `json:"name"`
	Type            string    `json:"type"`
	Status          string    `json:"status"`
	Star            bool      `json:"star,omitempty"`
	Mute            bool      `json:"mute,omitempty"`
	Public          bool      `json:"public,omitempty"`
	Online          bool      `json:"online"`
	UnreadCount     int       `json:"unread_count"`
	MembersCount    int       `json:"members_count"`
	LastActiveTime  time.Time `json:"last_active_time"`
	LastMessageText string    `json:"last_message_text,omitempty"`
}

type MessageInfo struct {
	ID       string    `json:"id,omitempty"`
	GID      string    `json:"gid"`
	ChatGID  string    `json:"chat_gid"`
	SenderID int64     `json:"sender_id"`
	Type     string    `json:"type"`
	Content  string    `json:"content,omitempty"`
	Date     time.Time `json:"date"`
	Order    int64     `json:"order"`
	IsFromMe bool      `json:"is_from_me"`
	Unread   bool      `json:"unread"`
}

type PermissionsInfo struct {
	IsAdmin          bool    `json:"is_admin"`
	IsOwner          bool    `json:"is_owner"`
	Readonly         bool    `json:"readonly"`
	CanRename        bool    `json:"can_rename"`
	CanInvite        bool    `json:"can_invite"`
	CanMakePublic    bool    `json:"can_make_public"`
	CanSetCommitters bool    `json:"can_set_committers"`
	CanExit          bool    `json:"can_exit"`
	CanJoin          bool    `json:"can_join"`
	CommittersType   string  `json:"committers_type"`
	Whitelist        []int64 `json:"whitelist,omitempty"`
}

// SessionInfo describes the signed in user.
type SessionInfo struct {
	UserID     int64  `json:"user_id"`
	Name       string `json:"name"`
	ActiveChat string `json:"active_chat,omitempty"`
	Chats      int    `json:"chats"`
}

func newChatInfo(v service.ChatView) ChatInfo {
	info := ChatInfo{
		GID:            v.GID,
		ID:             v.ID,
		Name:           v.DisplayName,
		Type:           string(v.Type),
		Status:         v.Status.String(),
		Star:           v.Star,
		Mute:           v.Mute,
		Public:         v.Public,
		Online:         v.Online,
		UnreadCount:    v.NoticeCount,
		MembersCount:   v.MembersCount,
		LastActiveTime: v.LastActiveTime,
	}
	if v.LastMessage != nil {
		info.LastMessageText = v.LastMessage.Content
	}
	return info
}

func newMessageInfo(msg domain.Message, self domain.MemberID) MessageInfo {
	return MessageInfo{
		ID:       msg.ID,
		GID:      msg.GID,
		ChatGID:  msg.ChatGID,
		SenderID: int64(msg.SenderID),
		Type:     string(msg.Type),
		Content:  msg.Content,
		Date:     msg.Date,
		Order:    msg.Order,
		IsFromMe: msg.SenderID == self,
		Unread:   msg.Unread,
	}
}

func newPermissionsInfo(p service.Permissions) PermissionsInfo {
	info := PermissionsInfo{
		IsAdmin:          p.IsAdmin,
		IsOwner:          p.IsOwner,
		Readonly:         p.Readonly,
		CanRename:        p.CanRename,
		CanInvite:        p.CanInvite,
		CanMakePublic:    p.CanMakePublic,
		CanSetCommitters: p.CanSetCommitters,
		CanExit:          p.CanExit,
		CanJoin:          p.CanJoin,
		CommittersType:   string(p.CommittersType),
	}
	for _, id := range p.Whitelist {
		info.Whitelist = append(info.Whitelist, int64(id))
	}
	return info
}
