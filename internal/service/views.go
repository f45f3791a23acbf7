package service

import (
	"slices"
	"time"

	"github.com/clippy-oss/homie/im-client/internal/domain"
)

// ChatView is a read-only snapshot of a chat as the current user sees it.
type ChatView struct {
	ID             string
	GID            string
	Type           domain.ChatType
	Name           string
	DisplayName    string
	Status         domain.ChatStatus
	Star           bool
	Mute           bool
	Public         bool
	Hidden         bool
	Online         bool
	NoticeCount    int
	MembersCount   int
	Members        []domain.MemberID
	CreatedBy      string
	CreatedDate    time.Time
	LastActiveTime time.Time
	LastMessage    *domain.Message
}

// Permissions are the capability checks of a chat evaluated for the current user.
type Permissions struct {
	IsAdmin          bool
	IsOwner          bool
	Readonly         bool
	CanRename        bool
	CanInvite        bool
	CanMakePublic    bool
	CanSetCommitters bool
	CanExit          bool
	CanJoin          bool
	CommittersType   domain.CommittersType
	Whitelist        []domain.MemberID
}

func newChatView(chat *domain.Chat, app domain.App) ChatView {
	v := ChatView{
		ID:             chat.ID(),
		GID:            chat.GID(),
		Type:           chat.Type(),
		Name:           chat.RawName(),
		DisplayName:    chat.DisplayName(app, true),
		Status:         chat.Status(),
		Star:           chat.Star,
		Mute:           chat.Mute,
		Public:         chat.Public,
		Hidden:         chat.Hidden,
		Online:         chat.IsOnline(app),
		NoticeCount:    chat.NoticeCount(),
		MembersCount:   chat.MembersCount(),
		Members:        chat.MemberIDs(),
		CreatedBy:      chat.CreatedBy,
		CreatedDate:    chat.CreatedDate,
		LastActiveTime: chat.LastActiveTime(),
	}
	if last := chat.LastMessage(); last != nil {
		msg := *last
		v.LastMessage = &msg
	}
	return v
}

func newPermissions(chat *domain.Chat, user *domain.Member) Permissions {
	p := Permissions{
		IsAdmin:          chat.IsAdmin(user),
		IsOwner:          chat.IsOwner(user),
		Readonly:         chat.IsReadonly(user),
		CanRename:        chat.CanRename(user),
		CanInvite:        chat.CanInvite(user),
		CanMakePublic:    chat.CanMakePublic(user),
		CanSetCommitters: chat.CanSetCommitters(user),
		CanExit:          chat.CanExit(),
		CanJoin:          chat.CanJoin(),
		CommittersType:   chat.CommittersType(),
	}
	if wl := chat.Whitelist(); wl != nil {
		p.Whitelist = wl.ToSlice()
		slices.Sort(p.Whitelist)
	}
	return p
}

func copyMessages(msgs []*domain.Message) []domain.Message {
	out := make([]domain.Message, len(msgs))
	for i, m := range msgs {
		out[i] = *m
	}
	return out
}
