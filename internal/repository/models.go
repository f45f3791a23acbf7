package repository

import (
	"strings"
	"time"

	"github.com/clippy-oss/homie/im-client/internal/domain"
)

type ChatModel struct {
	GID            string    `gorm:"primaryKey;column:gid"`
	RemoteID       string    `gorm:"column:remote_id;index"`
	Status         int       `gorm:"column:status;index"`
	User           int64     `gorm:"column:user;index"`
	Type           string    `gorm:"column:type;index"`
	Name           string    `gorm:"column:name;index"`
	CreatedDate    time.Time `gorm:"column:created_date;index"`
	CreatedBy      string    `gorm:"column:created_by;index"`
	EditedDate     time.Time `gorm:"column:edited_date"`
	LastActiveTime time.Time `gorm:"column:last_active_time;index"`
	Star           bool      `gorm:"column:star;index"`
	Mute           bool      `gorm:"column:mute;index"`
	Public         bool      `gorm:"column:public;index"`
	Hide           bool      `gorm:"column:hide;index"`
	Admins         string    `gorm:"column:admins"`
	Members        string    `gorm:"column:members"`
	Committers     string    `gorm:"column:committers"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (ChatModel) TableName() string { return "chats" }

type MessageModel struct {
	GID       string    `gorm:"primaryKey;column:gid"`
	RemoteID  string    `gorm:"column:remote_id;index"`
	ChatGID   string    `gorm:"column:chat_gid;index:idx_chat_date"`
	SenderID  int64     `gorm:"column:sender_id"`
	Type      string    `gorm:"column:type"`
	Content   string    `gorm:"column:content"`
	Date      time.Time `gorm:"column:date;index:idx_chat_date"`
	Order     int64     `gorm:"column:msg_order"`
	Unread    bool      `gorm:"column:unread;index"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (MessageModel) TableName() string { return "messages" }

type MemberModel struct {
	ID           int64     `gorm:"primaryKey;autoIncrement:false;column:id"`
	Account      string    `gorm:"column:account;index"`
	RealName     string    `gorm:"column:real_name"`
	IsSuperAdmin bool      `gorm:"column:is_super_admin"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (MemberModel) TableName() string { return "members" }

// Set fields are stored as comma separated text.
func joinSet(values []string) string {
	return strings.Join(values, ",")
}

func splitSet(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// Conversion functions
func ChatModelToDomain(m *ChatModel) *domain.Chat {
	if m == nil {
		return nil
	}

	var members []domain.MemberID
	for _, raw := range splitSet(m.Members) {
		id, err := domain.ParseMemberID(raw)
		if err != nil {
			continue
		}
		members = append(members, id)
	}

	return domain.ChatFromRecord(domain.ChatRecord{
		ID:             m.RemoteID,
		GID:            m.GID,
		Status:         domain.ChatStatus(m.Status),
		User:           domain.MemberID(m.User),
		Type:           domain.ChatType(m.Type),
		Name:           m.Name,
		CreatedDate:    m.CreatedDate,
		CreatedBy:      m.CreatedBy,
		EditedDate:     m.EditedDate,
		LastActiveTime: m.LastActiveTime,
		Star:           m.Star,
		Mute:           m.Mute,
		Public:         m.Public,
		Hidden:         m.Hide,
		Admins:         splitSet(m.Admins),
		Members:        members,
		Committers:     m.Committers,
	})
}

func ChatDomainToModel(chat *domain.Chat) *ChatModel {
	if chat == nil {
		return nil
	}

	r := chat.Record()
	members := make([]string, len(r.Members))
	for i, id := range r.Members {
		members[i] = id.String()
	}

	return &ChatModel{
		GID:            r.GID,
		RemoteID:       r.ID,
		Status:         int(r.Status),
		User:           int64(r.User),
		Type:           string(r.Type),
		Name:           r.Name,
		CreatedDate:    r.CreatedDate,
		CreatedBy:      r.CreatedBy,
		EditedDate:     r.EditedDate,
		LastActiveTime: r.LastActiveTime,
		Star:           r.Star,
		Mute:           r.Mute,
		Public:         r.Public,
		Hide:           r.Hidden,
		Admins:         joinSet(r.Admins),
		Members:        joinSet(members),
		Committers:     r.Committers,
	}
}

func MessageModelToDomain(m *MessageModel) *domain.Message {
	if m == nil {
		return nil
	}

	return &domain.Message{
		ID:       m.RemoteID,
		GID:      m.GID,
		ChatGID:  m.ChatGID,
		SenderID: domain.MemberID(m.SenderID),
		Type:     domain.MessageType(m.Type),
		Content:  m.Content,
		Date:     m.Date,
		Order:    m.Order,
		Unread:   m.Unread,
	}
}

func MessageDomainToModel(msg *domain.Message) *MessageModel {
	if msg == nil {
		return nil
	}

	return &MessageModel{
		GID:      msg.GID,
		RemoteID: msg.ID,
		ChatGID:  msg.ChatGID,
		SenderID: int64(msg.SenderID),
		Type:     string(msg.Type),
		Content:  msg.Content,
		Date:     msg.Date,
		Order:    msg.Order,
		Unread:   msg.Unread,
	}
}

func MemberModelToDomain(m *MemberModel) *domain.Member {
	if m == nil {
		return nil
	}

	return &domain.Member{
		ID:           domain.MemberID(m.ID),
		Account:      m.Account,
		RealName:     m.RealName,
		IsSuperAdmin: m.IsSuperAdmin,
	}
}

func MemberDomainToModel(member *domain.Member) *MemberModel {
	if member == nil {
		return nil
	}

	return &MemberModel{
		ID:           int64(member.ID),
		Account:      member.Account,
		RealName:     member.RealName,
		IsSuperAdmin: member.IsSuperAdmin,
	}
}
