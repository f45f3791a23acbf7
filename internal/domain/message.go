package domain

import (
	"cmp"
	"slices"
	"time"
)

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeFile  MessageType = "file"
	MessageTypeEmoji MessageType = "emoji"
)

type Message struct {
	ID       string
	GID      string
	ChatGID  string
	SenderID MemberID
	Type     MessageType
	Content  string
	Date     time.Time
	// Order breaks ties between messages sent within the same instant.
	Order  int64
	Unread bool
}

// Merge copies the set fields of other onto m. The unread flag is local state and
// stays as it is.
func (m *Message) Merge(other *Message) {
	if other.ID != "" {
		m.ID = other.ID
	}
	if other.ChatGID != "" {
		m.ChatGID = other.ChatGID
	}
	if other.SenderID != 0 {
		m.SenderID = other.SenderID
	}
	if other.Type != "" {
		m.Type = other.Type
	}
	if other.Content != "" {
		m.Content = other.Content
	}
	if !other.Date.IsZero() {
		m.Date = other.Date
	}
	if other.Order != 0 {
		m.Order = other.Order
	}
}

// CompareMessages orders messages by date, then order, then gid.
func CompareMessages(a, b *Message) int {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Order, b.Order); c != 0 {
		return c
	}
	return cmp.Compare(a.GID, b.GID)
}

// SortMessages sorts msgs in place into canonical order.
func SortMessages(msgs []*Message) {
	slices.SortStableFunc(msgs, CompareMessages)
}
