package domain

import (
	"slices"

	"github.com/clippy-oss/homie/im-client/internal/logger"
)

// MaxMessageCount caps the messages a chat keeps in memory.
const MaxMessageCount = 100

type addOptions struct {
	noCap      bool
	local      bool
	keepUnread bool
}

type AddOption func(*addOptions)

// WithoutCap keeps every message instead of trimming to MaxMessageCount.
func WithoutCap() AddOption {
	return func(o *addOptions) { o.noCap = true }
}

// LocalOrigin marks the batch as composed on this client, so it is never unread.
func LocalOrigin() AddOption {
	return func(o *addOptions) { o.local = true }
}

// KeepUnread leaves the unread flag of new messages as given. It is used when
// restoring messages from the local store.
func KeepUnread() AddOption {
	return func(o *addOptions) { o.keepUnread = true }
}

// Messages returns the loaded messages in canonical order.
func (c *Chat) Messages() []*Message {
	return c.messages
}

// HasMessages distinguishes a chat whose messages were never loaded from one with
// zero messages.
func (c *Chat) HasMessages() bool {
	return c.messages != nil
}

func (c *Chat) NoticeCount() int {
	return c.noticeCount
}

// SetNoticeCount overrides the unread count for chats whose messages are not loaded.
// It is rebuilt from the buffer by the next message mutation.
func (c *Chat) SetNoticeCount(n int) {
	c.noticeCount = n
}

func (c *Chat) MaxMsgOrder() int64 {
	return c.maxMsgOrder
}

// NewMsgOrder reserves the next message order for a locally composed message.
func (c *Chat) NewMsgOrder() int64 {
	c.maxMsgOrder++
	return c.maxMsgOrder
}

func (c *Chat) findMessage(gid string) *Message {
	if gid == "" {
		return nil
	}
	for _, m := range c.messages {
		if m.GID == gid {
			return m
		}
	}
	return nil
}

func (c *Chat) countUnread() int {
	n := 0
	for _, m := range c.messages {
		if m.Unread {
			n++
		}
	}
	return n
}

// AddMessage is AddMessages for a single message.
func (c *Chat) AddMessage(msg *Message, viewer MemberID, opts ...AddOption) *Chat {
	return c.AddMessages([]*Message{msg}, viewer, opts...)
}

// AddMessages merges batch into the buffer. Messages whose gid is already loaded
// are updated in place; new ones are appended and are unread unless they are local
// or sent by viewer. Messages without a date are dropped. The buffer ends sorted,
// capped at MaxMessageCount unless WithoutCap is given, and the notice count
// matches its unread messages.
func (c *Chat) AddMessages(batch []*Message, viewer MemberID, opts ...AddOption) *Chat {
	var o addOptions
	for _, opt := range opts {
		opt(&o)
	}
	if c.messages == nil {
		c.messages = []*Message{}
	}
	if len(batch) == 0 {
		return c
	}

	resort := false
	lastActive := c.LastActiveTime()
	for _, msg := range batch {
		if msg == nil {
			continue
		}
		if msg.Date.IsZero() {
			log := logger.Module("domain")
			log.Warn().Err(ErrMalformedMessage).
				Str("chat", c.gid).
				Str("message", msg.GID).
				Msg("Dropping message")
			continue
		}
		if existing := c.findMessage(msg.GID); existing != nil {
			date, order := existing.Date, existing.Order
			existing.Merge(msg)
			// A merge that moves the ordering key needs a sort as well.
			resort = resort || !existing.Date.Equal(date) || existing.Order != order
		} else {
			if !o.keepUnread {
				msg.Unread = !o.local && msg.SenderID != viewer
			}
			c.messages = append(c.messages, msg)
			resort = true
		}
		if msg.Date.After(lastActive) {
			lastActive = msg.Date
		}
		if msg.Order > c.maxMsgOrder {
			c.maxMsgOrder = msg.Order
		}
	}
	c.lastActiveTime = lastActive

	if resort {
		SortMessages(c.messages)
	}
	if !o.noCap && len(c.messages) > MaxMessageCount {
		c.messages = slices.Delete(c.messages, 0, len(c.messages)-MaxMessageCount)
	}
	c.noticeCount = c.countUnread()
	return c
}

// LastMessage returns the newest loaded message, or nil.
func (c *Chat) LastMessage() *Message {
	if len(c.messages) == 0 {
		return nil
	}
	return c.messages[len(c.messages)-1]
}

// RemoveMessage removes the message whose id or gid equals idOrGID.
func (c *Chat) RemoveMessage(idOrGID string) bool {
	if idOrGID == "" {
		return false
	}
	i := slices.IndexFunc(c.messages, func(m *Message) bool {
		return m.ID == idOrGID || m.GID == idOrGID
	})
	if i < 0 {
		return false
	}
	c.messages = slices.Delete(c.messages, i, i+1)
	c.noticeCount = c.countUnread()
	return true
}

// MuteNotice marks every loaded message read and returns the ones that changed.
func (c *Chat) MuteNotice() []*Message {
	c.noticeCount = 0
	var muted []*Message
	for _, m := range c.messages {
		if m.Unread {
			m.Unread = false
			muted = append(muted, m)
		}
	}
	return muted
}
