package domain

import (
	"fmt"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/clippy-oss/homie/im-client/internal/lang"
)

type ChatType string

const (
	ChatTypeOne2One ChatType = "one2one"
	ChatTypeGroup   ChatType = "group"
	ChatTypeSystem  ChatType = "system"
)

// Chat is a one-to-one, group or system conversation as held by the client.
//
// A Chat is owned by a single event loop and is not safe for concurrent use.
type Chat struct {
	// User is the local account whose store holds this chat.
	User        MemberID
	CreatedBy   string
	CreatedDate time.Time
	EditedDate  time.Time
	Star        bool
	Mute        bool
	Public      bool
	Hidden      bool

	id             string
	gid            string
	kind           ChatType
	name           string
	lastActiveTime time.Time
	committers     string
	admins         mapset.Set[string]
	members        mapset.Set[MemberID]
	status         statusMachine

	// resolved is nil until built from a Directory; membership changes reset it.
	resolved    []*Member
	theOtherOne *Member
	pinyin      string

	// messages is nil until the first AddMessages call.
	messages    []*Message
	noticeCount int
	maxMsgOrder int64
}

func newChat() *Chat {
	return &Chat{
		admins:  mapset.NewThreadUnsafeSet[string](),
		members: mapset.NewThreadUnsafeSet[MemberID](),
	}
}

// NewOne2OneChat creates a local chat between two members with its gid derived.
func NewOne2OneChat(a, b MemberID) *Chat {
	c := newChat()
	c.kind = ChatTypeOne2One
	c.members.Append(a, b)
	c.CreatedDate = time.Now()
	c.EnsureGID(nil)
	return c
}

// NewGroupChat creates a local group chat. The gid is left for EnsureGID.
func NewGroupChat(name string, createdBy MemberID, members ...MemberID) *Chat {
	c := newChat()
	c.kind = ChatTypeGroup
	c.name = name
	c.CreatedBy = createdBy.String()
	c.CreatedDate = time.Now()
	c.members.Add(createdBy)
	c.members.Append(members...)
	return c
}

// NewSystemChat creates the chat every account belongs to.
func NewSystemChat(gid, name string) *Chat {
	c := newChat()
	c.kind = ChatTypeSystem
	c.gid = gid
	c.name = name
	return c
}

func (c *Chat) GID() string {
	return c.gid
}

// Type returns the stored chat type. Without one, a chat with exactly two members
// is one-to-one and anything else is a group.
func (c *Chat) Type() ChatType {
	if c.kind != "" {
		return c.kind
	}
	if c.members.Cardinality() == 2 {
		return ChatTypeOne2One
	}
	return ChatTypeGroup
}

func (c *Chat) SetType(t ChatType) {
	c.kind = t
	c.theOtherOne = nil
}

func (c *Chat) IsOne2One() bool { return c.Type() == ChatTypeOne2One }
func (c *Chat) IsGroup() bool   { return c.Type() == ChatTypeGroup }
func (c *Chat) IsSystem() bool  { return c.Type() == ChatTypeSystem }

func (c *Chat) IsGroupOrSystem() bool {
	return c.IsGroup() || c.IsSystem()
}

// Name returns the stored name or a placeholder built from the remote id.
func (c *Chat) Name() string {
	if c.name == "" {
		return fmt.Sprintf("[Chat-%s]", c.id)
	}
	return c.name
}

// RawName returns the stored name without the placeholder.
func (c *Chat) RawName() string {
	return c.name
}

func (c *Chat) SetName(name string) {
	c.name = name
	c.pinyin = ""
}

// CanJoin reports whether non-members may join on their own.
func (c *Chat) CanJoin() bool {
	return c.Public && c.IsGroup()
}

// CanExit reports whether members may leave. Only plain groups can be left.
func (c *Chat) CanExit() bool {
	return c.IsGroup()
}

// LastActiveTime falls back to the creation date when no activity was recorded.
func (c *Chat) LastActiveTime() time.Time {
	if c.lastActiveTime.IsZero() {
		return c.CreatedDate
	}
	return c.lastActiveTime
}

func (c *Chat) SetLastActiveTime(t time.Time) {
	c.lastActiveTime = t
}

// MakeActive bumps the chat to the top of recency ordering.
func (c *Chat) MakeActive() {
	c.lastActiveTime = time.Now()
}

func localizer(app App) Localizer {
	if app != nil {
		if l := app.Lang(); l != nil {
			return l
		}
	}
	return lang.Default()
}

// DisplayName derives the title shown in conversation lists. For one-to-one
// chats it is the other member's name; groups may append their member count.
func (c *Chat) DisplayName(app App, includeMemberCount bool) string {
	l := localizer(app)
	name := c.name
	switch {
	case c.IsOne2One():
		if other := c.TheOtherOne(app); other != nil {
			return other.DisplayName()
		}
		return l.String(lang.KeyTempChatName)
	case c.IsSystem():
		if name == "" {
			name = l.String(lang.KeySystemGroupName)
		}
		if includeMemberCount {
			return l.Format(lang.KeyGroupNameFormat, name, l.String(lang.KeyAll))
		}
		return name
	case name != "":
		if includeMemberCount {
			return l.Format(lang.KeyGroupNameFormat, name, c.MembersCount())
		}
		return name
	}
	if c.id != "" {
		return l.String(lang.KeyGroupName) + c.id
	}
	return l.String(lang.KeyGroupName) + "(" + l.String(lang.KeyTempChatName) + ")"
}

// PinYin returns the cached phonetic key of the display name, or of the raw name
// when app is nil.
func (c *Chat) PinYin(app App) string {
	if c.pinyin == "" {
		var s string
		if app != nil {
			s = c.DisplayName(app, false)
		} else {
			s = c.name
		}
		c.pinyin = lang.Pinyin(s)
	}
	return c.pinyin
}
