package domain

import (
	"fmt"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const viewer MemberID = 1

func countUnread(msgs []*Message) int {
	n := 0
	for _, m := range msgs {
		if m.Unread {
			n++
		}
	}
	return n
}

func TestMessagesAbsentUntilFirstAdd(t *testing.T) {
	c := NewOne2OneChat(1, 2)
	assert.False(t, c.HasMessages())
	assert.Nil(t, c.LastMessage())

	c.AddMessages(nil, viewer)
	assert.True(t, c.HasMessages())
	assert.Empty(t, c.Messages())
}

func TestAddMessagesSortsAndDeduplicates(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	c := NewGroupChat("ops", 1, 2, 3)

	for round := 0; round < 20; round++ {
		batch := make([]*Message, 0, 10)
		for i := 0; i < 10; i++ {
			gid := fmt.Sprintf("m%d", r.Intn(60))
			batch = append(batch, msg(gid, MemberID(r.Intn(3)+1), r.Intn(500)))
		}
		c.AddMessages(batch, viewer, WithoutCap())

		msgs := c.Messages()
		assert.True(t, slices.IsSortedFunc(msgs, CompareMessages))
		seen := map[string]bool{}
		for _, m := range msgs {
			require.False(t, seen[m.GID], "duplicate gid %s", m.GID)
			seen[m.GID] = true
		}
		assert.Equal(t, countUnread(msgs), c.NoticeCount())
	}
}

func TestAddMessagesUnreadRules(t *testing.T) {
	c := NewOne2OneChat(1, 2)
	c.AddMessages([]*Message{msg("a", 2, 1), msg("b", viewer, 2)}, viewer)
	c.AddMessage(msg("c", 2, 3), viewer, LocalOrigin())

	msgs := c.Messages()
	require.Len(t, msgs, 3)
	assert.True(t, msgs[0].Unread)
	assert.False(t, msgs[1].Unread)
	assert.False(t, msgs[2].Unread)
	assert.Equal(t, 1, c.NoticeCount())
}

func TestAddMessagesMergesExistingGID(t *testing.T) {
	c := NewOne2OneChat(1, 2)
	original := msg("a", 2, 1)
	c.AddMessages([]*Message{original, msg("b", 2, 2)}, viewer)

	update := &Message{GID: "a", ID: "srv-1", Content: "edited", Date: at(1)}
	c.AddMessage(update, viewer)

	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.Same(t, original, msgs[0])
	assert.Equal(t, "edited", msgs[0].Content)
	assert.Equal(t, "srv-1", msgs[0].ID)
	assert.Equal(t, MemberID(2), msgs[0].SenderID)
	assert.True(t, msgs[0].Unread)
	assert.Equal(t, 2, c.NoticeCount())
}

func TestAddMessagesDropsUndatedMessages(t *testing.T) {
	c := NewOne2OneChat(1, 2)
	c.AddMessages([]*Message{{GID: "x", SenderID: 2}, msg("a", 2, 1), nil}, viewer)
	require.Len(t, c.Messages(), 1)
	assert.Equal(t, "a", c.LastMessage().GID)
}

func TestAddMessagesRetentionCap(t *testing.T) {
	c := NewGroupChat("ops", 1, 2)
	batch := make([]*Message, 0, 150)
	for i := 149; i >= 0; i-- {
		batch = append(batch, msg(fmt.Sprintf("m%03d", i), 2, i))
	}
	c.AddMessages(batch, viewer)

	msgs := c.Messages()
	require.Len(t, msgs, MaxMessageCount)
	assert.Equal(t, "m050", msgs[0].GID)
	assert.Equal(t, "m149", c.LastMessage().GID)
	assert.Equal(t, MaxMessageCount, c.NoticeCount())

	uncapped := NewGroupChat("ops", 1, 2)
	uncapped.AddMessages(batch, viewer, WithoutCap())
	assert.Len(t, uncapped.Messages(), 150)
}

func TestAddMessagesTracksActivityAndOrder(t *testing.T) {
	c := NewGroupChat("ops", 1, 2)
	c.CreatedDate = at(0)
	first := msg("a", 2, 30)
	first.Order = 4
	second := msg("b", 2, 10)
	second.Order = 9
	c.AddMessages([]*Message{first, second}, viewer)

	assert.Equal(t, at(30), c.LastActiveTime())
	assert.Equal(t, int64(9), c.MaxMsgOrder())
	assert.Equal(t, int64(10), c.NewMsgOrder())

	c.AddMessage(msg("c", 2, 5), viewer)
	assert.Equal(t, at(30), c.LastActiveTime())
}

func TestMessagesWithSameDateOrderByOrder(t *testing.T) {
	c := NewGroupChat("ops", 1, 2)
	late := msg("z", 2, 1)
	late.Order = 2
	early := msg("y", 2, 1)
	early.Order = 1
	c.AddMessages([]*Message{late, early}, viewer)
	assert.Equal(t, []*Message{early, late}, c.Messages())
}

func TestMuteNotice(t *testing.T) {
	c := NewOne2OneChat(1, 2)
	c.AddMessages([]*Message{msg("a", 2, 1), msg("b", viewer, 2), msg("c", 2, 3)}, viewer)
	require.Equal(t, 2, c.NoticeCount())

	muted := c.MuteNotice()
	assert.Len(t, muted, 2)
	assert.Equal(t, 0, c.NoticeCount())
	assert.Equal(t, 0, countUnread(c.Messages()))
	assert.Empty(t, c.MuteNotice())
}

func TestRemoveMessage(t *testing.T) {
	c := NewOne2OneChat(1, 2)
	withID := msg("a", 2, 1)
	withID.ID = "srv-9"
	c.AddMessages([]*Message{withID, msg("b", 2, 2)}, viewer)

	assert.True(t, c.RemoveMessage("srv-9"))
	assert.True(t, c.RemoveMessage("b"))
	assert.False(t, c.RemoveMessage("b"))
	assert.False(t, c.RemoveMessage(""))
	assert.Empty(t, c.Messages())
	assert.Equal(t, 0, c.NoticeCount())
}

func TestKeepUnreadRestoresStoredFlags(t *testing.T) {
	c := NewOne2OneChat(1, 2)
	stored := msg("a", 2, 1)
	stored.Unread = false
	own := msg("b", viewer, 2)
	own.Unread = true
	c.AddMessages([]*Message{stored, own}, viewer, KeepUnread())

	assert.False(t, c.Messages()[0].Unread)
	assert.True(t, c.Messages()[1].Unread)
	assert.Equal(t, 1, c.NoticeCount())
}
