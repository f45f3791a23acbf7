package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/clippy-oss/homie/im-client/internal/domain"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

var base = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func TestChatRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewChatRepository(openTestDB(t))

	chat := domain.NewGroupChat("Release", 1, 2, 3)
	chat.User = 1
	chat.CreatedDate = base
	chat.SetLastActiveTime(base.Add(time.Hour))
	chat.EnsureGID(nil)
	chat.SetRemoteID("88")
	chat.Star = true
	chat.AddAdmin(domain.MemberID(2))
	chat.SetCommittersValue("2,3")
	require.NoError(t, repo.Upsert(ctx, chat))

	got, err := repo.GetByGID(ctx, chat.GID())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "88", got.ID())
	assert.True(t, got.IsOK())
	assert.True(t, got.Star)
	assert.Equal(t, []domain.MemberID{1, 2, 3}, got.MemberIDs())
	assert.True(t, got.IsAdmin(domain.MemberID(2)))
	assert.Equal(t, domain.CommittersWhitelist, got.CommittersType())
	assert.True(t, got.LastActiveTime().Equal(base.Add(time.Hour)))

	chat.SetName("Release train")
	require.NoError(t, repo.Upsert(ctx, chat))
	got, err = repo.GetByGID(ctx, chat.GID())
	require.NoError(t, err)
	assert.Equal(t, "Release train", got.Name())
}

func TestChatRepositoryMissingChat(t *testing.T) {
	repo := NewChatRepository(openTestDB(t))
	got, err := repo.GetByGID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestChatRepositoryGetAllAndStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewChatRepository(openTestDB(t))

	older := domain.NewOne2OneChat(1, 2)
	older.User = 1
	older.SetLastActiveTime(base)
	newer := domain.NewOne2OneChat(1, 3)
	newer.User = 1
	newer.SetLastActiveTime(base.Add(time.Minute))
	foreign := domain.NewOne2OneChat(4, 5)
	foreign.User = 4
	for _, c := range []*domain.Chat{older, newer, foreign} {
		require.NoError(t, repo.Upsert(ctx, c))
	}

	chats, err := repo.GetAll(ctx, 1)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, newer.GID(), chats[0].GID())
	assert.Equal(t, domain.ChatTypeOne2One, chats[0].Type())

	require.NoError(t, repo.UpdateStatus(ctx, older.GID(), domain.StatusFail))
	got, err := repo.GetByGID(ctx, older.GID())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFail, got.Status())

	require.NoError(t, repo.Delete(ctx, older.GID()))
	chats, err = repo.GetAll(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, chats, 1)
}

func TestMessageRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageRepository(openTestDB(t))

	msgs := []*domain.Message{
		{GID: "a", ChatGID: "1&2", SenderID: 2, Content: "hi", Date: base, Unread: true},
		{GID: "b", ChatGID: "1&2", SenderID: 1, Content: "yo", Date: base.Add(time.Second)},
		{GID: "c", ChatGID: "1&3", SenderID: 3, Content: "hey", Date: base, Unread: true},
		{ChatGID: "1&3", Content: "no gid", Date: base},
	}
	require.NoError(t, repo.Upsert(ctx, msgs...))

	got, err := repo.GetByChatGID(ctx, "1&2", 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].GID)

	unread, err := repo.CountUnread(ctx, "1&2")
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	require.NoError(t, repo.UpdateUnread(ctx, []string{"a"}, false))
	unread, err = repo.CountUnread(ctx, "1&2")
	require.NoError(t, err)
	assert.Equal(t, 0, unread)

	msgs[0].ID = "srv-a"
	msgs[0].Content = "hi there"
	require.NoError(t, repo.Upsert(ctx, msgs[0]))
	stored, err := repo.GetByGID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "hi there", stored.Content)

	require.NoError(t, repo.Delete(ctx, "srv-a"))
	stored, err = repo.GetByGID(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, stored)

	require.NoError(t, repo.DeleteByChatGID(ctx, "1&3"))
	got, err = repo.GetByChatGID(ctx, "1&3", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemberRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemberRepository(openTestDB(t))

	require.NoError(t, repo.Upsert(ctx, &domain.Member{ID: 1, Account: "alice", RealName: "Alice Liddell"}))
	require.NoError(t, repo.Upsert(ctx, &domain.Member{ID: 2, Account: "bob", IsSuperAdmin: true}))
	require.NoError(t, repo.Upsert(ctx, &domain.Member{ID: 2, Account: "bob", RealName: "Bob"}))

	bob, err := repo.GetByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Bob", bob.RealName)
	assert.False(t, bob.IsSuperAdmin)

	found, err := repo.Search(ctx, "lid")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, domain.MemberID(1), found[0].ID)

	require.NoError(t, repo.Delete(ctx, 1))
	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	missing, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
