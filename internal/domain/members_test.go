package domain

import (
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhitelistGrantsCommitRights(t *testing.T) {
	c := NewGroupChat("release", 1, 2, 3)
	c.SetCommittersValue(CommittersValueEmptyWhitelist)
	member := &Member{ID: 2, Account: "bob"}

	require.Equal(t, CommittersWhitelist, c.CommittersType())
	assert.False(t, c.IsCommitter(member))
	assert.False(t, c.CanRename(member))
	assert.True(t, c.IsReadonly(member))

	assert.True(t, c.AddToWhitelist(member))
	assert.True(t, c.IsCommitter(member))
	assert.True(t, c.CanRename(member))
	assert.Equal(t, "2", c.CommittersValue())

	assert.False(t, c.AddToWhitelist(MemberID(2)), "second add must not write")
}

func TestRemoveFromWhitelistKeepsPolicy(t *testing.T) {
	c := NewGroupChat("release", 1, 2, 3)
	c.SetCommittersValue("2,3")

	assert.True(t, c.RemoveFromWhitelist(MemberID(3)))
	assert.Equal(t, "2", c.CommittersValue())
	assert.False(t, c.RemoveFromWhitelist(MemberID(3)))

	assert.True(t, c.RemoveFromWhitelist(MemberID(2)))
	assert.Equal(t, CommittersWhitelist, c.CommittersType())
	assert.Equal(t, 0, c.Whitelist().Cardinality())
}

func TestWhitelistDropsNonNumericTokens(t *testing.T) {
	c := NewGroupChat("release", 1)
	c.SetCommittersValue("4,abc,,9")
	assert.ElementsMatch(t, []MemberID{4, 9}, c.Whitelist().ToSlice())
	assert.Equal(t, 4, c.Committers().Cardinality())
}

func TestWhitelistMutationWithoutWhitelistPolicy(t *testing.T) {
	c := NewGroupChat("release", 1, 2)
	assert.Nil(t, c.Whitelist())
	assert.False(t, c.AddToWhitelist(MemberID(2)))
	assert.False(t, c.RemoveFromWhitelist(MemberID(2)))
	assert.False(t, c.IsInWhitelist(MemberID(2)))
}

func TestSetWhitelistOnOne2OneIsCleared(t *testing.T) {
	c := NewOne2OneChat(1, 2)
	c.SetWhitelist(mapset.NewThreadUnsafeSet[MemberID](1))
	assert.Equal(t, "", c.CommittersValue())
	assert.Equal(t, CommittersAll, c.CommittersType())
}

func TestCommittersType(t *testing.T) {
	c := NewGroupChat("release", 1, 2, 3)
	assert.Equal(t, CommittersAll, c.CommittersType())

	c.SetCommittersValue(CommittersValueAll)
	assert.Equal(t, CommittersAll, c.CommittersType())

	c.SetCommittersValue(CommittersValueAdmins)
	assert.Equal(t, CommittersAdmins, c.CommittersType())
	assert.Equal(t, 0, c.Committers().Cardinality())
	assert.True(t, c.IsCommitter(MemberID(1)), "owner is admin")
	assert.False(t, c.IsCommitter(MemberID(2)))

	one := NewOne2OneChat(1, 2)
	one.SetCommittersValue("1")
	assert.Equal(t, CommittersAll, one.CommittersType())
}

func TestSystemSuperAdminIsAdmin(t *testing.T) {
	c := NewSystemChat("system", "")
	c.SetMemberIDs(1, 2, 3)
	root := &Member{ID: 3, Account: "root", IsSuperAdmin: true}

	assert.Empty(t, c.Admins())
	assert.True(t, c.IsAdmin(root))
	assert.False(t, c.IsAdmin(MemberID(3)))

	group := NewGroupChat("ops", 1, 3)
	assert.False(t, group.IsAdmin(root))
}

func TestIsAdminByOwnerIDOrAccount(t *testing.T) {
	c := NewGroupChat("ops", 1, 2, 3)
	assert.True(t, c.IsOwner(MemberID(1)))
	assert.True(t, c.IsAdmin(&Member{ID: 1}))

	c.CreatedBy = "alice"
	assert.True(t, c.IsAdmin(&Member{ID: 5, Account: "alice"}))
	assert.False(t, c.IsAdmin(MemberID(1)))

	assert.True(t, c.AddAdmin(&Member{ID: 2}))
	assert.False(t, c.AddAdmin(MemberID(2)))
	assert.True(t, c.IsAdmin(MemberID(2)))

	c.admins.Add("carol")
	assert.True(t, c.IsAdmin(&Member{ID: 3, Account: "carol"}))
}

func TestOne2OneCannotBeMadePublic(t *testing.T) {
	c := NewOne2OneChat(1, 2)
	c.CreatedBy = "1"
	c.AddAdmin(MemberID(2))
	for _, who := range []Identity{MemberID(1), MemberID(2), MemberID(3), &Member{ID: 4, IsSuperAdmin: true}} {
		assert.False(t, c.CanMakePublic(who))
		assert.False(t, c.CanRename(who))
		assert.False(t, c.CanSetCommitters(who))
	}
	assert.False(t, c.CanExit())
}

func TestGroupCapabilities(t *testing.T) {
	c := NewGroupChat("ops", 1, 2)
	assert.True(t, c.CanMakePublic(MemberID(1)))
	assert.False(t, c.CanMakePublic(MemberID(2)))
	assert.True(t, c.CanSetCommitters(MemberID(1)))
	assert.True(t, c.CanInvite(MemberID(2)))
	assert.True(t, c.CanExit())
	assert.False(t, c.CanJoin())
	c.Public = true
	assert.True(t, c.CanJoin())

	system := NewSystemChat("all", "Everyone")
	system.AddAdmin(MemberID(1))
	assert.False(t, system.CanInvite(MemberID(1)))
	assert.False(t, system.CanMakePublic(MemberID(1)))
	assert.True(t, system.CanSetCommitters(MemberID(1)))
	assert.False(t, system.CanExit())
}

func TestAddMembersExtendsResolvedList(t *testing.T) {
	alice := &Member{ID: 1, Account: "alice"}
	bob := &Member{ID: 2, Account: "bob"}
	carol := &Member{ID: 3, Account: "carol"}
	dir := directory{1: alice, 2: bob, 3: carol}

	c := NewGroupChat("ops", 1)
	require.Equal(t, []*Member{alice}, c.MembersSet(dir))

	c.AddMembers(bob, alice)
	assert.Equal(t, []*Member{alice, bob}, c.MembersSet(nil))
	assert.Equal(t, 2, c.MembersCount())
	assert.True(t, c.IsMember(bob))
	assert.False(t, c.IsMember(carol))
}

func TestAddMembersLeavesUnresolvedListForRebuild(t *testing.T) {
	alice := &Member{ID: 1}
	bob := &Member{ID: 2}
	c := NewGroupChat("ops", 1)
	c.AddMembers(bob)
	assert.Nil(t, c.MembersSet(nil))
	assert.Equal(t, []*Member{alice, bob}, c.MembersSet(directory{1: alice, 2: bob}))
}

func TestResetAndSetMembersInvalidateCache(t *testing.T) {
	alice := &Member{ID: 1}
	bob := &Member{ID: 2}
	carol := &Member{ID: 3}
	dir := directory{1: alice, 2: bob, 3: carol}

	c := NewGroupChat("ops", 1, 2)
	c.MembersSet(dir)

	c.ResetMembers([]*Member{carol, nil, bob, carol})
	assert.Equal(t, []*Member{carol, bob}, c.MembersSet(nil))
	assert.Equal(t, []MemberID{2, 3}, c.MemberIDs())

	c.SetMemberIDs(1)
	assert.Nil(t, c.MembersSet(nil))
	assert.Equal(t, []*Member{alice}, c.MembersSet(dir))

	assert.True(t, c.RemoveMember(1))
	assert.False(t, c.RemoveMember(1))
	assert.Empty(t, c.MembersSet(dir))
}

func TestTheOtherOneAndOnline(t *testing.T) {
	alice := &Member{ID: 1, RealName: "Alice"}
	bob := &Member{ID: 2, RealName: "Bob"}
	app := newTestApp(1, alice, bob)

	c := NewOne2OneChat(1, 2)
	assert.Same(t, bob, c.TheOtherOne(app))
	assert.False(t, c.IsOnline(app))

	app.online[2] = true
	assert.True(t, c.IsOnline(app))

	group := NewGroupChat("ops", 1, 2, 3)
	assert.Nil(t, group.TheOtherOne(app))
	assert.True(t, group.IsOnline(app))
}

func TestDisplayName(t *testing.T) {
	alice := &Member{ID: 1, RealName: "Alice"}
	bob := &Member{ID: 2, Account: "bob"}
	app := newTestApp(1, alice, bob)

	assert.Equal(t, "bob", NewOne2OneChat(1, 2).DisplayName(app, true))
	assert.Equal(t, "Temporary chat", NewOne2OneChat(1, 9).DisplayName(app, false))

	group := NewGroupChat("Design", 1, 2, 3)
	assert.Equal(t, "Design", group.DisplayName(app, false))
	assert.Equal(t, "Design (3)", group.DisplayName(app, true))

	unnamed := NewGroupChat("", 1, 2, 3)
	assert.Equal(t, "Group(Temporary chat)", unnamed.DisplayName(app, false))
	unnamed.SetRemoteID("12")
	assert.Equal(t, "Group12", unnamed.DisplayName(app, false))
	assert.Equal(t, "[Chat-12]", unnamed.Name())

	system := NewSystemChat("sys", "")
	assert.Equal(t, "All members", system.DisplayName(app, false))
	assert.Equal(t, "All members (all)", system.DisplayName(app, true))
}

func TestPinYinCacheResetsOnRename(t *testing.T) {
	c := NewGroupChat("研发", 1, 2, 3)
	assert.Equal(t, "yanfa", c.PinYin(nil))
	c.SetName("Ops")
	assert.Equal(t, "ops", c.PinYin(nil))
}
