package domain

import (
	"slices"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

type CommittersType string

const (
	CommittersAdmins    CommittersType = "admins"
	CommittersWhitelist CommittersType = "whitelist"
	CommittersAll       CommittersType = "all"
)

// Raw values of the committers field besides a comma separated id list.
const (
	CommittersValueAdmins = "$ADMINS"
	CommittersValueAll    = "$ALL"
	// CommittersValueEmptyWhitelist keeps the whitelist policy when every id was
	// removed from the list. It contains no numeric token, so it parses as empty.
	CommittersValueEmptyWhitelist = "$WHITELIST"
)

// Members returns a copy of the member id set.
func (c *Chat) Members() mapset.Set[MemberID] {
	return c.members.Clone()
}

// MemberIDs returns the member ids in ascending order.
func (c *Chat) MemberIDs() []MemberID {
	ids := c.members.ToSlice()
	slices.Sort(ids)
	return ids
}

func (c *Chat) MembersCount() int {
	return c.members.Cardinality()
}

func (c *Chat) IsMember(who Identity) bool {
	id, _, _ := who.identity()
	return c.members.Contains(id)
}

func (c *Chat) invalidateMembers() {
	c.resolved = nil
	c.theOtherOne = nil
	c.pinyin = ""
}

// SetMemberIDs replaces the member set. Resolved members are rebuilt on next use.
func (c *Chat) SetMemberIDs(ids ...MemberID) {
	c.members = mapset.NewThreadUnsafeSet(ids...)
	c.invalidateMembers()
}

// ResetMembers replaces the member set and the resolved member list together.
func (c *Chat) ResetMembers(members []*Member) {
	c.members = mapset.NewThreadUnsafeSet[MemberID]()
	c.resolved = make([]*Member, 0, len(members))
	for _, m := range members {
		if m != nil && c.members.Add(m.ID) {
			c.resolved = append(c.resolved, m)
		}
	}
	c.theOtherOne = nil
	c.pinyin = ""
}

// AddMembers merges members into the chat, ignoring ones already present. An already
// resolved member list is extended in place; otherwise it stays unresolved.
func (c *Chat) AddMembers(members ...*Member) {
	changed := false
	for _, m := range members {
		if m == nil || !c.members.Add(m.ID) {
			continue
		}
		changed = true
		if c.resolved != nil {
			c.resolved = append(c.resolved, m)
		}
	}
	if changed {
		c.theOtherOne = nil
		c.pinyin = ""
	}
}

// RemoveMember drops id from the member set and reports whether it was present.
func (c *Chat) RemoveMember(id MemberID) bool {
	if !c.members.Contains(id) {
		return false
	}
	c.members.Remove(id)
	c.invalidateMembers()
	return true
}

// MembersSet returns the resolved member list, building it from dir on first use.
// Ids dir does not know are left out.
func (c *Chat) MembersSet(dir Directory) []*Member {
	if c.resolved == nil && dir != nil {
		c.resolved = make([]*Member, 0, c.members.Cardinality())
		for _, id := range c.MemberIDs() {
			if m := dir.Member(id); m != nil {
				c.resolved = append(c.resolved, m)
			}
		}
	}
	return c.resolved
}

// TheOtherOne returns the member of a one-to-one chat who is not the current user.
func (c *Chat) TheOtherOne(app App) *Member {
	if !c.IsOne2One() || app == nil {
		return nil
	}
	if c.theOtherOne == nil {
		var self MemberID
		if u := app.CurrentUser(); u != nil {
			self = u.ID
		}
		for _, m := range c.MembersSet(app.Members()) {
			if m.ID != self {
				c.theOtherOne = m
				break
			}
		}
	}
	return c.theOtherOne
}

// IsOnline reports the other member's presence for one-to-one chats. Group and
// system chats are always online.
func (c *Chat) IsOnline(app App) bool {
	if !c.IsOne2One() {
		return true
	}
	other := c.TheOtherOne(app)
	if other == nil {
		return false
	}
	presence := app.Presence()
	return presence != nil && presence.IsOnline(other.ID)
}

func (c *Chat) IsOwner(who Identity) bool {
	if c.CreatedBy == "" {
		return false
	}
	id, account, _ := who.identity()
	return id.String() == c.CreatedBy || account == c.CreatedBy
}

// Admins returns the admin entries, member ids or accounts, in ascending order.
func (c *Chat) Admins() []string {
	admins := c.admins.ToSlice()
	slices.Sort(admins)
	return admins
}

// IsAdmin is true for super admins of a system chat, for the owner, and for
// members listed by id or account in the admin set.
func (c *Chat) IsAdmin(who Identity) bool {
	id, account, superAdmin := who.identity()
	if c.IsSystem() && superAdmin {
		return true
	}
	if c.IsOwner(who) {
		return true
	}
	return c.admins.Contains(id.String()) || (account != "" && c.admins.Contains(account))
}

// AddAdmin adds the member id to the admin set and reports whether it was new.
func (c *Chat) AddAdmin(who Identity) bool {
	id, _, _ := who.identity()
	return c.admins.Add(id.String())
}

// CommittersValue returns the raw committers field.
func (c *Chat) CommittersValue() string {
	return c.committers
}

// SetCommittersValue stores the raw committers field as is.
func (c *Chat) SetCommittersValue(v string) {
	c.committers = v
}

// Committers returns the raw whitelist tokens. It is empty for the admins policy.
func (c *Chat) Committers() mapset.Set[string] {
	set := mapset.NewThreadUnsafeSet[string]()
	if c.committers == "" || c.committers == CommittersValueAdmins {
		return set
	}
	set.Append(strings.Split(c.committers, ",")...)
	return set
}

func (c *Chat) CommittersType() CommittersType {
	v := c.committers
	if c.IsGroupOrSystem() && v != "" && v != CommittersValueAll {
		if v == CommittersValueAdmins {
			return CommittersAdmins
		}
		return CommittersWhitelist
	}
	return CommittersAll
}

func (c *Chat) IsCommitter(who Identity) bool {
	switch c.CommittersType() {
	case CommittersAdmins:
		return c.IsAdmin(who)
	case CommittersWhitelist:
		return c.IsInWhitelist(who)
	default:
		return true
	}
}

func (c *Chat) IsReadonly(who Identity) bool {
	return !c.IsCommitter(who)
}

func (c *Chat) CanRename(who Identity) bool {
	return c.IsCommitter(who) && !c.IsOne2One()
}

func (c *Chat) CanInvite(who Identity) bool {
	return (c.IsAdmin(who) || c.IsCommitter(who)) && !c.IsSystem()
}

func (c *Chat) CanMakePublic(who Identity) bool {
	return c.IsAdmin(who) && c.IsGroup()
}

func (c *Chat) CanSetCommitters(who Identity) bool {
	return c.IsAdmin(who) && !c.IsOne2One()
}

func (c *Chat) HasWhitelist() bool {
	return c.CommittersType() == CommittersWhitelist
}

// Whitelist parses the whitelist ids, or returns nil when the chat does not use the
// whitelist policy. Tokens that are not decimal integers are dropped.
func (c *Chat) Whitelist() mapset.Set[MemberID] {
	if !c.HasWhitelist() {
		return nil
	}
	set := mapset.NewThreadUnsafeSet[MemberID]()
	for _, token := range strings.Split(c.committers, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(token), 10, 64)
		if err != nil {
			continue
		}
		set.Add(MemberID(id))
	}
	return set
}

// SetWhitelist stores ids as the whitelist. Chats that are neither group nor
// system cannot carry one and get an empty committers field instead.
func (c *Chat) SetWhitelist(ids mapset.Set[MemberID]) {
	if !c.IsGroupOrSystem() {
		c.committers = ""
		return
	}
	if ids == nil || ids.Cardinality() == 0 {
		c.committers = CommittersValueEmptyWhitelist
		return
	}
	sorted := ids.ToSlice()
	slices.Sort(sorted)
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = id.String()
	}
	c.committers = strings.Join(parts, ",")
}

func (c *Chat) IsInWhitelist(who Identity) bool {
	whitelist := c.Whitelist()
	if whitelist == nil {
		return false
	}
	id, _, _ := who.identity()
	return whitelist.Contains(id)
}

// AddToWhitelist adds the member to the whitelist. It reports whether the stored
// value changed, so callers know whether the chat needs saving.
func (c *Chat) AddToWhitelist(who Identity) bool {
	whitelist := c.Whitelist()
	if whitelist == nil {
		return false
	}
	id, _, _ := who.identity()
	if !whitelist.Add(id) {
		return false
	}
	c.SetWhitelist(whitelist)
	return true
}

// RemoveFromWhitelist is the inverse of AddToWhitelist.
func (c *Chat) RemoveFromWhitelist(who Identity) bool {
	whitelist := c.Whitelist()
	if whitelist == nil {
		return false
	}
	id, _, _ := who.identity()
	if !whitelist.Contains(id) {
		return false
	}
	whitelist.Remove(id)
	c.SetWhitelist(whitelist)
	return true
}
