package domain

import (
	"slices"
	"strings"

	"github.com/google/uuid"
)

// One2OneGIDSeparator joins the two member ids of a one-to-one gid.
const One2OneGIDSeparator = "&"

// IDAllocator assigns gids to chats whose gid cannot be derived from members.
type IDAllocator interface {
	NewGID() string
}

// UUIDAllocator issues random UUIDv4 gids.
type UUIDAllocator struct{}

func (UUIDAllocator) NewGID() string {
	return uuid.NewString()
}

// One2OneGID derives the gid of a one-to-one chat. The ids are ordered by their
// decimal text so the result does not depend on argument order.
func One2OneGID(ids ...MemberID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	slices.Sort(parts)
	return strings.Join(parts, One2OneGIDSeparator)
}

// EnsureGID fills in the chat gid. One-to-one chats always recompute it from their
// members; other chats keep an existing gid and otherwise ask alloc, falling back
// to UUIDAllocator when alloc is nil.
func (c *Chat) EnsureGID(alloc IDAllocator) string {
	if c.IsOne2One() {
		c.gid = One2OneGID(c.members.ToSlice()...)
		return c.gid
	}
	if c.gid == "" {
		if alloc == nil {
			alloc = UUIDAllocator{}
		}
		c.gid = alloc.NewGID()
	}
	return c.gid
}
