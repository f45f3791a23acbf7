package domain

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
)

// CompareFunc orders two chats; negative sorts a first.
type CompareFunc func(a, b *Chat) int

// Sort keys understood by OrderBy. Every key sorts descending unless prefixed
// with "-".
const (
	KeyStar           = "star"
	KeyNotice         = "notice"
	KeyLastActiveTime = "lastActiveTime"
	KeyOnline         = "online"
	KeyCreatedDate    = "createdDate"
	KeyName           = "name"
	KeyNamePinyin     = "namePinyin"
	KeyID             = "id"
	KeyHide           = "hide"
	KeyIsSystem       = "isSystem"
	KeyMute           = "mute"
	KeyPublic         = "public"
	KeyType           = "type"
	KeyGID            = "gid"
	KeyMembersCount   = "membersCount"
	KeyEditedDate     = "editedDate"
	KeyCreatedBy      = "createdBy"
	KeyStatus         = "status"
)

var keyAliases = map[string]string{
	"starred":      KeyStar,
	"noticeCount":  KeyNotice,
	"lastActiveAt": KeyLastActiveTime,
	"onlineStatus": KeyOnline,
	"createDate":   KeyCreatedDate,
	"createdAt":    KeyCreatedDate,
	"displayName":  KeyName,
	"hidden":       KeyHide,
}

// DefaultOrderKeys: starred first, then unread, recency, presence, age, name, id.
var DefaultOrderKeys = []string{
	KeyStar, KeyNotice, KeyLastActiveTime, KeyOnline, KeyCreatedDate, KeyName, KeyID,
}

const inverseToken = "-"

type OrderKey struct {
	Name    string
	Inverse bool
	// Func, when set, is used instead of the named key.
	Func CompareFunc
}

// Order describes how SortChats ranks chats.
type Order struct {
	custom  CompareFunc
	keys    []OrderKey
	inverse bool
}

func DefaultOrder() Order {
	return OrderBy(DefaultOrderKeys...)
}

// ParseOrder reads a space separated key list. An empty string or "default" yields
// DefaultOrder. A leading "-" token reverses the whole result; "-key" reverses
// a single key.
func ParseOrder(keys string) Order {
	keys = strings.TrimSpace(keys)
	if keys == "" || keys == "default" {
		return DefaultOrder()
	}
	return OrderBy(strings.Fields(keys)...)
}

// OrderBy builds an Order from key names, with the same prefixes as ParseOrder.
func OrderBy(keys ...string) Order {
	var o Order
	if len(keys) > 0 && keys[0] == inverseToken {
		o.inverse = true
		keys = keys[1:]
	}
	for _, k := range keys {
		key := OrderKey{Name: k}
		if strings.HasPrefix(k, inverseToken) {
			key.Inverse = true
			key.Name = k[len(inverseToken):]
		}
		if alias, ok := keyAliases[key.Name]; ok {
			key.Name = alias
		}
		o.keys = append(o.keys, key)
	}
	return o
}

// OrderFunc ranks chats by fn. Then adds tie breakers and Inverse reverses it.
func OrderFunc(fn CompareFunc) Order {
	return Order{custom: fn}
}

// Then appends a comparator consulted after the existing keys tie.
func (o Order) Then(fn CompareFunc) Order {
	o.keys = append(slices.Clip(o.keys), OrderKey{Func: fn})
	return o
}

// Inverse returns o with its final result reversed.
func (o Order) Inverse() Order {
	o.inverse = !o.inverse
	return o
}

func (o Order) Keys() []OrderKey {
	return slices.Clone(o.keys)
}

// Compare ranks a against b. app may be nil, in which case the online key is
// skipped and name keys use the stored name.
func (o Order) Compare(a, b *Chat, app App) int {
	result := 0
	if o.custom != nil {
		result = o.custom(a, b)
	}
	for _, key := range o.keys {
		if result != 0 {
			break
		}
		if key.Func != nil {
			result = key.Func(a, b)
		} else {
			// Named keys rank higher values first.
			result = compareKey(key.Name, b, a, app)
		}
		if key.Inverse {
			result = -result
		}
	}
	if o.inverse {
		result = -result
	}
	return result
}

// SortChats sorts chats in place and returns them. Chats that compare equal keep
// their relative order.
func SortChats(chats []*Chat, order Order, app App) []*Chat {
	if len(chats) < 2 {
		return chats
	}
	slices.SortStableFunc(chats, func(a, b *Chat) int {
		return order.Compare(a, b, app)
	})
	return chats
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func compareKey(name string, x, y *Chat, app App) int {
	switch name {
	case KeyStar:
		return boolInt(x.Star) - boolInt(y.Star)
	case KeyHide:
		return boolInt(x.Hidden) - boolInt(y.Hidden)
	case KeyIsSystem:
		return boolInt(x.IsSystem()) - boolInt(y.IsSystem())
	case KeyMute:
		return boolInt(x.Mute) - boolInt(y.Mute)
	case KeyPublic:
		return boolInt(x.Public) - boolInt(y.Public)
	case KeyOnline:
		if app == nil {
			return 0
		}
		return boolInt(x.IsOnline(app)) - boolInt(y.IsOnline(app))
	case KeyNotice:
		return cmp.Compare(x.noticeCount, y.noticeCount)
	case KeyLastActiveTime:
		return x.LastActiveTime().Compare(y.LastActiveTime())
	case KeyCreatedDate:
		return x.CreatedDate.Compare(y.CreatedDate)
	case KeyEditedDate:
		return x.EditedDate.Compare(y.EditedDate)
	case KeyMembersCount:
		return cmp.Compare(x.MembersCount(), y.MembersCount())
	case KeyStatus:
		return cmp.Compare(x.status.value, y.status.value)
	case KeyName:
		if app != nil {
			return cmp.Compare(x.DisplayName(app, false), y.DisplayName(app, false))
		}
		return cmp.Compare(x.name, y.name)
	case KeyNamePinyin:
		return cmp.Compare(x.PinYin(app), y.PinYin(app))
	case KeyID:
		return compareIDs(x.id, y.id)
	case KeyGID:
		return cmp.Compare(x.gid, y.gid)
	case KeyType:
		return cmp.Compare(x.Type(), y.Type())
	case KeyCreatedBy:
		return cmp.Compare(x.CreatedBy, y.CreatedBy)
	}
	return 0
}

// compareIDs compares integer ids numerically so "10" ranks above "9". An empty id
// counts as zero and integer ids rank below any other id.
func compareIDs(a, b string) int {
	ai, aNum := numericID(a)
	bi, bNum := numericID(b)
	switch {
	case aNum && bNum:
		return cmp.Compare(ai, bi)
	case aNum:
		return -1
	case bNum:
		return 1
	}
	return cmp.Compare(a, b)
}

func numericID(s string) (int64, bool) {
	if s == "" {
		return 0, true
	}
	v, err := strconv.ParseInt(s, 10, 64)
	return v, err == nil
}
