package domain

import "strconv"

// MemberID identifies an account on the server.
type MemberID int64

func (id MemberID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseMemberID parses the decimal form produced by MemberID.String.
func ParseMemberID(s string) (MemberID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return MemberID(v), nil
}

type Member struct {
	ID           MemberID
	Account      string
	RealName     string
	IsSuperAdmin bool
}

func (m *Member) DisplayName() string {
	if m == nil {
		return ""
	}
	if m.RealName != "" {
		return m.RealName
	}
	if m.Account != "" {
		return m.Account
	}
	return "#" + m.ID.String()
}

// Identity is accepted by the permission checks so callers can pass either a bare
// MemberID or a resolved *Member.
type Identity interface {
	identity() (id MemberID, account string, superAdmin bool)
}

// A bare id doubles as its own account name.
func (id MemberID) identity() (MemberID, string, bool) {
	return id, id.String(), false
}

func (m *Member) identity() (MemberID, string, bool) {
	return m.ID, m.Account, m.IsSuperAdmin
}
