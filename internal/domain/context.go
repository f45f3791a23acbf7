package domain

// Directory resolves member ids to member records known to the client.
type Directory interface {
	Member(id MemberID) *Member
}

// Presence answers whether a member is currently online.
type Presence interface {
	IsOnline(id MemberID) bool
}

// Localizer resolves display strings by key.
type Localizer interface {
	String(key string) string
	Format(key string, args ...any) string
}

// App is the viewer context consumed by display name derivation, online status and
// the chat comparator. Any accessor may return nil.
type App interface {
	CurrentUser() *Member
	Members() Directory
	Lang() Localizer
	Presence() Presence
}
