package service

import (
	"sync"

	"github.com/clippy-oss/homie/im-client/internal/domain"
	"github.com/clippy-oss/homie/im-client/internal/lang"
)

// Session is the signed in account together with the chat it is looking at.
// It is the viewer context handed to display and ordering code.
type Session struct {
	user      *domain.Member
	directory *MemberDirectory
	catalog   *lang.Catalog
	presence  *PresenceTracker

	mu     sync.RWMutex
	active string
}

func NewSession(user *domain.Member, directory *MemberDirectory, catalog *lang.Catalog, presence *PresenceTracker) *Session {
	if catalog == nil {
		catalog = lang.Default()
	}
	return &Session{
		user:      user,
		directory: directory,
		catalog:   catalog,
		presence:  presence,
	}
}

func (s *Session) CurrentUser() *domain.Member {
	return s.user
}

func (s *Session) UserID() domain.MemberID {
	return s.user.ID
}

func (s *Session) Members() domain.Directory {
	if s.directory == nil {
		return nil
	}
	return s.directory
}

// Directory returns the member cache backing Members.
func (s *Session) Directory() *MemberDirectory {
	return s.directory
}

func (s *Session) Lang() domain.Localizer {
	return s.catalog
}

func (s *Session) Presence() domain.Presence {
	if s.presence == nil {
		return nil
	}
	return s.presence
}

// ActiveChat returns the gid of the chat on screen, empty when none is.
func (s *Session) ActiveChat() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *Session) setActive(gid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = gid
}
