package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/clippy-oss/homie/im-client/internal/domain"
	"github.com/clippy-oss/homie/im-client/internal/repository"
)

// MemberDirectory caches the member records of the local store.
type MemberDirectory struct {
	repo repository.MemberRepository

	mu      sync.RWMutex
	members map[domain.MemberID]*domain.Member
}

func NewMemberDirectory(repo repository.MemberRepository) *MemberDirectory {
	return &MemberDirectory{
		repo:    repo,
		members: make(map[domain.MemberID]*domain.Member),
	}
}

// Load replaces the cache with the stored members.
func (d *MemberDirectory) Load(ctx context.Context) error {
	members, err := d.repo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load members: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.members = make(map[domain.MemberID]*domain.Member, len(members))
	for _, m := range members {
		d.members[m.ID] = m
	}
	return nil
}

// Member returns the cached record, or nil for unknown ids.
func (d *MemberDirectory) Member(id domain.MemberID) *domain.Member {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.members[id]
}

// Resolve returns the cached record or a bare member carrying only the id.
func (d *MemberDirectory) Resolve(id domain.MemberID) *domain.Member {
	if m := d.Member(id); m != nil {
		return m
	}
	return &domain.Member{ID: id}
}

// Put stores m and caches it.
func (d *MemberDirectory) Put(ctx context.Context, m *domain.Member) error {
	if err := d.repo.Upsert(ctx, m); err != nil {
		return fmt.Errorf("failed to save member %d: %w", m.ID, err)
	}
	d.mu.Lock()
	d.members[m.ID] = m
	d.mu.Unlock()
	return nil
}

func (d *MemberDirectory) Search(ctx context.Context, query string) ([]*domain.Member, error) {
	return d.repo.Search(ctx, query)
}
