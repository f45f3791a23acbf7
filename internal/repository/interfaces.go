package repository

import (
	"context"

	"github.com/clippy-oss/homie/im-client/internal/domain"
)

type ChatRepository interface {
	Upsert(ctx context.Context, chat *domain.Chat) error
	GetByGID(ctx context.Context, gid string) (*domain.Chat, error)
	GetAll(ctx context.Context, user domain.MemberID) ([]*domain.Chat, error)
	UpdateStatus(ctx context.Context, gid string, status domain.ChatStatus) error
	Delete(ctx context.Context, gid string) error
}

type MessageRepository interface {
	Upsert(ctx context.Context, msgs ...*domain.Message) error
	GetByGID(ctx context.Context, gid string) (*domain.Message, error)
	GetByChatGID(ctx context.Context, chatGID string, limit, offset int) ([]*domain.Message, error)
	UpdateUnread(ctx context.Context, gids []string, unread bool) error
	CountUnread(ctx context.Context, chatGID string) (int, error)
	Delete(ctx context.Context, idOrGID string) error
	DeleteByChatGID(ctx context.Context, chatGID string) error
}

type MemberRepository interface {
	Upsert(ctx context.Context, member *domain.Member) error
	GetByID(ctx context.Context, id domain.MemberID) (*domain.Member, error)
	GetAll(ctx context.Context) ([]*domain.Member, error)
	Search(ctx context.Context, query string) ([]*domain.Member, error)
	Delete(ctx context.Context, id domain.MemberID) error
}
