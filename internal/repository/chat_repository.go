package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/clippy-oss/homie/im-client/internal/domain"
)

type gormChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &gormChatRepository{db: db}
}

func (r *gormChatRepository) Upsert(ctx context.Context, chat *domain.Chat) error {
	model := ChatDomainToModel(chat)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "gid"}},
		UpdateAll: true,
	}).Create(model).Error
}

func (r *gormChatRepository) GetByGID(ctx context.Context, gid string) (*domain.Chat, error) {
	var model ChatModel
	if err := r.db.WithContext(ctx).First(&model, "gid = ?", gid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return ChatModelToDomain(&model), nil
}

// GetAll returns the chats stored for user, most recently active first.
func (r *gormChatRepository) GetAll(ctx context.Context, user domain.MemberID) ([]*domain.Chat, error) {
	var models []ChatModel
	err := r.db.WithContext(ctx).
		Where("user = ?", int64(user)).
		Order("last_active_time DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	chats := make([]*domain.Chat, len(models))
	for i := range models {
		chats[i] = ChatModelToDomain(&models[i])
	}
	return chats, nil
}

func (r *gormChatRepository) UpdateStatus(ctx context.Context, gid string, status domain.ChatStatus) error {
	return r.db.WithContext(ctx).
		Model(&ChatModel{}).
		Where("gid = ?", gid).
		Update("status", int(status)).Error
}

func (r *gormChatRepository) Delete(ctx context.Context, gid string) error {
	return r.db.WithContext(ctx).
		Where("gid = ?", gid).
		Delete(&ChatModel{}).Error
}
