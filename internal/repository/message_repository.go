package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/clippy-oss/homie/im-client/internal/domain"
)

type gormMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &gormMessageRepository{db: db}
}

// Upsert writes msgs, replacing stored rows with the same gid.
func (r *gormMessageRepository) Upsert(ctx context.Context, msgs ...*domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	models := make([]*MessageModel, 0, len(msgs))
	for _, msg := range msgs {
		if msg == nil || msg.GID == "" {
			continue
		}
		models = append(models, MessageDomainToModel(msg))
	}
	if len(models) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "gid"}},
		UpdateAll: true,
	}).Create(models).Error
}

func (r *gormMessageRepository) GetByGID(ctx context.Context, gid string) (*domain.Message, error) {
	var model MessageModel
	if err := r.db.WithContext(ctx).First(&model, "gid = ?", gid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return MessageModelToDomain(&model), nil
}

// GetByChatGID returns the newest messages of a chat, newest first.
func (r *gormMessageRepository) GetByChatGID(ctx context.Context, chatGID string, limit, offset int) ([]*domain.Message, error) {
	var models []MessageModel
	query := r.db.WithContext(ctx).
		Where("chat_gid = ?", chatGID).
		Order("date DESC").
		Order("msg_order DESC")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	messages := make([]*domain.Message, len(models))
	for i := range models {
		messages[i] = MessageModelToDomain(&models[i])
	}
	return messages, nil
}

func (r *gormMessageRepository) UpdateUnread(ctx context.Context, gids []string, unread bool) error {
	if len(gids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&MessageModel{}).
		Where("gid IN ?", gids).
		Update("unread", unread).Error
}

func (r *gormMessageRepository) CountUnread(ctx context.Context, chatGID string) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&MessageModel{}).
		Where("chat_gid = ? AND unread = ?", chatGID, true).
		Count(&count).Error
	return int(count), err
}

func (r *gormMessageRepository) Delete(ctx context.Context, idOrGID string) error {
	return r.db.WithContext(ctx).
		Where("gid = ? OR remote_id = ?", idOrGID, idOrGID).
		Delete(&MessageModel{}).Error
}

func (r *gormMessageRepository) DeleteByChatGID(ctx context.Context, chatGID string) error {
	return r.db.WithContext(ctx).
		Where("chat_gid = ?", chatGID).
		Delete(&MessageModel{}).Error
}
