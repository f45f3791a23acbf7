package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/clippy-oss/homie/im-client/internal/domain"
)

type gormMemberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &gormMemberRepository{db: db}
}

func (r *gormMemberRepository) Upsert(ctx context.Context, member *domain.Member) error {
	model := MemberDomainToModel(member)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(model).Error
}

func (r *gormMemberRepository) GetByID(ctx context.Context, id domain.MemberID) (*domain.Member, error) {
	var model MemberModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", int64(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return MemberModelToDomain(&model), nil
}

func (r *gormMemberRepository) GetAll(ctx context.Context) ([]*domain.Member, error) {
	var models []MemberModel
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	members := make([]*domain.Member, len(models))
	for i := range models {
		members[i] = MemberModelToDomain(&models[i])
	}
	return members, nil
}

func (r *gormMemberRepository) Search(ctx context.Context, query string) ([]*domain.Member, error) {
	var models []MemberModel
	err := r.db.WithContext(ctx).
		Where("account LIKE ? OR real_name LIKE ?", "%"+query+"%", "%"+query+"%").
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	members := make([]*domain.Member, len(models))
	for i := range models {
		members[i] = MemberModelToDomain(&models[i])
	}
	return members, nil
}

func (r *gormMemberRepository) Delete(ctx context.Context, id domain.MemberID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", int64(id)).
		Delete(&MemberModel{}).Error
}
