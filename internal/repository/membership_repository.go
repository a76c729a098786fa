package repository

import (
	"assessment_engine_backend/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MembershipRepository struct {
	DB *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) *MembershipRepository {
	return &MembershipRepository{DB: db}
}

func (r *MembershipRepository) GetMembership(ctx context.Context, groupID string, userID uint) (*model.GroupMember, error) {
	var m model.GroupMember
	err := r.DB.WithContext(ctx).Where("group_id = ? AND user_id = ?", groupID, userID).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// AddMember 已存在时覆盖角色
func (r *MembershipRepository) AddMember(ctx context.Context, m *model.GroupMember) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "group_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role", "updated_at"}),
	}).Create(m).Error
}
