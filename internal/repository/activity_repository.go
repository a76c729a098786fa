package repository

import (
	"assessment_engine_backend/internal/model"
	"assessment_engine_backend/internal/util"
	"context"
	"errors"

	"gorm.io/gorm"
)

type ActivityRepository struct {
	DB *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{DB: db}
}

func (r *ActivityRepository) CreateActivity(ctx context.Context, a *model.Activity, questions []model.Question) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(a).Error; err != nil {
			return err
		}
		if len(questions) == 0 {
			return nil
		}
		for i := range questions {
			questions[i].ActivityID = a.ID
		}
		return tx.Create(&questions).Error
	})
}

// GetActivity 软删除的活动由 gorm 自动过滤
func (r *ActivityRepository) GetActivity(ctx context.Context, id string) (*model.Activity, error) {
	var a model.Activity
	err := r.DB.WithContext(ctx).First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *ActivityRepository) ListQuestions(ctx context.Context, activityID string) ([]model.Question, error) {
	var qs []model.Question
	err := r.DB.WithContext(ctx).Where("activity_id = ?", activityID).Order("position asc, created_at asc").Find(&qs).Error
	return qs, err
}
