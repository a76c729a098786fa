package repository

import (
	"assessment_engine_backend/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
)

type OutboxRepository struct {
	DB *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{DB: db}
}

func (r *OutboxRepository) ListPendingEvents(ctx context.Context, limit int) ([]model.AttemptEvent, error) {
	var events []model.AttemptEvent
	query := r.DB.WithContext(ctx).Where("processed_at IS NULL").Order("id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&events).Error
	return events, err
}

func (r *OutboxRepository) MarkEventProcessed(ctx context.Context, id uint, at time.Time) error {
	return r.DB.WithContext(ctx).Model(&model.AttemptEvent{}).Where("id = ?", id).
		Update("processed_at", at).Error
}

func (r *OutboxRepository) MarkEventFailed(ctx context.Context, id uint, reason string) error {
	if len(reason) > 500 {
		reason = reason[:500]
	}
	return r.DB.WithContext(ctx).Model(&model.AttemptEvent{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"retries":    gorm.Expr("retries + 1"),
			"last_error": reason,
		}).Error
}
