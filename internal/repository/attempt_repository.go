package repository

import (
	"assessment_engine_backend/internal/model"
	"assessment_engine_backend/internal/util"
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) FindAttempt(ctx context.Context, id string) (*model.Attempt, error) {
	var a model.Attempt
	err := r.DB.WithContext(ctx).First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AttemptRepository) FindInProgress(ctx context.Context, userID uint, activityID string) (*model.Attempt, error) {
	var a model.Attempt
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND activity_id = ? AND status = ?", userID, activityID, model.AttemptInProgress).
		Take(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AttemptRepository) ListUserAttempts(ctx context.Context, userID uint, activityID string) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND activity_id = ?", userID, activityID).
		Order("started_at asc").
		Find(&attempts).Error
	return attempts, err
}

func (r *AttemptRepository) CountCompleted(ctx context.Context, userID uint, activityID string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Attempt{}).
		Where("user_id = ? AND activity_id = ? AND status = ?", userID, activityID, model.AttemptCompleted).
		Count(&count).Error
	return count, err
}

// CreateAttempt 依赖 uniq_attempt_active 唯一索引保证同一用户同一活动只有一个进行中的作答
func (r *AttemptRepository) CreateAttempt(ctx context.Context, a *model.Attempt) error {
	slot := model.ActiveSlotValue
	a.ActiveSlot = &slot
	err := r.DB.WithContext(ctx).Create(a).Error
	if isDuplicateKey(err) {
		return util.ErrActiveAttemptExists
	}
	return err
}

// lockInProgress 在事务内锁定作答行，非进行中返回 util.ErrAttemptNotInProgress
func lockInProgress(tx *gorm.DB, attemptID string) (*model.Attempt, error) {
	var a model.Attempt
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&a, "id = ?", attemptID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	if !a.InProgress() {
		return nil, util.ErrAttemptNotInProgress
	}
	return &a, nil
}

func (r *AttemptRepository) UpsertResponse(ctx context.Context, resp *model.Response) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockInProgress(tx, resp.AttemptID); err != nil {
			return err
		}
		if resp.ID == "" {
			resp.ID = model.GenerateUUID()
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"selected_choices", "text", "issues", "solution", "saved_at", "updated_at",
			}),
		}).Create(resp).Error
	})
}

func (r *AttemptRepository) ListResponses(ctx context.Context, attemptID string) ([]model.Response, error) {
	var responses []model.Response
	err := r.DB.WithContext(ctx).Where("attempt_id = ?", attemptID).Order("created_at asc").Find(&responses).Error
	return responses, err
}

// CompleteAttempt 在行锁内读取作答并评分，条件更新 status='in_progress'，与评分结果和 outbox 事件同一事务提交
func (r *AttemptRepository) CompleteAttempt(ctx context.Context, attemptID string, complete model.CompleteFunc) (*model.Completion, error) {
	var done *model.Completion
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := lockInProgress(tx, attemptID)
		if err != nil {
			return err
		}
		var responses []model.Response
		if err := tx.Where("attempt_id = ?", attemptID).Order("created_at asc").Find(&responses).Error; err != nil {
			return err
		}

		c, err := complete(locked, responses)
		if err != nil {
			return err
		}
		a := c.Attempt

		a.ActiveSlot = nil
		res := tx.Model(&model.Attempt{}).
			Where("id = ? AND status = ?", attemptID, model.AttemptInProgress).
			Updates(map[string]interface{}{
				"status":              a.Status,
				"active_slot":         nil,
				"completed_at":        a.CompletedAt,
				"time_spent_seconds":  a.TimeSpentSeconds,
				"end_reason":          a.EndReason,
				"passed":              a.Passed,
				"score":               a.Score,
				"correct_answers":     a.CorrectAnswers,
				"total_questions":     a.TotalQuestions,
				"total_score":         a.TotalScore,
				"scenario_scores":     a.ScenarioScores,
				"questions_generated": a.QuestionsGenerated,
				"questions_required":  a.QuestionsRequired,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return util.ErrAttemptNotInProgress
		}

		for _, g := range c.Graded {
			err := tx.Model(&model.Response{}).
				Where("id = ?", g.ID).
				Updates(map[string]interface{}{
					"is_correct": g.IsCorrect,
					"score":      g.Score,
					"feedback":   g.Feedback,
					"category":   g.Category,
					"dimensions": g.Dimensions,
				}).Error
			if err != nil {
				return err
			}
		}

		if c.Event != nil {
			if err := tx.Create(c.Event).Error; err != nil {
				return err
			}
		}
		done = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return done, nil
}

func (r *AttemptRepository) AdvanceScenario(ctx context.Context, attemptID string, from int, startedAt time.Time) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockInProgress(tx, attemptID); err != nil {
			return err
		}
		res := tx.Model(&model.Attempt{}).
			Where("id = ? AND status = ? AND current_scenario = ?", attemptID, model.AttemptInProgress, from).
			Updates(map[string]interface{}{
				"current_scenario":    from + 1,
				"scenario_started_at": startedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return util.ErrScenarioClosed
		}
		return nil
	})
}

// UpdateCheating 覆盖累计计数，事件按 (attempt_id, sequence) 去重插入
func (r *AttemptRepository) UpdateCheating(ctx context.Context, attemptID string, counters model.CheatCounters, events []model.AntiCheatEvent) ([]model.AntiCheatEvent, error) {
	var inserted []model.AntiCheatEvent
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockInProgress(tx, attemptID); err != nil {
			return err
		}
		err := tx.Model(&model.Attempt{}).Where("id = ?", attemptID).Updates(map[string]interface{}{
			"tab_switch_count": counters.TabSwitchCount,
			"copy_attempts":    counters.CopyAttempts,
			"paste_attempts":   counters.PasteAttempts,
		}).Error
		if err != nil {
			return err
		}

		for i := range events {
			e := events[i]
			e.AttemptID = attemptID
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&e)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				inserted = append(inserted, e)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inserted, nil
}

func (r *AttemptRepository) ListCheatingEvents(ctx context.Context, attemptID string) ([]model.AntiCheatEvent, error) {
	var events []model.AntiCheatEvent
	err := r.DB.WithContext(ctx).Where("attempt_id = ?", attemptID).Order("sequence asc").Find(&events).Error
	return events, err
}

func (r *AttemptRepository) ListCompleted(ctx context.Context, activityID string) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.DB.WithContext(ctx).
		Where("activity_id = ? AND status = ?", activityID, model.AttemptCompleted).
		Order("id asc").
		Find(&attempts).Error
	return attempts, err
}

func (r *AttemptRepository) ListInProgress(ctx context.Context, until time.Time, after model.InProgressCursor, limit int) ([]model.Attempt, error) {
	var attempts []model.Attempt
	query := r.DB.WithContext(ctx).
		Where("status = ? AND started_at <= ?", model.AttemptInProgress, until)
	if after.ID != "" {
		query = query.Where("started_at > ? OR (started_at = ? AND id > ?)", after.StartedAt, after.StartedAt, after.ID)
	}
	query = query.Order("started_at asc").Order("id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&attempts).Error
	return attempts, err
}

// isDuplicateKey 兼容 MySQL(1062) 与 Postgres(23505) 的唯一键冲突
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "23505")
}
