package model

import (
	"time"

	"gorm.io/datatypes"
)

const TopicAttemptCompleted = "attempt.completed"

// AttemptEvent 与完成作答同一事务写入的 outbox 记录，由后台分发
type AttemptEvent struct {
	ID          uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Topic       string         `gorm:"size:64;not null;index" json:"topic"`
	AttemptID   string         `gorm:"type:varchar(36);not null;index" json:"attemptId"`
	Payload     datatypes.JSON `json:"payload"`
	CreatedAt   time.Time      `json:"createdAt"`
	ProcessedAt *time.Time     `gorm:"index" json:"processedAt,omitempty"`
	Retries     int            `gorm:"default:0" json:"retries"`
	LastError   string         `gorm:"size:500" json:"lastError,omitempty"`
}

func (AttemptEvent) TableName() string {
	return "attempt_events"
}

// AttemptCompletedPayload attempt.completed 事件内容
type AttemptCompletedPayload struct {
	AttemptID        string       `json:"attemptId"`
	UserID           uint         `json:"userId"`
	ActivityID       string       `json:"activityId"`
	Mode             ActivityMode `json:"mode"`
	Score            float64      `json:"score"`
	Passed           bool         `json:"passed"`
	EndReason        EndReason    `json:"endReason"`
	TimeSpentSeconds int          `json:"timeSpentSeconds"`
	CompletedAt      time.Time    `json:"completedAt"`
}

// Completion 完成作答时一并写入的结果、评分后的作答与 outbox 事件
type Completion struct {
	Attempt *Attempt
	Graded  []Response
	Event   *AttemptEvent
}

// CompleteFunc 在作答行锁内调用，入参为锁定时的作答与当时的全部作答记录。
// 回调内不得再访问存储
type CompleteFunc func(locked *Attempt, responses []Response) (*Completion, error)
