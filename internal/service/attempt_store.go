package service

import (
	"assessment_engine_backend/internal/model"
	"context"
	"time"
)

// AttemptStore 作答持久化。所有写操作在单个 attempt 上原子地完成"读取-检查-写入"，
// 对非进行中的 attempt 写入返回 util.ErrAttemptNotInProgress
type AttemptStore interface {
	FindAttempt(ctx context.Context, id string) (*model.Attempt, error)
	// FindInProgress 不存在时返回 nil, nil
	FindInProgress(ctx context.Context, userID uint, activityID string) (*model.Attempt, error)
	ListUserAttempts(ctx context.Context, userID uint, activityID string) ([]model.Attempt, error)
	CountCompleted(ctx context.Context, userID uint, activityID string) (int64, error)
	// CreateAttempt 同一 (user, activity) 已有进行中的作答时返回 util.ErrActiveAttemptExists
	CreateAttempt(ctx context.Context, a *model.Attempt) error

	UpsertResponse(ctx context.Context, r *model.Response) error
	ListResponses(ctx context.Context, attemptID string) ([]model.Response, error)

	// CompleteAttempt 锁定进行中的作答，读取作答记录并调用 complete 生成结果，
	// 结果、评分后的作答与 outbox 事件在同一把锁内写入
	CompleteAttempt(ctx context.Context, attemptID string, complete model.CompleteFunc) (*model.Completion, error)
	// AdvanceScenario 仅当当前场景仍为 from 时推进
	AdvanceScenario(ctx context.Context, attemptID string, from int, startedAt time.Time) error
	// UpdateCheating 覆盖计数并追加事件，重复的 sequence 被忽略；返回实际新增的事件
	UpdateCheating(ctx context.Context, attemptID string, counters model.CheatCounters, events []model.AntiCheatEvent) ([]model.AntiCheatEvent, error)
	ListCheatingEvents(ctx context.Context, attemptID string) ([]model.AntiCheatEvent, error)

	ListCompleted(ctx context.Context, activityID string) ([]model.Attempt, error)
	// ListInProgress 返回开始时间不晚于 until、排在 after 之后的进行中作答，
	// 按 (started_at, id) 升序，limit<=0 表示不限
	ListInProgress(ctx context.Context, until time.Time, after model.InProgressCursor, limit int) ([]model.Attempt, error)
}

// ActivityReader 活动与题目的只读视图
type ActivityReader interface {
	// GetActivity 不存在或已删除时返回 util.ErrRecordNotFound
	GetActivity(ctx context.Context, id string) (*model.Activity, error)
	ListQuestions(ctx context.Context, activityID string) ([]model.Question, error)
}

// ActivityWriter 教师创建活动
type ActivityWriter interface {
	CreateActivity(ctx context.Context, a *model.Activity, questions []model.Question) error
}

// MembershipReader 成员关系查询，非成员返回 nil, nil
type MembershipReader interface {
	GetMembership(ctx context.Context, groupID string, userID uint) (*model.GroupMember, error)
}

// MembershipStore 教师维护小组成员
type MembershipStore interface {
	MembershipReader
	AddMember(ctx context.Context, m *model.GroupMember) error
}

// OutboxStore 完成事件的读取与确认
type OutboxStore interface {
	ListPendingEvents(ctx context.Context, limit int) ([]model.AttemptEvent, error)
	MarkEventProcessed(ctx context.Context, id uint, at time.Time) error
	MarkEventFailed(ctx context.Context, id uint, reason string) error
}

// LeaderboardCache 排行榜投影缓存，未命中时 ok 为 false
type LeaderboardCache interface {
	Get(ctx context.Context, activityID string) (rows []model.LeaderboardRow, ok bool, err error)
	Set(ctx context.Context, activityID string, rows []model.LeaderboardRow, ttl time.Duration) error
	Invalidate(ctx context.Context, activityID string) error
}

// Clock 服务端时间来源，测试中可替换
type Clock func() time.Time
