package service

import (
	"assessment_engine_backend/internal/model"
	"assessment_engine_backend/internal/settings"
	"math"
	"time"
)

// TimerService 服务端是唯一的计时权威，所有判断都基于持久化的开始时间重新计算
type TimerService struct {
	Now Clock
}

func NewTimerService(now Clock) *TimerService {
	if now == nil {
		now = time.Now
	}
	return &TimerService{Now: now}
}

// RemainingSeconds max(0, limit - (now - startedAt))，向上取整，limit 为 0 表示不限时并返回 -1
func (t *TimerService) RemainingSeconds(startedAt time.Time, limit time.Duration) int {
	if limit <= 0 {
		return -1
	}
	rem := limit - t.Now().Sub(startedAt)
	if rem <= 0 {
		return 0
	}
	return int(math.Ceil(rem.Seconds()))
}

func (t *TimerService) Expired(startedAt time.Time, limit time.Duration) bool {
	return limit > 0 && t.RemainingSeconds(startedAt, limit) == 0
}

// AttemptExpired 整体作答是否超时
func (t *TimerService) AttemptExpired(a *model.Attempt, s settings.Settings) bool {
	return a.InProgress() && t.Expired(a.StartedAt, s.TimeLimit())
}

// ScenarioRemaining 案例模式当前场景的剩余秒数，场景不限时返回 -1
func (t *TimerService) ScenarioRemaining(a *model.Attempt, cs *settings.CaseSettings) int {
	if a.ScenarioStartedAt == nil {
		return t.RemainingSeconds(a.StartedAt, cs.ScenarioTimeLimit())
	}
	return t.RemainingSeconds(*a.ScenarioStartedAt, cs.ScenarioTimeLimit())
}

func (t *TimerService) ScenarioExpired(a *model.Attempt, cs *settings.CaseSettings) bool {
	return cs.ScenarioTimeLimit() > 0 && t.ScenarioRemaining(a, cs) == 0
}

// Deadline 不限时返回零值
func (t *TimerService) Deadline(startedAt time.Time, limit time.Duration) time.Time {
	if limit <= 0 {
		return time.Time{}
	}
	return startedAt.Add(limit)
}
