package service

import (
	"assessment_engine_backend/internal/model"
	"assessment_engine_backend/internal/settings"
	"assessment_engine_backend/internal/util"
	"assessment_engine_backend/pkg/logger"
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// TimerView 推送给客户端的倒计时校准，客户端计时仅供展示
type TimerView struct {
	AttemptID         string              `json:"attemptId"`
	Status            model.AttemptStatus `json:"status"`
	ServerTime        time.Time           `json:"serverTime"`
	RemainingSeconds  int                 `json:"remainingSeconds"`
	Deadline          *time.Time          `json:"deadline,omitempty"`
	CurrentScenario   int                 `json:"currentScenario"`
	ScenarioRemaining *int                `json:"scenarioRemainingSeconds,omitempty"`
}

// TimerStatus 只读，不触发强制交卷
func (s *AttemptService) TimerStatus(ctx context.Context, userID uint, attemptID string) (*TimerView, error) {
	a, cfg, err := s.loadOwned(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}
	return s.timerView(a, cfg), nil
}

func (s *AttemptService) timerView(a *model.Attempt, cfg settings.Settings) *TimerView {
	v := &TimerView{
		AttemptID:       a.ID,
		Status:          a.Status,
		ServerTime:      s.Timer.Now(),
		CurrentScenario: a.CurrentScenario,
	}
	if !a.InProgress() {
		return v
	}
	v.RemainingSeconds = s.Timer.RemainingSeconds(a.StartedAt, cfg.TimeLimit())
	if d := s.Timer.Deadline(a.StartedAt, cfg.TimeLimit()); !d.IsZero() {
		v.Deadline = &d
	}
	if cs, ok := cfg.(*settings.CaseSettings); ok && cs.ScenarioTimeLimit() > 0 {
		rem := s.Timer.ScenarioRemaining(a, cs)
		v.ScenarioRemaining = &rem
	}
	return v
}

// SweepResult 一轮扫描的统计
type SweepResult struct {
	Scanned  int
	Expired  int
	Advanced int
	Resynced int
}

// SweepOverdue 强制提交已超时的进行中作答，推进超时的案例场景；其余作答推送倒计时校准。
// 每轮按 batch 分页扫描全部进行中的作答
func (s *AttemptService) SweepOverdue(ctx context.Context, batch int, notifier Notifier) (SweepResult, error) {
	var res SweepResult
	until := s.Timer.Now()
	cache := make(map[string]settings.Settings)

	var cursor model.InProgressCursor
	for {
		attempts, err := s.Attempts.ListInProgress(ctx, until, cursor, batch)
		if err != nil {
			return res, err
		}
		for i := range attempts {
			s.sweepOne(ctx, &attempts[i], cache, notifier, &res)
		}
		if batch <= 0 || len(attempts) < batch {
			return res, nil
		}
		last := attempts[len(attempts)-1]
		cursor = model.InProgressCursor{StartedAt: last.StartedAt, ID: last.ID}
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
	}
}

func (s *AttemptService) sweepOne(ctx context.Context, a *model.Attempt, cache map[string]settings.Settings, notifier Notifier, res *SweepResult) {
	res.Scanned++

	cfg, ok := cache[a.ActivityID]
	if !ok {
		var err error
		_, cfg, err = s.Gate.Settings(ctx, a.ActivityID)
		if err != nil {
			logger.Log.Warn("Sweeper could not load activity settings",
				zap.String("attemptId", a.ID), zap.String("activityId", a.ActivityID), zap.Error(err))
			return
		}
		cache[a.ActivityID] = cfg
	}

	if s.Timer.AttemptExpired(a, cfg) {
		if _, err := s.finish(ctx, a, cfg, model.EndTimeout); err != nil {
			if !errors.Is(err, util.ErrAttemptCompleted) {
				logger.Log.Error("Forced submission failed", zap.String("attemptId", a.ID), zap.Error(err))
			}
			return
		}
		res.Expired++
		return
	}

	if cs, ok := cfg.(*settings.CaseSettings); ok && s.Timer.ScenarioExpired(a, cs) {
		if s.sweepScenario(ctx, a, cs, notifier) {
			res.Advanced++
		}
		return
	}

	if notifier != nil {
		notifier.PushToUser(a.UserID, MsgTimerSync, s.timerView(a, cfg))
		res.Resynced++
	}
}

// sweepScenario 场景超时：最后一个场景直接交卷，否则进入下一场景
func (s *AttemptService) sweepScenario(ctx context.Context, a *model.Attempt, cs *settings.CaseSettings, notifier Notifier) bool {
	if a.CurrentScenario >= len(cs.Scenarios)-1 {
		if _, err := s.finish(ctx, a, cs, model.EndTimeout); err != nil {
			if !errors.Is(err, util.ErrAttemptCompleted) {
				logger.Log.Error("Forced submission failed", zap.String("attemptId", a.ID), zap.Error(err))
			}
			return false
		}
		return true
	}

	now := s.Timer.Now()
	if err := s.Attempts.AdvanceScenario(ctx, a.ID, a.CurrentScenario, now); err != nil {
		if !errors.Is(err, util.ErrScenarioClosed) && !errors.Is(err, util.ErrAttemptNotInProgress) {
			logger.Log.Error("Scenario advance failed", zap.String("attemptId", a.ID), zap.Error(err))
		}
		return false
	}
	a.CurrentScenario++
	a.ScenarioStartedAt = &now
	if notifier != nil {
		notifier.PushToUser(a.UserID, MsgScenarioAdvanced, s.timerView(a, cs))
	}
	return true
}

// DeadlineSweeper 定时扫描进行中的作答，客户端不再发起请求时也能按时交卷
type DeadlineSweeper struct {
	Attempts *AttemptService
	Notifier Notifier
	interval atomic.Int64
	batch    atomic.Int64
	push     atomic.Bool
}

func NewDeadlineSweeper(attempts *AttemptService, notifier Notifier, interval time.Duration, batch int, push bool) *DeadlineSweeper {
	d := &DeadlineSweeper{Attempts: attempts, Notifier: notifier}
	d.Configure(interval, batch, push)
	return d
}

// Configure 热更新，下一轮生效
func (d *DeadlineSweeper) Configure(interval time.Duration, batch int, push bool) {
	d.interval.Store(int64(interval))
	d.batch.Store(int64(batch))
	d.push.Store(push)
}

func (d *DeadlineSweeper) SweepOnce(ctx context.Context) (SweepResult, error) {
	var notifier Notifier
	if d.push.Load() {
		notifier = d.Notifier
	}
	return d.Attempts.SweepOverdue(ctx, int(d.batch.Load()), notifier)
}

func (d *DeadlineSweeper) Run(ctx context.Context) {
	timer := time.NewTimer(time.Duration(d.interval.Load()))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			res, err := d.SweepOnce(ctx)
			if err != nil {
				logger.Log.Error("Deadline sweep failed", zap.Error(err))
			} else if res.Expired > 0 || res.Advanced > 0 {
				logger.Log.Info("Deadline sweep finished",
					zap.Int("scanned", res.Scanned),
					zap.Int("expired", res.Expired),
					zap.Int("advanced", res.Advanced))
			}
			timer.Reset(time.Duration(d.interval.Load()))
		}
	}
}
