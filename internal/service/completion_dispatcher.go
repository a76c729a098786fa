package service

import (
	"assessment_engine_backend/internal/model"
	"assessment_engine_backend/pkg/logger"
	"assessment_engine_backend/pkg/monitoring"
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	maxDispatchRetries = 5
	pointsCompleted    = 2
	pointsPassed       = 10
)

// PointsAwarder 完成作答后的积分发放，同一作答只发放一次
type PointsAwarder interface {
	Award(ctx context.Context, p model.AttemptCompletedPayload) error
}

// LogPointsAwarder 未启用 Redis 时只记录日志
type LogPointsAwarder struct{}

func (LogPointsAwarder) Award(_ context.Context, p model.AttemptCompletedPayload) error {
	logger.Log.Info("Points awarded",
		zap.Uint("userId", p.UserID),
		zap.String("attemptId", p.AttemptID),
		zap.Int("points", pointsFor(p)))
	return nil
}

// RedisPointsAwarder 积分累计在 points:user 有序集合中
type RedisPointsAwarder struct {
	Redis *redis.Client
}

func (a *RedisPointsAwarder) Award(ctx context.Context, p model.AttemptCompletedPayload) error {
	ok, err := a.Redis.SetNX(ctx, fmt.Sprintf("points:awarded:%s", p.AttemptID), 1, 30*24*time.Hour).Result()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return a.Redis.ZIncrBy(ctx, "points:user", float64(pointsFor(p)), fmt.Sprint(p.UserID)).Err()
}

func pointsFor(p model.AttemptCompletedPayload) int {
	if p.Passed {
		return pointsPassed
	}
	return pointsCompleted
}

// LeaderboardInvalidator 完成作答后使排行榜缓存失效
type LeaderboardInvalidator interface {
	Invalidate(ctx context.Context, activityID string) error
}

// CompletionDispatcher 消费 attempt.completed outbox 事件。
// 每个事件依次：失效排行榜缓存、归档结果报告、推送通知、发放积分；任一步失败则整体重试
type CompletionDispatcher struct {
	Outbox      OutboxStore
	Leaderboard LeaderboardInvalidator
	Archiver    *ReportArchiver
	Notifier    Notifier
	Points      PointsAwarder
	Now         Clock

	interval atomic.Int64
	batch    atomic.Int64
	archive  atomic.Bool
}

func NewCompletionDispatcher(outbox OutboxStore, leaderboard LeaderboardInvalidator, archiver *ReportArchiver, notifier Notifier, points PointsAwarder) *CompletionDispatcher {
	d := &CompletionDispatcher{
		Outbox:      outbox,
		Leaderboard: leaderboard,
		Archiver:    archiver,
		Notifier:    notifier,
		Points:      points,
		Now:         time.Now,
	}
	d.Configure(5*time.Second, 100, archiver != nil)
	return d
}

// Configure 热更新，下一轮生效
func (d *CompletionDispatcher) Configure(interval time.Duration, batch int, archive bool) {
	d.interval.Store(int64(interval))
	d.batch.Store(int64(batch))
	d.archive.Store(archive)
}

// DispatchPending 处理一批待分发事件，返回成功处理的数量
func (d *CompletionDispatcher) DispatchPending(ctx context.Context) (int, error) {
	events, err := d.Outbox.ListPendingEvents(ctx, int(d.batch.Load()))
	if err != nil {
		return 0, err
	}
	monitoring.OutboxPending.Set(float64(len(events)))

	done := 0
	for _, e := range events {
		if e.Retries >= maxDispatchRetries {
			logger.Log.Error("Dropping attempt event after retries",
				zap.Uint("eventId", e.ID), zap.String("attemptId", e.AttemptID), zap.String("lastError", e.LastError))
			if err := d.Outbox.MarkEventProcessed(ctx, e.ID, d.Now()); err != nil {
				return done, err
			}
			continue
		}

		if err := d.handle(ctx, e); err != nil {
			logger.Log.Warn("Attempt event dispatch failed",
				zap.Uint("eventId", e.ID), zap.String("attemptId", e.AttemptID), zap.Error(err))
			if err := d.Outbox.MarkEventFailed(ctx, e.ID, err.Error()); err != nil {
				return done, err
			}
			continue
		}
		if err := d.Outbox.MarkEventProcessed(ctx, e.ID, d.Now()); err != nil {
			return done, err
		}
		done++
	}
	return done, nil
}

func (d *CompletionDispatcher) handle(ctx context.Context, e model.AttemptEvent) error {
	if e.Topic != model.TopicAttemptCompleted {
		return nil
	}
	var p model.AttemptCompletedPayload
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	if d.Leaderboard != nil {
		if err := d.Leaderboard.Invalidate(ctx, p.ActivityID); err != nil {
			return fmt.Errorf("invalidate leaderboard: %w", err)
		}
	}
	if d.Archiver != nil && d.archive.Load() {
		if _, err := d.Archiver.Archive(ctx, p.AttemptID); err != nil {
			return fmt.Errorf("archive report: %w", err)
		}
	}
	if d.Notifier != nil {
		d.Notifier.PushToUser(p.UserID, MsgAttemptCompleted, p)
	}
	if d.Points != nil {
		if err := d.Points.Award(ctx, p); err != nil {
			return fmt.Errorf("award points: %w", err)
		}
	}
	return nil
}

func (d *CompletionDispatcher) Run(ctx context.Context) {
	timer := time.NewTimer(time.Duration(d.interval.Load()))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			n, err := d.DispatchPending(ctx)
			if err != nil {
				logger.Log.Error("Outbox dispatch failed", zap.Error(err))
			} else if n > 0 {
				logger.Log.Debug("Outbox events dispatched", zap.Int("count", n))
			}
			timer.Reset(time.Duration(d.interval.Load()))
		}
	}
}
