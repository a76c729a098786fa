package service

import (
	"assessment_engine_backend/internal/model"
	"assessment_engine_backend/pkg/logger"
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// LeaderboardService 由已完成作答即时投影排行榜，缓存仅用于减少重复计算
type LeaderboardService struct {
	Attempts AttemptStore
	Gate     *AttemptGate
	Cache    LeaderboardCache
	ttl      atomic.Int64

	// generations 每次失效递增；计算期间发生过失效的投影不写回缓存
	mu          sync.Mutex
	generations map[string]uint64
}

func NewLeaderboardService(attempts AttemptStore, gate *AttemptGate, cache LeaderboardCache, ttl time.Duration) *LeaderboardService {
	s := &LeaderboardService{Attempts: attempts, Gate: gate, Cache: cache, generations: make(map[string]uint64)}
	s.SetTTL(ttl)
	return s
}

// SetTTL 配置热更新时调用
func (s *LeaderboardService) SetTTL(ttl time.Duration) {
	s.ttl.Store(int64(ttl))
}

func (s *LeaderboardService) Leaderboard(ctx context.Context, userID uint, activityID string, mode model.ActivityMode) ([]model.LeaderboardRow, error) {
	if _, _, err := s.Gate.Admit(ctx, userID, activityID, mode); err != nil {
		return nil, operationError("leaderboard", err)
	}
	return s.Project(ctx, activityID)
}

// Project 不做权限检查，供内部调用
func (s *LeaderboardService) Project(ctx context.Context, activityID string) ([]model.LeaderboardRow, error) {
	if s.Cache != nil {
		rows, ok, err := s.Cache.Get(ctx, activityID)
		if err != nil {
			logger.Log.Warn("Leaderboard cache read failed", zap.String("activityId", activityID), zap.Error(err))
		} else if ok {
			return rows, nil
		}
	}

	gen := s.generation(activityID)
	attempts, err := s.Attempts.ListCompleted(ctx, activityID)
	if err != nil {
		return nil, operationError("leaderboard", err)
	}
	rows := RankAttempts(attempts)

	if s.Cache != nil && s.generation(activityID) == gen {
		if err := s.Cache.Set(ctx, activityID, rows, time.Duration(s.ttl.Load())); err != nil {
			logger.Log.Warn("Leaderboard cache write failed", zap.String("activityId", activityID), zap.Error(err))
		} else if s.generation(activityID) != gen {
			// 写回与失效交错，撤销这次写入
			_ = s.Cache.Invalidate(ctx, activityID)
		}
	}
	return rows, nil
}

func (s *LeaderboardService) Invalidate(ctx context.Context, activityID string) error {
	s.mu.Lock()
	s.generations[activityID]++
	s.mu.Unlock()
	if s.Cache == nil {
		return nil
	}
	return s.Cache.Invalidate(ctx, activityID)
}

func (s *LeaderboardService) generation(activityID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[activityID]
}

// RankAttempts 按分数降序排列，同分共享名次（1,1,3）；同分时按用时、完成时间展示
func RankAttempts(attempts []model.Attempt) []model.LeaderboardRow {
	sorted := make([]model.Attempt, 0, len(attempts))
	for _, a := range attempts {
		if a.Status == model.AttemptCompleted {
			sorted = append(sorted, a)
		}
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.RankScore() != b.RankScore() {
			return a.RankScore() > b.RankScore()
		}
		if a.TimeSpentSeconds != b.TimeSpentSeconds {
			return a.TimeSpentSeconds < b.TimeSpentSeconds
		}
		return completedAt(a).Before(completedAt(b))
	})

	rows := make([]model.LeaderboardRow, 0, len(sorted))
	for i, a := range sorted {
		rank := i + 1
		if i > 0 && a.RankScore() == sorted[i-1].RankScore() {
			rank = rows[i-1].Rank
		}
		rows = append(rows, model.LeaderboardRow{
			Rank:             rank,
			AttemptID:        a.ID,
			UserID:           a.UserID,
			Score:            a.RankScore(),
			Passed:           a.Passed,
			TimeSpentSeconds: a.TimeSpentSeconds,
			CompletedAt:      completedAt(a),
		})
	}
	return rows
}

func completedAt(a model.Attempt) time.Time {
	if a.CompletedAt == nil {
		return time.Time{}
	}
	return *a.CompletedAt
}
