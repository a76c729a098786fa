package repository

import (
	"assessment_engine_backend/internal/model"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// LeaderboardCache 排行榜投影的 Redis 缓存，键为 leaderboard:activity:{id}
type LeaderboardCache struct {
	Redis *redis.Client
}

func NewLeaderboardCache(rdb *redis.Client) *LeaderboardCache {
	return &LeaderboardCache{Redis: rdb}
}

func leaderboardKey(activityID string) string {
	return fmt.Sprintf("leaderboard:activity:%s", activityID)
}

func (c *LeaderboardCache) Get(ctx context.Context, activityID string) ([]model.LeaderboardRow, bool, error) {
	raw, err := c.Redis.Get(ctx, leaderboardKey(activityID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var rows []model.LeaderboardRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		// 损坏的缓存按未命中处理
		return nil, false, nil
	}
	return rows, true, nil
}

func (c *LeaderboardCache) Set(ctx context.Context, activityID string, rows []model.LeaderboardRow, ttl time.Duration) error {
	raw, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	return c.Redis.Set(ctx, leaderboardKey(activityID), raw, ttl).Err()
}

func (c *LeaderboardCache) Invalidate(ctx context.Context, activityID string) error {
	return c.Redis.Del(ctx, leaderboardKey(activityID)).Err()
}
