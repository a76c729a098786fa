package memory

import (
	"assessment_engine_backend/internal/model"
	"context"
	"sync"
	"time"
)

type cacheEntry struct {
	rows      []model.LeaderboardRow
	expiresAt time.Time
}

// LeaderboardCache 未启用 Redis 时的进程内排行榜缓存
type LeaderboardCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

func NewLeaderboardCache() *LeaderboardCache {
	return &LeaderboardCache{entries: make(map[string]cacheEntry), now: time.Now}
}

func (c *LeaderboardCache) Get(ctx context.Context, activityID string) ([]model.LeaderboardRow, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[activityID]
	if !ok {
		return nil, false, nil
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, activityID)
		return nil, false, nil
	}
	return append([]model.LeaderboardRow(nil), e.rows...), true, nil
}

func (c *LeaderboardCache) Set(ctx context.Context, activityID string, rows []model.LeaderboardRow, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[activityID] = cacheEntry{
		rows:      append([]model.LeaderboardRow(nil), rows...),
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

func (c *LeaderboardCache) Invalidate(ctx context.Context, activityID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, activityID)
	return nil
}
