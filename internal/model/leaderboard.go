package model

import "time"

// LeaderboardRow 排行榜中的一条已完成作答，并列分数共享名次（1,1,3）
type LeaderboardRow struct {
	Rank             int       `json:"rank"`
	AttemptID        string    `json:"attemptId"`
	UserID           uint      `json:"userId"`
	Score            float64   `json:"score"`
	Passed           bool      `json:"passed"`
	TimeSpentSeconds int       `json:"timeSpentSeconds"`
	CompletedAt      time.Time `json:"completedAt"`
}
