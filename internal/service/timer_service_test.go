package service

import (
	"assessment_engine_backend/internal/model"
	"assessment_engine_backend/internal/settings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimer_RemainingSeconds(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		elapsed time.Duration
		limit   time.Duration
		want    int
	}{
		{"fresh", 0, 30 * time.Minute, 1800},
		{"partial second rounds up", 500 * time.Millisecond, time.Minute, 60},
		{"one second left", 59 * time.Second, time.Minute, 1},
		{"exactly at limit", time.Minute, time.Minute, 0},
		{"past limit clamps", 2 * time.Hour, time.Minute, 0},
		{"clock behind start", -5 * time.Second, time.Minute, 65},
		{"untimed", time.Hour, 0, -1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			timer := NewTimerService(func() time.Time { return start.Add(tc.elapsed) })
			assert.Equal(t, tc.want, timer.RemainingSeconds(start, tc.limit))
		})
	}
}

func TestTimer_RemainingNeverIncreases(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	now := start
	timer := NewTimerService(func() time.Time { return now })

	prev := timer.RemainingSeconds(start, 10*time.Minute)
	for i := 0; i < 700; i++ {
		now = now.Add(time.Second + 250*time.Millisecond)
		cur := timer.RemainingSeconds(start, 10*time.Minute)
		assert.LessOrEqual(t, cur, prev)
		assert.GreaterOrEqual(t, cur, 0)
		prev = cur
	}
	assert.Zero(t, prev)
}

func TestTimer_Expiry(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	now := start
	timer := NewTimerService(func() time.Time { return now })
	exam := settings.MustParse(model.ModeExam, `{"timeLimitMinutes":30}`)
	a := &model.Attempt{Status: model.AttemptInProgress, StartedAt: start}

	now = start.Add(29*time.Minute + 59*time.Second)
	assert.False(t, timer.AttemptExpired(a, exam))

	now = start.Add(30 * time.Minute)
	assert.True(t, timer.AttemptExpired(a, exam))
	assert.Equal(t, start.Add(30*time.Minute), timer.Deadline(start, exam.TimeLimit()))

	a.Status = model.AttemptCompleted
	assert.False(t, timer.AttemptExpired(a, exam))
}

func TestTimer_ScenarioRemaining(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	now := start.Add(7 * time.Minute)
	timer := NewTimerService(func() time.Time { return now })

	cs := settings.MustParse(model.ModeCase, `{"scenarioTimeLimitMinutes":10,"scenarios":[{"id":"a","title":"A"}]}`).(*settings.CaseSettings)
	scenarioStart := start.Add(5 * time.Minute)
	a := &model.Attempt{Status: model.AttemptInProgress, StartedAt: start, ScenarioStartedAt: &scenarioStart}
	assert.Equal(t, 480, timer.ScenarioRemaining(a, cs))
	assert.False(t, timer.ScenarioExpired(a, cs))

	a.ScenarioStartedAt = nil
	assert.Equal(t, 180, timer.ScenarioRemaining(a, cs))

	untimed := settings.MustParse(model.ModeCase, `{"scenarios":[{"id":"a","title":"A"}]}`).(*settings.CaseSettings)
	assert.Equal(t, -1, timer.ScenarioRemaining(a, untimed))
	assert.False(t, timer.ScenarioExpired(a, untimed))
}
