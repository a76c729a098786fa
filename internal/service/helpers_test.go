package service

import (
	"assessment_engine_backend/internal/model"
	"assessment_engine_backend/internal/repository/memory"
	"assessment_engine_backend/internal/scoring"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

const testGroup = "group-1"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type pushed struct {
	userID  uint
	msgType string
	data    interface{}
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []pushed
}

func (n *recordingNotifier) PushToUser(userID uint, msgType string, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, pushed{userID: userID, msgType: msgType, data: data})
}

func (n *recordingNotifier) ofType(msgType string) []pushed {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []pushed
	for _, m := range n.msgs {
		if m.msgType == msgType {
			out = append(out, m)
		}
	}
	return out
}

type fixture struct {
	ctx   context.Context
	store *memory.Store
	cache *memory.LeaderboardCache
	clock *fakeClock
	gate  *AttemptGate
	svc   *AttemptService
	anti  *AntiCheatService
	board *LeaderboardService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	cache := memory.NewLeaderboardCache()
	clock := newFakeClock()
	gate := NewAttemptGate(store, store)
	svc := NewAttemptService(store, gate, NewShuffleService(42), NewTimerService(clock.Now), scoring.NewEngine())
	board := NewLeaderboardService(store, gate, cache, time.Minute)
	svc.Leaderboard = board
	return &fixture{
		ctx:   context.Background(),
		store: store,
		cache: cache,
		clock: clock,
		gate:  gate,
		svc:   svc,
		anti:  NewAntiCheatService(svc),
		board: board,
	}
}

func (f *fixture) join(t *testing.T, userID uint, role model.UserRole) {
	t.Helper()
	require.NoError(t, f.store.AddMember(f.ctx, &model.GroupMember{GroupID: testGroup, UserID: userID, Role: role}))
}

func (f *fixture) activity(t *testing.T, mode model.ActivityMode, rawSettings string, questions []model.Question) (*model.Activity, []model.Question) {
	t.Helper()
	a := &model.Activity{
		GroupID:  testGroup,
		Title:    fmt.Sprintf("%s activity", mode),
		Mode:     mode,
		Settings: datatypes.JSON(rawSettings),
	}
	require.NoError(t, f.store.CreateActivity(f.ctx, a, questions))
	return a, questions
}

// examQuestions 第 i 题的正确选项为 i%4
func examQuestions(n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			Prompt:         fmt.Sprintf("Question %d", i+1),
			Choices:        []string{"A", "B", "C", "D"},
			CorrectChoices: []int{i % 4},
			Position:       i,
		}
	}
	return qs
}

const (
	examSettings    = `{"timeLimitMinutes":30,"maxAttempts":1,"passThreshold":60}`
	caseSettings    = `{"timeLimitMinutes":45,"scenarioTimeLimitMinutes":5,"passThreshold":6,"scenarios":[{"id":"s1","title":"Outage","keywords":["rollback"]},{"id":"s2","title":"Postmortem"}]}`
	inquirySettings = `{"timeLimitMinutes":20,"questionsRequired":2,"topic":"photosynthesis","topicKeywords":["light","plant"],"passThreshold":0}`
)

// answerExam 前 correct 道题答对，其余答错
func (f *fixture) answerExam(t *testing.T, userID uint, attemptID string, questions []model.Question, correct int) {
	t.Helper()
	for i, q := range questions {
		choice := q.CorrectChoices[0]
		if i >= correct {
			choice = (choice + 1) % len(q.Choices)
		}
		_, err := f.svc.SaveResponse(f.ctx, userID, attemptID, q.ID, ResponseInput{SelectedChoices: []int{choice}})
		require.NoError(t, err)
	}
}
