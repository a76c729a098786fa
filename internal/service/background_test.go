package service

import (
	"assessment_engine_backend/internal/config"
	"assessment_engine_backend/internal/model"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAwarder struct {
	mu      sync.Mutex
	awarded []model.AttemptCompletedPayload
	err     error
}

func (a *recordingAwarder) Award(_ context.Context, p model.AttemptCompletedPayload) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.awarded = append(a.awarded, p)
	return nil
}

func TestSweepOverdue_ForcesExpiredAttempts(t *testing.T) {
	f := newFixture(t)
	f.join(t, 1, model.Student)
	f.join(t, 2, model.Student)
	act, questions := f.activity(t, model.ModeExam, examSettings, examQuestions(2))

	late, err := f.svc.Start(f.ctx, 1, act.ID, model.ModeExam)
	require.NoError(t, err)
	f.answerExam(t, 1, late.Attempt.ID, questions, 2)

	f.clock.Advance(20 * time.Minute)
	fresh, err := f.svc.Start(f.ctx, 2, act.ID, model.ModeExam)
	require.NoError(t, err)

	f.clock.Advance(11 * time.Minute)
	notifier := &recordingNotifier{}
	res, err := f.svc.SweepOverdue(f.ctx, 100, notifier)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Scanned)
	assert.Equal(t, 1, res.Expired)
	assert.Equal(t, 1, res.Resynced)

	a, err := f.store.FindAttempt(f.ctx, late.Attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptCompleted, a.Status)
	assert.Equal(t, model.EndTimeout, a.EndReason)
	assert.Equal(t, 1860, a.TimeSpentSeconds)
	assert.Equal(t, 100.0, a.Score)

	syncs := notifier.ofType(MsgTimerSync)
	require.Len(t, syncs, 1)
	assert.Equal(t, uint(2), syncs[0].userID)
	view, ok := syncs[0].data.(*TimerView)
	require.True(t, ok)
	assert.Equal(t, fresh.Attempt.ID, view.AttemptID)
	assert.Equal(t, 19*60, view.RemainingSeconds)

	// 再次扫描不会重复交卷
	res, err = f.svc.SweepOverdue(f.ctx, 100, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Scanned)
	assert.Zero(t, res.Expired)
}

func TestSweepOverdue_PagesPastLongRunningAttempts(t *testing.T) {
	f := newFixture(t)
	long, _ := f.activity(t, model.ModeExam, examSettings, examQuestions(1))
	short, _ := f.activity(t, model.ModeExam, `{"timeLimitMinutes":1}`, examQuestions(1))

	for _, userID := range []uint{1, 2, 3} {
		f.join(t, userID, model.Student)
	}
	for _, userID := range []uint{1, 2} {
		_, err := f.svc.Start(f.ctx, userID, long.ID, model.ModeExam)
		require.NoError(t, err)
	}
	f.clock.Advance(time.Minute)
	expiring, err := f.svc.Start(f.ctx, 3, short.ID, model.ModeExam)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Minute)
	res, err := f.svc.SweepOverdue(f.ctx, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Scanned)
	assert.Equal(t, 1, res.Expired)

	a, err := f.store.FindAttempt(f.ctx, expiring.Attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptCompleted, a.Status)
	assert.Equal(t, model.EndTimeout, a.EndReason)
}

func TestSweepOverdue_AdvancesCaseScenarios(t *testing.T) {
	f := newFixture(t)
	f.join(t, 1, model.Student)
	act, _ := f.activity(t, model.ModeCase, caseSettings, nil)

	view, err := f.svc.Start(f.ctx, 1, act.ID, model.ModeCase)
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	f.clock.Advance(5 * time.Minute)
	res, err := f.svc.SweepOverdue(f.ctx, 10, notifier)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Advanced)
	assert.Len(t, notifier.ofType(MsgScenarioAdvanced), 1)

	a, err := f.store.FindAttempt(f.ctx, view.Attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, a.CurrentScenario)

	f.clock.Advance(5 * time.Minute)
	res, err = f.svc.SweepOverdue(f.ctx, 10, notifier)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Advanced)

	a, err = f.store.FindAttempt(f.ctx, view.Attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptCompleted, a.Status)
	assert.Equal(t, model.EndTimeout, a.EndReason)
}

func TestDeadlineSweeper_PushDisabled(t *testing.T) {
	f := newFixture(t)
	f.join(t, 1, model.Student)
	act, _ := f.activity(t, model.ModeExam, examSettings, examQuestions(1))
	_, err := f.svc.Start(f.ctx, 1, act.ID, model.ModeExam)
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	sweeper := NewDeadlineSweeper(f.svc, notifier, time.Second, 10, false)
	res, err := sweeper.SweepOnce(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Scanned)
	assert.Zero(t, res.Resynced)
	assert.Empty(t, notifier.ofType(MsgTimerSync))

	sweeper.Configure(time.Second, 10, true)
	res, err = sweeper.SweepOnce(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Resynced)
}

func TestCompletionDispatcher_DispatchesOnce(t *testing.T) {
	f := newFixture(t)
	f.join(t, 1, model.Student)
	act, questions := f.activity(t, model.ModeExam, examSettings, examQuestions(2))

	view, err := f.svc.Start(f.ctx, 1, act.ID, model.ModeExam)
	require.NoError(t, err)
	f.answerExam(t, 1, view.Attempt.ID, questions, 2)
	_, err = f.svc.Submit(f.ctx, 1, view.Attempt.ID)
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	points := &recordingAwarder{}
	d := NewCompletionDispatcher(f.store, f.board, nil, notifier, points)

	n, err := d.DispatchPending(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Len(t, points.awarded, 1)
	p := points.awarded[0]
	assert.Equal(t, view.Attempt.ID, p.AttemptID)
	assert.Equal(t, act.ID, p.ActivityID)
	assert.Equal(t, 100.0, p.Score)
	assert.True(t, p.Passed)
	assert.Equal(t, pointsPassed, pointsFor(p))

	completed := notifier.ofType(MsgAttemptCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, uint(1), completed[0].userID)

	n, err = d.DispatchPending(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, points.awarded, 1)
}

func TestCompletionDispatcher_RetriesThenDrops(t *testing.T) {
	f := newFixture(t)
	f.join(t, 1, model.Student)
	act, _ := f.activity(t, model.ModeExam, examSettings, examQuestions(1))

	view, err := f.svc.Start(f.ctx, 1, act.ID, model.ModeExam)
	require.NoError(t, err)
	_, err = f.svc.Submit(f.ctx, 1, view.Attempt.ID)
	require.NoError(t, err)

	points := &recordingAwarder{err: errors.New("redis unavailable")}
	d := NewCompletionDispatcher(f.store, nil, nil, nil, points)

	for i := 0; i < maxDispatchRetries; i++ {
		n, err := d.DispatchPending(f.ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	}
	pending, err := f.store.ListPendingEvents(f.ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, maxDispatchRetries, pending[0].Retries)
	assert.Contains(t, pending[0].LastError, "redis unavailable")

	_, err = d.DispatchPending(f.ctx)
	require.NoError(t, err)
	pending, err = f.store.ListPendingEvents(f.ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestReportArchiver_WritesAttemptReport(t *testing.T) {
	f := newFixture(t)
	f.join(t, 1, model.Student)
	act, questions := f.activity(t, model.ModeExam, examSettings, examQuestions(2))

	view, err := f.svc.Start(f.ctx, 1, act.ID, model.ModeExam)
	require.NoError(t, err)
	f.answerExam(t, 1, view.Attempt.ID, questions, 1)
	_, err = f.anti.UpdateCheatingStats(f.ctx, 1, view.Attempt.ID, CheatingStatsInput{
		CheatCounters: model.CheatCounters{TabSwitchCount: 1},
		Events:        []CheatEventInput{{Sequence: seq(1), Type: model.CheatTabSwitch}},
	})
	require.NoError(t, err)
	_, err = f.svc.Submit(f.ctx, 1, view.Attempt.ID)
	require.NoError(t, err)

	dir := t.TempDir()
	storage := NewStorageService(&config.Config{Storage: config.StorageConfig{Type: "local", LocalPath: dir}})
	d := NewCompletionDispatcher(f.store, f.board, NewReportArchiver(storage, f.store), nil, LogPointsAwarder{})

	n, err := d.DispatchPending(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	raw, err := os.ReadFile(filepath.Join(dir, "reports", act.ID, view.Attempt.ID+".json"))
	require.NoError(t, err)
	var report AttemptReport
	require.NoError(t, json.Unmarshal(raw, &report))
	assert.Equal(t, view.Attempt.ID, report.Attempt.ID)
	assert.Equal(t, model.AttemptCompleted, report.Attempt.Status)
	assert.Len(t, report.Responses, 2)
	assert.Len(t, report.Events, 1)
}
