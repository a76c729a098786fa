// Package memory 进程内存储，用于测试和 database.driver=memory 的单机运行。
// 所有方法在一把锁内完成读取-检查-写入，语义与 SQL 实现一致。
package memory

import (
	"assessment_engine_backend/internal/model"
	"assessment_engine_backend/internal/util"
	"context"
	"sort"
	"sync"
	"time"
)

type Store struct {
	mu sync.RWMutex

	activities map[string]*model.Activity
	questions  map[string][]model.Question
	members    map[string]map[uint]model.GroupMember

	attempts  map[string]*model.Attempt
	responses map[string][]*model.Response
	events    map[string][]model.AntiCheatEvent
	outbox    []*model.AttemptEvent
	nextEvtID uint
	nextOutID uint
	memberSeq uint

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		activities: make(map[string]*model.Activity),
		questions:  make(map[string][]model.Question),
		members:    make(map[string]map[uint]model.GroupMember),
		attempts:   make(map[string]*model.Attempt),
		responses:  make(map[string][]*model.Response),
		events:     make(map[string][]model.AntiCheatEvent),
		now:        time.Now,
	}
}

// --- 活动与成员 ---

func (s *Store) CreateActivity(ctx context.Context, a *model.Activity, questions []model.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = model.GenerateUUID()
	}
	now := s.now()
	a.CreatedAt, a.UpdatedAt = now, now
	cp := *a
	s.activities[a.ID] = &cp

	qs := make([]model.Question, 0, len(questions))
	for i := range questions {
		q := questions[i]
		if q.ID == "" {
			q.ID = model.GenerateUUID()
		}
		q.ActivityID = a.ID
		questions[i].ID = q.ID
		questions[i].ActivityID = a.ID
		qs = append(qs, q)
	}
	s.questions[a.ID] = qs
	return nil
}

// DeleteActivity 软删除
func (s *Store) DeleteActivity(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.activities[id]; ok {
		a.DeletedAt.Time = s.now()
		a.DeletedAt.Valid = true
	}
}

func (s *Store) GetActivity(ctx context.Context, id string) (*model.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.activities[id]
	if !ok || a.DeletedAt.Valid {
		return nil, util.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *Store) ListQuestions(ctx context.Context, activityID string) ([]model.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	qs := append([]model.Question(nil), s.questions[activityID]...)
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].Position < qs[j].Position })
	return qs, nil
}

// AddMember 已存在时覆盖角色
func (s *Store) AddMember(ctx context.Context, m *model.GroupMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.members[m.GroupID] == nil {
		s.members[m.GroupID] = make(map[uint]model.GroupMember)
	}
	prev, ok := s.members[m.GroupID][m.UserID]
	if ok {
		m.ID = prev.ID
		m.CreatedAt = prev.CreatedAt
	} else {
		s.memberSeq++
		m.ID = s.memberSeq
		m.CreatedAt = s.now()
	}
	m.UpdatedAt = s.now()
	s.members[m.GroupID][m.UserID] = *m
	return nil
}

func (s *Store) GetMembership(ctx context.Context, groupID string, userID uint) (*model.GroupMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[groupID][userID]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

// --- 作答 ---

func (s *Store) FindAttempt(ctx context.Context, id string) (*model.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attempts[id]
	if !ok {
		return nil, util.ErrRecordNotFound
	}
	return a.Clone(), nil
}

func (s *Store) FindInProgress(ctx context.Context, userID uint, activityID string) (*model.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a := s.activeLocked(userID, activityID); a != nil {
		return a.Clone(), nil
	}
	return nil, nil
}

func (s *Store) activeLocked(userID uint, activityID string) *model.Attempt {
	for _, a := range s.attempts {
		if a.UserID == userID && a.ActivityID == activityID && a.InProgress() {
			return a
		}
	}
	return nil
}

func (s *Store) ListUserAttempts(ctx context.Context, userID uint, activityID string) ([]model.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Attempt
	for _, a := range s.attempts {
		if a.UserID == userID && a.ActivityID == activityID {
			out = append(out, *a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (s *Store) CountCompleted(ctx context.Context, userID uint, activityID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, a := range s.attempts {
		if a.UserID == userID && a.ActivityID == activityID && a.Status == model.AttemptCompleted {
			n++
		}
	}
	return n, nil
}

func (s *Store) CreateAttempt(ctx context.Context, a *model.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeLocked(a.UserID, a.ActivityID) != nil {
		return util.ErrActiveAttemptExists
	}
	if a.ID == "" {
		a.ID = model.GenerateUUID()
	}
	now := s.now()
	a.CreatedAt, a.UpdatedAt = now, now
	s.attempts[a.ID] = a.Clone()
	return nil
}

// inProgressLocked 调用方需持有写锁
func (s *Store) inProgressLocked(attemptID string) (*model.Attempt, error) {
	a, ok := s.attempts[attemptID]
	if !ok {
		return nil, util.ErrRecordNotFound
	}
	if !a.InProgress() {
		return nil, util.ErrAttemptNotInProgress
	}
	return a, nil
}

func (s *Store) UpsertResponse(ctx context.Context, r *model.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.inProgressLocked(r.AttemptID); err != nil {
		return err
	}

	now := s.now()
	list := s.responses[r.AttemptID]
	for i, existing := range list {
		if existing.QuestionID == r.QuestionID {
			r.ID = existing.ID
			r.CreatedAt = existing.CreatedAt
			r.UpdatedAt = now
			list[i] = r.Clone()
			return nil
		}
	}
	if r.ID == "" {
		r.ID = model.GenerateUUID()
	}
	r.CreatedAt, r.UpdatedAt = now, now
	s.responses[r.AttemptID] = append(list, r.Clone())
	return nil
}

func (s *Store) ListResponses(ctx context.Context, attemptID string) ([]model.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.responses[attemptID]
	out := make([]model.Response, 0, len(list))
	for _, r := range list {
		out = append(out, *r.Clone())
	}
	return out, nil
}

// CompleteAttempt complete 在锁内执行，期间的保存请求会等待并在完成后被拒绝
func (s *Store) CompleteAttempt(ctx context.Context, attemptID string, complete model.CompleteFunc) (*model.Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	locked, err := s.inProgressLocked(attemptID)
	if err != nil {
		return nil, err
	}

	list := s.responses[attemptID]
	responses := make([]model.Response, 0, len(list))
	for _, r := range list {
		responses = append(responses, *r.Clone())
	}
	c, err := complete(locked.Clone(), responses)
	if err != nil {
		return nil, err
	}

	now := s.now()
	a := c.Attempt
	a.ActiveSlot = nil
	a.UpdatedAt = now
	s.attempts[attemptID] = a.Clone()

	for _, g := range c.Graded {
		for i, existing := range list {
			if existing.ID == g.ID {
				updated := existing.Clone()
				updated.IsCorrect = g.IsCorrect
				updated.Score = g.Score
				updated.Feedback = g.Feedback
				updated.Category = g.Category
				updated.Dimensions = g.Dimensions
				updated.UpdatedAt = now
				list[i] = updated
			}
		}
	}

	if c.Event != nil {
		s.nextOutID++
		c.Event.ID = s.nextOutID
		c.Event.CreatedAt = now
		cp := *c.Event
		s.outbox = append(s.outbox, &cp)
	}
	return c, nil
}

func (s *Store) AdvanceScenario(ctx context.Context, attemptID string, from int, startedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.inProgressLocked(attemptID)
	if err != nil {
		return err
	}
	if a.CurrentScenario != from {
		return util.ErrScenarioClosed
	}
	a.CurrentScenario = from + 1
	t := startedAt
	a.ScenarioStartedAt = &t
	a.UpdatedAt = s.now()
	return nil
}

func (s *Store) UpdateCheating(ctx context.Context, attemptID string, counters model.CheatCounters, events []model.AntiCheatEvent) ([]model.AntiCheatEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.inProgressLocked(attemptID)
	if err != nil {
		return nil, err
	}

	a.TabSwitchCount = counters.TabSwitchCount
	a.CopyAttempts = counters.CopyAttempts
	a.PasteAttempts = counters.PasteAttempts
	a.UpdatedAt = s.now()

	seen := make(map[int]bool, len(s.events[attemptID]))
	for _, e := range s.events[attemptID] {
		seen[e.Sequence] = true
	}
	var inserted []model.AntiCheatEvent
	for _, e := range events {
		if seen[e.Sequence] {
			continue
		}
		seen[e.Sequence] = true
		s.nextEvtID++
		e.ID = s.nextEvtID
		e.AttemptID = attemptID
		e.CreatedAt = s.now()
		s.events[attemptID] = append(s.events[attemptID], e)
		inserted = append(inserted, e)
	}
	return inserted, nil
}

func (s *Store) ListCheatingEvents(ctx context.Context, attemptID string) ([]model.AntiCheatEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]model.AntiCheatEvent(nil), s.events[attemptID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (s *Store) ListCompleted(ctx context.Context, activityID string) ([]model.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Attempt
	for _, a := range s.attempts {
		if a.ActivityID == activityID && a.Status == model.AttemptCompleted {
			out = append(out, *a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListInProgress(ctx context.Context, until time.Time, after model.InProgressCursor, limit int) ([]model.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Attempt
	for _, a := range s.attempts {
		if a.InProgress() && !a.StartedAt.After(until) && after.After(a) {
			out = append(out, *a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- outbox ---

func (s *Store) ListPendingEvents(ctx context.Context, limit int) ([]model.AttemptEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.AttemptEvent
	for _, e := range s.outbox {
		if e.ProcessedAt != nil {
			continue
		}
		out = append(out, *e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) MarkEventProcessed(ctx context.Context, id uint, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.outbox {
		if e.ID == id {
			t := at
			e.ProcessedAt = &t
			return nil
		}
	}
	return util.ErrRecordNotFound
}

func (s *Store) MarkEventFailed(ctx context.Context, id uint, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.outbox {
		if e.ID == id {
			e.Retries++
			e.LastError = reason
			return nil
		}
	}
	return util.ErrRecordNotFound
}
