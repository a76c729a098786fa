package service

import (
	"assessment_engine_backend/internal/model"
	"assessment_engine_backend/internal/scoring"
	"assessment_engine_backend/internal/settings"
	"assessment_engine_backend/internal/util"
	"assessment_engine_backend/pkg/logger"
	"assessment_engine_backend/pkg/monitoring"
	"assessment_engine_backend/pkg/tracing"
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// ResponseInput 保存作答的请求体，按模式取用对应字段
type ResponseInput struct {
	SelectedChoices []int  `json:"selectedChoices"`
	Text            string `json:"text"`
	Issues          string `json:"issues"`
	Solution        string `json:"solution"`
}

// ChoiceView Index 为原始选项下标，提交时原样回传
type ChoiceView struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

type QuestionView struct {
	ID      string       `json:"id"`
	Prompt  string       `json:"prompt"`
	Choices []ChoiceView `json:"choices"`
}

type ScenarioView struct {
	Index            int    `json:"index"`
	Total            int    `json:"total"`
	ID               string `json:"id"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	RemainingSeconds int    `json:"remainingSeconds"`
}

// AttemptView RemainingSeconds 为 -1 表示不限时
type AttemptView struct {
	Attempt          *model.Attempt   `json:"attempt"`
	Resumed          bool             `json:"resumed"`
	TimeLimitSeconds int              `json:"timeLimitSeconds"`
	RemainingSeconds int              `json:"remainingSeconds"`
	Deadline         *time.Time       `json:"deadline,omitempty"`
	Questions        []QuestionView   `json:"questions,omitempty"`
	Scenario         *ScenarioView    `json:"scenario,omitempty"`
	Responses        []model.Response `json:"responses,omitempty"`
}

type SubmitResult struct {
	AttemptID        string             `json:"attemptId"`
	Mode             model.ActivityMode `json:"mode"`
	EndReason        model.EndReason    `json:"endReason"`
	TimeSpentSeconds int                `json:"timeSpentSeconds"`
	CompletedAt      time.Time          `json:"completedAt"`
	Passed           bool               `json:"passed"`

	Score          float64 `json:"score"`
	CorrectAnswers int     `json:"correctAnswers"`
	TotalQuestions int     `json:"totalQuestions"`

	TotalScore         float64               `json:"totalScore"`
	ScenarioScores     []model.ScenarioScore `json:"scenarioScores,omitempty"`
	QuestionsGenerated int                   `json:"questionsGenerated"`
	QuestionsRequired  int                   `json:"questionsRequired"`

	Responses []model.Response `json:"responses"`
}

// SaveResult 案例模式场景超时后可能推进到下一场景或直接交卷
type SaveResult struct {
	QuestionID       string        `json:"questionId"`
	SavedAt          time.Time     `json:"savedAt"`
	RemainingSeconds int           `json:"remainingSeconds"`
	CurrentScenario  int           `json:"currentScenario"`
	ScenarioAdvanced bool          `json:"scenarioAdvanced"`
	Submitted        bool          `json:"submitted"`
	Result           *SubmitResult `json:"result,omitempty"`
}

type StatusView struct {
	InProgress        *model.Attempt  `json:"inProgress"`
	RemainingSeconds  int             `json:"remainingSeconds"`
	Completed         []model.Attempt `json:"completed"`
	AttemptCount      int             `json:"attemptCount"`
	MaxAttempts       int             `json:"maxAttempts"`
	RemainingAttempts int             `json:"remainingAttempts"`
	CanStart          bool            `json:"canStart"`
}

// AttemptService 作答状态机：not_started -> in_progress -> completed，completed 之后不可变
type AttemptService struct {
	Attempts    AttemptStore
	Gate        *AttemptGate
	Shuffler    *ShuffleService
	Timer       *TimerService
	Scoring     *scoring.Engine
	Leaderboard LeaderboardInvalidator
}

func NewAttemptService(attempts AttemptStore, gate *AttemptGate, shuffler *ShuffleService, timer *TimerService, engine *scoring.Engine) *AttemptService {
	return &AttemptService{
		Attempts: attempts,
		Gate:     gate,
		Shuffler: shuffler,
		Timer:    timer,
		Scoring:  engine,
	}
}

// Start 已有进行中的作答时原样返回；超时的旧作答先强制交卷再继续准入检查
func (s *AttemptService) Start(ctx context.Context, userID uint, activityID string, mode model.ActivityMode) (view *AttemptView, err error) {
	ctx, span := tracing.StartSpan(ctx, "attempt.start", "")
	defer func() { tracing.EndSpan(span, err) }()

	activity, cfg, err := s.Gate.Admit(ctx, userID, activityID, mode)
	if err != nil {
		return nil, s.fail("start", err)
	}

	existing, err := s.Attempts.FindInProgress(ctx, userID, activityID)
	if err != nil {
		return nil, s.fail("start", err)
	}
	if existing != nil {
		if !s.Timer.AttemptExpired(existing, cfg) {
			return s.view(ctx, existing, cfg, true)
		}
		if _, err := s.finish(ctx, existing, cfg, model.EndTimeout); err != nil && !errors.Is(err, util.ErrAttemptCompleted) {
			return nil, s.fail("start", err)
		}
	}

	count, err := s.Attempts.CountCompleted(ctx, userID, activityID)
	if err != nil {
		return nil, s.fail("start", err)
	}
	if int(count) >= cfg.AttemptLimit() {
		return nil, util.ErrMaxAttemptsReached
	}

	a, err := s.newAttempt(ctx, userID, activity, cfg)
	if err != nil {
		return nil, s.fail("start", err)
	}

	err = s.Attempts.CreateAttempt(ctx, a)
	if errors.Is(err, util.ErrActiveAttemptExists) {
		// 并发开始时以先写入者为准
		winner, ferr := s.Attempts.FindInProgress(ctx, userID, activityID)
		if ferr != nil {
			return nil, s.fail("start", ferr)
		}
		if winner == nil {
			return nil, s.fail("start", err)
		}
		return s.view(ctx, winner, cfg, true)
	}
	if err != nil {
		return nil, s.fail("start", err)
	}

	monitoring.AttemptsStarted.WithLabelValues(string(a.Mode)).Inc()
	logger.Log.Info("Attempt started",
		zap.String("attemptId", a.ID),
		zap.Uint("userId", userID),
		zap.String("activityId", activityID),
		zap.String("mode", string(a.Mode)))

	return s.view(ctx, a, cfg, false)
}

func (s *AttemptService) newAttempt(ctx context.Context, userID uint, activity *model.Activity, cfg settings.Settings) (*model.Attempt, error) {
	now := s.Timer.Now()
	a := &model.Attempt{
		UserID:     userID,
		ActivityID: activity.ID,
		Mode:       activity.Mode,
		Status:     model.AttemptInProgress,
		StartedAt:  now,
	}

	switch c := cfg.(type) {
	case *settings.ExamSettings:
		questions, err := s.Gate.Activities.ListQuestions(ctx, activity.ID)
		if err != nil {
			return nil, err
		}
		order, perms := s.Shuffler.Plan(questions, c)
		a.QuestionOrder = order
		a.ChoiceOrder = datatypes.NewJSONType(perms)
		a.TotalQuestions = len(order)
	case *settings.CaseSettings:
		a.CurrentScenario = 0
		a.ScenarioStartedAt = &now
	case *settings.InquirySettings:
		a.QuestionsRequired = c.QuestionsRequired
	}
	return a, nil
}

// SaveResponse 覆盖保存，不评分
func (s *AttemptService) SaveResponse(ctx context.Context, userID uint, attemptID, questionID string, in ResponseInput) (*SaveResult, error) {
	a, cfg, err := s.activeAttempt(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}

	now := s.Timer.Now()
	resp := &model.Response{AttemptID: a.ID, QuestionID: questionID, SavedAt: now}

	switch c := cfg.(type) {
	case *settings.ExamSettings:
		if !containsString(a.QuestionOrder, questionID) {
			return nil, util.ErrQuestionNotInAttempt
		}
		n := len(a.ChoicePermutation(questionID))
		for _, idx := range in.SelectedChoices {
			if idx < 0 || idx >= n {
				return nil, util.ValidationError("choice index %d is out of range", idx)
			}
		}
		resp.SelectedChoices = append(datatypes.JSONSlice[int]{}, in.SelectedChoices...)
	case *settings.CaseSettings:
		idx := c.ScenarioIndex(questionID)
		if idx < 0 {
			return nil, util.ErrQuestionNotInAttempt
		}
		if idx != a.CurrentScenario {
			return nil, util.ErrScenarioClosed
		}
		resp.Issues = in.Issues
		resp.Solution = in.Solution
	case *settings.InquirySettings:
		if c.SlotIndex(questionID) == 0 {
			return nil, util.ErrQuestionNotInAttempt
		}
		resp.Text = in.Text
	}

	if err := s.Attempts.UpsertResponse(ctx, resp); err != nil {
		return nil, s.fail("save_response", storeError(err))
	}

	result := &SaveResult{QuestionID: questionID, SavedAt: now}

	if cs, ok := cfg.(*settings.CaseSettings); ok && s.Timer.ScenarioExpired(a, cs) {
		if a.CurrentScenario >= len(cs.Scenarios)-1 {
			sub, err := s.finish(ctx, a, cfg, model.EndTimeout)
			if err != nil {
				return nil, s.fail("save_response", err)
			}
			result.Submitted = true
			result.Result = sub
			result.CurrentScenario = a.CurrentScenario
			return result, nil
		}
		if err := s.Attempts.AdvanceScenario(ctx, a.ID, a.CurrentScenario, now); err != nil {
			return nil, s.fail("save_response", storeError(err))
		}
		a.CurrentScenario++
		a.ScenarioStartedAt = &now
		result.ScenarioAdvanced = true
	}

	result.CurrentScenario = a.CurrentScenario
	result.RemainingSeconds = s.Timer.RemainingSeconds(a.StartedAt, cfg.TimeLimit())
	return result, nil
}

// Submit 超时后提交同样返回强制交卷的结果
func (s *AttemptService) Submit(ctx context.Context, userID uint, attemptID string) (res *SubmitResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "attempt.submit", attemptID)
	defer func() { tracing.EndSpan(span, err) }()

	a, cfg, err := s.loadOwned(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}
	if !a.InProgress() {
		return nil, util.ErrAttemptCompleted
	}

	reason := model.EndSubmitted
	if s.Timer.AttemptExpired(a, cfg) {
		reason = model.EndTimeout
	}
	res, err = s.finish(ctx, a, cfg, reason)
	if err != nil {
		return nil, s.fail("submit", err)
	}
	return res, nil
}

// GetStatus 读取前同样检查超时
func (s *AttemptService) GetStatus(ctx context.Context, userID uint, activityID string, mode model.ActivityMode) (*StatusView, error) {
	_, cfg, err := s.Gate.Admit(ctx, userID, activityID, mode)
	if err != nil {
		return nil, s.fail("status", err)
	}

	attempts, err := s.Attempts.ListUserAttempts(ctx, userID, activityID)
	if err != nil {
		return nil, s.fail("status", err)
	}

	expired := false
	for i := range attempts {
		if s.Timer.AttemptExpired(&attempts[i], cfg) {
			if _, err := s.finish(ctx, &attempts[i], cfg, model.EndTimeout); err != nil && !errors.Is(err, util.ErrAttemptCompleted) {
				return nil, s.fail("status", err)
			}
			expired = true
		}
	}
	if expired {
		if attempts, err = s.Attempts.ListUserAttempts(ctx, userID, activityID); err != nil {
			return nil, s.fail("status", err)
		}
	}

	view := &StatusView{
		Completed:    []model.Attempt{},
		AttemptCount: len(attempts),
		MaxAttempts:  cfg.AttemptLimit(),
	}
	for i := range attempts {
		if attempts[i].InProgress() {
			a := attempts[i]
			view.InProgress = &a
			view.RemainingSeconds = s.Timer.RemainingSeconds(a.StartedAt, cfg.TimeLimit())
			continue
		}
		view.Completed = append(view.Completed, attempts[i])
	}
	view.RemainingAttempts = cfg.AttemptLimit() - len(view.Completed)
	if view.RemainingAttempts < 0 {
		view.RemainingAttempts = 0
	}
	view.CanStart = view.InProgress != nil || view.RemainingAttempts > 0
	return view, nil
}

// GetAttempt 返回作答及其题目顺序、剩余时间；已完成的作答附带评分结果
func (s *AttemptService) GetAttempt(ctx context.Context, userID uint, attemptID string) (*AttemptView, error) {
	a, cfg, err := s.loadOwned(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}
	if s.Timer.AttemptExpired(a, cfg) {
		if _, err := s.finish(ctx, a, cfg, model.EndTimeout); err != nil && !errors.Is(err, util.ErrAttemptCompleted) {
			return nil, s.fail("get_attempt", err)
		}
		if a, err = s.Attempts.FindAttempt(ctx, attemptID); err != nil {
			return nil, s.fail("get_attempt", storeError(err))
		}
	}
	return s.view(ctx, a, cfg, false)
}

// AdvanceScenario 案例模式手动进入下一场景，最后一个场景需直接交卷
func (s *AttemptService) AdvanceScenario(ctx context.Context, userID uint, attemptID string) (*AttemptView, error) {
	a, cfg, err := s.activeAttempt(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}
	cs, ok := cfg.(*settings.CaseSettings)
	if !ok {
		return nil, util.ValidationError("scenario advance is only available for case activities")
	}
	if a.CurrentScenario >= len(cs.Scenarios)-1 {
		return nil, util.ErrNoMoreScenarios
	}

	now := s.Timer.Now()
	if err := s.Attempts.AdvanceScenario(ctx, a.ID, a.CurrentScenario, now); err != nil {
		return nil, s.fail("advance_scenario", storeError(err))
	}
	a.CurrentScenario++
	a.ScenarioStartedAt = &now
	return s.view(ctx, a, cfg, false)
}

// loadOwned 不属于调用者的作答按不存在处理
func (s *AttemptService) loadOwned(ctx context.Context, userID uint, attemptID string) (*model.Attempt, settings.Settings, error) {
	if userID == 0 {
		return nil, nil, util.ErrUnauthenticated
	}
	a, err := s.Attempts.FindAttempt(ctx, attemptID)
	if err != nil {
		return nil, nil, s.fail("load_attempt", storeError(err))
	}
	if a.UserID != userID {
		return nil, nil, util.ErrAttemptNotFound
	}
	_, cfg, err := s.Gate.Settings(ctx, a.ActivityID)
	if err != nil {
		return nil, nil, s.fail("load_attempt", err)
	}
	return a, cfg, nil
}

// activeAttempt 写操作的公共前置：属于调用者、进行中、未超时。超时的作答会被强制交卷
func (s *AttemptService) activeAttempt(ctx context.Context, userID uint, attemptID string) (*model.Attempt, settings.Settings, error) {
	a, cfg, err := s.loadOwned(ctx, userID, attemptID)
	if err != nil {
		return nil, nil, err
	}
	if !a.InProgress() {
		return nil, nil, util.ErrAttemptCompleted
	}
	if s.Timer.AttemptExpired(a, cfg) {
		if _, err := s.finish(ctx, a, cfg, model.EndTimeout); err != nil && !errors.Is(err, util.ErrAttemptCompleted) {
			return nil, nil, s.fail("deadline", err)
		}
		return nil, nil, util.ErrTimeLimitExceeded
	}
	return a, cfg, nil
}

// finish 在作答行锁内读取最新作答并评分，以 status='in_progress' 为条件完成作答，
// 竞争失败返回 util.ErrAttemptCompleted
func (s *AttemptService) finish(ctx context.Context, a *model.Attempt, cfg settings.Settings, reason model.EndReason) (*SubmitResult, error) {
	var questions []model.Question
	if _, ok := cfg.(*settings.ExamSettings); ok {
		var err error
		if questions, err = s.Gate.Activities.ListQuestions(ctx, a.ActivityID); err != nil {
			return nil, err
		}
	}

	c, err := s.Attempts.CompleteAttempt(ctx, a.ID, func(locked *model.Attempt, responses []model.Response) (*model.Completion, error) {
		done := locked.Clone()
		began := time.Now()
		if err := s.grade(ctx, done, cfg, responses, questions); err != nil {
			return nil, err
		}
		monitoring.ScoringDuration.WithLabelValues(string(done.Mode)).Observe(time.Since(began).Seconds())

		now := s.Timer.Now()
		done.Status = model.AttemptCompleted
		done.CompletedAt = &now
		done.EndReason = reason
		done.TimeSpentSeconds = int(now.Sub(done.StartedAt).Seconds())
		if done.TimeSpentSeconds < 0 {
			done.TimeSpentSeconds = 0
		}

		event, err := completionEvent(done)
		if err != nil {
			return nil, err
		}
		return &model.Completion{Attempt: done, Graded: responses, Event: event}, nil
	})
	if err != nil {
		return nil, storeError(err)
	}
	done := c.Attempt

	monitoring.AttemptsCompleted.WithLabelValues(string(done.Mode), string(reason)).Inc()
	logger.Log.Info("Attempt completed",
		zap.String("attemptId", done.ID),
		zap.Uint("userId", done.UserID),
		zap.String("reason", string(reason)),
		zap.Float64("score", done.RankScore()),
		zap.Bool("passed", done.Passed))

	// 提交返回前失效，outbox 分发时会再失效一次
	if s.Leaderboard != nil {
		if err := s.Leaderboard.Invalidate(ctx, done.ActivityID); err != nil {
			logger.Log.Warn("Leaderboard invalidation failed", zap.String("activityId", done.ActivityID), zap.Error(err))
		}
	}

	return newSubmitResult(done, c.Graded), nil
}

// grade 写入作答上的评分字段并更新 a 的结果字段
// questions 仅考试模式使用，由调用方在加锁前读取
func (s *AttemptService) grade(ctx context.Context, a *model.Attempt, cfg settings.Settings, responses []model.Response, questions []model.Question) error {
	switch c := cfg.(type) {
	case *settings.ExamSettings:
		byID := make(map[string]model.Question, len(questions))
		for _, q := range questions {
			byID[q.ID] = q
		}
		exam := make([]scoring.ExamQuestion, 0, len(a.QuestionOrder))
		for _, id := range a.QuestionOrder {
			exam = append(exam, scoring.ExamQuestion{ID: id, Correct: byID[id].CorrectChoices})
		}
		answers := make([]scoring.ExamAnswer, 0, len(responses))
		for _, r := range responses {
			answers = append(answers, scoring.ExamAnswer{QuestionID: r.QuestionID, Selected: r.SelectedChoices})
		}

		res := s.Scoring.Exam(exam, answers, c.PassMark())
		a.Score = res.Score
		a.CorrectAnswers = res.CorrectAnswers
		a.TotalQuestions = res.TotalQuestions
		a.Passed = res.Passed
		for i := range responses {
			if ok, found := res.Correctness[responses[i].QuestionID]; found {
				v := ok
				responses[i].IsCorrect = &v
			}
		}

	case *settings.CaseSettings:
		answers := make(map[string]scoring.CaseAnswer, len(responses))
		for _, r := range responses {
			answers[r.QuestionID] = scoring.CaseAnswer{Issues: r.Issues, Solution: r.Solution}
		}
		res, err := s.Scoring.Case(ctx, c.Scenarios, answers, c.PassMark())
		if err != nil {
			return err
		}
		a.TotalScore = res.TotalScore
		a.ScenarioScores = res.Scenarios
		a.Passed = res.Passed
		byScenario := make(map[string]model.ScenarioScore, len(res.Scenarios))
		for _, sc := range res.Scenarios {
			byScenario[sc.ScenarioID] = sc
		}
		for i := range responses {
			if sc, ok := byScenario[responses[i].QuestionID]; ok {
				v := sc.Score
				responses[i].Score = &v
				responses[i].Feedback = sc.Feedback
			}
		}

	case *settings.InquirySettings:
		questions := make(map[string]string, len(responses))
		for _, r := range responses {
			if c.SlotIndex(r.QuestionID) > 0 {
				questions[r.QuestionID] = r.Text
			}
		}
		res, err := s.Scoring.Inquiry(ctx, questions, c)
		if err != nil {
			return err
		}
		a.QuestionsGenerated = res.QuestionsGenerated
		a.QuestionsRequired = res.QuestionsRequired
		a.TotalScore = res.TotalScore
		a.Passed = res.Passed
		for i := range responses {
			ev, ok := res.Evaluations[responses[i].QuestionID]
			if !ok {
				continue
			}
			v := ev.Score
			responses[i].Score = &v
			responses[i].Category = ev.Level
			responses[i].Feedback = ev.Feedback
			responses[i].Dimensions = datatypes.NewJSONType(ev.Dimensions)
		}
	}
	return nil
}

func (s *AttemptService) view(ctx context.Context, a *model.Attempt, cfg settings.Settings, resumed bool) (*AttemptView, error) {
	v := &AttemptView{
		Attempt:          a,
		Resumed:          resumed,
		TimeLimitSeconds: int(cfg.TimeLimit().Seconds()),
	}
	if a.InProgress() {
		v.RemainingSeconds = s.Timer.RemainingSeconds(a.StartedAt, cfg.TimeLimit())
		if d := s.Timer.Deadline(a.StartedAt, cfg.TimeLimit()); !d.IsZero() {
			v.Deadline = &d
		}
	}

	switch c := cfg.(type) {
	case *settings.ExamSettings:
		questions, err := s.Gate.Activities.ListQuestions(ctx, a.ActivityID)
		if err != nil {
			return nil, s.fail("view", err)
		}
		v.Questions = orderedQuestions(a, questions)
	case *settings.CaseSettings:
		if a.InProgress() && a.CurrentScenario < len(c.Scenarios) {
			sc := c.Scenarios[a.CurrentScenario]
			v.Scenario = &ScenarioView{
				Index:            a.CurrentScenario,
				Total:            len(c.Scenarios),
				ID:               sc.ID,
				Title:            sc.Title,
				Description:      sc.Description,
				RemainingSeconds: s.Timer.ScenarioRemaining(a, c),
			}
		}
	}

	responses, err := s.Attempts.ListResponses(ctx, a.ID)
	if err != nil {
		return nil, s.fail("view", err)
	}
	v.Responses = responses
	return v, nil
}

// orderedQuestions 按作答保存的顺序与排列输出题目
func orderedQuestions(a *model.Attempt, questions []model.Question) []QuestionView {
	byID := make(map[string]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	out := make([]QuestionView, 0, len(a.QuestionOrder))
	for _, id := range a.QuestionOrder {
		q, ok := byID[id]
		if !ok {
			continue
		}
		perm := a.ChoicePermutation(id)
		if len(perm) != len(q.Choices) {
			perm = identity(len(q.Choices))
		}
		choices := make([]ChoiceView, 0, len(perm))
		for _, orig := range perm {
			choices = append(choices, ChoiceView{Index: orig, Text: q.Choices[orig]})
		}
		out = append(out, QuestionView{ID: q.ID, Prompt: q.Prompt, Choices: choices})
	}
	return out
}

func newSubmitResult(a *model.Attempt, responses []model.Response) *SubmitResult {
	res := &SubmitResult{
		AttemptID:          a.ID,
		Mode:               a.Mode,
		EndReason:          a.EndReason,
		TimeSpentSeconds:   a.TimeSpentSeconds,
		Passed:             a.Passed,
		Score:              a.Score,
		CorrectAnswers:     a.CorrectAnswers,
		TotalQuestions:     a.TotalQuestions,
		TotalScore:         a.TotalScore,
		ScenarioScores:     a.ScenarioScores,
		QuestionsGenerated: a.QuestionsGenerated,
		QuestionsRequired:  a.QuestionsRequired,
		Responses:          responses,
	}
	if a.CompletedAt != nil {
		res.CompletedAt = *a.CompletedAt
	}
	if res.Responses == nil {
		res.Responses = []model.Response{}
	}
	return res
}

func completionEvent(a *model.Attempt) (*model.AttemptEvent, error) {
	payload := model.AttemptCompletedPayload{
		AttemptID:        a.ID,
		UserID:           a.UserID,
		ActivityID:       a.ActivityID,
		Mode:             a.Mode,
		Score:            a.RankScore(),
		Passed:           a.Passed,
		EndReason:        a.EndReason,
		TimeSpentSeconds: a.TimeSpentSeconds,
	}
	if a.CompletedAt != nil {
		payload.CompletedAt = *a.CompletedAt
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &model.AttemptEvent{
		Topic:     model.TopicAttemptCompleted,
		AttemptID: a.ID,
		Payload:   datatypes.JSON(raw),
	}, nil
}

// storeError 将存储层的哨兵错误转换为对外错误
func storeError(err error) error {
	switch {
	case errors.Is(err, util.ErrAttemptNotInProgress):
		return util.ErrAttemptCompleted
	case errors.Is(err, util.ErrRecordNotFound):
		return util.ErrAttemptNotFound
	}
	return err
}

// fail 已分类的错误原样返回，其余记录日志并转换为 operation failed
func (s *AttemptService) fail(op string, err error) error {
	return operationError(op, err)
}

func operationError(op string, err error) error {
	if util.KindOf(err) != "" {
		return err
	}
	logger.Log.Error("Attempt operation failed", zap.String("op", op), zap.Error(err))
	return util.ErrOperationFailed
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
