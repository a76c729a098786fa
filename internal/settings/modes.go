package settings

import (
	"assessment_engine_backend/internal/model"
	"assessment_engine_backend/internal/util"
	"strconv"
	"strings"
	"time"
)

// ExamSettings 限时选择题考试
type ExamSettings struct {
	TimeLimitMinutes int      `json:"timeLimitMinutes" validate:"gte=1,lte=600"`
	NumQuestions     int      `json:"numQuestions" validate:"gte=0"`
	ShuffleQuestions *bool    `json:"shuffleQuestions"`
	ShuffleChoices   *bool    `json:"shuffleChoices"`
	MaxAttempts      int      `json:"maxAttempts" validate:"gte=1,lte=100"`
	PassThreshold    *float64 `json:"passThreshold" validate:"required,gte=0,lte=100"`
}

func (s *ExamSettings) Mode() model.ActivityMode { return model.ModeExam }
func (s *ExamSettings) TimeLimit() time.Duration { return minutes(s.TimeLimitMinutes) }
func (s *ExamSettings) AttemptLimit() int        { return s.MaxAttempts }
func (s *ExamSettings) PassMark() float64        { return *s.PassThreshold }

// QuestionShuffle 未配置时默认打乱
func (s *ExamSettings) QuestionShuffle() bool { return boolOr(s.ShuffleQuestions, true) }
func (s *ExamSettings) ChoiceShuffle() bool   { return boolOr(s.ShuffleChoices, true) }

func (s *ExamSettings) applyDefaults() {
	if s.TimeLimitMinutes == 0 {
		s.TimeLimitMinutes = 30
	}
	if s.MaxAttempts == 0 {
		s.MaxAttempts = 1
	}
	if s.PassThreshold == nil {
		s.PassThreshold = floatPtr(60)
	}
}

func (s *ExamSettings) check() error { return nil }

// Scenario 案例模式中的一个场景，Keywords 用于启发式评分
type Scenario struct {
	ID          string   `json:"id" validate:"required,max=64"`
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

// CaseSettings 分场景案例分析，ScenarioTimeLimitMinutes 为 0 时场景不单独限时
type CaseSettings struct {
	TimeLimitMinutes         int        `json:"timeLimitMinutes" validate:"gte=1,lte=600"`
	ScenarioTimeLimitMinutes int        `json:"scenarioTimeLimitMinutes" validate:"gte=0,lte=600"`
	Scenarios                []Scenario `json:"scenarios" validate:"required,min=1,unique=ID,dive"`
	MaxAttempts              int        `json:"maxAttempts" validate:"gte=1,lte=100"`
	PassThreshold            *float64   `json:"passThreshold" validate:"required,gte=0,lte=10"`
}

func (s *CaseSettings) Mode() model.ActivityMode { return model.ModeCase }
func (s *CaseSettings) TimeLimit() time.Duration { return minutes(s.TimeLimitMinutes) }
func (s *CaseSettings) AttemptLimit() int        { return s.MaxAttempts }
func (s *CaseSettings) PassMark() float64        { return *s.PassThreshold }

func (s *CaseSettings) ScenarioTimeLimit() time.Duration {
	return minutes(s.ScenarioTimeLimitMinutes)
}

// ScenarioIndex 返回场景下标，不存在时为 -1
func (s *CaseSettings) ScenarioIndex(id string) int {
	for i, sc := range s.Scenarios {
		if sc.ID == id {
			return i
		}
	}
	return -1
}

func (s *CaseSettings) applyDefaults() {
	if s.TimeLimitMinutes == 0 {
		s.TimeLimitMinutes = 45
	}
	if s.MaxAttempts == 0 {
		s.MaxAttempts = 1
	}
	if s.PassThreshold == nil {
		s.PassThreshold = floatPtr(6)
	}
}

func (s *CaseSettings) check() error {
	for i, sc := range s.Scenarios {
		if strings.TrimSpace(sc.ID) == "" {
			return util.ValidationError("invalid case settings: scenario %d has blank id", i)
		}
	}
	return nil
}

var BloomLevels = []string{"remember", "understand", "apply", "analyze", "evaluate", "create"}

// InquirySettings 探究式提问，学生需提出 QuestionsRequired 个问题
type InquirySettings struct {
	TimeLimitMinutes  int                 `json:"timeLimitMinutes" validate:"gte=1,lte=600"`
	QuestionsRequired int                 `json:"questionsRequired" validate:"gte=1,lte=50"`
	Topic             string              `json:"topic" validate:"max=200"`
	TopicKeywords     []string            `json:"topicKeywords"`
	KeywordPools      map[string][]string `json:"keywordPools"`
	MaxAttempts       int                 `json:"maxAttempts" validate:"gte=1,lte=100"`
	PassThreshold     *float64            `json:"passThreshold" validate:"required,gte=0,lte=10"`
}

func (s *InquirySettings) Mode() model.ActivityMode { return model.ModeInquiry }
func (s *InquirySettings) TimeLimit() time.Duration { return minutes(s.TimeLimitMinutes) }
func (s *InquirySettings) AttemptLimit() int        { return s.MaxAttempts }
func (s *InquirySettings) PassMark() float64        { return *s.PassThreshold }

func (s *InquirySettings) applyDefaults() {
	if s.TimeLimitMinutes == 0 {
		s.TimeLimitMinutes = 20
	}
	if s.QuestionsRequired == 0 {
		s.QuestionsRequired = 3
	}
	if s.MaxAttempts == 0 {
		s.MaxAttempts = 1
	}
	if s.PassThreshold == nil {
		s.PassThreshold = floatPtr(5)
	}
}

func (s *InquirySettings) check() error {
	for level := range s.KeywordPools {
		if !isBloomLevel(level) {
			return util.ValidationError("invalid inquiry settings: unknown keyword pool %q", level)
		}
	}
	return nil
}

// SlotID 探究模式第 n 个问题（从 1 开始）的题目标识
func SlotID(n int) string {
	return "q" + strconv.Itoa(n)
}

// SlotIndex 解析槽位号，非法时返回 0
func (s *InquirySettings) SlotIndex(id string) int {
	if !strings.HasPrefix(id, "q") {
		return 0
	}
	n, err := strconv.Atoi(id[1:])
	if err != nil || n < 1 || n > s.QuestionsRequired {
		return 0
	}
	return n
}

func isBloomLevel(level string) bool {
	for _, l := range BloomLevels {
		if l == level {
			return true
		}
	}
	return false
}
