package model

import (
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
)

type EndReason string

const (
	EndSubmitted EndReason = "submitted"
	EndTimeout   EndReason = "timeout"
)

// ActiveSlotValue 进行中的作答占用 (user, activity) 唯一槽位，完成后置空
const ActiveSlotValue = "active"

// ScenarioScore 案例模式单个场景的评分结果
type ScenarioScore struct {
	ScenarioID string  `json:"scenarioId"`
	Score      float64 `json:"score"`
	Feedback   string  `json:"feedback"`
}

type Attempt struct {
	UUIDBase
	UserID     uint          `gorm:"not null;index:idx_attempt_user_activity,priority:1;uniqueIndex:uniq_attempt_active,priority:1" json:"userId"`
	ActivityID string        `gorm:"type:varchar(36);not null;index:idx_attempt_user_activity,priority:2;uniqueIndex:uniq_attempt_active,priority:2" json:"activityId"`
	ActiveSlot *string       `gorm:"size:8;uniqueIndex:uniq_attempt_active,priority:3" json:"-"`
	Mode       ActivityMode  `gorm:"size:16;not null" json:"mode"`
	Status     AttemptStatus `gorm:"size:16;index;not null" json:"status"`

	StartedAt        time.Time  `gorm:"index" json:"startedAt"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
	TimeSpentSeconds int        `json:"timeSpentSeconds"`
	EndReason        EndReason  `gorm:"size:16" json:"endReason,omitempty"`
	Passed           bool       `json:"passed"`

	// 考试：创建时固定的题目顺序与选项排列
	QuestionOrder  datatypes.JSONSlice[string]          `json:"questionOrder,omitempty"`
	ChoiceOrder    datatypes.JSONType[map[string][]int] `json:"choiceOrder"`
	Score          float64                              `json:"score"`
	CorrectAnswers int                                  `json:"correctAnswers"`
	TotalQuestions int                                  `json:"totalQuestions"`

	// 案例 / 探究
	TotalScore         float64                            `json:"totalScore"`
	ScenarioScores     datatypes.JSONSlice[ScenarioScore] `json:"scenarioScores,omitempty"`
	CurrentScenario    int                                `gorm:"default:0" json:"currentScenario"`
	ScenarioStartedAt  *time.Time                         `json:"scenarioStartedAt,omitempty"`
	QuestionsGenerated int                                `json:"questionsGenerated"`
	QuestionsRequired  int                                `json:"questionsRequired"`

	// 防作弊累计计数
	TabSwitchCount int `gorm:"default:0" json:"tabSwitchCount"`
	CopyAttempts   int `gorm:"default:0" json:"copyAttempts"`
	PasteAttempts  int `gorm:"default:0" json:"pasteAttempts"`
}

func (Attempt) TableName() string {
	return "attempts"
}

func (a *Attempt) InProgress() bool {
	return a.Status == AttemptInProgress
}

// RankScore 排行榜使用的分数：考试为百分制得分，其余模式为总分
func (a *Attempt) RankScore() float64 {
	if a.Mode == ModeExam {
		return a.Score
	}
	return a.TotalScore
}

// ChoicePermutation 返回题目的选项排列，未记录时为 nil
func (a *Attempt) ChoicePermutation(questionID string) []int {
	return a.ChoiceOrder.Data()[questionID]
}

// Clone 深拷贝，内存存储返回副本避免调用方修改共享状态
func (a *Attempt) Clone() *Attempt {
	c := *a
	if a.ActiveSlot != nil {
		s := *a.ActiveSlot
		c.ActiveSlot = &s
	}
	if a.CompletedAt != nil {
		t := *a.CompletedAt
		c.CompletedAt = &t
	}
	if a.ScenarioStartedAt != nil {
		t := *a.ScenarioStartedAt
		c.ScenarioStartedAt = &t
	}
	c.QuestionOrder = append(datatypes.JSONSlice[string](nil), a.QuestionOrder...)
	c.ScenarioScores = append(datatypes.JSONSlice[ScenarioScore](nil), a.ScenarioScores...)
	orig := a.ChoiceOrder.Data()
	if orig != nil {
		cp := make(map[string][]int, len(orig))
		for k, v := range orig {
			cp[k] = append([]int(nil), v...)
		}
		c.ChoiceOrder = datatypes.NewJSONType(cp)
	}
	return &c
}

// InProgressCursor 按 (StartedAt, ID) 翻页，零值从头开始
type InProgressCursor struct {
	StartedAt time.Time
	ID        string
}

// After 判断 a 是否排在游标之后
func (c InProgressCursor) After(a *Attempt) bool {
	if c.ID == "" {
		return true
	}
	if !a.StartedAt.Equal(c.StartedAt) {
		return a.StartedAt.After(c.StartedAt)
	}
	return a.ID > c.ID
}
