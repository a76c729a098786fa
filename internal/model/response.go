package model

import (
	"time"

	"gorm.io/datatypes"
)

// Response 每个 (attempt, question) 唯一，提交前可反复覆盖。
// 考试记录 SelectedChoices，案例记录 Issues/Solution（QuestionID 为场景 ID），探究记录 Text（QuestionID 为槽位号）
type Response struct {
	UUIDBase
	AttemptID       string                   `gorm:"type:varchar(36);not null;uniqueIndex:uniq_response_attempt_question,priority:1" json:"attemptId"`
	QuestionID      string                   `gorm:"type:varchar(64);not null;uniqueIndex:uniq_response_attempt_question,priority:2" json:"questionId"`
	SelectedChoices datatypes.JSONSlice[int] `json:"selectedChoices,omitempty"`
	Text            string                   `gorm:"type:text" json:"text,omitempty"`
	Issues          string                   `gorm:"type:text" json:"issues,omitempty"`
	Solution        string                   `gorm:"type:text" json:"solution,omitempty"`
	SavedAt         time.Time                `json:"savedAt"`

	// 评分时写入
	IsCorrect  *bool                                  `json:"isCorrect,omitempty"`
	Score      *float64                               `json:"score,omitempty"`
	Feedback   string                                 `gorm:"size:500" json:"feedback,omitempty"`
	Category   string                                 `gorm:"size:32" json:"category,omitempty"`
	Dimensions datatypes.JSONType[map[string]float64] `json:"dimensions"`
}

func (Response) TableName() string {
	return "attempt_responses"
}

func (r *Response) Clone() *Response {
	c := *r
	c.SelectedChoices = append(datatypes.JSONSlice[int](nil), r.SelectedChoices...)
	if r.IsCorrect != nil {
		v := *r.IsCorrect
		c.IsCorrect = &v
	}
	if r.Score != nil {
		v := *r.Score
		c.Score = &v
	}
	if dims := r.Dimensions.Data(); dims != nil {
		cp := make(map[string]float64, len(dims))
		for k, v := range dims {
			cp[k] = v
		}
		c.Dimensions = datatypes.NewJSONType(cp)
	}
	return &c
}
