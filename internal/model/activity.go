package model

import (
	"gorm.io/datatypes"
)

type ActivityMode string

const (
	ModeExam    ActivityMode = "exam"
	ModeCase    ActivityMode = "case"
	ModeInquiry ActivityMode = "inquiry"
)

func (m ActivityMode) Valid() bool {
	switch m {
	case ModeExam, ModeCase, ModeInquiry:
		return true
	}
	return false
}

// Activity 一次可作答的活动（考试 / 案例 / 探究），Settings 按 Mode 解析
type Activity struct {
	UUIDBase
	GroupID   string         `gorm:"type:varchar(36);index;not null" json:"groupId"`
	Title     string         `gorm:"size:200;not null" json:"title"`
	Mode      ActivityMode   `gorm:"size:16;index;not null" json:"mode"`
	Settings  datatypes.JSON `json:"settings"`
	CreatedBy uint           `json:"createdBy"`
}

func (Activity) TableName() string {
	return "activities"
}

// Question 考试题目，CorrectChoices 为原始选项下标
type Question struct {
	UUIDBase
	ActivityID     string                      `gorm:"type:varchar(36);index;not null" json:"activityId"`
	Prompt         string                      `gorm:"type:text" json:"prompt"`
	Choices        datatypes.JSONSlice[string] `json:"choices"`
	CorrectChoices datatypes.JSONSlice[int]    `json:"-"`
	Position       int                         `gorm:"default:0" json:"position"`
}

func (Question) TableName() string {
	return "activity_questions"
}
