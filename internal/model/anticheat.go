package model

import "time"

type CheatEventType string

const (
	CheatTabSwitch CheatEventType = "tab_switch"
	CheatCopy      CheatEventType = "copy"
	CheatPaste     CheatEventType = "paste"
)

func (t CheatEventType) Valid() bool {
	switch t {
	case CheatTabSwitch, CheatCopy, CheatPaste:
		return true
	}
	return false
}

// CheatCounters 客户端上报的累计计数，服务端直接覆盖
type CheatCounters struct {
	TabSwitchCount int `json:"tabSwitchCount" binding:"min=0"`
	CopyAttempts   int `json:"copyAttempts" binding:"min=0"`
	PasteAttempts  int `json:"pasteAttempts" binding:"min=0"`
}

// AntiCheatEvent 只追加，(attempt_id, sequence) 唯一，重复上报的片段被忽略
type AntiCheatEvent struct {
	ID         uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	AttemptID  string         `gorm:"type:varchar(36);not null;uniqueIndex:uniq_cheat_event_seq,priority:1" json:"attemptId"`
	Sequence   int            `gorm:"not null;uniqueIndex:uniq_cheat_event_seq,priority:2" json:"sequence"`
	Type       CheatEventType `gorm:"size:16;not null" json:"type"`
	OccurredAt time.Time      `json:"occurredAt"`
	CreatedAt  time.Time      `json:"createdAt"`
}

func (AntiCheatEvent) TableName() string {
	return "attempt_cheating_events"
}
