package model

type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)

// GroupMember 班级/小组成员关系，活动按 GroupID 归属
type GroupMember struct {
	BaseModel
	GroupID string   `gorm:"type:varchar(36);uniqueIndex:uniq_group_member,priority:1;not null" json:"groupId"`
	UserID  uint     `gorm:"uniqueIndex:uniq_group_member,priority:2;not null" json:"userId"`
	Role    UserRole `gorm:"size:16;default:'student'" json:"role"`
}

func (GroupMember) TableName() string {
	return "group_members"
}
