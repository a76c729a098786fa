package service

import (
	"assessment_engine_backend/internal/model"
	"assessment_engine_backend/internal/settings"
	"assessment_engine_backend/internal/util"
	"context"
	"errors"
)

// AttemptGate 开始作答前的准入检查：活动存在、模式一致、未删除、调用者属于活动所在小组
type AttemptGate struct {
	Activities ActivityReader
	Members    MembershipReader
}

func NewAttemptGate(activities ActivityReader, members MembershipReader) *AttemptGate {
	return &AttemptGate{Activities: activities, Members: members}
}

// Admit 返回活动及解析后的配置
func (g *AttemptGate) Admit(ctx context.Context, userID uint, activityID string, mode model.ActivityMode) (*model.Activity, settings.Settings, error) {
	if userID == 0 {
		return nil, nil, util.ErrUnauthenticated
	}

	activity, err := g.Activities.GetActivity(ctx, activityID)
	if errors.Is(err, util.ErrRecordNotFound) {
		return nil, nil, util.ErrActivityNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	if mode != "" && activity.Mode != mode {
		return nil, nil, util.ErrActivityNotFound
	}

	member, err := g.Members.GetMembership(ctx, activity.GroupID, userID)
	if err != nil {
		return nil, nil, err
	}
	if member == nil {
		return nil, nil, util.ErrNotGroupMember
	}

	s, err := settings.ForActivity(activity)
	if err != nil {
		return nil, nil, err
	}
	return activity, s, nil
}

// Settings 已存在作答时只加载配置，不再检查成员关系
func (g *AttemptGate) Settings(ctx context.Context, activityID string) (*model.Activity, settings.Settings, error) {
	activity, err := g.Activities.GetActivity(ctx, activityID)
	if errors.Is(err, util.ErrRecordNotFound) {
		return nil, nil, util.ErrActivityNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	s, err := settings.ForActivity(activity)
	if err != nil {
		return nil, nil, err
	}
	return activity, s, nil
}
