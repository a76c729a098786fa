package service

import (
	"assessment_engine_backend/internal/model"
	"assessment_engine_backend/internal/util"
	"assessment_engine_backend/pkg/logger"
	"assessment_engine_backend/pkg/monitoring"
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// CheatEventInput Sequence 为客户端单调递增序号，服务端据此去重
type CheatEventInput struct {
	Sequence   *int                 `json:"sequence"`
	Type       model.CheatEventType `json:"type"`
	OccurredAt time.Time            `json:"occurredAt"`
}

// CheatingStatsInput 累计计数 + 自上次同步以来的新事件
type CheatingStatsInput struct {
	model.CheatCounters
	Events []CheatEventInput `json:"events"`
}

type CheatingStatsResult struct {
	Counters model.CheatCounters `json:"counters"`
	Accepted int                 `json:"accepted"`
	Ignored  int                 `json:"ignored"`
}

type CheatingReport struct {
	AttemptID string                 `json:"attemptId"`
	UserID    uint                   `json:"userId"`
	Counters  model.CheatCounters    `json:"counters"`
	Events    []model.AntiCheatEvent `json:"events"`
}

// AntiCheatService 防作弊遥测聚合，尽力而为
type AntiCheatService struct {
	Lifecycle *AttemptService
}

func NewAntiCheatService(lifecycle *AttemptService) *AntiCheatService {
	return &AntiCheatService{Lifecycle: lifecycle}
}

// UpdateCheatingStats 计数直接覆盖，事件追加；重叠重发的片段按序号忽略
func (s *AntiCheatService) UpdateCheatingStats(ctx context.Context, userID uint, attemptID string, in CheatingStatsInput) (*CheatingStatsResult, error) {
	if in.TabSwitchCount < 0 || in.CopyAttempts < 0 || in.PasteAttempts < 0 {
		return nil, util.ValidationError("cheating counters must not be negative")
	}

	now := s.Lifecycle.Timer.Now()
	events := make([]model.AntiCheatEvent, 0, len(in.Events))
	for i, e := range in.Events {
		if e.Sequence == nil || *e.Sequence < 0 {
			return nil, util.ValidationError("event %d is missing a sequence number", i)
		}
		if !e.Type.Valid() {
			return nil, util.ValidationError("event %d has unknown type %q", i, e.Type)
		}
		occurred := e.OccurredAt
		if occurred.IsZero() {
			occurred = now
		}
		events = append(events, model.AntiCheatEvent{
			Sequence:   *e.Sequence,
			Type:       e.Type,
			OccurredAt: occurred,
		})
	}

	a, _, err := s.Lifecycle.activeAttempt(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}

	inserted, err := s.Lifecycle.Attempts.UpdateCheating(ctx, a.ID, in.CheatCounters, events)
	if err != nil {
		return nil, operationError("update_cheating", storeError(err))
	}

	for _, e := range inserted {
		monitoring.AntiCheatEvents.WithLabelValues(string(e.Type)).Inc()
	}
	if len(inserted) > 0 {
		logger.Log.Debug("Anti-cheat events recorded",
			zap.String("attemptId", a.ID),
			zap.Int("accepted", len(inserted)),
			zap.Int("ignored", len(events)-len(inserted)))
	}

	return &CheatingStatsResult{
		Counters: in.CheatCounters,
		Accepted: len(inserted),
		Ignored:  len(events) - len(inserted),
	}, nil
}

// ListCheatingEvents 教师查看作答的防作弊记录，管理员不受小组限制
func (s *AntiCheatService) ListCheatingEvents(ctx context.Context, userID uint, role model.UserRole, attemptID string) (*CheatingReport, error) {
	if userID == 0 {
		return nil, util.ErrUnauthenticated
	}
	a, err := s.Lifecycle.Attempts.FindAttempt(ctx, attemptID)
	if err != nil {
		return nil, operationError("list_cheating", storeError(err))
	}

	if role != model.Admin {
		activity, err := s.Lifecycle.Gate.Activities.GetActivity(ctx, a.ActivityID)
		if errors.Is(err, util.ErrRecordNotFound) {
			return nil, util.ErrActivityNotFound
		}
		if err != nil {
			return nil, operationError("list_cheating", err)
		}
		member, err := s.Lifecycle.Gate.Members.GetMembership(ctx, activity.GroupID, userID)
		if err != nil {
			return nil, operationError("list_cheating", err)
		}
		if member == nil || member.Role == model.Student {
			return nil, util.ErrNotGroupMember
		}
	}

	events, err := s.Lifecycle.Attempts.ListCheatingEvents(ctx, a.ID)
	if err != nil {
		return nil, operationError("list_cheating", err)
	}
	if events == nil {
		events = []model.AntiCheatEvent{}
	}
	return &CheatingReport{
		AttemptID: a.ID,
		UserID:    a.UserID,
		Counters: model.CheatCounters{
			TabSwitchCount: a.TabSwitchCount,
			CopyAttempts:   a.CopyAttempts,
			PasteAttempts:  a.PasteAttempts,
		},
		Events: events,
	}, nil
}
