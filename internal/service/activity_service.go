package service

import (
	"assessment_engine_backend/internal/model"
	"assessment_engine_backend/internal/settings"
	"assessment_engine_backend/internal/util"
	"assessment_engine_backend/pkg/logger"
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type QuestionRequest struct {
	Prompt         string   `json:"prompt" binding:"required"`
	Choices        []string `json:"choices" binding:"required,min=2,dive,required"`
	CorrectChoices []int    `json:"correctChoices" binding:"required,min=1"`
}

type CreateActivityRequest struct {
	GroupID   string             `json:"groupId" binding:"required"`
	Title     string             `json:"title" binding:"required,max=200"`
	Mode      model.ActivityMode `json:"mode" binding:"required"`
	Settings  json.RawMessage    `json:"settings"`
	Questions []QuestionRequest  `json:"questions" binding:"dive"`
}

// ActivityService 教师创建活动，配置在写入前按模式完整校验
type ActivityService struct {
	Activities ActivityWriter
	Members    MembershipStore
}

func NewActivityService(activities ActivityWriter, members MembershipStore) *ActivityService {
	return &ActivityService{Activities: activities, Members: members}
}

func (s *ActivityService) CreateActivity(ctx context.Context, userID uint, role model.UserRole, req CreateActivityRequest) (*model.Activity, error) {
	if userID == 0 {
		return nil, util.ErrUnauthenticated
	}
	if !req.Mode.Valid() {
		return nil, util.ValidationError("unknown activity mode %q", req.Mode)
	}
	if err := s.requireStaff(ctx, userID, role, req.GroupID, "create_activity"); err != nil {
		return nil, err
	}

	if _, err := settings.Parse(req.Mode, req.Settings); err != nil {
		return nil, err
	}

	var questions []model.Question
	if req.Mode == model.ModeExam {
		if len(req.Questions) == 0 {
			return nil, util.ValidationError("exam activities need at least one question")
		}
		for i, q := range req.Questions {
			if strings.TrimSpace(q.Prompt) == "" {
				return nil, util.ValidationError("question %d has an empty prompt", i+1)
			}
			if len(q.Choices) < 2 {
				return nil, util.ValidationError("question %d needs at least two choices", i+1)
			}
			if len(q.CorrectChoices) == 0 {
				return nil, util.ValidationError("question %d has no correct choice", i+1)
			}
			for _, c := range q.CorrectChoices {
				if c < 0 || c >= len(q.Choices) {
					return nil, util.ValidationError("question %d: correct choice %d is out of range", i+1, c)
				}
			}
			questions = append(questions, model.Question{
				Prompt:         q.Prompt,
				Choices:        q.Choices,
				CorrectChoices: q.CorrectChoices,
				Position:       i,
			})
		}
	} else if len(req.Questions) > 0 {
		return nil, util.ValidationError("%s activities do not take questions", req.Mode)
	}

	activity := &model.Activity{
		GroupID:   req.GroupID,
		Title:     strings.TrimSpace(req.Title),
		Mode:      req.Mode,
		Settings:  datatypes.JSON(req.Settings),
		CreatedBy: userID,
	}
	if err := s.Activities.CreateActivity(ctx, activity, questions); err != nil {
		return nil, operationError("create_activity", err)
	}

	logger.Log.Info("Activity created",
		zap.String("activityId", activity.ID),
		zap.String("mode", string(activity.Mode)),
		zap.Int("questions", len(questions)),
		zap.Uint("createdBy", userID))
	return activity, nil
}

type AddMemberRequest struct {
	UserID uint           `json:"userId" binding:"required"`
	Role   model.UserRole `json:"role" binding:"required,oneof=student teacher"`
}

// AddMember 小组内的教师或管理员维护成员
func (s *ActivityService) AddMember(ctx context.Context, userID uint, role model.UserRole, groupID string, req AddMemberRequest) (*model.GroupMember, error) {
	if userID == 0 {
		return nil, util.ErrUnauthenticated
	}
	if req.Role != model.Student && req.Role != model.Teacher {
		return nil, util.ValidationError("unknown member role %q", req.Role)
	}
	if err := s.requireStaff(ctx, userID, role, groupID, "add_member"); err != nil {
		return nil, err
	}

	m := &model.GroupMember{GroupID: groupID, UserID: req.UserID, Role: req.Role}
	if err := s.Members.AddMember(ctx, m); err != nil {
		return nil, operationError("add_member", err)
	}
	logger.Log.Info("Group member added",
		zap.String("groupId", groupID),
		zap.Uint("userId", req.UserID),
		zap.String("role", string(req.Role)),
		zap.Uint("addedBy", userID))
	return m, nil
}

func (s *ActivityService) requireStaff(ctx context.Context, userID uint, role model.UserRole, groupID, op string) error {
	if role == model.Admin {
		return nil
	}
	member, err := s.Members.GetMembership(ctx, groupID, userID)
	if err != nil {
		return operationError(op, err)
	}
	if member == nil || member.Role == model.Student {
		return util.ErrNotGroupMember
	}
	return nil
}
