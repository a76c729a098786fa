package service

import (
	"assessment_engine_backend/internal/model"
	"assessment_engine_backend/internal/util"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateActivity(t *testing.T) {
	f := newFixture(t)
	f.join(t, 9, model.Teacher)
	f.join(t, 1, model.Student)
	svc := NewActivityService(f.store, f.store)

	exam := CreateActivityRequest{
		GroupID:  testGroup,
		Title:    "  Midterm ",
		Mode:     model.ModeExam,
		Settings: json.RawMessage(`{"timeLimitMinutes":15}`),
		Questions: []QuestionRequest{
			{Prompt: "2+2", Choices: []string{"3", "4"}, CorrectChoices: []int{1}},
		},
	}

	act, err := svc.CreateActivity(f.ctx, 9, model.Teacher, exam)
	require.NoError(t, err)
	assert.NotEmpty(t, act.ID)
	assert.Equal(t, "Midterm", act.Title)
	assert.Equal(t, uint(9), act.CreatedBy)

	questions, err := f.store.ListQuestions(f.ctx, act.ID)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, []int{1}, []int(questions[0].CorrectChoices))

	view, err := f.svc.Start(f.ctx, 1, act.ID, model.ModeExam)
	require.NoError(t, err)
	assert.Equal(t, 900, view.TimeLimitSeconds)
}

func TestCreateActivity_Rejections(t *testing.T) {
	f := newFixture(t)
	f.join(t, 9, model.Teacher)
	f.join(t, 1, model.Student)
	svc := NewActivityService(f.store, f.store)

	valid := func(mut func(*CreateActivityRequest)) CreateActivityRequest {
		req := CreateActivityRequest{
			GroupID:  testGroup,
			Title:    "Case study",
			Mode:     model.ModeCase,
			Settings: json.RawMessage(`{"scenarios":[{"id":"s1","title":"Outage"}]}`),
		}
		mut(&req)
		return req
	}

	tests := []struct {
		name   string
		userID uint
		role   model.UserRole
		req    CreateActivityRequest
		want   error
		kind   util.ErrorKind
	}{
		{name: "student", userID: 1, role: model.Student, req: valid(func(*CreateActivityRequest) {}), want: util.ErrNotGroupMember},
		{name: "teacher of another group", userID: 9, role: model.Teacher, req: valid(func(r *CreateActivityRequest) { r.GroupID = "other" }), want: util.ErrNotGroupMember},
		{name: "anonymous", userID: 0, role: model.Teacher, req: valid(func(*CreateActivityRequest) {}), want: util.ErrUnauthenticated},
		{name: "unknown mode", userID: 9, role: model.Teacher, req: valid(func(r *CreateActivityRequest) { r.Mode = "quiz" }), kind: util.KindValidation},
		{name: "case without scenarios", userID: 9, role: model.Teacher, req: valid(func(r *CreateActivityRequest) { r.Settings = json.RawMessage(`{"timeLimitMinutes":10}`) }), kind: util.KindValidation},
		{name: "unknown settings field", userID: 9, role: model.Teacher, req: valid(func(r *CreateActivityRequest) {
			r.Settings = json.RawMessage(`{"scenarios":[{"id":"s1","title":"x"}],"shuffle":true}`)
		}), kind: util.KindValidation},
		{name: "case with questions", userID: 9, role: model.Teacher, req: valid(func(r *CreateActivityRequest) {
			r.Questions = []QuestionRequest{{Prompt: "p", Choices: []string{"a", "b"}, CorrectChoices: []int{0}}}
		}), kind: util.KindValidation},
		{name: "exam without questions", userID: 9, role: model.Teacher, req: valid(func(r *CreateActivityRequest) {
			r.Mode = model.ModeExam
			r.Settings = json.RawMessage(`{}`)
		}), kind: util.KindValidation},
		{name: "correct choice out of range", userID: 9, role: model.Teacher, req: valid(func(r *CreateActivityRequest) {
			r.Mode = model.ModeExam
			r.Settings = json.RawMessage(`{}`)
			r.Questions = []QuestionRequest{{Prompt: "p", Choices: []string{"a", "b"}, CorrectChoices: []int{2}}}
		}), kind: util.KindValidation},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateActivity(f.ctx, tc.userID, tc.role, tc.req)
			require.Error(t, err)
			if tc.want != nil {
				assert.ErrorIs(t, err, tc.want)
			}
			if tc.kind != "" {
				assert.Equal(t, tc.kind, util.KindOf(err))
			}
		})
	}
}

func TestCreateActivity_AdminBypassesMembership(t *testing.T) {
	f := newFixture(t)
	svc := NewActivityService(f.store, f.store)

	act, err := svc.CreateActivity(f.ctx, 100, model.Admin, CreateActivityRequest{
		GroupID:  "any-group",
		Title:    "Inquiry",
		Mode:     model.ModeInquiry,
		Settings: json.RawMessage(`{"topic":"tides"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, model.ModeInquiry, act.Mode)
}

func TestAddMember(t *testing.T) {
	f := newFixture(t)
	f.join(t, 9, model.Teacher)
	svc := NewActivityService(f.store, f.store)

	m, err := svc.AddMember(f.ctx, 9, model.Teacher, testGroup, AddMemberRequest{UserID: 5, Role: model.Student})
	require.NoError(t, err)
	assert.NotZero(t, m.ID)

	got, err := f.store.GetMembership(f.ctx, testGroup, 5)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.Student, got.Role)

	// 重复添加覆盖角色
	again, err := svc.AddMember(f.ctx, 9, model.Teacher, testGroup, AddMemberRequest{UserID: 5, Role: model.Teacher})
	require.NoError(t, err)
	assert.Equal(t, m.ID, again.ID)

	_, err = svc.AddMember(f.ctx, 5, model.Student, "other", AddMemberRequest{UserID: 6, Role: model.Student})
	assert.ErrorIs(t, err, util.ErrNotGroupMember)

	_, err = svc.AddMember(f.ctx, 9, model.Teacher, testGroup, AddMemberRequest{UserID: 6, Role: model.Admin})
	assert.Equal(t, util.KindValidation, util.KindOf(err))
}
