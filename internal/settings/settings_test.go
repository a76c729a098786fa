package settings

import (
	"assessment_engine_backend/internal/model"
	"assessment_engine_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ExamDefaults(t *testing.T) {
	s, err := Parse(model.ModeExam, []byte(`{"numQuestions":5}`))
	require.NoError(t, err)

	exam, ok := s.(*ExamSettings)
	require.True(t, ok)
	assert.Equal(t, model.ModeExam, exam.Mode())
	assert.Equal(t, 30*time.Minute, exam.TimeLimit())
	assert.Equal(t, 1, exam.AttemptLimit())
	assert.Equal(t, 60.0, exam.PassMark())
	assert.True(t, exam.QuestionShuffle())
	assert.True(t, exam.ChoiceShuffle())
}

func TestParse_ExamExplicitZeroThreshold(t *testing.T) {
	s, err := Parse(model.ModeExam, []byte(`{"passThreshold":0,"shuffleQuestions":false}`))
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.PassMark())
	assert.False(t, s.(*ExamSettings).QuestionShuffle())
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		mode model.ActivityMode
		raw  string
	}{
		{name: "missing", mode: model.ModeExam, raw: ``},
		{name: "null", mode: model.ModeExam, raw: `null`},
		{name: "malformed json", mode: model.ModeExam, raw: `{"timeLimitMinutes":`},
		{name: "unknown field", mode: model.ModeExam, raw: `{"timelimit":10}`},
		{name: "threshold out of range", mode: model.ModeExam, raw: `{"passThreshold":150}`},
		{name: "negative attempts", mode: model.ModeExam, raw: `{"maxAttempts":-1}`},
		{name: "case without scenarios", mode: model.ModeCase, raw: `{}`},
		{name: "case duplicate scenario ids", mode: model.ModeCase, raw: `{"scenarios":[{"id":"a","title":"A"},{"id":"a","title":"B"}]}`},
		{name: "case threshold above ten", mode: model.ModeCase, raw: `{"scenarios":[{"id":"a","title":"A"}],"passThreshold":11}`},
		{name: "inquiry unknown pool", mode: model.ModeInquiry, raw: `{"keywordPools":{"memorize":["x"]}}`},
		{name: "unknown mode", mode: model.ActivityMode("quiz"), raw: `{}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.mode, []byte(tc.raw))
			require.Error(t, err)
			assert.Equal(t, util.KindValidation, util.KindOf(err))
		})
	}
}

func TestParse_Case(t *testing.T) {
	s, err := Parse(model.ModeCase, []byte(`{
		"timeLimitMinutes": 60,
		"scenarioTimeLimitMinutes": 15,
		"scenarios": [
			{"id": "s1", "title": "Outage", "keywords": ["rollback"]},
			{"id": "s2", "title": "Budget"}
		]
	}`))
	require.NoError(t, err)

	cs := s.(*CaseSettings)
	assert.Equal(t, time.Hour, cs.TimeLimit())
	assert.Equal(t, 15*time.Minute, cs.ScenarioTimeLimit())
	assert.Equal(t, 1, cs.ScenarioIndex("s2"))
	assert.Equal(t, -1, cs.ScenarioIndex("nope"))
	assert.Equal(t, 6.0, cs.PassMark())
}

func TestInquirySlots(t *testing.T) {
	s := MustParse(model.ModeInquiry, `{"questionsRequired":2}`).(*InquirySettings)

	assert.Equal(t, "q1", SlotID(1))
	assert.Equal(t, 1, s.SlotIndex("q1"))
	assert.Equal(t, 2, s.SlotIndex("q2"))
	assert.Equal(t, 0, s.SlotIndex("q3"))
	assert.Equal(t, 0, s.SlotIndex("q0"))
	assert.Equal(t, 0, s.SlotIndex("x1"))
}
