package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSameChoices(t *testing.T) {
	tests := []struct {
		name     string
		selected []int
		correct  []int
		want     bool
	}{
		{name: "single correct", selected: []int{2}, correct: []int{2}, want: true},
		{name: "single wrong", selected: []int{1}, correct: []int{2}, want: false},
		{name: "multi any order", selected: []int{3, 0}, correct: []int{0, 3}, want: true},
		{name: "multi missing one", selected: []int{0}, correct: []int{0, 3}, want: false},
		{name: "multi extra one", selected: []int{0, 1, 3}, correct: []int{0, 3}, want: false},
		{name: "duplicates collapse", selected: []int{3, 3, 0}, correct: []int{0, 3}, want: true},
		{name: "empty selection", selected: nil, correct: []int{1}, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SameChoices(tc.selected, tc.correct))
		})
	}
}

func TestExam_TwoOfFiveBelowThreshold(t *testing.T) {
	en := NewEngine()
	questions := []ExamQuestion{
		{ID: "q1", Correct: []int{0}},
		{ID: "q2", Correct: []int{1}},
		{ID: "q3", Correct: []int{2}},
		{ID: "q4", Correct: []int{0, 2}},
		{ID: "q5", Correct: []int{3}},
	}
	answers := []ExamAnswer{
		{QuestionID: "q1", Selected: []int{0}},
		{QuestionID: "q2", Selected: []int{0}},
		{QuestionID: "q4", Selected: []int{2, 0}},
		{QuestionID: "q5", Selected: []int{1}},
	}

	res := en.Exam(questions, answers, 60)

	assert.Equal(t, 2, res.CorrectAnswers)
	assert.Equal(t, 5, res.TotalQuestions)
	assert.Equal(t, 40.0, res.Score)
	assert.False(t, res.Passed)
	assert.Equal(t, map[string]bool{"q1": true, "q2": false, "q4": true, "q5": false}, res.Correctness)
}

func TestExam_PassAtThreshold(t *testing.T) {
	en := NewEngine()
	questions := []ExamQuestion{{ID: "a", Correct: []int{1}}, {ID: "b", Correct: []int{1}}}
	answers := []ExamAnswer{{QuestionID: "a", Selected: []int{1}}}

	res := en.Exam(questions, answers, 50)

	assert.Equal(t, 50.0, res.Score)
	assert.True(t, res.Passed)
}

func TestExam_IgnoresAnswersOutsideAttempt(t *testing.T) {
	en := NewEngine()
	questions := []ExamQuestion{{ID: "a", Correct: []int{0}}}
	answers := []ExamAnswer{{QuestionID: "a", Selected: []int{0}}, {QuestionID: "zzz", Selected: []int{0}}}

	res := en.Exam(questions, answers, 60)

	assert.Equal(t, 1, res.CorrectAnswers)
	assert.Equal(t, 100.0, res.Score)
	assert.NotContains(t, res.Correctness, "zzz")
}

func TestExam_NoQuestions(t *testing.T) {
	res := NewEngine().Exam(nil, nil, 0)
	assert.Equal(t, 0.0, res.Score)
	assert.False(t, res.Passed)
}
