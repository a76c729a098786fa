package scoring

import (
	"assessment_engine_backend/internal/settings"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inquiryConfig(t *testing.T, raw string) *settings.InquirySettings {
	t.Helper()
	s, err := settings.Parse("inquiry", []byte(raw))
	require.NoError(t, err)
	return s.(*settings.InquirySettings)
}

func TestKeywordClassifier_Levels(t *testing.T) {
	cfg := inquiryConfig(t, `{}`)
	tests := []struct {
		question string
		level    string
	}{
		{"What is photosynthesis?", "remember"},
		{"Can you explain the meaning of entropy?", "understand"},
		{"How would you solve a leaking pipe?", "apply"},
		{"What is the difference between mitosis and meiosis?", "analyze"},
		{"Should cities ban cars from downtown?", "evaluate"},
		{"Design an experiment to measure plant growth under LED light?", "create"},
		{"Plants are green", "remember"},
	}

	for _, tc := range tests {
		t.Run(tc.question, func(t *testing.T) {
			ev, err := KeywordClassifier{}.Classify(context.Background(), tc.question, cfg)
			require.NoError(t, err)
			assert.Equal(t, tc.level, ev.Level)
			for _, dim := range []string{DimClarity, DimDepth, DimRelevance} {
				assert.Contains(t, ev.Dimensions, dim)
				assert.GreaterOrEqual(t, ev.Dimensions[dim], 0.0)
				assert.LessOrEqual(t, ev.Dimensions[dim], 10.0)
			}
		})
	}
}

func TestKeywordClassifier_WordBoundaries(t *testing.T) {
	ev, err := KeywordClassifier{}.Classify(context.Background(), "It failed because nobody checked", inquiryConfig(t, `{}`))
	require.NoError(t, err)
	assert.Equal(t, "remember", ev.Level)
}

func TestKeywordClassifier_CustomPoolOverrides(t *testing.T) {
	cfg := inquiryConfig(t, `{"keywordPools":{"create":["invent a"]}}`)
	ev, err := KeywordClassifier{}.Classify(context.Background(), "Could we design a better bridge?", cfg)
	require.NoError(t, err)
	// design 不再属于 create，命中 evaluate 的 better
	assert.Equal(t, "evaluate", ev.Level)
}

func TestKeywordClassifier_TopicRelevance(t *testing.T) {
	cfg := inquiryConfig(t, `{"topicKeywords":["volcano","magma"]}`)
	on, err := KeywordClassifier{}.Classify(context.Background(), "Why does magma rise inside a volcano?", cfg)
	require.NoError(t, err)
	off, err := KeywordClassifier{}.Classify(context.Background(), "Why does bread rise in the oven?", cfg)
	require.NoError(t, err)

	assert.Equal(t, 10.0, on.Dimensions[DimRelevance])
	assert.Equal(t, 0.0, off.Dimensions[DimRelevance])
}

func TestInquiry_RequiresEnoughQuestions(t *testing.T) {
	en := NewEngine()
	cfg := inquiryConfig(t, `{"questionsRequired":3,"passThreshold":1}`)

	res, err := en.Inquiry(context.Background(), map[string]string{
		"q1": "Why does ice float on water?",
		"q2": "   ",
	}, cfg)
	require.NoError(t, err)

	assert.Equal(t, 1, res.QuestionsGenerated)
	assert.Equal(t, 3, res.QuestionsRequired)
	assert.Greater(t, res.TotalScore, 1.0)
	assert.False(t, res.Passed)
	assert.NotContains(t, res.Evaluations, "q2")
}

func TestInquiry_Passes(t *testing.T) {
	en := NewEngine()
	cfg := inquiryConfig(t, `{"questionsRequired":2,"passThreshold":5}`)

	res, err := en.Inquiry(context.Background(), map[string]string{
		"q1": "How might we design a city that produces no waste at all?",
		"q2": "Should schools evaluate students without any written exams at all?",
	}, cfg)
	require.NoError(t, err)

	assert.Equal(t, 2, res.QuestionsGenerated)
	assert.True(t, res.Passed)
}

type stubInquiryEvaluator struct {
	err error
	ev  InquiryEvaluation
}

func (s stubInquiryEvaluator) Classify(context.Context, string, *settings.InquirySettings) (InquiryEvaluation, error) {
	return s.ev, s.err
}

func TestFallbackEvaluator(t *testing.T) {
	var reported error
	f := FallbackEvaluator{
		Primary:  stubInquiryEvaluator{err: errors.New("timeout")},
		Fallback: stubInquiryEvaluator{ev: InquiryEvaluation{Level: "apply", Score: 6}},
		OnError:  func(err error) { reported = err },
	}

	ev, err := f.Classify(context.Background(), "How would you fix it?", nil)
	require.NoError(t, err)
	assert.Equal(t, "apply", ev.Level)
	assert.EqualError(t, reported, "timeout")
}
