package scoring

import (
	"assessment_engine_backend/internal/settings"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeuristicCaseEvaluator_Bands(t *testing.T) {
	sc := settings.Scenario{ID: "s1", Title: "Outage"}
	tests := []struct {
		name     string
		length   int
		low      float64
		high     float64
		feedback string
	}{
		{name: "brief", length: 20, low: 1, high: 3, feedback: "too brief"},
		{name: "short", length: 100, low: 3, high: 6, feedback: "reasonable start"},
		{name: "medium", length: 200, low: 6, high: 8, feedback: "good analysis"},
		{name: "long", length: 400, low: 8, high: 10.0001, feedback: "thorough"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			text := strings.Repeat("x", tc.length)
			ev, err := HeuristicCaseEvaluator{}.Evaluate(context.Background(), sc, CaseAnswer{Issues: text, Solution: text})
			require.NoError(t, err)
			assert.GreaterOrEqual(t, ev.Score, tc.low)
			assert.Less(t, ev.Score, tc.high)
			assert.Contains(t, strings.ToLower(ev.Feedback), tc.feedback)
		})
	}
}

func TestHeuristicCaseEvaluator_ShorterFieldDecides(t *testing.T) {
	sc := settings.Scenario{ID: "s1", Title: "Outage"}
	ev, err := HeuristicCaseEvaluator{}.Evaluate(context.Background(), sc, CaseAnswer{
		Issues:   strings.Repeat("long issue text ", 40),
		Solution: "restart it",
	})
	require.NoError(t, err)
	assert.Less(t, ev.Score, 3.0)
}

func TestHeuristicCaseEvaluator_EmptyScoresZero(t *testing.T) {
	ev, err := HeuristicCaseEvaluator{}.Evaluate(context.Background(), settings.Scenario{ID: "s"}, CaseAnswer{Issues: "   "})
	require.NoError(t, err)
	assert.Equal(t, 0.0, ev.Score)
}

func TestHeuristicCaseEvaluator_KeywordsRaiseScoreWithinBand(t *testing.T) {
	sc := settings.Scenario{ID: "s1", Title: "Outage", Keywords: []string{"latency", "cache"}}
	plain := strings.Repeat("y", 100)
	withKeywords := "latency spikes because the cache is cold " + strings.Repeat("z", 60)

	a, err := HeuristicCaseEvaluator{}.Evaluate(context.Background(), sc, CaseAnswer{Issues: plain, Solution: plain})
	require.NoError(t, err)
	b, err := HeuristicCaseEvaluator{}.Evaluate(context.Background(), sc, CaseAnswer{Issues: withKeywords, Solution: withKeywords})
	require.NoError(t, err)

	assert.Greater(t, b.Score, a.Score)
	assert.Less(t, b.Score, 6.0)
}

// 场景 3：两个场景都只写了很短的答案
func TestCase_BriefAnswersFail(t *testing.T) {
	en := NewEngine()
	scenarios := []settings.Scenario{{ID: "s1", Title: "One"}, {ID: "s2", Title: "Two"}}
	answers := map[string]CaseAnswer{
		"s1": {Issues: "server slow", Solution: "add servers"},
		"s2": {Issues: "bad ux", Solution: "redesign"},
	}

	res, err := en.Case(context.Background(), scenarios, answers, 6)
	require.NoError(t, err)

	require.Len(t, res.Scenarios, 2)
	for _, s := range res.Scenarios {
		assert.GreaterOrEqual(t, s.Score, 1.0)
		assert.Less(t, s.Score, 3.0)
		assert.Contains(t, s.Feedback, "too brief")
	}
	assert.Less(t, res.TotalScore, 3.0)
	assert.False(t, res.Passed)
}

func TestCase_UnansweredScenarioCountsAsZero(t *testing.T) {
	en := NewEngine()
	scenarios := []settings.Scenario{{ID: "s1", Title: "One"}, {ID: "s2", Title: "Two"}}
	long := strings.Repeat("detailed reasoning ", 30)

	res, err := en.Case(context.Background(), scenarios, map[string]CaseAnswer{"s1": {Issues: long, Solution: long}}, 6)
	require.NoError(t, err)

	assert.Equal(t, 0.0, res.Scenarios[1].Score)
	assert.InDelta(t, res.Scenarios[0].Score/2, res.TotalScore, 0.01)
}

type failingCaseEvaluator struct{}

func (failingCaseEvaluator) Evaluate(context.Context, settings.Scenario, CaseAnswer) (ScenarioEvaluation, error) {
	return ScenarioEvaluation{}, errors.New("model unavailable")
}

func TestCase_EvaluatorErrorPropagates(t *testing.T) {
	en := NewEngine(WithCaseEvaluator(failingCaseEvaluator{}))
	_, err := en.Case(context.Background(), []settings.Scenario{{ID: "s1", Title: "One"}}, nil, 6)
	assert.Error(t, err)
}
