package scoring

import (
	"assessment_engine_backend/internal/model"
	"assessment_engine_backend/internal/settings"
	"context"
	"strings"
	"unicode/utf8"
)

type CaseAnswer struct {
	Issues   string
	Solution string
}

type ScenarioEvaluation struct {
	Score    float64
	Feedback string
}

// CaseEvaluator 对单个场景的作答打分，分数范围 [0, 10]
type CaseEvaluator interface {
	Evaluate(ctx context.Context, scenario settings.Scenario, answer CaseAnswer) (ScenarioEvaluation, error)
}

type CaseResult struct {
	Scenarios  []model.ScenarioScore
	TotalScore float64
	Passed     bool
}

// Case 逐场景评估，未作答的场景计 0 分；总分为所有配置场景的平均值
func (en *Engine) Case(ctx context.Context, scenarios []settings.Scenario, answers map[string]CaseAnswer, passThreshold float64) (CaseResult, error) {
	res := CaseResult{Scenarios: make([]model.ScenarioScore, 0, len(scenarios))}
	if len(scenarios) == 0 {
		return res, nil
	}

	var sum float64
	for _, sc := range scenarios {
		ev, err := en.caseEvaluator.Evaluate(ctx, sc, answers[sc.ID])
		if err != nil {
			return CaseResult{}, err
		}
		res.Scenarios = append(res.Scenarios, model.ScenarioScore{
			ScenarioID: sc.ID,
			Score:      ev.Score,
			Feedback:   ev.Feedback,
		})
		sum += ev.Score
	}

	raw := sum / float64(len(scenarios))
	res.TotalScore = round(raw, 2)
	res.Passed = raw >= passThreshold
	return res, nil
}

type band struct {
	maxLen   int // 不含
	low      float64
	high     float64
	feedback string
}

// 按较短字段的长度分档，最后一档为闭区间
var caseBands = []band{
	{maxLen: 50, low: 1, high: 3, feedback: "Response is too brief. Describe the issues and your proposed solution in more detail."},
	{maxLen: 150, low: 3, high: 6, feedback: "A reasonable start. Expand on the root causes and justify the proposed solution."},
	{maxLen: 300, low: 6, high: 8, feedback: "Good analysis. Consider trade-offs and risks of the proposed solution."},
	{maxLen: 0, low: 8, high: 10, feedback: "Thorough analysis with a well-developed solution."},
}

const lastBandSpan = 600

// HeuristicCaseEvaluator 长度分档加关键词覆盖的占位评估，不调用外部模型
type HeuristicCaseEvaluator struct{}

func (HeuristicCaseEvaluator) Evaluate(_ context.Context, scenario settings.Scenario, answer CaseAnswer) (ScenarioEvaluation, error) {
	issues := strings.TrimSpace(answer.Issues)
	solution := strings.TrimSpace(answer.Solution)
	n := utf8.RuneCountInString(issues)
	if m := utf8.RuneCountInString(solution); m < n {
		n = m
	}
	if n == 0 {
		return ScenarioEvaluation{Score: 0, Feedback: "No response provided for this scenario."}, nil
	}

	bandMin := 0
	for i, b := range caseBands {
		last := i == len(caseBands)-1
		if !last && n >= b.maxLen {
			bandMin = b.maxLen
			continue
		}

		span := b.maxLen - bandMin
		if last {
			span = lastBandSpan
		}
		progress := float64(n-bandMin) / float64(span)
		if progress > 1 {
			progress = 1
		}
		if cov, ok := keywordCoverage(scenario.Keywords, issues+" "+solution); ok {
			progress = (progress + cov) / 2
		}

		score := b.low + (b.high-b.low)*progress
		if !last && score > b.high-0.1 {
			score = b.high - 0.1
		}
		return ScenarioEvaluation{Score: round(score, 1), Feedback: b.feedback}, nil
	}
	return ScenarioEvaluation{}, nil
}

// keywordCoverage 无关键词时 ok 为 false
func keywordCoverage(keywords []string, text string) (float64, bool) {
	if len(keywords) == 0 {
		return 0, false
	}
	lower := strings.ToLower(text)
	hit := 0
	for _, k := range keywords {
		if hasKeyword(lower, strings.ToLower(strings.TrimSpace(k))) {
			hit++
		}
	}
	return float64(hit) / float64(len(keywords)), true
}

// hasKeyword 英文关键词要求单词边界（避免 "use" 命中 "because"），其他文字按子串匹配
func hasKeyword(text, k string) bool {
	if k == "" {
		return false
	}
	from := 0
	for {
		i := strings.Index(text[from:], k)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(k)
		if isBoundary(text, start-1) && isBoundary(text, end) {
			return true
		}
		from = start + 1
	}
}

func isBoundary(text string, pos int) bool {
	if pos < 0 || pos >= len(text) {
		return true
	}
	b := text[pos]
	if b >= utf8.RuneSelf {
		return true
	}
	return !(b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '_')
}
