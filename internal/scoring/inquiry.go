package scoring

import (
	"assessment_engine_backend/internal/settings"
	"context"
	"sort"
	"strings"
	"unicode"
)

const (
	DimClarity   = "clarity"
	DimDepth     = "depth"
	DimRelevance = "relevance"
)

// InquiryEvaluation 单个提问的认知层级与分维度得分
type InquiryEvaluation struct {
	Level      string             `json:"level"`
	Dimensions map[string]float64 `json:"dimensions"`
	Score      float64            `json:"score"`
	Feedback   string             `json:"feedback"`
}

type InquiryEvaluator interface {
	Classify(ctx context.Context, question string, cfg *settings.InquirySettings) (InquiryEvaluation, error)
}

type InquiryResult struct {
	// Evaluations 以槽位 ID 为键，空白提问不参与评估
	Evaluations        map[string]InquiryEvaluation
	QuestionsGenerated int
	QuestionsRequired  int
	TotalScore         float64
	Passed             bool
}

// Inquiry 评估所有非空提问。达到要求数量且平均分达标才算通过
func (en *Engine) Inquiry(ctx context.Context, questions map[string]string, cfg *settings.InquirySettings) (InquiryResult, error) {
	res := InquiryResult{
		Evaluations:       make(map[string]InquiryEvaluation, len(questions)),
		QuestionsRequired: cfg.QuestionsRequired,
	}

	slots := make([]string, 0, len(questions))
	for slot := range questions {
		slots = append(slots, slot)
	}
	sort.Strings(slots)

	var sum float64
	for _, slot := range slots {
		text := strings.TrimSpace(questions[slot])
		if text == "" {
			continue
		}
		ev, err := en.inquiryEvaluator.Classify(ctx, text, cfg)
		if err != nil {
			return InquiryResult{}, err
		}
		res.Evaluations[slot] = ev
		sum += ev.Score
	}

	res.QuestionsGenerated = len(res.Evaluations)
	if res.QuestionsGenerated > 0 {
		raw := sum / float64(res.QuestionsGenerated)
		res.TotalScore = round(raw, 2)
		res.Passed = res.QuestionsGenerated >= cfg.QuestionsRequired && raw >= cfg.PassMark()
	}
	return res, nil
}

// 默认关键词池，活动配置中同名层级会覆盖
var defaultPools = map[string][]string{
	"remember":   {"what is", "who", "when", "where", "list", "define", "name", "which", "什么是", "哪些"},
	"understand": {"explain", "describe", "summarize", "meaning", "why is", "what does", "解释", "为什么"},
	"apply":      {"how would", "how can", "use", "apply", "solve", "demonstrate", "如何", "怎样"},
	"analyze":    {"compare", "contrast", "difference", "relationship", "cause", "why does", "比较", "区别", "关系"},
	"evaluate":   {"justify", "assess", "evaluate", "better", "best", "should", "judge", "评价", "是否应该"},
	"create":     {"design", "propose", "what if", "invent", "develop", "create", "how might", "设计", "假如"},
}

var levelFeedback = map[string]string{
	"remember":   "Recall-level question. Try asking why or how something happens.",
	"understand": "Comprehension question. Push further by applying the idea to a new case.",
	"apply":      "Application question. Consider comparing alternatives next.",
	"analyze":    "Analytical question that examines relationships.",
	"evaluate":   "Evaluative question that asks for judgement.",
	"create":     "Creative question that proposes something new.",
}

// KeywordClassifier 基于关键词池的布鲁姆层级分类，命中多个层级时取最高层级
type KeywordClassifier struct{}

func (KeywordClassifier) Classify(_ context.Context, question string, cfg *settings.InquirySettings) (InquiryEvaluation, error) {
	lower := strings.ToLower(question)

	levelIdx := 0
	for i := len(settings.BloomLevels) - 1; i >= 0; i-- {
		level := settings.BloomLevels[i]
		pool := defaultPools[level]
		if cfg != nil {
			if custom, ok := cfg.KeywordPools[level]; ok && len(custom) > 0 {
				pool = custom
			}
		}
		if containsAny(lower, pool) {
			levelIdx = i
			break
		}
	}
	level := settings.BloomLevels[levelIdx]

	dims := map[string]float64{
		DimClarity:   clarity(question),
		DimDepth:     round(float64(levelIdx+1)/float64(len(settings.BloomLevels))*10, 1),
		DimRelevance: relevance(lower, cfg),
	}

	return InquiryEvaluation{
		Level:      level,
		Dimensions: dims,
		Score:      round((dims[DimClarity]+dims[DimDepth]+dims[DimRelevance])/3, 1),
		Feedback:   levelFeedback[level],
	}, nil
}

func clarity(q string) float64 {
	score := 4.0
	trimmed := strings.TrimRightFunc(q, unicode.IsSpace)
	if strings.HasSuffix(trimmed, "?") || strings.HasSuffix(trimmed, "？") {
		score += 3
	}
	words := len(strings.Fields(q))
	if words <= 1 {
		// 中文没有空格分词，按字符数估算
		words = len([]rune(q)) / 2
	}
	switch {
	case words >= 8 && words <= 40:
		score += 3
	case words >= 4:
		score += 1.5
	}
	if score > 10 {
		score = 10
	}
	return score
}

func relevance(lower string, cfg *settings.InquirySettings) float64 {
	if cfg == nil || len(cfg.TopicKeywords) == 0 {
		return 5
	}
	cov, _ := keywordCoverage(cfg.TopicKeywords, lower)
	// 命中一个关键词即视为基本相关
	if cov > 0 && cov < 0.5 {
		cov = 0.5
	}
	return round(cov*10, 1)
}

func containsAny(text string, pool []string) bool {
	for _, k := range pool {
		if hasKeyword(text, strings.ToLower(strings.TrimSpace(k))) {
			return true
		}
	}
	return false
}

// FallbackEvaluator 主评估器失败时使用备用评估器
type FallbackEvaluator struct {
	Primary  InquiryEvaluator
	Fallback InquiryEvaluator
	OnError  func(err error)
}

func (f FallbackEvaluator) Classify(ctx context.Context, question string, cfg *settings.InquirySettings) (InquiryEvaluation, error) {
	ev, err := f.Primary.Classify(ctx, question, cfg)
	if err == nil {
		return ev, nil
	}
	if f.OnError != nil {
		f.OnError(err)
	}
	return f.Fallback.Classify(ctx, question, cfg)
}
