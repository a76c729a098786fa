// Package scoring 对已提交的作答打分。考试为确定性比对，案例与探究通过可替换的评估器完成。
package scoring

import "math"

// Engine 按模式持有评估器
type Engine struct {
	caseEvaluator    CaseEvaluator
	inquiryEvaluator InquiryEvaluator
}

type Option func(*Engine)

func WithCaseEvaluator(e CaseEvaluator) Option {
	return func(en *Engine) { en.caseEvaluator = e }
}

func WithInquiryEvaluator(e InquiryEvaluator) Option {
	return func(en *Engine) { en.inquiryEvaluator = e }
}

// NewEngine 默认使用长度分档的案例评估与关键词分类的探究评估
func NewEngine(opts ...Option) *Engine {
	en := &Engine{
		caseEvaluator:    HeuristicCaseEvaluator{},
		inquiryEvaluator: KeywordClassifier{},
	}
	for _, o := range opts {
		o(en)
	}
	return en
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
