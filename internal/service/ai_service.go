package service

import (
	"assessment_engine_backend/internal/config"
	"assessment_engine_backend/internal/scoring"
	"assessment_engine_backend/internal/settings"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

// AIService 兼容 OpenAI chat/completions 的模型调用
type AIService struct {
	config config.AIConfig
	client *http.Client
}

func NewAIService(cfg config.AIConfig) *AIService {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &AIService{config: cfg, client: &http.Client{Timeout: timeout}}
}

// Enabled 未配置 BaseURL 时不调用模型
func (s *AIService) Enabled() bool {
	return s.config.BaseURL != ""
}

type AIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []AIChatMessage `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type ChatCompletionResponse struct {
	Choices []struct {
		Message AIChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Chat 单轮对话，要求模型返回 JSON
func (s *AIService) Chat(ctx context.Context, system, prompt string) (string, error) {
	reqBody := ChatCompletionRequest{
		Model: s.config.Model,
		Messages: []AIChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(s.config.BaseURL, "/")+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("AI API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", err
	}
	if result.Error != nil {
		return "", fmt.Errorf("AI API error: %s", result.Error.Message)
	}
	if len(result.Choices) > 0 {
		return result.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("AI returned no choices")
}

const inquirySystemPrompt = "You grade questions written by students during an inquiry exercise. " +
	"Classify the question by Bloom's taxonomy level (remember, understand, apply, analyze, evaluate, create) " +
	"and rate clarity, depth and relevance to the topic from 0 to 10. " +
	`Reply with JSON only: {"level":"...","clarity":0,"depth":0,"relevance":0,"feedback":"..."}`

type aiInquiryVerdict struct {
	Level     string  `json:"level"`
	Clarity   float64 `json:"clarity"`
	Depth     float64 `json:"depth"`
	Relevance float64 `json:"relevance"`
	Feedback  string  `json:"feedback"`
}

// AIInquiryEvaluator 由模型评估探究提问，返回内容不合法时报错交由备用评估器处理
type AIInquiryEvaluator struct {
	AI *AIService
}

func NewAIInquiryEvaluator(ai *AIService) *AIInquiryEvaluator {
	return &AIInquiryEvaluator{AI: ai}
}

func (e *AIInquiryEvaluator) Classify(ctx context.Context, question string, cfg *settings.InquirySettings) (scoring.InquiryEvaluation, error) {
	var prompt strings.Builder
	if cfg != nil && cfg.Topic != "" {
		fmt.Fprintf(&prompt, "Topic: %s\n", cfg.Topic)
	}
	if cfg != nil && len(cfg.TopicKeywords) > 0 {
		fmt.Fprintf(&prompt, "Topic keywords: %s\n", strings.Join(cfg.TopicKeywords, ", "))
	}
	fmt.Fprintf(&prompt, "Question: %s", question)

	content, err := e.AI.Chat(ctx, inquirySystemPrompt, prompt.String())
	if err != nil {
		return scoring.InquiryEvaluation{}, err
	}

	var v aiInquiryVerdict
	if err := json.Unmarshal([]byte(extractJSON(content)), &v); err != nil {
		return scoring.InquiryEvaluation{}, fmt.Errorf("AI returned malformed verdict: %w", err)
	}
	level := strings.ToLower(strings.TrimSpace(v.Level))
	if !isBloomLevel(level) {
		return scoring.InquiryEvaluation{}, fmt.Errorf("AI returned unknown level %q", v.Level)
	}

	dims := map[string]float64{
		scoring.DimClarity:   clamp10(v.Clarity),
		scoring.DimDepth:     clamp10(v.Depth),
		scoring.DimRelevance: clamp10(v.Relevance),
	}
	score := (dims[scoring.DimClarity] + dims[scoring.DimDepth] + dims[scoring.DimRelevance]) / 3
	return scoring.InquiryEvaluation{
		Level:      level,
		Dimensions: dims,
		Score:      math.Round(score*10) / 10,
		Feedback:   v.Feedback,
	}, nil
}

// extractJSON 去掉模型可能包裹的 markdown 代码块
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}

func clamp10(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 10:
		return 10
	}
	return math.Round(v*10) / 10
}

func isBloomLevel(level string) bool {
	for _, l := range settings.BloomLevels {
		if l == level {
			return true
		}
	}
	return false
}
