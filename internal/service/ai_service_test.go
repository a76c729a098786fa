package service

import (
	"assessment_engine_backend/internal/config"
	"assessment_engine_backend/internal/model"
	"assessment_engine_backend/internal/scoring"
	"assessment_engine_backend/internal/settings"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatServer(t *testing.T, content string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req ChatCompletionRequest
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			assert.Equal(t, "grader", req.Model)
			assert.Len(t, req.Messages, 2)
		}

		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func inquiryCfg(t *testing.T) *settings.InquirySettings {
	t.Helper()
	return settings.MustParse(model.ModeInquiry, `{"topic":"tides","topicKeywords":["moon"]}`).(*settings.InquirySettings)
}

func TestAIInquiryEvaluator_ParsesVerdict(t *testing.T) {
	srv := chatServer(t, "```json\n{\"level\":\"Analyze\",\"clarity\":8,\"depth\":12,\"relevance\":-1,\"feedback\":\"ok\"}\n```", http.StatusOK)
	ai := NewAIService(config.AIConfig{BaseURL: srv.URL + "/", APIKey: "test-key", Model: "grader"})
	require.True(t, ai.Enabled())

	ev, err := NewAIInquiryEvaluator(ai).Classify(context.Background(), "How does the moon affect tides?", inquiryCfg(t))
	require.NoError(t, err)
	assert.Equal(t, "analyze", ev.Level)
	assert.Equal(t, 8.0, ev.Dimensions[scoring.DimClarity])
	assert.Equal(t, 10.0, ev.Dimensions[scoring.DimDepth])
	assert.Equal(t, 0.0, ev.Dimensions[scoring.DimRelevance])
	assert.Equal(t, 6.0, ev.Score)
	assert.Equal(t, "ok", ev.Feedback)
}

func TestAIInquiryEvaluator_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		status  int
		wantErr string
	}{
		{"unknown level", `{"level":"memorize","clarity":5,"depth":5,"relevance":5}`, http.StatusOK, "unknown level"},
		{"not json", "I cannot grade this", http.StatusOK, "malformed"},
		{"upstream failure", "", http.StatusBadGateway, "status 502"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := chatServer(t, tc.content, tc.status)
			ai := NewAIService(config.AIConfig{BaseURL: srv.URL, APIKey: "test-key", Model: "grader"})
			_, err := NewAIInquiryEvaluator(ai).Classify(context.Background(), "Why?", inquiryCfg(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestAIInquiryEvaluator_FallsBackToKeywords(t *testing.T) {
	srv := chatServer(t, "", http.StatusInternalServerError)
	ai := NewAIService(config.AIConfig{BaseURL: srv.URL, APIKey: "test-key", Model: "grader"})

	var failures int
	engine := scoring.NewEngine(scoring.WithInquiryEvaluator(scoring.FallbackEvaluator{
		Primary:  NewAIInquiryEvaluator(ai),
		Fallback: scoring.KeywordClassifier{},
		OnError:  func(error) { failures++ },
	}))

	res, err := engine.Inquiry(context.Background(), map[string]string{
		"q1": "Compare the moon and the sun as causes of tides",
		"q2": "   ",
	}, inquiryCfg(t))
	require.NoError(t, err)
	assert.Equal(t, 1, failures)
	assert.Equal(t, 1, res.QuestionsGenerated)
	assert.Equal(t, "analyze", res.Evaluations["q1"].Level)
}

func TestAIService_DisabledWithoutBaseURL(t *testing.T) {
	assert.False(t, NewAIService(config.AIConfig{}).Enabled())
}
