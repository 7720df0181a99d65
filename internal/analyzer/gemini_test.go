package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"snapscreen/internal/config"
	"snapscreen/internal/errors"
	"snapscreen/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

var testLogger = errors.NewLogger(slog.LevelError)

const modelAnswer = `{
  "score": 140,
  "categories": [
    {"id": "searchability", "name": "Searchability", "checks": [
      {"id": "contact-email", "name": "Contact Information: Email", "status": "pass", "feedback": "Found."},
      {"id": "summary", "name": "Summary Section", "status": "needs-attention", "feedback": "Add one."}
    ]},
    {"id": "formatting", "name": "Formatting", "checks": [
      {"id": "bullets", "name": "Bullet Points", "status": "fail", "feedback": "Use bullets."}
    ]}
  ],
  "hardSkills": [{"name": "React", "resumeCount": 2, "jobDescriptionCount": 1}],
  "softSkills": [{"name": "Leadership", "resumeCount": 0, "jobDescriptionCount": 2}]
}`

func answer(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(text, genai.RoleModel)}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     120,
			CandidatesTokenCount: 80,
			TotalTokenCount:      200,
		},
	}
}

func testGemini(maxRetries int, generate generateFunc) *GeminiAnalyzer {
	g := newGeminiAnalyzer(config.AnalyzerConfig{
		Provider:    "gemini",
		Model:       "gemini-2.0-flash",
		APIKey:      "test-key",
		MaxRetries:  maxRetries,
		Temperature: 0.1,
	}, testLogger, generate)
	g.retryBase = time.Millisecond
	g.now = func() time.Time { return time.Date(2023, 10, 15, 0, 0, 0, 0, time.UTC) }
	g.newID = func() string { return "gem-1" }
	return g
}

var scanInput = types.ScanInput{
	Title:          "Frontend Developer Resume",
	FileName:       "jane_doe_resume.pdf",
	ResumeText:     strongResume,
	JobDescription: frontendJob,
}

func TestGeminiAnalyze(t *testing.T) {
	var gotPrompt string
	g := testGemini(0, func(_ context.Context, model, prompt string, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		assert.Equal(t, "gemini-2.0-flash", model)
		gotPrompt = prompt
		return answer(modelAnswer), nil
	})

	detail, usage, err := g.Analyze(context.Background(), scanInput)
	require.NoError(t, err)

	assert.Contains(t, gotPrompt, "Scan title: Frontend Developer Resume")
	assert.Contains(t, gotPrompt, "Company: (not given)")
	assert.Contains(t, gotPrompt, "Jane Doe")

	assert.Equal(t, "gem-1", detail.ID)
	assert.Equal(t, "2023-10-15", detail.DateScanned)
	assert.Equal(t, 100, detail.Score, "score is clamped")
	assert.Equal(t, 3, detail.TotalChecks)
	assert.Equal(t, 1, detail.PassingChecks)
	assert.Equal(t, types.StatusNeedsAttention, detail.Categories[0].Checks[1].Status)

	require.NotNil(t, usage)
	assert.Equal(t, TokenUsage{InputTokens: 120, OutputTokens: 80, TotalTokens: 200}, *usage)
}

func TestGeminiRejectsBadAnswers(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		code   string
	}{
		{"not json", "I think the resume is great", "AI_RESPONSE_PARSE_FAILED"},
		{"unknown status", `{"score": 50, "categories": [{"id": "a", "name": "A", "checks": [{"id": "x", "name": "X", "status": "warning", "feedback": ""}]}]}`, "AI_RESPONSE_PARSE_FAILED"},
		{"negative counts", `{"score": 50, "categories": [], "hardSkills": [{"name": "Go", "resumeCount": -1, "jobDescriptionCount": 1}]}`, "AI_RESPONSE_INVALID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := testGemini(0, func(context.Context, string, string, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
				return answer(tt.answer), nil
			})
			_, _, err := g.Analyze(context.Background(), scanInput)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.NewAIError(tt.code, "", nil))
		})
	}
}

func TestGeminiRetries(t *testing.T) {
	calls := 0
	g := testGemini(2, func(context.Context, string, string, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		calls++
		if calls == 1 {
			return nil, fmt.Errorf("generate: %w", &googleapi.Error{Code: http.StatusServiceUnavailable})
		}
		return answer(modelAnswer), nil
	})

	_, _, err := g.Analyze(context.Background(), scanInput)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestGeminiDoesNotRetryClientErrors(t *testing.T) {
	calls := 0
	g := testGemini(3, func(context.Context, string, string, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		calls++
		return nil, &googleapi.Error{Code: http.StatusBadRequest}
	})

	_, _, err := g.Analyze(context.Background(), scanInput)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, errors.ErrorTypeAI, errors.TypeOf(err))
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{&googleapi.Error{Code: http.StatusTooManyRequests}, true},
		{&googleapi.Error{Code: http.StatusGatewayTimeout}, true},
		{&googleapi.Error{Code: http.StatusUnauthorized}, false},
		{fmt.Errorf("plain"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isRetryableError(tt.err), "%v", tt.err)
	}
}

func TestBackoffIsCapped(t *testing.T) {
	g := testGemini(0, nil)
	g.retryBase = time.Second
	first := g.backoff(1)
	assert.GreaterOrEqual(t, first, time.Second)
	assert.Less(t, first, 1100*time.Millisecond)
	assert.Equal(t, maxBackoff, g.backoff(10))
}

func TestBuildScanSchema(t *testing.T) {
	g := testGemini(0, nil)
	gc := g.buildScanSchema()

	assert.Equal(t, "application/json", gc.ResponseMIMEType)
	require.NotNil(t, gc.Temperature)
	assert.InDelta(t, 0.1, *gc.Temperature, 1e-6)

	checks := gc.ResponseSchema.Properties["categories"].Items.Properties["checks"].Items
	assert.Equal(t, []string{"pass", "fail", "needs-attention"}, checks.Properties["status"].Enum)

	require.NotNil(t, gc.SystemInstruction)
	assert.Equal(t, DefaultSystemPrompt, gc.SystemInstruction.Parts[0].Text)

	g.cfg.SystemPrompt = "custom"
	assert.Equal(t, "custom", g.buildScanSchema().SystemInstruction.Parts[0].Text)
}

func TestNewService(t *testing.T) {
	a, err := NewService(config.AnalyzerConfig{Provider: "rules"}, testLogger)
	require.NoError(t, err)
	assert.Equal(t, "rules", a.Name())
	assert.True(t, a.Info(context.Background()).Available)

	_, err = NewService(config.AnalyzerConfig{Provider: "gemini"}, testLogger)
	assert.ErrorIs(t, err, errors.NewConfigError(errors.ErrCodeMissingAPIKey, "", nil))

	_, err = NewService(config.AnalyzerConfig{Provider: "openai"}, testLogger)
	assert.Equal(t, errors.ErrorTypeConfig, errors.TypeOf(err))
}
