package analyzer

import (
	"context"
	"crypto/rand"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"time"

	"snapscreen/internal/breaker"
	"snapscreen/internal/config"
	"snapscreen/internal/errors"
	"snapscreen/internal/types"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

const (
	modelCheckTimeout = 10 * time.Second
	maxBackoff        = 30 * time.Second
)

// generateFunc issues one generate-content call
type generateFunc func(ctx context.Context, model, prompt string, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// GeminiAnalyzer scores resumes with Google Gemini
type GeminiAnalyzer struct {
	client    *genai.Client
	generate  generateFunc
	cfg       config.AnalyzerConfig
	breaker   *breaker.Breaker[*genai.GenerateContentResponse]
	logger    *errors.Logger
	retryBase time.Duration
	now       func() time.Time
	newID     func() string
}

var _ Analyzer = (*GeminiAnalyzer)(nil)

// NewGeminiAnalyzer creates a Gemini analyzer from configuration
func NewGeminiAnalyzer(cfg config.AnalyzerConfig, logger *errors.Logger) (*GeminiAnalyzer, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey,
			"gemini analyzer requires an API key (set SNAPSCREEN_ANALYZER_APIKEY or GEMINI_API_KEY)", nil)
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed, "Failed to create Gemini client", err)
	}

	g := newGeminiAnalyzer(cfg, logger, func(ctx context.Context, model, prompt string, gc *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return client.Models.GenerateContent(ctx, model, genai.Text(prompt), gc)
	})
	g.client = client
	return g, nil
}

func newGeminiAnalyzer(cfg config.AnalyzerConfig, logger *errors.Logger, generate generateFunc) *GeminiAnalyzer {
	return &GeminiAnalyzer{
		generate:  generate,
		cfg:       cfg,
		breaker:   breaker.New[*genai.GenerateContentResponse]("gemini-analyzer", cfg.CircuitBreaker, logger),
		logger:    logger,
		retryBase: time.Second,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

func (g *GeminiAnalyzer) Name() string { return "gemini" }

// Info checks the readiness and availability of the configured model
func (g *GeminiAnalyzer) Info(ctx context.Context) *ModelInfo {
	info := &ModelInfo{Name: g.cfg.Model, Provider: "gemini"}
	if g.client == nil {
		info.Error = "no Gemini client"
		return info
	}

	checkCtx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()

	model, err := g.client.Models.Get(checkCtx, g.cfg.Model, &genai.GetModelConfig{})
	if err != nil {
		info.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed", "model", g.cfg.Model, "error", err.Error())
		return info
	}

	info.Available = true
	info.DisplayName = model.DisplayName
	info.Version = model.Version
	g.logger.Debug("Model availability check successful",
		"model", g.cfg.Model,
		"display_name", info.DisplayName,
		"version", info.Version)
	return info
}

// Stats returns circuit breaker statistics
func (g *GeminiAnalyzer) Stats() map[string]any {
	return g.breaker.Stats()
}

// Close is a no-op; the Gemini client holds no resources in single-shot use.
func (g *GeminiAnalyzer) Close() error {
	return nil
}

// geminiScan is the JSON shape requested from the model
type geminiScan struct {
	Score      int                   `json:"score"`
	Categories []types.CheckCategory `json:"categories"`
	HardSkills []types.SkillMatch    `json:"hardSkills"`
	SoftSkills []types.SkillMatch    `json:"softSkills"`
}

// Analyze asks the model to scan input and validates its answer.
func (g *GeminiAnalyzer) Analyze(ctx context.Context, input types.ScanInput) (*types.ScanDetail, *TokenUsage, error) {
	input, err := checkInput(input)
	if err != nil {
		return nil, nil, err
	}

	tracer := otel.Tracer("snapscreen.analyzer.gemini")
	ctx, span := tracer.Start(ctx, "gemini.analyze_resume")
	defer span.End()
	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.cfg.Model),
		attribute.Float64("ai.temperature", float64(g.cfg.Temperature)),
		attribute.Int("input.resume_length", len(input.ResumeText)),
		attribute.Int("input.job_length", len(input.JobDescription)),
	)

	company := input.Company
	if company == "" {
		company = "(not given)"
	}
	prompt := fmt.Sprintf(userPromptTemplate, input.Title, company, input.FileName, input.ResumeText, input.JobDescription)
	genCfg := g.buildScanSchema()

	result, err := g.breaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.executeWithRetry(ctx, "analyze_resume", func() (*genai.GenerateContentResponse, error) {
			return g.generate(ctx, g.cfg.Model, prompt, genCfg)
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return nil, nil, errors.NewAIError(errors.ErrCodeAIServiceFailed, "Failed to generate scan", err)
	}

	detail, err := g.toDetail(result.Text(), input)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return nil, nil, err
	}

	usage := extractTokenUsage(result)
	if usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
	}
	span.SetAttributes(attribute.Bool("success", true), attribute.Int("scan.score", detail.Score))
	return detail, usage, nil
}

// toDetail converts a model answer into a normalized, valid scan.
func (g *GeminiAnalyzer) toDetail(raw string, input types.ScanInput) (*types.ScanDetail, error) {
	var out geminiScan
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, errors.NewAIError("AI_RESPONSE_PARSE_FAILED", "Failed to parse model response", err)
	}

	detail := &types.ScanDetail{
		ID:          g.newID(),
		Title:       input.Title,
		Company:     input.Company,
		FileName:    input.FileName,
		DateScanned: g.now().Format(types.DateLayout),
		Score:       out.Score,
		Categories:  out.Categories,
		HardSkills:  out.HardSkills,
		SoftSkills:  out.SoftSkills,
	}
	detail.Normalize()
	if err := detail.Validate(); err != nil {
		return nil, errors.NewAIError("AI_RESPONSE_INVALID", "Model returned an invalid scan", err)
	}
	return detail, nil
}

// executeWithRetry runs fn with retry logic and exponential backoff
func (g *GeminiAnalyzer) executeWithRetry(ctx context.Context, operation string, fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= g.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("Retrying analyzer operation",
				"operation", operation,
				"attempt", attempt,
				"max_retries", g.cfg.MaxRetries,
				"error", lastErr.Error())

			select {
			case <-time.After(g.backoff(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 {
				g.logger.Info("Analyzer operation succeeded after retry",
					"operation", operation,
					"total_attempts", attempt+1)
			}
			return result, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			g.logger.Debug("Error is not retryable, stopping retry attempts",
				"operation", operation,
				"error", err.Error())
			break
		}
	}

	g.logger.LogError(lastErr, "Analyzer operation failed after all retry attempts", "operation", operation)
	return nil, fmt.Errorf("operation '%s' failed after %d retries: %w", operation, g.cfg.MaxRetries, lastErr)
}

// backoff doubles retryBase per attempt, adds up to 10% jitter and caps at maxBackoff.
func (g *GeminiAnalyzer) backoff(attempt int) time.Duration {
	base := time.Duration(math.Pow(2, float64(attempt-1))) * g.retryBase
	jitter := time.Duration(0)
	if limit := int64(float64(base) * 0.1); limit > 0 {
		n, err := rand.Int(rand.Reader, big.NewInt(limit))
		if err == nil {
			jitter = time.Duration(n.Int64())
		}
	}
	return min(base+jitter, maxBackoff)
}

// isRetryableError reports network failures, throttling and server errors.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return true
	}

	var apiErr *googleapi.Error
	if stderrors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}
	return false
}

// buildScanSchema creates the response schema for scan requests
func (g *GeminiAnalyzer) buildScanSchema() *genai.GenerateContentConfig {
	statuses := make([]string, 0, len(types.AllStatuses))
	for _, s := range types.AllStatuses {
		statuses = append(statuses, s.String())
	}

	skill := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":                {Type: genai.TypeString},
			"resumeCount":         {Type: genai.TypeInteger},
			"jobDescriptionCount": {Type: genai.TypeInteger},
		},
		Required: []string{"name", "resumeCount", "jobDescriptionCount"},
	}

	gc := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"score": {Type: genai.TypeInteger},
				"categories": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"id":   {Type: genai.TypeString},
							"name": {Type: genai.TypeString},
							"checks": {
								Type: genai.TypeArray,
								Items: &genai.Schema{
									Type: genai.TypeObject,
									Properties: map[string]*genai.Schema{
										"id":       {Type: genai.TypeString},
										"name":     {Type: genai.TypeString},
										"status":   {Type: genai.TypeString, Enum: statuses},
										"feedback": {Type: genai.TypeString},
									},
									Required: []string{"id", "name", "status", "feedback"},
								},
							},
						},
						Required: []string{"id", "name", "checks"},
					},
				},
				"hardSkills": {Type: genai.TypeArray, Items: skill},
				"softSkills": {Type: genai.TypeArray, Items: skill},
			},
			Required: []string{"score", "categories", "hardSkills", "softSkills"},
		},
	}

	if g.cfg.Temperature > 0 {
		temperature := g.cfg.Temperature
		gc.Temperature = &temperature
	}

	systemPrompt := g.cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	gc.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)

	return gc
}

// extractTokenUsage extracts token usage information from a Gemini response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
