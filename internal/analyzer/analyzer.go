// Package analyzer turns a resume and a job description into a scored scan.
package analyzer

import (
	"context"
	"path/filepath"
	"strings"

	"snapscreen/internal/config"
	"snapscreen/internal/errors"
	"snapscreen/internal/types"
)

// Analyzer produces scan details
type Analyzer interface {
	// Analyze scores input. The returned detail is normalized, valid and
	// carries a fresh id. TokenUsage is nil for analyzers that do not call a model.
	Analyze(ctx context.Context, input types.ScanInput) (*types.ScanDetail, *TokenUsage, error)
	Name() string
	Info(ctx context.Context) *ModelInfo
	Close() error
}

// TokenUsage represents token usage information from model responses
type TokenUsage struct {
	InputTokens  int64 `json:"inputTokens"`
	OutputTokens int64 `json:"outputTokens"`
	TotalTokens  int64 `json:"totalTokens"`
}

// ModelInfo describes the engine behind an analyzer
type ModelInfo struct {
	Name        string `json:"name"`
	Provider    string `json:"provider"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// NewService creates the analyzer selected by cfg.Provider
func NewService(cfg config.AnalyzerConfig, logger *errors.Logger) (Analyzer, error) {
	switch cfg.Provider {
	case "", "rules":
		return NewRulesAnalyzer(), nil
	case "gemini":
		return NewGeminiAnalyzer(cfg, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			"unsupported analyzer provider: "+cfg.Provider, nil)
	}
}

// checkInput rejects inputs that cannot be scanned and fills a missing title.
func checkInput(input types.ScanInput) (types.ScanInput, error) {
	if strings.TrimSpace(input.ResumeText) == "" {
		return input, errors.NewValidationError(errors.ErrCodeInvalidRequest, "resume text is empty", nil)
	}
	if strings.TrimSpace(input.JobDescription) == "" {
		return input, errors.NewValidationError(errors.ErrCodeInvalidRequest, "job description is empty", nil)
	}
	input.Title = strings.TrimSpace(input.Title)
	input.Company = strings.TrimSpace(input.Company)
	input.FileName = strings.TrimSpace(input.FileName)
	if input.Title == "" {
		input.Title = defaultTitle(input.FileName)
	}
	return input, nil
}

func defaultTitle(fileName string) string {
	stem := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	stem = strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(stem))
	if fileName == "" || stem == "" || stem == "." {
		return "Resume Scan"
	}
	return stem
}
