package observability

import (
	"context"
	"fmt"
	"time"

	"snapscreen/internal/analyzer"
	"snapscreen/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Business metric types accepted by RecordBusinessMetric.
const (
	MetricScanCreated      = "scan_created"
	MetricScanDeleted      = "scan_deleted"
	MetricScanNotFound     = "scan_not_found"
	MetricResumeUploaded   = "resume_uploaded"
	MetricResumeDownloaded = "resume_downloaded"
	MetricAuthAttempt      = "auth_attempt"
	MetricRateLimitHit     = "rate_limit_hit"
	MetricCertReload       = "cert_reload"
)

// Metrics holds the custom instruments of the service
type Metrics struct {
	toggles config.CustomMetricsConfig

	AnalyzerDuration metric.Float64Histogram
	AnalyzerRequests metric.Int64Counter
	AnalyzerErrors   metric.Int64Counter
	AnalyzerTokens   metric.Int64Histogram
	ScanScores       metric.Int64Histogram

	ScansCreated      metric.Int64Counter
	ScansDeleted      metric.Int64Counter
	ScanLookupsMissed metric.Int64Counter
	ResumesUploaded   metric.Int64Counter
	ResumesDownloaded metric.Int64Counter
	AuthAttempts      metric.Int64Counter

	CertReloadCount metric.Int64Counter
	CertExpiryTime  metric.Float64Gauge

	RateLimitHits metric.Int64Counter
}

func defaultToggles() config.CustomMetricsConfig {
	return config.CustomMetricsConfig{
		AnalyzerOperations: config.AnalyzerMetricsConfig{Enabled: true, TrackDuration: true, TrackTokenUsage: true},
		BusinessMetrics:    config.ToggleConfig{Enabled: true},
		Infrastructure:     config.InfrastructureConfig{TrackRateLimits: true, TrackCertReload: true},
	}
}

// NewMetrics creates every instrument on meter.
func NewMetrics(meter metric.Meter, toggles config.CustomMetricsConfig) (*Metrics, error) {
	m := &Metrics{toggles: toggles}
	var err error

	if m.AnalyzerDuration, err = meter.Float64Histogram("snapscreen_analyzer_duration_seconds",
		metric.WithDescription("Time spent analyzing resumes"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("failed to create analyzer duration metric: %w", err)
	}
	if m.AnalyzerTokens, err = meter.Int64Histogram("snapscreen_analyzer_token_usage",
		metric.WithDescription("Model tokens used per analysis (input, output, total)"),
		metric.WithUnit("tokens")); err != nil {
		return nil, fmt.Errorf("failed to create token usage metric: %w", err)
	}
	if m.ScanScores, err = meter.Int64Histogram("snapscreen_scan_score",
		metric.WithDescription("Match scores of created scans"),
		metric.WithExplicitBucketBoundaries(0, 20, 40, 60, 70, 80, 90, 100)); err != nil {
		return nil, fmt.Errorf("failed to create scan score metric: %w", err)
	}
	if m.CertExpiryTime, err = meter.Float64Gauge("snapscreen_cert_expiry_seconds",
		metric.WithDescription("Seconds until certificate expiry"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("failed to create certificate expiry metric: %w", err)
	}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.AnalyzerRequests, "snapscreen_analyzer_requests_total", "Total number of analyzer requests"},
		{&m.AnalyzerErrors, "snapscreen_analyzer_errors_total", "Total number of failed analyzer requests"},
		{&m.ScansCreated, "snapscreen_scans_created_total", "Total number of scans created"},
		{&m.ScansDeleted, "snapscreen_scans_deleted_total", "Total number of scans deleted"},
		{&m.ScanLookupsMissed, "snapscreen_scan_lookups_not_found_total", "Scan lookups for ids with no record"},
		{&m.ResumesUploaded, "snapscreen_resumes_uploaded_total", "Total number of resume uploads"},
		{&m.ResumesDownloaded, "snapscreen_resumes_downloaded_total", "Total number of signed resume downloads"},
		{&m.AuthAttempts, "snapscreen_auth_attempts_total", "Sign-up and sign-in attempts"},
		{&m.CertReloadCount, "snapscreen_cert_reloads_total", "Total number of certificate reloads"},
		{&m.RateLimitHits, "snapscreen_rate_limit_hits_total", "Total number of rate limit hits"},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, fmt.Errorf("failed to create %s metric: %w", c.name, err)
		}
	}

	return m, nil
}

// AnalysisResult is what a tracked analyzer call reports back.
type AnalysisResult struct {
	Error      error
	TokenUsage *analyzer.TokenUsage
	Score      int
}

// TrackAnalysis runs fn inside an analyzer span and records its duration,
// outcome and token usage.
func (m *Metrics) TrackAnalysis(ctx context.Context, provider string, fn func(context.Context) *AnalysisResult) error {
	if m == nil || m.AnalyzerRequests == nil {
		if result := fn(ctx); result != nil {
			return result.Error
		}
		return nil
	}

	ctx, span := otel.Tracer("snapscreen.analyzer").Start(ctx, "analyzer.scan")
	defer span.End()

	start := time.Now()
	result := fn(ctx)
	duration := time.Since(start).Seconds()

	var err error
	if result != nil {
		err = result.Error
	}

	if m.toggles.AnalyzerOperations.Enabled {
		m.recordAnalysis(ctx, provider, duration, result, err, span)
	}

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("error", true))
	}
	return err
}

func (m *Metrics) recordAnalysis(ctx context.Context, provider string, duration float64, result *AnalysisResult, err error, span trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("provider", provider),
		attribute.Bool("success", err == nil),
	}
	opt := metric.WithAttributes(attrs...)

	if m.toggles.AnalyzerOperations.TrackDuration {
		m.AnalyzerDuration.Record(ctx, duration, opt)
	}
	m.AnalyzerRequests.Add(ctx, 1, opt)
	if err != nil {
		m.AnalyzerErrors.Add(ctx, 1, opt)
	} else if result != nil {
		m.ScanScores.Record(ctx, int64(result.Score), metric.WithAttributes(attribute.String("provider", provider)))
	}
	span.SetAttributes(attrs...)

	if result == nil || result.TokenUsage == nil {
		return
	}
	usage := result.TokenUsage
	if m.toggles.AnalyzerOperations.TrackTokenUsage {
		for _, tt := range []struct {
			kind  string
			value int64
		}{
			{"input", usage.InputTokens},
			{"output", usage.OutputTokens},
			{"total", usage.TotalTokens},
		} {
			m.AnalyzerTokens.Record(ctx, tt.value, metric.WithAttributes(
				attribute.String("provider", provider),
				attribute.String("token_type", tt.kind),
			))
		}
	}
	span.SetAttributes(
		attribute.Int64("analyzer.tokens.input", usage.InputTokens),
		attribute.Int64("analyzer.tokens.output", usage.OutputTokens),
		attribute.Int64("analyzer.tokens.total", usage.TotalTokens),
	)
}

// RecordBusinessMetric increments the counter for metricType. Unknown types
// are ignored.
func (m *Metrics) RecordBusinessMetric(ctx context.Context, metricType string, success bool, attributes ...attribute.KeyValue) {
	if m == nil {
		return
	}
	attrs := append([]attribute.KeyValue{attribute.Bool("success", success)}, attributes...)

	var counter metric.Int64Counter
	switch metricType {
	case MetricRateLimitHit:
		if !m.toggles.Infrastructure.TrackRateLimits {
			return
		}
		counter = m.RateLimitHits
	case MetricCertReload:
		if !m.toggles.Infrastructure.TrackCertReload {
			return
		}
		counter = m.CertReloadCount
	default:
		if !m.toggles.BusinessMetrics.Enabled {
			return
		}
		counter = m.businessCounter(metricType)
	}
	if counter != nil {
		counter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func (m *Metrics) businessCounter(metricType string) metric.Int64Counter {
	switch metricType {
	case MetricScanCreated:
		return m.ScansCreated
	case MetricScanDeleted:
		return m.ScansDeleted
	case MetricScanNotFound:
		return m.ScanLookupsMissed
	case MetricResumeUploaded:
		return m.ResumesUploaded
	case MetricResumeDownloaded:
		return m.ResumesDownloaded
	case MetricAuthAttempt:
		return m.AuthAttempts
	}
	return nil
}

// RecordCertExpiry reports how long the serving certificate stays valid.
func (m *Metrics) RecordCertExpiry(ctx context.Context, notAfter time.Time) {
	if m == nil || m.CertExpiryTime == nil {
		return
	}
	m.CertExpiryTime.Record(ctx, time.Until(notAfter).Seconds())
}
