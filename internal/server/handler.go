package server

import (
	"context"
	"io"
	"net/http"
	"strings"

	"snapscreen/internal/dashboard"
	snapErrors "snapscreen/internal/errors"
	"snapscreen/internal/observability"
	"snapscreen/internal/store"
	"snapscreen/internal/types"

	"go.opentelemetry.io/otel/attribute"
)

// maxStoredResumeText bounds how much of a stored resume is read into a scan
const maxStoredResumeText = 1 << 20

// DashboardResponse is the sidebar and detail pane for one filter and selection
type DashboardResponse struct {
	Sidebar dashboard.SidebarView `json:"sidebar"`
	Detail  dashboard.DetailState `json:"detail"`
}

func (s *Server) listScansHandler(w http.ResponseWriter, r *http.Request) {
	view, err := dashboard.NewSidebar(s.Scans).Items(r.Context(), r.URL.Query().Get("q"), dashboard.NoSelection)
	if err != nil {
		s.Logger.LogError(err, "Failed to list scans")
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// createScanHandler runs the analyzer on the request and stores the scan
func (s *Server) createScanHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer("snapscreen.api").Start(r.Context(), "api.scans.create")
		defer span.End()
		metrics := om.GetMetrics()

		var req ScanRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}

		input := types.ScanInput{
			Title:          req.Title,
			Company:        req.Company,
			FileName:       req.FileName,
			ResumeText:     req.ResumeText,
			JobDescription: req.JobDescription,
		}
		if strings.TrimSpace(input.ResumeText) == "" {
			if err := s.fillFromStoredResume(ctx, r, &input); err != nil {
				span.RecordError(err)
				writeAppError(w, err)
				return
			}
		}

		span.SetAttributes(
			attribute.Int("request.resume_length", len(input.ResumeText)),
			attribute.Int("request.job_length", len(input.JobDescription)),
			attribute.String("analyzer", s.Analyzer.Name()),
		)

		var detail *types.ScanDetail
		err := metrics.TrackAnalysis(ctx, s.Analyzer.Name(), func(ctx context.Context) *observability.AnalysisResult {
			d, usage, err := s.Analyzer.Analyze(ctx, input)
			detail = d
			result := &observability.AnalysisResult{Error: err, TokenUsage: usage}
			if d != nil {
				result.Score = d.Score
			}
			return result
		})
		if err == nil {
			err = s.Scans.Save(ctx, detail)
		}
		if err != nil {
			span.RecordError(err)
			metrics.RecordBusinessMetric(ctx, observability.MetricScanCreated, false,
				attribute.String("error.type", string(snapErrors.TypeOf(err))))
			s.Logger.LogError(err, "Failed to create scan")
			writeAppError(w, err)
			return
		}

		metrics.RecordBusinessMetric(ctx, observability.MetricScanCreated, true,
			attribute.String("tier", string(types.TierFor(detail.Score))))
		span.SetAttributes(
			attribute.String("scan.id", detail.ID),
			attribute.Int("scan.score", detail.Score),
		)
		s.Logger.Info("Scan created", "scan_id", detail.ID, "score", detail.Score, "analyzer", s.Analyzer.Name())

		writeJSON(w, http.StatusCreated, dashboard.NewDetailView(detail))
	}
}

// fillFromStoredResume reads the caller's stored resume when it is plain text
func (s *Server) fillFromStoredResume(ctx context.Context, r *http.Request, input *types.ScanInput) error {
	uid, ok := s.userID(r)
	if !ok || s.Resumes == nil {
		return snapErrors.NewValidationError(snapErrors.ErrCodeInvalidRequest, "resumeText is required", nil)
	}
	info, err := s.Resumes.Get(ctx, uid)
	if err != nil {
		return err
	}
	if info.ContentType != "text/plain" {
		return snapErrors.NewValidationError(snapErrors.ErrCodeInvalidRequest,
			"The stored resume is not plain text; send resumeText instead", nil)
	}
	rc, _, err := s.Resumes.Open(ctx, info.ObjectKey)
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	text, err := io.ReadAll(io.LimitReader(rc, maxStoredResumeText))
	if err != nil {
		return snapErrors.NewIOError(snapErrors.ErrCodeFileNotReadable, "Cannot read stored resume", err)
	}
	input.ResumeText = string(text)
	if input.FileName == "" {
		input.FileName = info.FileName
	}
	return nil
}

// getScanHandler resolves one scan into its detail view
func (s *Server) getScanHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	resolver := dashboard.NewResolver(s.Scans)
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		detail, err := resolver.Resolve(r.Context(), id)
		if err != nil {
			if store.IsNotFound(err) {
				om.GetMetrics().RecordBusinessMetric(r.Context(), observability.MetricScanNotFound, false)
			} else {
				s.Logger.LogError(err, "Failed to resolve scan", "scan_id", id)
			}
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, dashboard.NewDetailView(detail))
	}
}

func (s *Server) deleteScanHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		err := s.Scans.Delete(r.Context(), id)
		om.GetMetrics().RecordBusinessMetric(r.Context(), observability.MetricScanDeleted, err == nil)
		if err != nil {
			writeAppError(w, err)
			return
		}
		s.Logger.Info("Scan deleted", "scan_id", id)
		w.WriteHeader(http.StatusNoContent)
	}
}

// dashboardHandler answers the sidebar for ?q= together with the detail
// state of ?selected=.
func (s *Server) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	sel := dashboard.Select(strings.TrimSpace(query.Get("selected")))

	sidebar, err := dashboard.NewSidebar(s.Scans).Items(r.Context(), query.Get("q"), sel)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, DashboardResponse{
		Sidebar: sidebar,
		Detail:  dashboard.ViewFor(r.Context(), dashboard.NewResolver(s.Scans), sel),
	})
}

func (s *Server) progressHandler(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.Scans.List(r.Context(), "")
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard.BuildProgress(summaries, s.now()))
}
