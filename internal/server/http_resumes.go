package server

import (
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	snapErrors "snapscreen/internal/errors"
	"snapscreen/internal/observability"
	"snapscreen/internal/resumes"

	"go.opentelemetry.io/otel/attribute"
)

// requireUser answers 401 when the request carries no user identity
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid, ok := s.userID(r)
	if !ok {
		writeErrorResponse(w, "Unauthorized", "A signed-in user is required", http.StatusUnauthorized)
		return "", false
	}
	return uid, true
}

// uploadResumeHandler stores the multipart "file" as the caller's resume
func (s *Server) uploadResumeHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := s.requireUser(w, r)
		if !ok {
			return
		}
		metrics := om.GetMetrics()

		file, header, err := r.FormFile("file")
		if err != nil {
			var maxBytesErr *http.MaxBytesError
			if stderrors.As(err, &maxBytesErr) {
				writeErrorResponse(w, "File too large",
					fmt.Sprintf("Upload exceeds %d bytes", s.MaxUploadSize), http.StatusRequestEntityTooLarge)
				return
			}
			writeErrorResponse(w, "No file uploaded", "multipart field \"file\" is required", http.StatusBadRequest)
			return
		}
		defer func() { _ = file.Close() }()

		info, err := s.Resumes.Upload(r.Context(), uid, header.Filename, file)
		metrics.RecordBusinessMetric(r.Context(), observability.MetricResumeUploaded, err == nil)
		if err != nil {
			if snapErrors.TypeOf(err) != snapErrors.ErrorTypeValidation {
				s.Logger.LogError(err, "Resume upload failed", "uid", uid)
			}
			writeAppError(w, err)
			return
		}

		s.Logger.Info("Resume uploaded", "uid", uid, "object_key", info.ObjectKey, "size", info.Size)
		writeJSON(w, http.StatusCreated, info)
	}
}

func (s *Server) getResumeHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	info, err := s.Resumes.Get(r.Context(), uid)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) resumeExistsHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	exists, err := s.Resumes.Exists(r.Context(), uid)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

// resumeURLHandler signs a download URL for one of the caller's own objects
func (s *Server) resumeURLHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	objectKey := r.URL.Query().Get("objectKey")
	if objectKey == "" {
		info, err := s.Resumes.Get(r.Context(), uid)
		if err != nil {
			writeAppError(w, err)
			return
		}
		objectKey = info.ObjectKey
	}

	owner, err := resumes.ParseObjectKey(objectKey)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if owner != uid {
		writeErrorResponse(w, "Forbidden", "The object belongs to another user", http.StatusForbidden)
		return
	}

	signed, err := s.Signer.Sign(objectKey)
	if err != nil {
		s.Logger.LogError(err, "Failed to sign resume URL", "object_key", objectKey)
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, signed)
}

func (s *Server) deleteResumeHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	if err := s.Resumes.Delete(r.Context(), uid); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// downloadResumeHandler streams the object named by a signed token
func (s *Server) downloadResumeHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics := om.GetMetrics()

		objectKey, err := s.Signer.Verify(r.URL.Query().Get("token"))
		if err != nil {
			metrics.RecordBusinessMetric(r.Context(), observability.MetricResumeDownloaded, false,
				attribute.String("reason", "token"))
			writeAppError(w, err)
			return
		}

		rc, info, err := s.Resumes.Open(r.Context(), objectKey)
		if err != nil {
			metrics.RecordBusinessMetric(r.Context(), observability.MetricResumeDownloaded, false,
				attribute.String("reason", "object"))
			writeAppError(w, err)
			return
		}
		defer func() { _ = rc.Close() }()

		w.Header().Set("Content-Type", info.ContentType)
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": info.FileName}))
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, rc); err != nil {
			s.Logger.Warn("Resume download interrupted", "object_key", objectKey, "error", err)
			return
		}
		metrics.RecordBusinessMetric(r.Context(), observability.MetricResumeDownloaded, true)
	}
}
