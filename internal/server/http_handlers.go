package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"time"

	snapErrors "snapscreen/internal/errors"
)

const healthCheckTimeout = 10 * time.Second

// statsProvider is implemented by services guarded by a circuit breaker
type statsProvider interface {
	Stats() map[string]any
}

// healthHandler reports analyzer availability, breaker state and certificate expiry
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	response := map[string]any{
		"status":  "healthy",
		"service": "snapscreen",
		"version": s.Version,
	}
	healthy := true

	if s.Analyzer != nil {
		info := s.Analyzer.Info(ctx)
		response["analyzer"] = info
		healthy = healthy && info.Available
	}

	breakers := make(map[string]any)
	if sp, ok := s.Analyzer.(statsProvider); ok {
		breakers["analyzer"] = sp.Stats()
	}
	if sp, ok := s.Auth.(statsProvider); ok {
		breakers["auth"] = sp.Stats()
	}
	if len(breakers) > 0 {
		response["circuit_breakers"] = breakers
	}

	if certStatus := s.checkCertificateHealth(); certStatus != nil {
		response["certificates"] = certStatus
		if ok, _ := certStatus["healthy"].(bool); !ok {
			healthy = false
		}
	}

	status := http.StatusOK
	if !healthy {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

// checkCertificateHealth classifies the serving certificate by time to expiry
func (s *Server) checkCertificateHealth() map[string]any {
	if s.Certificates == nil {
		return nil
	}

	certStatus := make(map[string]any)
	notAfter, err := s.Certificates.NotAfter()
	if err != nil {
		certStatus["healthy"] = false
		certStatus["error"] = fmt.Sprintf("Failed to check certificate expiry: %v", err)
		return certStatus
	}

	timeToExpiry := notAfter.Sub(s.now())
	certStatus["time_to_expiry_hours"] = int(timeToExpiry.Hours())
	certStatus["not_after"] = notAfter

	switch {
	case timeToExpiry <= 0:
		certStatus["healthy"], certStatus["status"] = false, "expired"
	case timeToExpiry <= 24*time.Hour:
		certStatus["healthy"], certStatus["status"] = false, "critical"
	case timeToExpiry <= 7*24*time.Hour:
		certStatus["healthy"], certStatus["status"] = true, "warning"
	default:
		certStatus["healthy"], certStatus["status"] = true, "ok"
	}

	certStatus["auto_reload"] = s.TLSConfig.AutoReload.Enabled
	certStatus["reloads"] = s.Certificates.Reloads()
	return certStatus
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, _ *http.Request) {
	response := map[string]any{
		"service": "snapscreen",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"max_upload_size_bytes":  s.MaxUploadSize,
		},
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{"enabled": false}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	if s.Analyzer != nil {
		response["analyzer"] = s.Analyzer.Name()
	}

	writeJSON(w, http.StatusOK, response)
}

// parseJSONRequest parses JSON request body into the provided struct
func parseJSONRequest(r *http.Request, v any) error {
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType != "application/json" {
		return fmt.Errorf("content-type must be application/json")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return fmt.Errorf("request body too large (limit is %d bytes)", maxBytesErr.Limit)
		}
		return fmt.Errorf("failed to read request body: %w", err)
	}
	defer func() {
		if err := r.Body.Close(); err != nil {
			log.Printf("Failed to close request body: %v", err)
		}
	}()

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	return nil
}

// writeJSON writes v with the given status code
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{Error: error, Message: message})
}

// writeAppError answers with the status code and fields of an AppError
func writeAppError(w http.ResponseWriter, err error) {
	status := snapErrors.HTTPStatus(err)

	var appErr *snapErrors.AppError
	if !stderrors.As(err, &appErr) {
		writeErrorResponse(w, "internal", "Internal server error", status)
		return
	}
	message := appErr.Message
	if status == http.StatusInternalServerError {
		message = "Internal server error"
	}
	writeJSON(w, status, ErrorResponse{Error: string(appErr.Type), Code: appErr.Code, Message: message})
}
