package server

import (
	"context"
	"net/http"
	"strings"

	"snapscreen/internal/auth"
	"snapscreen/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

type contextKey int

const (
	claimsKey contextKey = iota
	apiKeyAuthKey
)

// ClaimsFromContext returns the verified token claims of the request, if any
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok && claims != nil
}

// setupRoutes configures all HTTP routes and middleware
func (s *Server) setupRoutes(om *observability.ObservabilityManager) *http.ServeMux {
	mux := http.NewServeMux()

	rateLimit := s.createRateLimitMiddleware(om)
	jsonLimit := s.requestSizeLimitMiddleware(s.MaxRequestSize)
	// multipart framing needs room beyond the file itself
	uploadLimit := s.requestSizeLimitMiddleware(s.MaxUploadSize + 1<<20)

	protected := func(h http.HandlerFunc) http.HandlerFunc {
		return rateLimit(s.authMiddleware(jsonLimit(h)))
	}
	public := func(h http.HandlerFunc) http.HandlerFunc {
		return rateLimit(jsonLimit(h))
	}

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /stats", s.statsHandler)

	mux.HandleFunc("GET /api/scans", protected(s.listScansHandler))
	mux.HandleFunc("POST /api/scans", protected(s.createScanHandler(om)))
	mux.HandleFunc("GET /api/scans/{id}", protected(s.getScanHandler(om)))
	mux.HandleFunc("DELETE /api/scans/{id}", protected(s.deleteScanHandler(om)))
	mux.HandleFunc("GET /api/dashboard", protected(s.dashboardHandler))
	mux.HandleFunc("GET /api/progress", protected(s.progressHandler))

	mux.HandleFunc("POST /api/resumes/upload", rateLimit(s.authMiddleware(uploadLimit(s.uploadResumeHandler(om)))))
	mux.HandleFunc("GET /api/resumes", protected(s.getResumeHandler))
	mux.HandleFunc("GET /api/resumes/exists", protected(s.resumeExistsHandler))
	mux.HandleFunc("GET /api/resumes/url", protected(s.resumeURLHandler))
	mux.HandleFunc("DELETE /api/resumes", protected(s.deleteResumeHandler))
	// the signed token is the credential
	mux.HandleFunc("GET /api/resumes/download", public(s.downloadResumeHandler(om)))

	mux.HandleFunc("GET /api/public/auth/health", s.authHealthHandler)
	mux.HandleFunc("POST /api/public/auth/signup", public(s.signUpHandler(om)))
	mux.HandleFunc("POST /api/public/auth/signin", public(s.signInHandler(om)))
	mux.HandleFunc("POST /api/public/auth/provider", public(s.providerSignInHandler(om)))
	mux.HandleFunc("POST /api/public/auth/signout", public(s.signOutHandler))
	mux.HandleFunc("GET /api/users/me", protected(s.currentUserHandler))

	return mux
}

// authMiddleware accepts a configured API key (X-API-Key or Bearer) or, when
// a verifier is configured, a bearer ID token whose claims are put in the
// request context.
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(s.APIKeys) == 0 && s.Verifier == nil {
			next(w, r)
			return
		}

		apiKey := r.Header.Get("X-API-Key")
		bearer, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		bearer = strings.TrimSpace(bearer)
		if apiKey == "" && s.APIKeys[bearer] {
			apiKey = bearer
		}

		if apiKey != "" {
			if !s.APIKeys[apiKey] {
				s.Logger.Info("Authentication failed: invalid API key",
					"endpoint", r.URL.Path,
					"client_ip", getClientIP(r),
					"api_key_prefix", maskAPIKey(apiKey))
				writeErrorResponse(w, "Invalid API key", "Unauthorized access", http.StatusUnauthorized)
				return
			}
			s.Logger.Debug("API authentication successful",
				"endpoint", r.URL.Path,
				"api_key_prefix", maskAPIKey(apiKey))
			next(w, r.WithContext(context.WithValue(r.Context(), apiKeyAuthKey, true)))
			return
		}

		if bearer == "" || s.Verifier == nil {
			s.Logger.Info("Authentication failed: missing credentials",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r))
			writeErrorResponse(w, "Missing credentials",
				"X-API-Key header or Authorization Bearer token required", http.StatusUnauthorized)
			return
		}

		claims, err := s.Verifier.Verify(r.Context(), bearer)
		if err != nil {
			s.Logger.Info("Authentication failed: invalid ID token",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r),
				"error", err.Error())
			writeAppError(w, err)
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	}
}

// userID returns the uid the request acts for: the verified token subject,
// or the X-User-ID header on API key and unauthenticated deployments.
func (s *Server) userID(r *http.Request) (string, bool) {
	if claims, ok := ClaimsFromContext(r.Context()); ok {
		return claims.UID, true
	}
	viaKey, _ := r.Context().Value(apiKeyAuthKey).(bool)
	if viaKey || (len(s.APIKeys) == 0 && s.Verifier == nil) {
		uid := strings.TrimSpace(r.Header.Get("X-User-ID"))
		return uid, uid != ""
	}
	return "", false
}

// requestSizeLimitMiddleware limits the size of incoming requests
func (s *Server) requestSizeLimitMiddleware(limit int64) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if limit > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next(w, r)
		}
	}
}

// createRateLimitMiddleware records a metric for every rejected request
func (s *Server) createRateLimitMiddleware(om *observability.ObservabilityManager) func(http.HandlerFunc) http.HandlerFunc {
	limit := s.rateLimitMiddleware()
	metrics := om.GetMetrics()

	return func(next http.HandlerFunc) http.HandlerFunc {
		limited := limit(next)
		return func(w http.ResponseWriter, r *http.Request) {
			wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
			limited(wrapper, r)
			if wrapper.statusCode == http.StatusTooManyRequests {
				metrics.RecordBusinessMetric(r.Context(), observability.MetricRateLimitHit, true,
					attribute.String("endpoint", r.URL.Path),
					attribute.String("method", r.Method))
			}
		}
	}
}

// responseWrapper wraps http.ResponseWriter to capture status code
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// maskAPIKey masks an API key for logging (shows only first 8 characters)
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:8] + "****"
}
