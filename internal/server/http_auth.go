package server

import (
	"context"
	"net/http"

	"snapscreen/internal/auth"
	"snapscreen/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// authHealthHandler reports whether an identity provider is configured
func (s *Server) authHealthHandler(w http.ResponseWriter, _ *http.Request) {
	response := map[string]any{
		"status":            "ok",
		"providerAvailable": s.Auth != nil,
		"verifyTokens":      s.Verifier != nil,
	}
	if sp, ok := s.Auth.(statsProvider); ok {
		response["circuitBreaker"] = sp.Stats()
	}
	writeJSON(w, http.StatusOK, response)
}

// writeAuthResult answers {user, error}; failures use 400.
func writeAuthResult(w http.ResponseWriter, res auth.Result) {
	status := http.StatusOK
	if !res.OK() {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, res)
}

// authAttempt wraps an email or provider sign-in with its metric
func (s *Server) authAttempt(om *observability.ObservabilityManager, operation string,
	run func(ctx context.Context, r *http.Request) (auth.Result, bool)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Auth == nil {
			writeErrorResponse(w, "Authentication unavailable", "No identity provider is configured", http.StatusServiceUnavailable)
			return
		}
		res, parsed := run(r.Context(), r)
		if !parsed {
			writeErrorResponse(w, "Invalid request body", res.Error, http.StatusBadRequest)
			return
		}
		om.GetMetrics().RecordBusinessMetric(r.Context(), observability.MetricAuthAttempt, res.OK(),
			attribute.String("operation", operation))
		if !res.OK() {
			s.Logger.Info("Authentication attempt failed", "operation", operation, "reason", res.Error)
		}
		writeAuthResult(w, res)
	}
}

func (s *Server) signUpHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return s.authAttempt(om, "signup", func(ctx context.Context, r *http.Request) (auth.Result, bool) {
		var req CredentialsRequest
		if err := parseJSONRequest(r, &req); err != nil {
			return auth.Result{Error: err.Error()}, false
		}
		return s.Auth.CreateAccount(ctx, req.Email, req.Password), true
	})
}

func (s *Server) signInHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return s.authAttempt(om, "signin", func(ctx context.Context, r *http.Request) (auth.Result, bool) {
		var req CredentialsRequest
		if err := parseJSONRequest(r, &req); err != nil {
			return auth.Result{Error: err.Error()}, false
		}
		return s.Auth.SignInWithEmail(ctx, req.Email, req.Password), true
	})
}

func (s *Server) providerSignInHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return s.authAttempt(om, "provider", func(ctx context.Context, r *http.Request) (auth.Result, bool) {
		var cred auth.ProviderCredential
		if err := parseJSONRequest(r, &cred); err != nil {
			return auth.Result{Error: err.Error()}, false
		}
		return s.Auth.SignInWithProvider(ctx, cred), true
	})
}

// signOutHandler ends the session on the provider side. Tokens stay valid
// until they expire; clients discard them.
func (s *Server) signOutHandler(w http.ResponseWriter, r *http.Request) {
	if s.Auth == nil {
		writeJSON(w, http.StatusOK, auth.Result{})
		return
	}
	var user auth.User
	if r.ContentLength > 0 {
		if err := parseJSONRequest(r, &user); err != nil {
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}
	}
	writeAuthResult(w, s.Auth.SignOut(r.Context(), &user))
}

// currentUserHandler returns the verified claims of the bearer token
func (s *Server) currentUserHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeErrorResponse(w, "Unauthorized", "A verified ID token is required", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, claims)
}
