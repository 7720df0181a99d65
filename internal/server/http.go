package server

import (
	"context"
	"time"

	"snapscreen/internal/analyzer"
	"snapscreen/internal/auth"
	"snapscreen/internal/config"
	snapErrors "snapscreen/internal/errors"
	"snapscreen/internal/resumes"
	"snapscreen/internal/store"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// ScanRequest is the body of POST /api/scans. When ResumeText is empty the
// caller's stored plain-text resume is used.
type ScanRequest struct {
	Title          string `json:"title"`
	Company        string `json:"company"`
	FileName       string `json:"fileName"`
	ResumeText     string `json:"resumeText"`
	JobDescription string `json:"jobDescription"`
}

// CredentialsRequest is the body of the email sign-up and sign-in endpoints
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenVerifier verifies bearer ID tokens
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*auth.Claims, error)
}

// Dependencies are the domain services the handlers call
type Dependencies struct {
	Scans    store.Store
	Analyzer analyzer.Analyzer
	Resumes  *resumes.Store
	Signer   *resumes.URLSigner
	Auth     auth.Provider
	Verifier TokenVerifier
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	AppConfig *config.Config
	TLSConfig config.TLSConfig

	// Serving certificate, reloaded from disk when auto reload is on
	Certificates *CertificateStore

	// API Authentication
	APIKeys map[string]bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Body limit for JSON requests; uploads use app.maxFileSize
	MaxRequestSize int64
	MaxUploadSize  int64

	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	Dependencies

	Logger *snapErrors.Logger
	now    func() time.Time
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	TLSConfig      config.TLSConfig
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	MaxUploadSize  int64
	RateLimit      *config.RateLimitConfig
}

// ServerConfigFrom derives the server settings from the application config
func ServerConfigFrom(cfg *config.Config, version string) ServerConfig {
	return ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        version,
		TLSConfig:      cfg.Server.TLS,
		APIKeys:        cfg.Server.APIKeys,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxRequestSize: 1 << 20,
		MaxUploadSize:  cfg.App.MaxFileSize,
		RateLimit:      &cfg.Server.RateLimit,
	}
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(appCfg *config.Config, cfg ServerConfig, deps Dependencies, logger *snapErrors.Logger) *Server {
	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(cfg.RateLimit.RequestsPerMin, cfg.RateLimit.BurstCapacity, logger)
	}

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		TLSConfig:      cfg.TLSConfig,
		APIKeys:        apiKeyMap,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		MaxUploadSize:  cfg.MaxUploadSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		Dependencies:   deps,
		Logger:         logger,
		now:            time.Now,
	}
}
