package cli

import (
	"context"
	"fmt"

	"snapscreen/internal/analyzer"
	"snapscreen/internal/auth"
	"snapscreen/internal/config"
	"snapscreen/internal/errors"
	"snapscreen/internal/observability"
	"snapscreen/internal/resumes"
	"snapscreen/internal/server"
	"snapscreen/internal/store"
)

// services are the dependencies a command opened; Close releases them.
type services struct {
	server.Dependencies
	closers []func() error
	logger  *errors.Logger
}

func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.LogError(err, "Failed to release resource")
		}
	}
	s.closers = nil
}

func (s *services) openStore(ctx context.Context, cfg *config.Config) error {
	scans, err := store.Open(ctx, cfg, s.logger)
	if err != nil {
		return fmt.Errorf("failed to open scan store: %w", err)
	}
	s.Scans = scans
	s.closers = append(s.closers, scans.Close)
	return nil
}

func (s *services) openAnalyzer(cfg *config.Config) error {
	a, err := analyzer.NewService(cfg.Analyzer, s.logger)
	if err != nil {
		return fmt.Errorf("failed to create analyzer: %w", err)
	}
	s.Analyzer = a
	s.closers = append(s.closers, a.Close)
	return nil
}

func (s *services) openResumes(cfg *config.Config) error {
	rs, err := resumes.NewStore(cfg.Resumes.Root, cfg.App.MaxFileSize, s.logger)
	if err != nil {
		return err
	}
	signer, err := resumes.NewURLSigner(cfg.Resumes, s.logger)
	if err != nil {
		return err
	}
	s.Resumes, s.Signer = rs, signer
	return nil
}

// openAuth creates the identity provider when an API key is configured and
// the token verifier when verification is on.
func (s *services) openAuth(cfg *config.Config) error {
	if cfg.Auth.APIKey != "" {
		provider, err := auth.NewIdentityToolkitProvider(cfg.Auth, s.logger)
		if err != nil {
			return err
		}
		s.Auth = provider
	}
	if cfg.Auth.VerifyTokens {
		verifier, err := auth.NewTokenVerifier(cfg.Auth, s.logger)
		if err != nil {
			return err
		}
		s.Verifier = verifier
	}
	return nil
}

// openAll opens everything the HTTP server needs
func openAll(ctx context.Context, cfg *config.Config, logger *errors.Logger) (*services, error) {
	s := &services{logger: logger}
	for _, open := range []func() error{
		func() error { return s.openStore(ctx, cfg) },
		func() error { return s.openAnalyzer(cfg) },
		func() error { return s.openResumes(cfg) },
		func() error { return s.openAuth(cfg) },
	} {
		if err := open(); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// newObservability starts telemetry for a one-shot command. The returned
// function flushes it.
func newObservability(ctx context.Context, cfg *config.Config, logger *errors.Logger) (*observability.ObservabilityManager, func()) {
	om, err := observability.NewObservabilityManager(observability.GetObservabilityConfig(cfg, Version), cfg, logger)
	if err != nil {
		logger.LogError(err, "Observability disabled for this command")
		om, _ = observability.NewObservabilityManager(observability.ObservabilityConfig{}, cfg, logger)
	}
	return om, func() {
		if err := om.Shutdown(ctx); err != nil {
			logger.LogError(err, "Failed to flush telemetry")
		}
	}
}
