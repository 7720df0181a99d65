package cli

import (
	"fmt"

	"snapscreen/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP server that provides the scan dashboard API.

Available endpoints:
- GET/POST /api/scans, GET/DELETE /api/scans/{id}: Scan records
- GET /api/dashboard: Sidebar and detail pane for a filter and selection
- GET /api/progress: Progress summary
- /api/resumes/...: Resume upload, signed download links
- /api/public/auth/...: Sign up, sign in and sign out through the identity provider
- GET /health, GET /stats: Health check and server statistics

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server, mutual
- Use --cert-file and --key-file for TLS certificates
- Use --ca-file for mutual TLS client certificate verification`,
	RunE: runServe,
}

var serveFlags struct {
	host, port                         string
	tlsMode, certFile, keyFile, caFile string
}

func init() {
	serveCmd.Flags().StringVarP(&serveFlags.port, "port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().StringVar(&serveFlags.host, "host", "", "Host to bind to (default from config)")
	serveCmd.Flags().StringVar(&serveFlags.tlsMode, "tls-mode", "", "TLS mode: disabled, server, mutual (overrides config)")
	serveCmd.Flags().StringVar(&serveFlags.certFile, "cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().StringVar(&serveFlags.keyFile, "key-file", "", "Server private key file (PEM, overrides config)")
	serveCmd.Flags().StringVar(&serveFlags.caFile, "ca-file", "", "CA certificate file for client cert verification (PEM, overrides config)")
}

// override sets *dst to value when the flag was given
func override(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := fromContext(cmd)
	if err != nil {
		return err
	}

	override(&cfg.Server.Port, serveFlags.port)
	override(&cfg.Server.Host, serveFlags.host)
	override(&cfg.Server.TLS.Mode, serveFlags.tlsMode)
	override(&cfg.Server.TLS.CertFile, serveFlags.certFile)
	override(&cfg.Server.TLS.KeyFile, serveFlags.keyFile)
	override(&cfg.Server.TLS.CAFile, serveFlags.caFile)

	// Validate TLS configuration after applying overrides
	if err := cfg.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	svc, err := openAll(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	logger.Info("Starting snapscreen server",
		"version", Version,
		"analyzer", svc.Analyzer.Name(),
		"storage", cfg.Storage.Driver,
		"auth_provider", svc.Auth != nil,
		"verify_tokens", svc.Verifier != nil)

	return server.NewServer(cfg, server.ServerConfigFrom(cfg, Version), svc.Dependencies, logger).Start()
}
