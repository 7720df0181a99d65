package server

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"sync"
	"time"

	"snapscreen/internal/config"
	"snapscreen/internal/errors"
)

// CertificateStore holds the serving certificate and swaps it on reload
type CertificateStore struct {
	cfg    config.TLSConfig
	logger *errors.Logger

	mu      sync.RWMutex
	cert    *tls.Certificate
	reloads int

	watcher  *CertWatcher
	onReload func(notAfter time.Time, err error)
}

// NewCertificateStore loads the configured key pair
func NewCertificateStore(cfg config.TLSConfig, logger *errors.Logger) (*CertificateStore, error) {
	cs := &CertificateStore{cfg: cfg, logger: logger}
	cert, err := cs.load()
	if err != nil {
		return nil, err
	}
	cs.cert = cert
	return cs, nil
}

func (cs *CertificateStore) load() (*tls.Certificate, error) {
	var cert tls.Certificate
	var err error
	switch {
	case cs.cfg.CertContent != "" && cs.cfg.KeyContent != "":
		cert, err = tls.X509KeyPair([]byte(cs.cfg.CertContent), []byte(cs.cfg.KeyContent))
	case cs.cfg.CertFile != "" && cs.cfg.KeyFile != "":
		cert, err = tls.LoadX509KeyPair(cs.cfg.CertFile, cs.cfg.KeyFile)
	default:
		return nil, fmt.Errorf("TLS certificate and key are required (provide either files or content)")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load server cert/key: %w", err)
	}
	if cert.Leaf == nil {
		if cert.Leaf, err = x509.ParseCertificate(cert.Certificate[0]); err != nil {
			return nil, fmt.Errorf("failed to parse server certificate: %w", err)
		}
	}
	return &cert, nil
}

// Reload re-reads the key pair. The previous certificate stays in use on failure.
func (cs *CertificateStore) Reload() error {
	cert, err := cs.load()
	if err == nil {
		cs.mu.Lock()
		cs.cert = cert
		cs.reloads++
		cs.mu.Unlock()
		cs.logger.Info("TLS certificate reloaded", "not_after", cert.Leaf.NotAfter)
	} else {
		cs.logger.LogError(err, "Failed to reload TLS certificate")
	}

	if cs.onReload != nil {
		var notAfter time.Time
		if err == nil {
			notAfter = cert.Leaf.NotAfter
		}
		cs.onReload(notAfter, err)
	}
	return err
}

// GetCertificate serves the current certificate to tls.Config
func (cs *CertificateStore) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.cert, nil
}

// NotAfter is the expiry of the current certificate
func (cs *CertificateStore) NotAfter() (time.Time, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	if cs.cert == nil || cs.cert.Leaf == nil {
		return time.Time{}, fmt.Errorf("no certificate loaded")
	}
	return cs.cert.Leaf.NotAfter, nil
}

// Reloads counts successful reloads
func (cs *CertificateStore) Reloads() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.reloads
}

// Watch reloads whenever the certificate files change on disk
func (cs *CertificateStore) Watch(debounce time.Duration) error {
	if cs.cfg.CertFile == "" {
		return fmt.Errorf("certificate auto reload needs certFile and keyFile")
	}
	cs.watcher = NewCertWatcher([]string{cs.cfg.CertFile, cs.cfg.KeyFile}, debounce,
		func() { _ = cs.Reload() }, cs.logger)
	return cs.watcher.Start()
}

// Stop ends watching
func (cs *CertificateStore) Stop() error {
	if cs.watcher == nil {
		return nil
	}
	return cs.watcher.Stop()
}
