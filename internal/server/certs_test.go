package server

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"snapscreen/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selfSigned(t *testing.T, notAfter time.Time) (certPEM, keyPEM []byte) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: "localhost"},
		DNSNames:     []string{"localhost"},
		NotBefore:    notAfter.Add(-365 * 24 * time.Hour),
		NotAfter:     notAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
}

func writePair(t *testing.T, dir string, notAfter time.Time) (certFile, keyFile string) {
	t.Helper()
	certPEM, keyPEM := selfSigned(t, notAfter)
	certFile = filepath.Join(dir, "server.crt")
	keyFile = filepath.Join(dir, "server.key")
	require.NoError(t, os.WriteFile(certFile, certPEM, 0600))
	require.NoError(t, os.WriteFile(keyFile, keyPEM, 0600))
	return certFile, keyFile
}

func TestCertificateStoreFromContent(t *testing.T) {
	notAfter := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	certPEM, keyPEM := selfSigned(t, notAfter)

	cs, err := NewCertificateStore(config.TLSConfig{CertContent: string(certPEM), KeyContent: string(keyPEM)}, testLogger)
	require.NoError(t, err)

	got, err := cs.NotAfter()
	require.NoError(t, err)
	assert.True(t, got.Equal(notAfter))

	cert, err := cs.GetCertificate(&tls.ClientHelloInfo{})
	require.NoError(t, err)
	assert.Equal(t, "localhost", cert.Leaf.Subject.CommonName)
}

func TestCertificateStoreRequiresKeyPair(t *testing.T) {
	_, err := NewCertificateStore(config.TLSConfig{CertFile: "only-cert.pem"}, testLogger)
	assert.Error(t, err)

	_, err = NewCertificateStore(config.TLSConfig{CertContent: "garbage", KeyContent: "garbage"}, testLogger)
	assert.Error(t, err)
}

func TestCertificateStoreReload(t *testing.T) {
	dir := t.TempDir()
	first := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	certFile, keyFile := writePair(t, dir, first)

	cs, err := NewCertificateStore(config.TLSConfig{CertFile: certFile, KeyFile: keyFile}, testLogger)
	require.NoError(t, err)

	var reported []time.Time
	var failures int
	cs.onReload = func(notAfter time.Time, err error) {
		if err != nil {
			failures++
			return
		}
		reported = append(reported, notAfter)
	}

	second := time.Date(2031, 6, 1, 0, 0, 0, 0, time.UTC)
	writePair(t, dir, second)
	require.NoError(t, cs.Reload())

	got, err := cs.NotAfter()
	require.NoError(t, err)
	assert.True(t, got.Equal(second))
	assert.Equal(t, 1, cs.Reloads())

	require.NoError(t, os.WriteFile(keyFile, []byte("truncated"), 0600))
	assert.Error(t, cs.Reload())

	got, err = cs.NotAfter()
	require.NoError(t, err)
	assert.True(t, got.Equal(second), "failed reload keeps serving the previous certificate")
	assert.Equal(t, 1, cs.Reloads())
	assert.Len(t, reported, 1)
	assert.Equal(t, 1, failures)
}

func TestCertificateStoreWatch(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writePair(t, dir, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))

	cs, err := NewCertificateStore(config.TLSConfig{CertFile: certFile, KeyFile: keyFile}, testLogger)
	require.NoError(t, err)
	require.NoError(t, cs.Watch(20*time.Millisecond))
	t.Cleanup(func() { _ = cs.Stop() })

	assert.True(t, cs.watcher.IsRunning())
	assert.ElementsMatch(t, []string{certFile, keyFile}, cs.watcher.WatchedFiles())

	renewed := time.Date(2032, 3, 1, 0, 0, 0, 0, time.UTC)
	writePair(t, dir, renewed)

	assert.Eventually(t, func() bool {
		got, err := cs.NotAfter()
		return err == nil && got.Equal(renewed)
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, cs.Stop())
	assert.False(t, cs.watcher.IsRunning())
}

func TestWatchNeedsFiles(t *testing.T) {
	certPEM, keyPEM := selfSigned(t, time.Now().Add(time.Hour))
	cs, err := NewCertificateStore(config.TLSConfig{CertContent: string(certPEM), KeyContent: string(keyPEM)}, testLogger)
	require.NoError(t, err)
	assert.Error(t, cs.Watch(time.Second))
	assert.NoError(t, cs.Stop())
}

func TestCheckCertificateHealth(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		notAfter time.Time
		status   string
		healthy  bool
	}{
		{"ok", now.Add(60 * 24 * time.Hour), "ok", true},
		{"warning", now.Add(3 * 24 * time.Hour), "warning", true},
		{"critical", now.Add(2 * time.Hour), "critical", false},
		{"expired", now.Add(-time.Hour), "expired", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			certPEM, keyPEM := selfSigned(t, tt.notAfter)
			cs, err := NewCertificateStore(config.TLSConfig{CertContent: string(certPEM), KeyContent: string(keyPEM)}, testLogger)
			require.NoError(t, err)

			s := &Server{Certificates: cs, Logger: testLogger, now: func() time.Time { return now }}
			status := s.checkCertificateHealth()
			assert.Equal(t, tt.status, status["status"])
			assert.Equal(t, tt.healthy, status["healthy"])
		})
	}
}

func TestHealthDegradesWithExpiringCertificate(t *testing.T) {
	ts := newTestServer(t, ServerConfig{}, Dependencies{})
	certPEM, keyPEM := selfSigned(t, ts.now().Add(time.Hour))
	cs, err := NewCertificateStore(config.TLSConfig{CertContent: string(certPEM), KeyContent: string(keyPEM)}, testLogger)
	require.NoError(t, err)
	ts.Certificates = cs

	rec := ts.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", decode[map[string]any](t, rec)["status"])
}

func TestBuildTLSConfig(t *testing.T) {
	certPEM, keyPEM := selfSigned(t, time.Now().Add(time.Hour))
	tlsCfg := config.TLSConfig{
		Mode:        "mutual",
		CertContent: string(certPEM),
		KeyContent:  string(keyPEM),
		CAContent:   string(certPEM),
		MinVersion:  "1.3",
	}
	cs, err := NewCertificateStore(tlsCfg, testLogger)
	require.NoError(t, err)

	s := &Server{TLSConfig: tlsCfg, Certificates: cs, Logger: testLogger}
	got, err := s.buildTLSConfig()
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS13), got.MinVersion)
	assert.Equal(t, tls.RequireAndVerifyClientCert, got.ClientAuth)
	assert.NotNil(t, got.ClientCAs)

	s.TLSConfig.ClientAuthPolicy = "verify"
	got, err = s.buildTLSConfig()
	require.NoError(t, err)
	assert.Equal(t, tls.VerifyClientCertIfGiven, got.ClientAuth)

	s.TLSConfig.CAContent = ""
	_, err = s.buildTLSConfig()
	assert.Error(t, err)

	s.TLSConfig = config.TLSConfig{Mode: "server"}
	got, err = s.buildTLSConfig()
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS12), got.MinVersion)
	assert.Equal(t, tls.NoClientCert, got.ClientAuth)
}

func TestConfigureTLSRejectsUnknownMode(t *testing.T) {
	s := &Server{TLSConfig: config.TLSConfig{Mode: "optional"}, Logger: testLogger}
	err := s.configureTLS(&http.Server{Addr: "localhost:0"}, nil)
	assert.ErrorContains(t, err, "invalid TLS mode")
}
