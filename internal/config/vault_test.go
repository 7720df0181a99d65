package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"snapscreen/internal/errors"

	"github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *errors.Logger {
	logger, _ := errors.New("error")
	return logger
}

// fakeVault serves secrets from memory, keyed by path
type fakeVault struct {
	secrets map[string]map[string]any
}

func (f *fakeVault) GetSecretV2(path string) (*VaultSecret, error) {
	data, ok := f.secrets[path]
	if !ok {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}
	return &VaultSecret{Data: data, Version: 1}, nil
}

func (f *fakeVault) GetStringSecret(path, key string) (string, error) {
	secret, err := f.GetSecretV2(path)
	if err != nil {
		return "", err
	}
	return stringField(secret, path, key)
}

func (f *fakeVault) GetStringSliceSecret(path, key string) ([]string, error) {
	value, err := f.GetStringSecret(path, key)
	if err != nil {
		return nil, err
	}
	return splitAndTrim(value), nil
}

func TestParseVersionValue(t *testing.T) {
	tests := []struct {
		name        string
		input       any
		expected    int64
		expectError bool
	}{
		{name: "int64 value", input: int64(42), expected: 42},
		{name: "float64 value", input: float64(42.0), expected: 42},
		{name: "string value", input: "42", expected: 42},
		{name: "invalid string value", input: "not-a-number", expectError: true},
		{name: "unsupported type", input: []string{"42"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseVersionValue(tt.input, "secret/data/test")
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestDecodeKVv2(t *testing.T) {
	ok := &api.Secret{Data: map[string]any{
		"data":     map[string]any{"api_key": "abc"},
		"metadata": map[string]any{"version": float64(3)},
	}}
	secret, err := decodeKVv2(ok, "secret/data/x")
	require.NoError(t, err)
	assert.Equal(t, int64(3), secret.Version)
	assert.Equal(t, "abc", secret.Data["api_key"])

	_, err = decodeKVv2(&api.Secret{Data: map[string]any{"api_key": "abc"}}, "secret/x")
	assert.ErrorContains(t, err, "missing 'data' field")

	_, err = decodeKVv2(&api.Secret{Data: map[string]any{"data": map[string]any{}}}, "secret/x")
	assert.ErrorContains(t, err, "missing 'metadata' field")
}

func TestResolveVaultToken(t *testing.T) {
	t.Run("token from config", func(t *testing.T) {
		token, err := resolveVaultToken(VaultConfig{Token: "direct-token"})
		require.NoError(t, err)
		assert.Equal(t, "direct-token", token)
	})

	t.Run("token from file is trimmed", func(t *testing.T) {
		tokenFile := filepath.Join(t.TempDir(), "vault-token")
		require.NoError(t, os.WriteFile(tokenFile, []byte("  file-token  \n"), 0600))

		token, err := resolveVaultToken(VaultConfig{TokenFile: tokenFile})
		require.NoError(t, err)
		assert.Equal(t, "file-token", token)
	})

	t.Run("missing token file", func(t *testing.T) {
		_, err := resolveVaultToken(VaultConfig{TokenFile: "/nonexistent/token"})
		assert.ErrorContains(t, err, "failed to read vault token file")
	})

	t.Run("no token", func(t *testing.T) {
		_, err := resolveVaultToken(VaultConfig{})
		assert.ErrorContains(t, err, "vault token is required")
	})
}

func TestApplySecrets(t *testing.T) {
	vault := &fakeVault{secrets: map[string]map[string]any{
		"secret/data/api":      {"keys": "k1, k2 ,"},
		"secret/data/gemini":   {"api_key": "gem-key"},
		"secret/data/firebase": {"api_key": "fb-key"},
		"secret/data/db":       {"password": "pg-pass"},
		"secret/data/sign":     {"key": ""},
		"secret/data/tls":      {"cert": "CERT", "key": "KEY"},
	}}

	cfg := &Config{}
	cfg.Resumes.SigningKey = "keep-me"
	cfg.Vault.Secrets = VaultSecrets{
		APIKeys:     "secret/data/api",
		AnalyzerKey: "secret/data/gemini",
		AuthKey:     "secret/data/firebase",
		Database:    "secret/data/db",
		SigningKey:  "secret/data/sign",
		TLSCerts:    "secret/data/tls",
	}

	require.NoError(t, applySecrets(vault, cfg, newTestLogger()))

	assert.Equal(t, []string{"k1", "k2"}, cfg.Server.APIKeys)
	assert.Equal(t, "gem-key", cfg.Analyzer.APIKey)
	assert.Equal(t, "fb-key", cfg.Auth.APIKey)
	assert.Equal(t, "pg-pass", cfg.Storage.Postgres.Password)
	assert.Equal(t, "keep-me", cfg.Resumes.SigningKey, "empty secrets must not clear configured values")
	assert.Equal(t, "CERT", cfg.Server.TLS.CertContent)
	assert.Equal(t, "KEY", cfg.Server.TLS.KeyContent)
	assert.Empty(t, cfg.Server.TLS.CAContent)
}

func TestApplySecretsMissingPath(t *testing.T) {
	cfg := &Config{}
	cfg.Vault.Secrets.AuthKey = "secret/data/none"

	err := applySecrets(&fakeVault{}, cfg, nil)
	assert.ErrorContains(t, err, "failed to load auth API key from vault")
}

func TestApplyVaultSecretsDisabled(t *testing.T) {
	cfg := &Config{}
	assert.NoError(t, ApplyVaultSecrets(cfg, newTestLogger()))
}
