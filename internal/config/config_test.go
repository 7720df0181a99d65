package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultConfig(t *testing.T) *Config {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	cfg, err := unmarshal(v)
	require.NoError(t, err)
	return cfg
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := defaultConfig(t)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "rules", cfg.Analyzer.Provider)
	assert.Equal(t, 60*time.Minute, cfg.Resumes.URLTTL)
	assert.True(t, cfg.App.SeedSampleData)
	assert.NotEmpty(t, cfg.Observability.ServiceInstance)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *Config)
		errorMsg string
	}{
		{
			name:     "unknown storage driver",
			mutate:   func(c *Config) { c.Storage.Driver = "sqlite" },
			errorMsg: "invalid storage driver: sqlite",
		},
		{
			name:     "postgres without host",
			mutate:   func(c *Config) { c.Storage.Driver = "postgres" },
			errorMsg: "postgres storage requires host and database",
		},
		{
			name:     "gemini without key",
			mutate:   func(c *Config) { c.Analyzer.Provider = "gemini" },
			errorMsg: "gemini analyzer requires an API key",
		},
		{
			name:     "token verification without project",
			mutate:   func(c *Config) { c.Auth.VerifyTokens = true },
			errorMsg: "auth.verifyTokens requires auth.projectId",
		},
		{
			name:     "bad default format",
			mutate:   func(c *Config) { c.App.DefaultFormat = "xml" },
			errorMsg: "invalid default format: xml",
		},
		{
			name:     "zero url ttl",
			mutate:   func(c *Config) { c.Resumes.URLTTL = 0 },
			errorMsg: "resumes.urlTTL must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestValidateGeminiKeyFromVault(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Analyzer.Provider = "gemini"
	cfg.Vault.Enabled = true
	cfg.Vault.Secrets.AnalyzerKey = "secret/data/gemini"
	assert.NoError(t, cfg.Validate())
}

func TestDatabaseEnvFallbacks(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_NAME", "scans")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("SNAPSCREEN_STORAGE_POSTGRES_DATABASE", "explicit")

	cfg := &Config{}
	cfg.Storage.Postgres.Database = "explicit"
	cfg.applyDatabaseEnvFallbacks()

	assert.Equal(t, "db.internal", cfg.Storage.Postgres.Host)
	assert.Equal(t, "secret", cfg.Storage.Postgres.Password)
	assert.Equal(t, "explicit", cfg.Storage.Postgres.Database)
}

func TestPostgresDSN(t *testing.T) {
	pg := PostgresConfig{Host: "h", Port: "5432", User: "u", Database: "d", SSLMode: "disable"}
	assert.Equal(t, "host=h port=5432 user=u dbname=d sslmode=disable", pg.DSN())

	pg.Password = "p"
	assert.Contains(t, pg.DSN(), "password=p")
}

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitAndTrim(" a ,, b ,"))
	assert.Empty(t, splitAndTrim(""))
}
