package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// maxPromptFileSize caps analyzer prompt files.
const maxPromptFileSize = 64 * 1024

// applyFallbacks applies environment variable fallbacks
func (c *Config) applyFallbacks() {
	c.applyServerAPIKeyFallbacks()
	c.applyLegacyEnvFallbacks()
	c.applyDatabaseEnvFallbacks()
	c.applyTLSDefaults()
	c.applyObservabilityDefaults()
}

// applyServerAPIKeyFallbacks parses a comma separated key list, since viper
// does not split env values into slices.
func (c *Config) applyServerAPIKeyFallbacks() {
	if len(c.Server.APIKeys) == 0 {
		if apiKeysEnv := os.Getenv("SNAPSCREEN_SERVER_APIKEYS"); apiKeysEnv != "" {
			c.Server.APIKeys = splitAndTrim(apiKeysEnv)
		}
	}
}

// applyLegacyEnvFallbacks honors the variable names the web client used.
func (c *Config) applyLegacyEnvFallbacks() {
	if c.Analyzer.APIKey == "" {
		c.Analyzer.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.Auth.APIKey == "" {
		c.Auth.APIKey = firstEnv("FIREBASE_API_KEY", "NEXT_PUBLIC_FIREBASE_API_KEY")
	}
	if c.Auth.ProjectID == "" {
		c.Auth.ProjectID = firstEnv("FIREBASE_PROJECT_ID", "NEXT_PUBLIC_FIREBASE_PROJECT_ID")
	}
}

// applyDatabaseEnvFallbacks reads the plain DB_* variables a database .env file
// usually carries. The prefixed SNAPSCREEN_STORAGE_POSTGRES_* variable wins when both are set.
func (c *Config) applyDatabaseEnvFallbacks() {
	pg := &c.Storage.Postgres
	apply := func(target *string, env, prefixed string) {
		if os.Getenv("SNAPSCREEN_STORAGE_POSTGRES_"+prefixed) != "" {
			return
		}
		if value := os.Getenv(env); value != "" {
			*target = value
		}
	}
	apply(&pg.Host, "DB_HOST", "HOST")
	apply(&pg.Port, "DB_PORT", "PORT")
	apply(&pg.User, "DB_USER", "USER")
	apply(&pg.Password, "DB_PASSWORD", "PASSWORD")
	apply(&pg.Database, "DB_NAME", "DATABASE")
}

// applyTLSDefaults applies default TLS configuration values
func (c *Config) applyTLSDefaults() {
	if c.Server.TLS.Mode == "mutual" && c.Server.TLS.ClientAuthPolicy == "" {
		c.Server.TLS.ClientAuthPolicy = "require"
	}
	if c.Server.TLS.MinVersion == "" && c.Server.TLS.Mode != "disabled" {
		c.Server.TLS.MinVersion = "1.2"
	}
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
	if c.App.LogLevel == "debug" && !c.Observability.ConsoleOutput {
		c.Observability.ConsoleOutput = true
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// loadSystemPromptFile replaces analyzer.systemPrompt with the content of
// analyzer.systemPromptFile when one is configured.
func (c *Config) loadSystemPromptFile() error {
	path := c.Analyzer.SystemPromptFile
	if path == "" {
		return nil
	}
	if c.Analyzer.SystemPrompt != "" {
		return fmt.Errorf("cannot specify both analyzer.systemPrompt and analyzer.systemPromptFile")
	}

	clean := filepath.Clean(path)
	info, err := os.Stat(clean)
	if err != nil {
		return fmt.Errorf("prompt file %s: %w", clean, err)
	}
	if info.IsDir() {
		return fmt.Errorf("prompt file %s is a directory", clean)
	}
	if info.Size() > maxPromptFileSize {
		return fmt.Errorf("prompt file %s is too large (%d bytes, limit %d)", clean, info.Size(), maxPromptFileSize)
	}

	content, err := os.ReadFile(clean)
	if err != nil {
		return fmt.Errorf("failed to read prompt file %s: %w", clean, err)
	}
	prompt := strings.TrimSpace(string(content))
	if prompt == "" {
		return fmt.Errorf("prompt file %s is empty", clean)
	}

	c.Analyzer.SystemPrompt = prompt
	log.Printf("[CONFIG] Loaded analyzer system prompt from %s", clean)
	return nil
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		"SNAPSCREEN_ANALYZER_PROVIDER",
		"SNAPSCREEN_ANALYZER_APIKEY",
		"SNAPSCREEN_AUTH_APIKEY",
		"SNAPSCREEN_STORAGE_DRIVER",
		"SNAPSCREEN_SERVER_PORT",
		"SNAPSCREEN_SERVER_HOST",
		"SNAPSCREEN_APP_LOGLEVEL",
		"SNAPSCREEN_VAULT_ENABLED",
		"GEMINI_API_KEY",
		"FIREBASE_API_KEY",
		"DB_HOST",
		"DB_PASSWORD",
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			if isSensitive(envVar) {
				log.Printf("[CONFIG]   %s=***MASKED***", envVar)
			} else {
				log.Printf("[CONFIG]   %s=%s", envVar, value)
			}
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] Analyzer Provider: %s", c.Analyzer.Provider)
	if c.Analyzer.Provider == "gemini" {
		log.Printf("[CONFIG] Analyzer Model: %s", c.Analyzer.Model)
	}
	log.Printf("[CONFIG] Analyzer API Key: %s", configuredLabel(c.Analyzer.APIKey))
	log.Printf("[CONFIG] Auth API Key: %s", configuredLabel(c.Auth.APIKey))
	log.Printf("[CONFIG] Storage Driver: %s", c.Storage.Driver)
	log.Printf("[CONFIG] Cache Enabled: %t", c.Storage.Cache.Enabled)
	log.Printf("[CONFIG] Server Host: %s", c.Server.Host)
	log.Printf("[CONFIG] Server Port: %s", c.Server.Port)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] TLS Mode: %s", c.Server.TLS.Mode)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)
	log.Println("[CONFIG] =====================================")
}

func isSensitive(envVar string) bool {
	lower := strings.ToLower(envVar)
	return strings.Contains(lower, "key") || strings.Contains(lower, "password")
}

func configuredLabel(secret string) string {
	if secret != "" {
		return "***CONFIGURED***"
	}
	return "***NOT SET***"
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if value := os.Getenv(name); value != "" {
			return value
		}
	}
	return ""
}

func splitAndTrim(list string) []string {
	parts := strings.Split(list, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
