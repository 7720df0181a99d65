package config

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "text")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown"})
	v.SetDefault("app.maxFileSize", 5*1024*1024) // 5MB, resumes can be PDFs
	v.SetDefault("app.seedSampleData", true)

	// Server
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 60*time.Second)
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.apiKeys", []string{})

	v.SetDefault("server.tls.mode", "disabled")
	v.SetDefault("server.tls.certFile", "")
	v.SetDefault("server.tls.keyFile", "")
	v.SetDefault("server.tls.caFile", "")
	v.SetDefault("server.tls.minVersion", "1.2")
	v.SetDefault("server.tls.clientAuthPolicy", "require")
	v.SetDefault("server.tls.autoReload.enabled", true)
	v.SetDefault("server.tls.autoReload.debounceDelay", time.Second)

	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 60)
	v.SetDefault("server.rateLimit.burstCapacity", 10)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", false)

	// Storage
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.postgres.host", "")
	v.SetDefault("storage.postgres.port", "5432")
	v.SetDefault("storage.postgres.user", "postgres")
	v.SetDefault("storage.postgres.password", "")
	v.SetDefault("storage.postgres.database", "snapscreen")
	v.SetDefault("storage.postgres.sslMode", "disable")
	v.SetDefault("storage.postgres.maxOpenConns", 10)
	v.SetDefault("storage.postgres.maxIdleConns", 5)
	v.SetDefault("storage.postgres.connMaxLifetime", 30*time.Minute)
	v.SetDefault("storage.postgres.autoMigrate", true)

	v.SetDefault("storage.cache.enabled", false)
	v.SetDefault("storage.cache.address", "localhost:6379")
	v.SetDefault("storage.cache.password", "")
	v.SetDefault("storage.cache.db", 0)
	v.SetDefault("storage.cache.ttl", 10*time.Minute)
	v.SetDefault("storage.cache.keyPrefix", "snapscreen:")

	// Analyzer
	v.SetDefault("analyzer.provider", "rules")
	v.SetDefault("analyzer.model", "gemini-2.0-flash")
	v.SetDefault("analyzer.apiKey", "")
	v.SetDefault("analyzer.timeout", 60*time.Second)
	v.SetDefault("analyzer.maxRetries", 2)
	v.SetDefault("analyzer.temperature", 0.1) // Low temperature for repeatable scoring
	v.SetDefault("analyzer.systemPrompt", "")
	v.SetDefault("analyzer.systemPromptFile", "")
	v.SetDefault("analyzer.circuitBreaker.enabled", true)
	v.SetDefault("analyzer.circuitBreaker.maxRequests", 3)
	v.SetDefault("analyzer.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("analyzer.circuitBreaker.timeout", 60*time.Second)
	v.SetDefault("analyzer.circuitBreaker.minRequests", 3)
	v.SetDefault("analyzer.circuitBreaker.failureThreshold", 0.6)

	// Auth
	v.SetDefault("auth.apiKey", "")
	v.SetDefault("auth.projectId", "")
	v.SetDefault("auth.baseURL", "https://identitytoolkit.googleapis.com/v1")
	v.SetDefault("auth.jwksURL", "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com")
	v.SetDefault("auth.timeout", 15*time.Second)
	v.SetDefault("auth.maxRetries", 2)
	v.SetDefault("auth.verifyTokens", false)
	v.SetDefault("auth.clockSkew", time.Minute)
	v.SetDefault("auth.circuitBreaker.enabled", true)
	v.SetDefault("auth.circuitBreaker.maxRequests", 3)
	v.SetDefault("auth.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("auth.circuitBreaker.timeout", 30*time.Second)
	v.SetDefault("auth.circuitBreaker.minRequests", 5)
	v.SetDefault("auth.circuitBreaker.failureThreshold", 0.8)

	// Resumes
	v.SetDefault("resumes.root", "./data")
	v.SetDefault("resumes.signingKey", "")
	v.SetDefault("resumes.urlTTL", 60*time.Minute)
	v.SetDefault("resumes.publicBaseURL", "")

	// Vault
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.apiKeys", "")
	v.SetDefault("vault.secrets.analyzerKey", "")
	v.SetDefault("vault.secrets.authKey", "")
	v.SetDefault("vault.secrets.database", "")
	v.SetDefault("vault.secrets.signingKey", "")
	v.SetDefault("vault.secrets.tlsCerts", "")

	// Observability
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "snapscreen")
	v.SetDefault("observability.serviceVersion", "")
	v.SetDefault("observability.serviceInstance", "")
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)
	v.SetDefault("observability.customMetrics.analyzerOperations.enabled", true)
	v.SetDefault("observability.customMetrics.analyzerOperations.trackDuration", true)
	v.SetDefault("observability.customMetrics.analyzerOperations.trackTokenUsage", true)
	v.SetDefault("observability.customMetrics.businessMetrics.enabled", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackRateLimits", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackCertReload", true)
	v.SetDefault("observability.console.prettyPrint", true)
	v.SetDefault("observability.prometheus.enabled", false)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})
}
