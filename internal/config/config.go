package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
// Secret precedence order:
// 1. Vault (if configured) - Highest priority
// 2. Config file values
// 3. Environment variables (SNAPSCREEN_ANALYZER_APIKEY, etc.)
// 4. Default values - Lowest priority
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Analyzer      AnalyzerConfig      `mapstructure:"analyzer"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Resumes       ResumesConfig       `mapstructure:"resumes"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`
	SeedSampleData   bool     `mapstructure:"seedSampleData"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`

	TLS TLSConfig `mapstructure:"tls"`

	// Valid API keys for service-to-service authentication
	APIKeys []string `mapstructure:"apiKeys"`

	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// TLSConfig holds TLS/mTLS configuration
type TLSConfig struct {
	Mode     string `mapstructure:"mode"` // disabled, server, mutual
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
	CAFile   string `mapstructure:"caFile"`

	// PEM content loaded from Vault instead of files
	CertContent string `mapstructure:"certContent"`
	KeyContent  string `mapstructure:"keyContent"`
	CAContent   string `mapstructure:"caContent"`

	MinVersion       string `mapstructure:"minVersion"`       // "1.2" or "1.3"
	ClientAuthPolicy string `mapstructure:"clientAuthPolicy"` // require, request, verify

	AutoReload AutoReloadConfig `mapstructure:"autoReload"`
}

// AutoReloadConfig controls certificate hot reload from disk
type AutoReloadConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	DebounceDelay time.Duration `mapstructure:"debounceDelay"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	RequestsPerMin int  `mapstructure:"requestsPerMin"`
	BurstCapacity  int  `mapstructure:"burstCapacity"`
	ByIP           bool `mapstructure:"byIP"`
	ByAPIKey       bool `mapstructure:"byAPIKey"`
}

// StorageConfig selects and configures the scan record store
type StorageConfig struct {
	Driver   string         `mapstructure:"driver"` // memory, postgres
	Postgres PostgresConfig `mapstructure:"postgres"`
	Cache    CacheConfig    `mapstructure:"cache"`
}

// PostgresConfig holds database connection settings
type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"sslMode"`
	MaxOpenConns    int           `mapstructure:"maxOpenConns"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"`
	AutoMigrate     bool          `mapstructure:"autoMigrate"`
}

// DSN renders the lib/pq keyword/value connection string.
func (p PostgresConfig) DSN() string {
	parts := []string{
		"host=" + p.Host,
		"port=" + p.Port,
		"user=" + p.User,
		"dbname=" + p.Database,
		"sslmode=" + p.SSLMode,
	}
	if p.Password != "" {
		parts = append(parts, "password="+p.Password)
	}
	return strings.Join(parts, " ")
}

// CacheConfig configures the Redis read-through cache in front of the store
type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Address   string        `mapstructure:"address"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	TTL       time.Duration `mapstructure:"ttl"`
	KeyPrefix string        `mapstructure:"keyPrefix"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Open to half-open delay
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// AnalyzerConfig configures the scan engine
type AnalyzerConfig struct {
	Provider         string               `mapstructure:"provider"` // rules, gemini
	Model            string               `mapstructure:"model"`
	APIKey           string               `mapstructure:"apiKey"`
	Timeout          time.Duration        `mapstructure:"timeout"`
	MaxRetries       int                  `mapstructure:"maxRetries"`
	Temperature      float32              `mapstructure:"temperature"`
	SystemPrompt     string               `mapstructure:"systemPrompt"`
	SystemPromptFile string               `mapstructure:"systemPromptFile"`
	CircuitBreaker   CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// AuthConfig configures the identity provider client and ID token verification
type AuthConfig struct {
	APIKey         string               `mapstructure:"apiKey"`
	ProjectID      string               `mapstructure:"projectId"`
	BaseURL        string               `mapstructure:"baseURL"`
	JWKSURL        string               `mapstructure:"jwksURL"`
	Timeout        time.Duration        `mapstructure:"timeout"`
	MaxRetries     int                  `mapstructure:"maxRetries"`
	VerifyTokens   bool                 `mapstructure:"verifyTokens"`
	ClockSkew      time.Duration        `mapstructure:"clockSkew"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// ResumesConfig configures resume file storage
type ResumesConfig struct {
	Root          string        `mapstructure:"root"`
	SigningKey    string        `mapstructure:"signingKey"`
	URLTTL        time.Duration `mapstructure:"urlTTL"`
	PublicBaseURL string        `mapstructure:"publicBaseURL"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool                `mapstructure:"enabled"`
	ServiceName     string              `mapstructure:"serviceName"`
	ServiceVersion  string              `mapstructure:"serviceVersion"`
	ServiceInstance string              `mapstructure:"serviceInstance"`
	ConsoleOutput   bool                `mapstructure:"consoleOutput"`
	SampleRate      float64             `mapstructure:"sampleRate"`
	Metrics         MetricsConfig       `mapstructure:"metrics"`
	CustomMetrics   CustomMetricsConfig `mapstructure:"customMetrics"`
	Console         ConsoleConfig       `mapstructure:"console"`
	Prometheus      PrometheusConfig    `mapstructure:"prometheus"`
	OTLP            OTLPConfig          `mapstructure:"otlp"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// ConsoleConfig holds console output configuration
type ConsoleConfig struct {
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// CustomMetricsConfig toggles groups of custom metrics
type CustomMetricsConfig struct {
	AnalyzerOperations AnalyzerMetricsConfig `mapstructure:"analyzerOperations"`
	BusinessMetrics    ToggleConfig          `mapstructure:"businessMetrics"`
	Infrastructure     InfrastructureConfig  `mapstructure:"infrastructure"`
}

// AnalyzerMetricsConfig holds analyzer operation metrics configuration
type AnalyzerMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackDuration   bool `mapstructure:"trackDuration"`
	TrackTokenUsage bool `mapstructure:"trackTokenUsage"`
}

// ToggleConfig is a single on/off switch
type ToggleConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// InfrastructureConfig holds infrastructure metrics configuration
type InfrastructureConfig struct {
	TrackRateLimits bool `mapstructure:"trackRateLimits"`
	TrackCertReload bool `mapstructure:"trackCertReload"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// LoadConfig loads configuration from environment variables and a config file
func LoadConfig() (*Config, error) {
	log.Println("[CONFIG] Starting configuration loading process")

	v := viper.New()
	setDefaults(v)
	log.Println("[CONFIG] Applied default configuration values")

	v.SetEnvPrefix("SNAPSCREEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	log.Println("[CONFIG] Configured environment variable handling with prefix 'SNAPSCREEN'")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/snapscreen/")
	v.AddConfigPath("$HOME/.snapscreen")
	v.AddConfigPath(".")
	log.Println("[CONFIG] Configured config file search paths: /etc/snapscreen/, $HOME/.snapscreen, .")

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		configFileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Successfully loaded config file: %s", configFileUsed)
	}

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, err
	}

	cfg.logConfigurationSources(configFileUsed)

	if err := cfg.loadSystemPromptFile(); err != nil {
		return nil, fmt.Errorf("failed to load analyzer prompt: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("[CONFIG] Configuration loading completed successfully")
	return cfg, nil
}

// unmarshal decodes a prepared viper instance and applies fallbacks.
func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.applyFallbacks()
	return &cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	validFormats := make(map[string]bool)
	for _, format := range c.App.SupportedFormats {
		validFormats[format] = true
	}
	if !validFormats[c.App.DefaultFormat] {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if c.Storage.Postgres.Host == "" || c.Storage.Postgres.Database == "" {
			return fmt.Errorf("postgres storage requires host and database (set SNAPSCREEN_STORAGE_POSTGRES_HOST or DB_HOST)")
		}
	default:
		return fmt.Errorf("invalid storage driver: %s (must be 'memory' or 'postgres')", c.Storage.Driver)
	}

	if c.Storage.Cache.Enabled && c.Storage.Cache.Address == "" {
		return fmt.Errorf("cache is enabled but storage.cache.address is empty")
	}

	switch c.Analyzer.Provider {
	case "rules":
	case "gemini":
		if c.Analyzer.APIKey == "" && !c.vaultProvides(c.Vault.Secrets.AnalyzerKey) {
			return fmt.Errorf("gemini analyzer requires an API key (set SNAPSCREEN_ANALYZER_APIKEY or GEMINI_API_KEY)")
		}
		if c.Analyzer.Timeout <= 0 {
			return fmt.Errorf("analyzer timeout must be positive")
		}
	default:
		return fmt.Errorf("invalid analyzer provider: %s (must be 'rules' or 'gemini')", c.Analyzer.Provider)
	}

	if c.Auth.VerifyTokens && c.Auth.ProjectID == "" {
		return fmt.Errorf("auth.verifyTokens requires auth.projectId")
	}

	if c.Resumes.URLTTL <= 0 {
		return fmt.Errorf("resumes.urlTTL must be positive")
	}

	if err := c.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}

	return nil
}

// vaultProvides reports whether a secret will be filled from Vault after loading.
func (c *Config) vaultProvides(path string) bool {
	return c.Vault.Enabled && path != ""
}
