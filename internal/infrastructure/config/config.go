// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml), with ${VAR} references expanded
//  2. Environment variables (fallback), including a local .env file
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	creds := cfg.SPAPI.Credentials()
//	out := cfg.Output.Dir
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/eshaffer321/buybox-analyzer/internal/adapters/spapi"
)

// Environment variable names
const (
	EnvRefreshToken  = "SP_API_REFRESH_TOKEN"
	EnvClientID      = "SP_API_CLIENT_ID"
	EnvClientSecret  = "SP_API_CLIENT_SECRET"
	EnvMarketplaceID = "SP_API_MARKETPLACE_ID"
	EnvOutputPath    = "OUTPUT_PATH"
)

// DefaultOutputDir is used when neither config nor OUTPUT_PATH names one
const DefaultOutputDir = "./output"

// Config represents the entire application configuration
type Config struct {
	SPAPI         SPAPIConfig         `yaml:"sp_api"`
	RateLimits    RateLimitsConfig    `yaml:"rate_limits"`
	Retry         RetryConfig         `yaml:"retry"`
	Output        OutputConfig        `yaml:"output"`
	Storage       StorageConfig       `yaml:"storage"`
	Server        ServerConfig        `yaml:"server"`
	Observability ObservabilityConfig `yaml:"observability"`
	CacheTitles   bool                `yaml:"cache_titles"`
}

// SPAPIConfig holds Selling Partner API credentials and endpoints
type SPAPIConfig struct {
	RefreshToken  string `yaml:"refresh_token"`
	ClientID      string `yaml:"client_id"`
	ClientSecret  string `yaml:"client_secret"`
	MarketplaceID string `yaml:"marketplace_id"`
	Endpoint      string `yaml:"endpoint"`
	TokenURL      string `yaml:"token_url"`
}

// Credentials returns the LWA secrets
func (c SPAPIConfig) Credentials() spapi.Credentials {
	return spapi.Credentials{
		RefreshToken: c.RefreshToken,
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
	}
}

// RateLimitsConfig holds per-endpoint token bucket settings
type RateLimitsConfig struct {
	Offers  EndpointLimit `yaml:"offers"`
	Catalog EndpointLimit `yaml:"catalog"`
}

// EndpointLimit is a token bucket's refill rate and capacity
type EndpointLimit struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// RetryConfig holds per-endpoint retry settings
type RetryConfig struct {
	Offers  BackoffConfig `yaml:"offers"`
	Catalog BackoffConfig `yaml:"catalog"`
}

// BackoffConfig mirrors spapi.RetryPolicy
type BackoffConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Multiplier  time.Duration `yaml:"multiplier"`
	MinWait     time.Duration `yaml:"min_wait"`
	MaxWait     time.Duration `yaml:"max_wait"`
}

// Policy converts the settings into a retry policy
func (b BackoffConfig) Policy() spapi.RetryPolicy {
	return spapi.RetryPolicy{
		MaxAttempts: b.MaxAttempts,
		Multiplier:  b.Multiplier,
		MinWait:     b.MinWait,
		MaxWait:     b.MaxWait,
	}
}

// OutputConfig holds export settings
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// .env values take part in ${VAR} expansion
	_ = godotenv.Load()

	// Expand environment variables (e.g., ${SP_API_REFRESH_TOKEN})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
// A .env file in the working directory is loaded first; variables already
// set in the environment win.
func LoadFromEnv() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		SPAPI: SPAPIConfig{
			RefreshToken:  os.Getenv(EnvRefreshToken),
			ClientID:      os.Getenv(EnvClientID),
			ClientSecret:  os.Getenv(EnvClientSecret),
			MarketplaceID: getEnv(EnvMarketplaceID, spapi.DefaultMarketplaceID),
			Endpoint:      getEnv("SP_API_ENDPOINT", spapi.DefaultEndpoint),
			TokenURL:      getEnv("SP_API_TOKEN_URL", spapi.DefaultTokenURL),
		},
		RateLimits: RateLimitsConfig{
			Offers: EndpointLimit{
				RequestsPerSecond: getEnvFloat("OFFERS_RATE_LIMIT", 0.5),
				Burst:             getEnvInt("OFFERS_BURST", 1),
			},
			Catalog: EndpointLimit{
				RequestsPerSecond: getEnvFloat("CATALOG_RATE_LIMIT", 2),
				Burst:             getEnvInt("CATALOG_BURST", 2),
			},
		},
		Output: OutputConfig{
			Dir: getEnv(EnvOutputPath, DefaultOutputDir),
		},
		Storage: StorageConfig{
			DatabasePath: getEnv("BUYBOX_DB_PATH", "buybox.db"),
		},
		Server: ServerConfig{
			Port: getEnvInt("PORT", 8080),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "text"),
			},
		},
		CacheTitles: getEnv("CACHE_TITLES", "true") == "true",
	}

	cfg.applyDefaults()
	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from specified path, falls back to environment variables
func LoadOrEnvWithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// applyDefaults fills every unset field
func (c *Config) applyDefaults() {
	if c.SPAPI.MarketplaceID == "" {
		c.SPAPI.MarketplaceID = spapi.DefaultMarketplaceID
	}
	if c.SPAPI.Endpoint == "" {
		c.SPAPI.Endpoint = spapi.DefaultEndpoint
	}
	if c.SPAPI.TokenURL == "" {
		c.SPAPI.TokenURL = spapi.DefaultTokenURL
	}

	if c.RateLimits.Offers.RequestsPerSecond <= 0 {
		c.RateLimits.Offers.RequestsPerSecond = 0.5
	}
	if c.RateLimits.Offers.Burst <= 0 {
		c.RateLimits.Offers.Burst = 1
	}
	if c.RateLimits.Catalog.RequestsPerSecond <= 0 {
		c.RateLimits.Catalog.RequestsPerSecond = 2
	}
	if c.RateLimits.Catalog.Burst <= 0 {
		c.RateLimits.Catalog.Burst = 2
	}

	c.Retry.Offers.fill(spapi.OffersRetryPolicy())
	c.Retry.Catalog.fill(spapi.CatalogRetryPolicy())

	if c.Output.Dir == "" {
		c.Output.Dir = DefaultOutputDir
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "buybox.db"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = "text"
	}
}

func (b *BackoffConfig) fill(def spapi.RetryPolicy) {
	if b.MaxAttempts <= 0 {
		b.MaxAttempts = def.MaxAttempts
	}
	if b.Multiplier <= 0 {
		b.Multiplier = def.Multiplier
	}
	if b.MinWait <= 0 {
		b.MinWait = def.MinWait
	}
	if b.MaxWait <= 0 {
		b.MaxWait = def.MaxWait
	}
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}

// getEnvFloat retrieves a float environment variable with a fallback default
func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if result, err := strconv.ParseFloat(val, 64); err == nil {
			return result
		}
	}
	return fallback
}
