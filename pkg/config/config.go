package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aspect-console/aspect/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Endpoints EndpointConfig
	CORS      CORSConfig

	// Logging
	LogLevel observability.LogLevel

	// PermissionCacheTTL enables the per-email permission snapshot cache
	// when positive. Zero disables caching (every request re-reads roles).
	PermissionCacheTTL time.Duration
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for probes and scrapes)
	HealthPort string
}

// DatabaseConfig holds SQLite configuration
type DatabaseConfig struct {
	// File is the SQLite database file path, or ":memory:"
	File string
}

// AuthConfig holds bearer-token verification configuration
type AuthConfig struct {
	// IssuerBaseURL is the OIDC issuer; discovery runs against it when the
	// signing algorithm is RS256.
	IssuerBaseURL string
	Audience      string
	// SigningAlgorithm is RS256 (OIDC discovery) or HS256 (local secret)
	SigningAlgorithm string
	// HS256Secret is only consulted when SigningAlgorithm is HS256
	HS256Secret string
}

// EndpointConfig holds the per-resource route prefixes. Every prefix is
// required at boot; a deployment that forgets one fails before serving.
type EndpointConfig struct {
	Navigation      string
	UserPermissions string
	Users           string
	Roles           string
	Permissions     string
	Modules         string
	Categories      string
	Pages           string
	// GenericAPI prefixes the model-agnostic passthrough CRUD routes
	GenericAPI string
}

// CORSConfig holds allowed-origin configuration
type CORSConfig struct {
	Origin string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("ASPECT_HOST", "0.0.0.0"),
			Port:            getEnv("ASPECT_PORT", "8080"),
			ReadTimeout:     getEnvDuration("ASPECT_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("ASPECT_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("ASPECT_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("ASPECT_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("ASPECT_HEALTH_PORT", "9090"),
		},
		Database: DatabaseConfig{
			File: getEnv("ASPECT_DATABASE", ""),
		},
		Auth: AuthConfig{
			IssuerBaseURL:    getEnv("ASPECT_AUTH_ISSUER_BASE_URL", ""),
			Audience:         getEnv("ASPECT_AUTH_AUDIENCE", ""),
			SigningAlgorithm: getEnv("ASPECT_AUTH_TOKEN_SIGNING_ALGORITHM", ""),
			HS256Secret:      getEnv("ASPECT_AUTH_HS256_SECRET", ""),
		},
		Endpoints: EndpointConfig{
			Navigation:      getEnv("ASPECT_ENDPOINT_NAVIGATION", ""),
			UserPermissions: getEnv("ASPECT_ENDPOINT_USERPERMISSIONS", ""),
			Users:           getEnv("ASPECT_ENDPOINT_USERS", ""),
			Roles:           getEnv("ASPECT_ENDPOINT_ROLES", ""),
			Permissions:     getEnv("ASPECT_ENDPOINT_PERMISSIONS", ""),
			Modules:         getEnv("ASPECT_ENDPOINT_MODULES", ""),
			Categories:      getEnv("ASPECT_ENDPOINT_CATEGORIES", ""),
			Pages:           getEnv("ASPECT_ENDPOINT_PAGES", ""),
			GenericAPI:      getEnv("ASPECT_ENDPOINT_API", "/api"),
		},
		CORS: CORSConfig{
			Origin: getEnv("ASPECT_CORS_URL", ""),
		},
		LogLevel:           observability.ParseLogLevel(getEnv("ASPECT_LOG_LEVEL", "info")),
		PermissionCacheTTL: getEnvDuration("ASPECT_PERMISSION_CACHE_TTL", 0),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration is present. It is called
// at boot so that a broken deployment fails before the first request.
func (c *Config) Validate() error {
	var missing []string

	require := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}

	require("ASPECT_DATABASE", c.Database.File)
	require("ASPECT_CORS_URL", c.CORS.Origin)
	require("ASPECT_AUTH_ISSUER_BASE_URL", c.Auth.IssuerBaseURL)
	require("ASPECT_AUTH_AUDIENCE", c.Auth.Audience)
	require("ASPECT_AUTH_TOKEN_SIGNING_ALGORITHM", c.Auth.SigningAlgorithm)
	require("ASPECT_ENDPOINT_NAVIGATION", c.Endpoints.Navigation)
	require("ASPECT_ENDPOINT_USERPERMISSIONS", c.Endpoints.UserPermissions)
	require("ASPECT_ENDPOINT_USERS", c.Endpoints.Users)
	require("ASPECT_ENDPOINT_ROLES", c.Endpoints.Roles)
	require("ASPECT_ENDPOINT_PERMISSIONS", c.Endpoints.Permissions)
	require("ASPECT_ENDPOINT_MODULES", c.Endpoints.Modules)
	require("ASPECT_ENDPOINT_CATEGORIES", c.Endpoints.Categories)
	require("ASPECT_ENDPOINT_PAGES", c.Endpoints.Pages)

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	switch c.Auth.SigningAlgorithm {
	case "RS256":
		// issuer discovery covers keys
	case "HS256":
		if strings.TrimSpace(c.Auth.HS256Secret) == "" {
			return fmt.Errorf("ASPECT_AUTH_HS256_SECRET is required when the signing algorithm is HS256")
		}
	default:
		return fmt.Errorf("unsupported signing algorithm %q (want RS256 or HS256)", c.Auth.SigningAlgorithm)
	}

	for _, prefix := range c.EndpointPrefixes() {
		if !strings.HasPrefix(prefix, "/") {
			return fmt.Errorf("endpoint prefix %q must start with /", prefix)
		}
	}

	return nil
}

// EndpointPrefixes returns every configured route prefix
func (c *Config) EndpointPrefixes() []string {
	return []string{
		c.Endpoints.Navigation,
		c.Endpoints.UserPermissions,
		c.Endpoints.Users,
		c.Endpoints.Roles,
		c.Endpoints.Permissions,
		c.Endpoints.Modules,
		c.Endpoints.Categories,
		c.Endpoints.Pages,
		c.Endpoints.GenericAPI,
	}
}

// Addr returns the API listen address
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// HealthAddr returns the health/metrics listen address
func (c *ServerConfig) HealthAddr() string {
	return c.Host + ":" + c.HealthPort
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
