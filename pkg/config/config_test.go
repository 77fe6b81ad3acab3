package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:       "127.0.0.1",
			Port:       "8080",
			HealthPort: "9090",
		},
		Database: DatabaseConfig{File: "aspect.db"},
		Auth: AuthConfig{
			IssuerBaseURL:    "https://tenant.example.auth0.com/",
			Audience:         "https://api.example.com",
			SigningAlgorithm: "RS256",
		},
		Endpoints: EndpointConfig{
			Navigation:      "/navigation",
			UserPermissions: "/userpermissions",
			Users:           "/users",
			Roles:           "/roles",
			Permissions:     "/permissions",
			Modules:         "/modules",
			Categories:      "/categories",
			Pages:           "/pages",
			GenericAPI:      "/api",
		},
		CORS: CORSConfig{Origin: "http://localhost:5173"},
	}
}

func TestValidate_OK(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_MissingRequired(t *testing.T) {
	cfg := validConfig()
	cfg.Database.File = ""
	cfg.Auth.Audience = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ASPECT_DATABASE")
	assert.Contains(t, err.Error(), "ASPECT_AUTH_AUDIENCE")
}

func TestValidate_HS256RequiresSecret(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.SigningAlgorithm = "HS256"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ASPECT_AUTH_HS256_SECRET")

	cfg.Auth.HS256Secret = "sekrit"
	require.NoError(t, cfg.Validate())
}

func TestValidate_UnsupportedAlgorithm(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.SigningAlgorithm = "ES512"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported signing algorithm")
}

func TestValidate_PrefixesMustBeRooted(t *testing.T) {
	cfg := validConfig()
	cfg.Endpoints.Roles = "roles"

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "must start with /"))
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("ASPECT_DATABASE", ":memory:")
	t.Setenv("ASPECT_CORS_URL", "http://localhost:5173")
	t.Setenv("ASPECT_AUTH_ISSUER_BASE_URL", "https://tenant.example.auth0.com/")
	t.Setenv("ASPECT_AUTH_AUDIENCE", "https://api.example.com")
	t.Setenv("ASPECT_AUTH_TOKEN_SIGNING_ALGORITHM", "HS256")
	t.Setenv("ASPECT_AUTH_HS256_SECRET", "sekrit")
	t.Setenv("ASPECT_ENDPOINT_NAVIGATION", "/navigation")
	t.Setenv("ASPECT_ENDPOINT_USERPERMISSIONS", "/userpermissions")
	t.Setenv("ASPECT_ENDPOINT_USERS", "/users")
	t.Setenv("ASPECT_ENDPOINT_ROLES", "/roles")
	t.Setenv("ASPECT_ENDPOINT_PERMISSIONS", "/permissions")
	t.Setenv("ASPECT_ENDPOINT_MODULES", "/modules")
	t.Setenv("ASPECT_ENDPOINT_CATEGORIES", "/categories")
	t.Setenv("ASPECT_ENDPOINT_PAGES", "/pages")
	t.Setenv("ASPECT_READ_TIMEOUT", "5s")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":memory:", cfg.Database.File)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, "/api", cfg.Endpoints.GenericAPI)
	assert.Len(t, cfg.EndpointPrefixes(), 9)
}
