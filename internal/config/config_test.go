package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProductionConfig() *Config {
	return &Config{
		Env:                "production",
		DBSSLMode:          "require",
		JWTSecret:          "secure-secret-at-least-32-chars-long",
		DBPassword:         "secure-password",
		Port:               "8080",
		PublicBaseURL:      "https://fieldcase.example",
		DBMaxOpenConns:     10,
		DBMaxIdleConns:     2,
		TracingSampleRatio: 1,
	}
}

func TestConfig_ValidateProduction(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{"Valid", func(*Config) {}, false},
		{"Empty SSL mode", func(c *Config) { c.DBSSLMode = "" }, true},
		{"Disabled SSL mode", func(c *Config) { c.DBSSLMode = "disable" }, true},
		{"Default JWT secret", func(c *Config) { c.JWTSecret = defaultJWTSecret }, true},
		{"Short JWT secret", func(c *Config) { c.JWTSecret = "short" }, true},
		{"Weak DB password", func(c *Config) { c.DBPassword = "password" }, true},
		{"Plain http base URL", func(c *Config) { c.PublicBaseURL = "http://fieldcase.example" }, true},
		{"Idle exceeds open", func(c *Config) { c.DBMaxIdleConns = 20 }, true},
		{"Sample ratio out of range", func(c *Config) { c.TracingSampleRatio = 1.5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validProductionConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateDevelopmentIsLenient(t *testing.T) {
	c := &Config{Env: "development", Port: "8375", JWTSecret: "dev", DBSSLMode: "disable"}
	assert.NoError(t, c.Validate())
}

func TestConfig_InvitationTTL(t *testing.T) {
	assert.Equal(t, 7*24*time.Hour, (&Config{}).InvitationTTL())
	assert.Equal(t, 48*time.Hour, (&Config{InvitationTTLHours: 48}).InvitationTTL())
}

func TestLoadConfig_Normalization(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	t.Setenv("PUBLIC_BASE_URL", "http://localhost:5173/")
	t.Setenv("INVITATION_TTL_HOURS", "24")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "http://localhost:5173", c.PublicBaseURL)
	assert.Equal(t, 24*time.Hour, c.InvitationTTL())
	assert.Equal(t, "hybrid", c.DBSchemaMode)
}
