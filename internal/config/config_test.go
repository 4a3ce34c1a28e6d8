package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		StoreDriver:    "memory",
		DenylistDriver: "memory",
		QueueDriver:    "inline",
		MailerDriver:   "log",
		Auth: AuthConfig{
			JWTSecret:      "secret",
			TokenTTL:       24 * time.Hour,
			ResetWindow:    2 * time.Hour,
			BcryptCost:     4,
			FrontendURL:    "http://localhost:3000",
			TokenTransport: TransportBody,
		},
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TOKEN_TTL", "")
	t.Setenv("RESET_TOKEN_WINDOW", "")
	t.Setenv("TOKEN_TRANSPORT", "")
	t.Setenv("FRONTEND_URL", "")

	cfg := Load()

	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 2*time.Hour, cfg.Auth.ResetWindow)
	assert.Equal(t, TransportBody, cfg.Auth.TokenTransport)
	assert.Equal(t, "http://localhost:3000", cfg.Auth.FrontendURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TOKEN_TTL", "1h")
	t.Setenv("TOKEN_TRANSPORT", "Header")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("AUTO_MIGRATE", "yes")
	t.Setenv("SMTP_PORT", "-1")

	cfg := Load()

	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, TransportHeader, cfg.Auth.TokenTransport)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, 587, cfg.Email.Port)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("TOKEN_TTL", "forever")
	t.Setenv("BCRYPT_COST", "high")

	cfg := Load()

	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
}

func TestValidateAcceptsMinimalConfig(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidateReportsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.JWTSecret = " "
	cfg.Auth.TokenTransport = "cookie"
	cfg.QueueDriver = "sqs"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
	assert.Contains(t, err.Error(), `TOKEN_TRANSPORT "cookie"`)
	assert.Contains(t, err.Error(), `QUEUE_DRIVER "sqs"`)
}

func TestValidateMySQLRequirements(t *testing.T) {
	cfg := validConfig()
	cfg.StoreDriver = "mysql"
	cfg.DBHost, cfg.DBPort = "127.0.0.1", "3306"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_USER is required")
	assert.Contains(t, err.Error(), "DB_NAME is required")

	cfg = validConfig()
	cfg.DenylistDriver = "mysql"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DENYLIST_DRIVER=mysql requires STORE_DRIVER=mysql")
}

func TestValidateSMTPSettings(t *testing.T) {
	cfg := validConfig()
	cfg.MailerDriver = "smtp"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP_HOST")

	cfg.Email = EmailConfig{Host: "smtp.example.com", Port: 587, FromAddress: "no-reply@example.com"}
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsRelativeFrontendURL(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.FrontendURL = "/reset"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FRONTEND_URL")
}
