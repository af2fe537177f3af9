package config

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("APP_PORT", "8080")
	t.Setenv("DB_USER", "booking")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_NAME", "event")
	t.Setenv("ADMIN_TOKEN", "door-staff-secret")
	t.Setenv("JWT_SECRET", "jwt-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg := Load()

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "3306", cfg.DBPort)
	assert.Equal(t, 7*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 5*time.Minute, cfg.OTPTTL)
	assert.Equal(t, 5, cfg.OTPMaxAttempts)
	assert.Equal(t, "inline", cfg.Notify.Transport)
	assert.Equal(t, "booking.confirmed", cfg.Notify.Queue)
	assert.Equal(t, "smtp", cfg.Mail.Provider)
	assert.Equal(t, 587, cfg.Mail.SMTPPort)
	assert.Empty(t, cfg.CORSOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("NOTIFY_TRANSPORT", "QUEUE")
	t.Setenv("AMQP_URL", "amqp://u:p@rabbit:5672/")
	t.Setenv("MAIL_PROVIDER", "SES")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("CORS_ORIGINS", "https://tickets.example.com, ,https://admin.example.com")
	t.Setenv("EMAIL_USER", "box@example.com")

	cfg := Load()

	assert.Equal(t, "queue", cfg.Notify.Transport)
	assert.Equal(t, "amqp://u:p@rabbit:5672/", cfg.Notify.AMQPURL)
	assert.Equal(t, "ses", cfg.Mail.Provider)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, []string{"https://tickets.example.com", "https://admin.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, "box@example.com", cfg.Mail.FromAddress)
	assert.Equal(t, "box@example.com", cfg.Mail.SMTPUsername)
}

func TestLoadRateLimitConfig_ScopeFallback(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "30")
	t.Setenv("RATE_LIMIT_OTP_CAPACITY", "3")
	t.Setenv("RATE_LIMIT_OTP_REFILL_INTERVAL", "20s")

	otp := LoadRateLimitConfig("otp", 5, time.Minute)
	assert.Equal(t, 3, otp.Capacity)
	assert.Equal(t, 20*time.Second, otp.RefillInterval)
	assert.Equal(t, "rl:otp", otp.Prefix)

	bookings := LoadRateLimitConfig("bookings", 60, time.Second)
	assert.Equal(t, 30, bookings.Capacity)
	assert.Equal(t, time.Second, bookings.RefillInterval)
	assert.GreaterOrEqual(t, bookings.TTL, 5*bookings.RefillInterval)
}

func TestNewRedisClient(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := NewRedisClient(RedisConfig{Addr: mr.Addr()})
	require.NotNil(t, client)
	defer client.Close()
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	assert.Nil(t, NewRedisClient(RedisConfig{Addr: addr}))
}

func TestLoadRedisConfig_HostPort(t *testing.T) {
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_DB", "2")

	cfg := loadRedisConfig()
	assert.Equal(t, "cache:6380", cfg.Addr)
	assert.Equal(t, 2, cfg.DB)
}
