package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"POLICYDESK_ADDR", "POLICYDESK_ENV", "JWT_SIGNING_KEY", "REDIS_URL",
		"KAFKA_BROKERS", "KAFKA_NOTIFY_TOPIC", "PHOTO_MAX_BYTES", "PHOTO_MAX_DIMENSION",
		"PHOTO_JPEG_QUALITY", "OTEL_SERVICE_NAME", "WIZARD_IDLE_TTL",
	} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "development", cfg.Env)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, defaultJWTSigningKey, cfg.Auth.JWTSigningKey)
	assert.Empty(t, cfg.Redis.URL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "policydesk.notifications", cfg.Kafka.NotifyTopic)
	assert.Equal(t, int64(10<<20), cfg.Photo.UploadMaxBytes)
	assert.Equal(t, 1536*1024, cfg.Photo.MaxBytes)
	assert.Equal(t, 1920, cfg.Photo.MaxDimension)
	assert.Equal(t, 70, cfg.Photo.JPEGQuality)
	assert.Equal(t, 30*time.Minute, cfg.Wizard.IdleTTL)
	assert.Equal(t, "policydesk", cfg.ServiceName)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("POLICYDESK_ADDR", ":9090")
	t.Setenv("POLICYDESK_ENV", "production")
	t.Setenv("JWT_SIGNING_KEY", "k")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,,")
	t.Setenv("KAFKA_NOTIFY_TOPIC", "desk.events")
	t.Setenv("PHOTO_MAX_BYTES", "2048")
	t.Setenv("PHOTO_MAX_DIMENSION", "800")
	t.Setenv("PHOTO_JPEG_QUALITY", "70")
	t.Setenv("POLICYDESK_REQUEST_TIMEOUT", "5s")

	cfg := FromEnv()

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "k", cfg.Auth.JWTSigningKey)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "desk.events", cfg.Kafka.NotifyTopic)
	assert.Equal(t, 2048, cfg.Photo.MaxBytes)
	assert.Equal(t, 800, cfg.Photo.MaxDimension)
	assert.Equal(t, 70, cfg.Photo.JPEGQuality)
	assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
}

func TestFromEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("PHOTO_MAX_DIMENSION", "huge")
	t.Setenv("PHOTO_JPEG_QUALITY", "-3")

	cfg := FromEnv()

	assert.Equal(t, 1920, cfg.Photo.MaxDimension)
	assert.Equal(t, 70, cfg.Photo.JPEGQuality)
}
