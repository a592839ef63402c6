package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	strs "policydesk/pkg/platform/strings"
)

const defaultJWTSigningKey = "dev-secret-key-change-in-production"

// Config is the whole runtime configuration of the desk server.
type Config struct {
	Env         string
	ServiceName string
	Server      Server
	Auth        Auth
	Redis       RedisConfig
	Kafka       KafkaConfig
	Photo       PhotoConfig
	Wizard      WizardConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	RequestTimeout time.Duration
}

type Auth struct {
	JWTSigningKey string
	Issuer        string
	Audience      string
	TokenTTL      time.Duration
	RememberTTL   time.Duration
	LoginAttempts int
	LoginWindow   time.Duration
}

// RedisConfig selects the Redis session store. An empty URL keeps sessions in memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig enables notification publishing when Brokers is set.
type KafkaConfig struct {
	Brokers     []string
	ClientID    string
	NotifyTopic string
	Partitions  int32
	Replication int16
}

// WizardConfig controls live wizards kept between requests.
type WizardConfig struct {
	IdleTTL time.Duration
}

// PhotoConfig bounds uploaded photos. MaxBytes, MaxDimension and JPEGQuality
// drive the downsizing applied before a photo is stored.
type PhotoConfig struct {
	UploadMaxBytes int64
	MaxBytes       int
	MaxDimension   int
	JPEGQuality    int
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// FromEnv builds the config from environment variables so main stays lean.
func FromEnv() Config {
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// development default; production deployments set JWT_SIGNING_KEY
		jwtSigningKey = defaultJWTSigningKey
	}

	return Config{
		Env:         getString("POLICYDESK_ENV", "development"),
		ServiceName: getString("OTEL_SERVICE_NAME", "policydesk"),
		Server: Server{
			Addr:           getString("POLICYDESK_ADDR", ":8080"),
			RequestTimeout: getDuration("POLICYDESK_REQUEST_TIMEOUT", 30*time.Second),
		},
		Auth: Auth{
			JWTSigningKey: jwtSigningKey,
			Issuer:        getString("JWT_ISSUER", "policydesk"),
			Audience:      getString("JWT_AUDIENCE", "policydesk-agents"),
			TokenTTL:      getDuration("JWT_TOKEN_TTL", 8*time.Hour),
			RememberTTL:   getDuration("JWT_REMEMBER_TTL", 30*24*time.Hour),
			LoginAttempts: getInt("LOGIN_RATE_LIMIT", 10),
			LoginWindow:   getDuration("LOGIN_RATE_WINDOW", time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:     strs.SplitList(os.Getenv("KAFKA_BROKERS")),
			ClientID:    getString("KAFKA_CLIENT_ID", "policydesk"),
			NotifyTopic: getString("KAFKA_NOTIFY_TOPIC", "policydesk.notifications"),
			Partitions:  int32(getInt("KAFKA_NOTIFY_PARTITIONS", 3)),
			Replication: int16(getInt("KAFKA_NOTIFY_REPLICATION", 1)),
		},
		Photo: PhotoConfig{
			UploadMaxBytes: int64(getInt("PHOTO_UPLOAD_MAX_BYTES", 10<<20)),
			MaxBytes:       getInt("PHOTO_MAX_BYTES", 1536*1024),
			MaxDimension:   getInt("PHOTO_MAX_DIMENSION", 1920),
			JPEGQuality:    getInt("PHOTO_JPEG_QUALITY", 70),
		},
		Wizard: WizardConfig{
			IdleTTL: getDuration("WIZARD_IDLE_TTL", 30*time.Minute),
		},
	}
}

func getString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
