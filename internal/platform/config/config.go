package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "ticketflow/pkg/platform/strings"
)

// Server captures process level configuration.
type Server struct {
	Addr            string
	Environment     string
	LogFormat       string
	LogLevel        string
	FlowTokenKey    string
	FlowTokenIssuer string

	Verification   VerificationConfig
	Flow           FlowConfig
	Redis          RedisConfig
	Postgres       PostgresConfig
	Kafka          KafkaConfig
	Reconciliation ReconciliationConfig
}

// VerificationConfig points at the remote verification/registration service.
type VerificationConfig struct {
	BaseURL      string
	WriteTimeout time.Duration
}

// FlowConfig tunes the registration journey.
type FlowConfig struct {
	ResendCooldown time.Duration
	SessionTTL     time.Duration
	TickInterval   time.Duration
}

// RedisConfig holds snapshot store connection settings. An empty URL keeps
// snapshots in memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig holds the reconciliation outbox database. An empty URL keeps
// reconciliation records in memory.
type PostgresConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// KafkaConfig holds the broker used to publish reconciliation records. No
// brokers disables the relay.
type KafkaConfig struct {
	Brokers  []string
	ClientID string
	Topic    string
}

// ReconciliationConfig tunes the outbox relay.
type ReconciliationConfig struct {
	PollInterval     time.Duration
	BatchSize        int
	FailureThreshold int
	SuccessThreshold int
}

// Defaults match the live event site.
const (
	DefaultWriteTimeout   = 10 * time.Second
	DefaultResendCooldown = 60 * time.Second
	DefaultSessionTTL     = 2 * time.Hour
)

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:            getEnv("TICKETFLOW_ADDR", ":8080"),
		Environment:     getEnv("TICKETFLOW_ENV", "development"),
		LogFormat:       getEnv("LOG_FORMAT", "text"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		// development default, must be overridden in production
		FlowTokenKey:    getEnv("FLOW_TOKEN_SIGNING_KEY", "dev-flow-token-key-change-me"),
		FlowTokenIssuer: getEnv("FLOW_TOKEN_ISSUER", "ticketflow"),
		Verification: VerificationConfig{
			BaseURL:      getEnv("VERIFICATION_BASE_URL", "http://localhost:5000"),
			WriteTimeout: getDuration("VERIFICATION_WRITE_TIMEOUT", DefaultWriteTimeout),
		},
		Flow: FlowConfig{
			ResendCooldown: getDuration("OTP_RESEND_COOLDOWN", DefaultResendCooldown),
			SessionTTL:     getDuration("SESSION_TTL", DefaultSessionTTL),
			TickInterval:   getDuration("FLOW_TICK_INTERVAL", time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:  getList("KAFKA_BROKERS"),
			ClientID: getEnv("KAFKA_CLIENT_ID", "ticketflow"),
			Topic:    getEnv("RECONCILIATION_TOPIC", "ticketflow.reconciliation"),
		},
		Reconciliation: ReconciliationConfig{
			PollInterval:     getDuration("RECONCILIATION_POLL_INTERVAL", 5*time.Second),
			BatchSize:        getInt("RECONCILIATION_BATCH_SIZE", 100),
			FailureThreshold: getInt("RECONCILIATION_FAILURE_THRESHOLD", 5),
			SuccessThreshold: getInt("RECONCILIATION_SUCCESS_THRESHOLD", 2),
		},
	}
}

// ResendCooldownSeconds converts the cooldown to the whole-second countdown the
// OTP timer works in.
func (f FlowConfig) ResendCooldownSeconds() int {
	return int(f.ResendCooldown / time.Second)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getList(key string) []string {
	return platformstrings.SplitList(os.Getenv(key), ",")
}
