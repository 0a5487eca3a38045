package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration. Values come from the
// environment so main stays lean and deployments stay twelve-factor.
type Server struct {
	Addr          string
	PostgresDSN   string
	Redis         RedisConfig
	JWTSigningKey string
	// CardPayloadPrefix is the environment-dependent prefix baked into every
	// verification payload, e.g. "https://verify.example.org/c/".
	CardPayloadPrefix string
	// MailRelayURL is the HTTP mail relay endpoint; empty disables outbound
	// notification (send becomes a logged no-op).
	MailRelayURL string
	MailFrom     string
	// KafkaBrokers mirrors audit events to a topic when non-empty.
	KafkaBrokers []string
	KafkaTopic   string
}

// RedisConfig holds connection settings for the optional redis-backed
// login-throttle store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:              envOr("VETCRED_ADDR", ":8080"),
		PostgresDSN:       os.Getenv("VETCRED_POSTGRES_DSN"),
		JWTSigningKey:     envOr("VETCRED_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		CardPayloadPrefix: envOr("VETCRED_CARD_PREFIX", "vetcred://verify/"),
		MailRelayURL:      os.Getenv("VETCRED_MAIL_RELAY_URL"),
		MailFrom:          envOr("VETCRED_MAIL_FROM", "no-reply@vetcred.local"),
		KafkaTopic:        envOr("VETCRED_KAFKA_AUDIT_TOPIC", "vetcred.audit"),
		Redis: RedisConfig{
			URL:          os.Getenv("VETCRED_REDIS_URL"),
			PoolSize:     envIntOr("VETCRED_REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("VETCRED_REDIS_MIN_IDLE", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
	}
	if brokers := os.Getenv("VETCRED_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
