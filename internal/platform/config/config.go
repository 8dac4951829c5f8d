package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server needs from the environment so main
// stays lean. Optional subsystems (ledger, redis, kafka) are disabled when
// their settings are absent.
type Config struct {
	Addr            string
	InstitutionCode string
	JWTSigningKey   string
	JWTIssuer       string

	DatabaseURL string

	Redis RedisConfig

	Ledger LedgerConfig

	KafkaBrokers    []string
	KafkaAuditTopic string

	AnchorInterval  time.Duration
	AnchorBatchSize int

	VerifyCacheTTL time.Duration
}

// RedisConfig holds connection settings for the optional verification cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// LedgerConfig holds relay connectivity for the ledger gateway. An empty
// RelayURL means the ledger is unconfigured and every call fails fast.
type LedgerConfig struct {
	RelayURL            string
	APIKey              string
	IdentityContract    string
	CertificateContract string
	BadgeContract       string
	Timeout             time.Duration
}

// Configured reports whether ledger connectivity settings are present.
func (c LedgerConfig) Configured() bool {
	return c.RelayURL != ""
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:            envOr("CREST_ADDR", ":8080"),
		InstitutionCode: envOr("CREST_INSTITUTION_CODE", "01"),
		JWTSigningKey:   envOr("CREST_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:       envOr("CREST_JWT_ISSUER", "crest"),
		DatabaseURL:     os.Getenv("CREST_DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("CREST_REDIS_URL"),
			PoolSize:     envInt("CREST_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("CREST_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("CREST_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("CREST_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("CREST_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Ledger: LedgerConfig{
			RelayURL:            os.Getenv("CREST_LEDGER_RELAY_URL"),
			APIKey:              os.Getenv("CREST_LEDGER_API_KEY"),
			IdentityContract:    os.Getenv("CREST_LEDGER_IDENTITY_CONTRACT"),
			CertificateContract: os.Getenv("CREST_LEDGER_CERTIFICATE_CONTRACT"),
			BadgeContract:       os.Getenv("CREST_LEDGER_BADGE_CONTRACT"),
			Timeout:             envDuration("CREST_LEDGER_TIMEOUT", 5*time.Second),
		},
		KafkaAuditTopic: envOr("CREST_KAFKA_AUDIT_TOPIC", "audit.events"),
		AnchorInterval:  envDuration("CREST_ANCHOR_INTERVAL", time.Minute),
		AnchorBatchSize: envInt("CREST_ANCHOR_BATCH_SIZE", 25),
		VerifyCacheTTL:  envDuration("CREST_VERIFY_CACHE_TTL", 30*time.Second),
	}
	if brokers := os.Getenv("CREST_KAFKA_BROKERS"); brokers != "" {
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

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
