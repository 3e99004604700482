package config

import (
	"os"
	"strings"
	"time"
)

// Config captures the process configuration. FromEnv keeps main lean.
type Config struct {
	Addr          string
	PostgresDSN   string
	RedisURL      string
	KafkaBrokers  []string
	AuditTopic    string
	JWTSigningKey string

	// AutoMigrate applies the embedded schema on startup. Dev and test
	// convenience; production runs migrations out of band.
	AutoMigrate bool

	// SigningTimeout bounds calls to the signing/timestamping collaborator
	// during audit pack generation.
	SigningTimeout time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:           getEnv("EXPORTGATE_ADDR", ":8080"),
		PostgresDSN:    os.Getenv("EXPORTGATE_POSTGRES_DSN"),
		RedisURL:       os.Getenv("EXPORTGATE_REDIS_URL"),
		AuditTopic:     getEnv("EXPORTGATE_AUDIT_TOPIC", "exportgate.audit"),
		JWTSigningKey:  getEnv("EXPORTGATE_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		SigningTimeout: 10 * time.Second,
	}

	if brokers := os.Getenv("EXPORTGATE_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	cfg.AutoMigrate = os.Getenv("EXPORTGATE_DB_AUTOMIGRATE") == "true"
	if timeout := os.Getenv("EXPORTGATE_SIGNING_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			cfg.SigningTimeout = d
		}
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
