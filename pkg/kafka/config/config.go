// Package kafka_config holds the settings of the appointment event writer.
package kafka_config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"bookline/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"
)

const (
	EnvBrokers          = "KAFKA_BROKERS"
	EnvClientID         = "KAFKA_CLIENT_ID"
	EnvMaxAttempts      = "KAFKA_WRITER_MAX_ATTEMPTS"
	EnvBatchTimeout     = "KAFKA_WRITER_BATCH_TIMEOUT"
	EnvWriteTimeout     = "KAFKA_WRITER_WRITE_TIMEOUT"
	EnvRequiredAcks     = "KAFKA_WRITER_REQUIRED_ACKS"
	EnvCompression      = "KAFKA_WRITER_COMPRESSION"
	EnvAsync            = "KAFKA_WRITER_ASYNC"
	EnvAutoCreateTopics = "KAFKA_AUTO_CREATE_TOPICS"
)

const (
	DefaultBrokers      = "localhost:9092"
	DefaultMaxAttempts  = 3
	DefaultBatchTimeout = 10 * time.Millisecond
	DefaultWriteTimeout = 5 * time.Second
	DefaultRequiredAcks = -1
	DefaultCompression  = "snappy"
)

var codecs = map[string]compress.Compression{
	"none":   compress.None,
	"gzip":   compress.Gzip,
	"snappy": compress.Snappy,
	"lz4":    compress.Lz4,
	"zstd":   compress.Zstd,
}

var acks = map[int]kafka.RequiredAcks{
	-1: kafka.RequireAll,
	0:  kafka.RequireNone,
	1:  kafka.RequireOne,
}

type Config struct {
	Brokers  []string
	ClientID string

	MaxAttempts      int
	BatchTimeout     time.Duration
	WriteTimeout     time.Duration
	RequiredAcks     int
	Compression      string
	Async            bool
	AutoCreateTopics bool
}

// Load reads the writer settings. clientID is used when KAFKA_CLIENT_ID is unset.
func Load(clientID string) (*Config, error) {
	cfg := &Config{
		Brokers:          splitBrokers(env(EnvBrokers, DefaultBrokers)),
		ClientID:         env(EnvClientID, clientID),
		MaxAttempts:      envInt(EnvMaxAttempts, DefaultMaxAttempts),
		BatchTimeout:     envDuration(EnvBatchTimeout, DefaultBatchTimeout),
		WriteTimeout:     envDuration(EnvWriteTimeout, DefaultWriteTimeout),
		RequiredAcks:     envInt(EnvRequiredAcks, DefaultRequiredAcks),
		Compression:      strings.ToLower(env(EnvCompression, DefaultCompression)),
		Async:            envBool(EnvAsync, false),
		AutoCreateTopics: envBool(EnvAutoCreateTopics, false),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Codec maps Compression to the kafka-go codec. Unknown names fall back to snappy.
func (cfg *Config) Codec() compress.Compression {
	if c, ok := codecs[cfg.Compression]; ok {
		return c
	}
	return compress.Snappy
}

func (cfg *Config) Acks() kafka.RequiredAcks {
	if a, ok := acks[cfg.RequiredAcks]; ok {
		return a
	}
	return kafka.RequireAll
}

func (cfg *Config) Validate() error {
	var errors []string

	if len(cfg.Brokers) == 0 {
		errors = append(errors, "At least one Kafka broker is required")
	}
	if cfg.ClientID == "" {
		errors = append(errors, "ClientID cannot be empty")
	}
	if cfg.MaxAttempts <= 0 {
		errors = append(errors, fmt.Sprintf("MaxAttempts must be positive, got: %d", cfg.MaxAttempts))
	}
	if cfg.BatchTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("BatchTimeout must be positive, got: %s", cfg.BatchTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if _, ok := codecs[cfg.Compression]; !ok {
		errors = append(errors, fmt.Sprintf("Compression must be one of [none, gzip, snappy, lz4, zstd], got: %s", cfg.Compression))
	}
	if _, ok := acks[cfg.RequiredAcks]; !ok {
		errors = append(errors, fmt.Sprintf("RequiredAcks must be -1, 0, or 1, got: %d", cfg.RequiredAcks))
	}

	if len(errors) > 0 {
		errMsg := "Kafka configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}
	return nil
}

func (cfg *Config) LogConfiguration(log *logger.Logger) {
	log.Info("Kafka configuration loaded successfully",
		"brokers", cfg.Brokers,
		"client_id", cfg.ClientID,
		"max_attempts", cfg.MaxAttempts,
		"batch_timeout", cfg.BatchTimeout,
		"write_timeout", cfg.WriteTimeout,
		"required_acks", cfg.RequiredAcks,
		"compression", cfg.Compression,
		"async", cfg.Async,
		"auto_create_topics", cfg.AutoCreateTopics,
	)
}

// splitBrokers drops blank entries so a trailing comma is harmless.
func splitBrokers(raw string) []string {
	var brokers []string
	for _, broker := range strings.Split(raw, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}

func env(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return d
}
