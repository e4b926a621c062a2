package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "bookline"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort = "8080"

	DefaultTokenCacheSize = 4096

	DefaultRateLimitRequests = 120
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRedisDB = 0

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultLockBackend = LockBackendMemory
	DefaultLockTTL     = 10 * time.Second

	DefaultWSSendBuffer   = 64
	DefaultWSPingInterval = 30 * time.Second
	DefaultWSPongWait     = 60 * time.Second
	DefaultWSWriteWait    = 10 * time.Second

	DefaultKafkaEnabled           = false
	DefaultKafkaAppointmentsTopic = "appointments.events"

	DefaultPaginationLimit = 100
)

const (
	LockBackendMemory = "memory"
	LockBackendMongo  = "mongo"
)
