package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort           = "PORT"
	EnvLogLevel       = "LOG_LEVEL"
	EnvLogFormat      = "LOG_FORMAT"
	EnvServiceVersion = "SERVICE_VERSION"

	EnvJWTSecret      = "JWT_SECRET"
	EnvTokenCacheSize = "TOKEN_CACHE_SIZE"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvLockBackend = "LOCK_BACKEND"
	EnvLockTTL     = "LOCK_TTL"

	EnvWSSendBuffer   = "WS_SEND_BUFFER"
	EnvWSPingInterval = "WS_PING_INTERVAL"
	EnvWSPongWait     = "WS_PONG_WAIT"
	EnvWSWriteWait    = "WS_WRITE_WAIT"

	EnvKafkaEnabled           = "KAFKA_ENABLED"
	EnvKafkaAppointmentsTopic = "KAFKA_APPOINTMENTS_TOPIC"
	EnvKafkaAppointmentsDLQ   = "KAFKA_APPOINTMENTS_DLQ_TOPIC"
)
