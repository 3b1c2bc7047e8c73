package config

import (
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"findr-api" validate:"required"`
	Port                          int      `env:"PORT" env-default:"3001" validate:"gte=1,lte=65535"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST"`

	// Upstream catalog service
	CatalogBaseURL        string        `env:"CATALOG_BASE_URL" env-default:"http://localhost:8080" validate:"required,url"`
	CatalogTimeout        time.Duration `env:"CATALOG_TIMEOUT" env-default:"30s"`
	CatalogSnapshotTTL    time.Duration `env:"CATALOG_SNAPSHOT_TTL" env-default:"60s"`
	ComparisonPollSeconds int           `env:"COMPARISON_POLL_SECONDS" env-default:"2"`

	// Redis (catalog snapshot cache)
	RedisHost     string `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`

	// Kafka Consumer (product update push channel)
	KafkaBrokers         []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaUpdatesTopic    string   `env:"KAFKA_UPDATES_TOPIC" env-default:"product-updates"`
	KafkaConsumerGroup   string   `env:"KAFKA_CONSUMER_GROUP" env-default:"findr-consumer"`
	KafkaConsumerEnabled bool     `env:"KAFKA_CONSUMER_ENABLED" env-default:"true"`

	// Tracing
	TracingEnabled bool   `env:"TRACING_ENABLED" env-default:"false"`
	OTLPEndpoint   string `env:"OTLP_ENDPOINT" env-default:"localhost:4317"`
}

var validate = validator.New()

// Validate checks the loaded configuration.
func (c Config) Validate() error {
	return validate.Struct(c)
}
