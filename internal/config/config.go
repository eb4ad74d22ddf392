// Package config loads and validates the engine's configuration from
// environment variables, namespaced and defaulted exactly as the
// specification's configuration table describes.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Database struct {
	URL                string
	MaxConnections     int
	MinConnections     int
	ConnectTimeoutSecs int
	AcquireTimeoutSecs int
	IdleTimeoutSecs    int
	MaxLifetimeSecs    int
}

type Engine struct {
	MaxConcurrentJobs     int
	RetryAttempts         int
	BaseDelayMinutes      int
	VisibilityTimeoutSecs int
	TickIntervalMillis    int
}

type HTTP struct {
	Port                int
	PoolIdleTimeoutSecs int
	RequestTimeoutSecs  int
}

type Kafka struct {
	BootstrapServers    string
	DefaultTopic        string
	ProducerTimeoutSecs int
	ProducerRetries     int
	BatchSize           int
	CompressionType     string
}

type RateLimit struct {
	Enabled       bool
	MaxRequests   int
	WindowSeconds int
}

type Cache struct {
	JobTTLMinutes int
}

type Config struct {
	Database    Database
	Engine      Engine
	HTTP        HTTP
	Kafka       Kafka
	RateLimit   RateLimit
	Cache       Cache
	RedisAddr   string
	MetricsPort int
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

// Load reads the full configuration from the environment and
// validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Database: Database{
			URL:                getenv("DATABASE_URL", ""),
			MaxConnections:     getenvInt("DATABASE_MAX_CONNECTIONS", 100),
			MinConnections:     getenvInt("DATABASE_MIN_CONNECTIONS", 30),
			ConnectTimeoutSecs: getenvInt("DATABASE_CONNECT_TIMEOUT_SECS", 8),
			AcquireTimeoutSecs: getenvInt("DATABASE_ACQUIRE_TIMEOUT_SECS", 8),
			IdleTimeoutSecs:    getenvInt("DATABASE_IDLE_TIMEOUT_SECS", 60),
			MaxLifetimeSecs:    getenvInt("DATABASE_MAX_LIFETIME_SECS", 60),
		},
		Engine: Engine{
			MaxConcurrentJobs:     getenvInt("ENGINE_MAX_CONCURRENT_JOBS", 10),
			RetryAttempts:         getenvInt("ENGINE_RETRY_ATTEMPTS", 3),
			BaseDelayMinutes:      getenvInt("ENGINE_BASE_DELAY_MINUTES", 2),
			VisibilityTimeoutSecs: getenvInt("ENGINE_VISIBILITY_TIMEOUT_SECS", 300),
			TickIntervalMillis:    getenvInt("ENGINE_TICK_INTERVAL_MILLIS", 500),
		},
		HTTP: HTTP{
			Port:                getenvInt("HTTP_PORT", 3000),
			PoolIdleTimeoutSecs: getenvInt("HTTP_POOL_IDLE_TIMEOUT_SECS", 30),
			RequestTimeoutSecs:  getenvInt("HTTP_REQUEST_TIMEOUT_SECS", 30),
		},
		Kafka: Kafka{
			BootstrapServers:    getenv("KAFKA_BOOTSTRAP_SERVERS", "localhost:9092"),
			DefaultTopic:        getenv("KAFKA_DEFAULT_TOPIC", "tempus-events"),
			ProducerTimeoutSecs: getenvInt("KAFKA_PRODUCER_TIMEOUT_SECS", 30),
			ProducerRetries:     getenvInt("KAFKA_PRODUCER_RETRIES", 5),
			BatchSize:           getenvInt("KAFKA_BATCH_SIZE", 16384),
			CompressionType:     getenv("KAFKA_COMPRESSION_TYPE", "snappy"),
		},
		RateLimit: RateLimit{
			Enabled:       getenvBool("RATE_LIMIT_ENABLED", true),
			MaxRequests:   getenvInt("RATE_LIMIT_MAX_REQUESTS", 100),
			WindowSeconds: getenvInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		},
		Cache: Cache{
			JobTTLMinutes: getenvInt("CACHE_JOB_TTL_MINUTES", 15),
		},
		RedisAddr:   getenv("REDIS_ADDR", "localhost:6379"),
		MetricsPort: getenvInt("METRICS_PORT", 9090),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("config: DATABASE_URL must not be empty")
	}
	if c.Database.MaxConnections < c.Database.MinConnections {
		return fmt.Errorf("config: max_connections (%d) must be >= min_connections (%d)", c.Database.MaxConnections, c.Database.MinConnections)
	}
	if c.Engine.MaxConcurrentJobs <= 0 {
		return fmt.Errorf("config: engine.max_concurrent_jobs must be > 0")
	}
	if c.Kafka.BootstrapServers == "" {
		return fmt.Errorf("config: kafka.bootstrap_servers must not be empty")
	}
	if c.Kafka.DefaultTopic == "" {
		return fmt.Errorf("config: kafka.default_topic must not be empty")
	}
	return nil
}

func (d Database) ConnectTimeout() time.Duration {
	return time.Duration(d.ConnectTimeoutSecs) * time.Second
}
func (d Database) AcquireTimeout() time.Duration {
	return time.Duration(d.AcquireTimeoutSecs) * time.Second
}
func (d Database) IdleTimeout() time.Duration { return time.Duration(d.IdleTimeoutSecs) * time.Second }
func (d Database) MaxLifetime() time.Duration { return time.Duration(d.MaxLifetimeSecs) * time.Second }

func (e Engine) BaseDelay() time.Duration { return time.Duration(e.BaseDelayMinutes) * time.Minute }
func (e Engine) VisibilityTimeout() time.Duration {
	return time.Duration(e.VisibilityTimeoutSecs) * time.Second
}
func (e Engine) TickInterval() time.Duration {
	return time.Duration(e.TickIntervalMillis) * time.Millisecond
}

func (h HTTP) PoolIdleTimeout() time.Duration {
	return time.Duration(h.PoolIdleTimeoutSecs) * time.Second
}
func (h HTTP) RequestTimeout() time.Duration {
	return time.Duration(h.RequestTimeoutSecs) * time.Second
}

func (k Kafka) ProducerTimeout() time.Duration {
	return time.Duration(k.ProducerTimeoutSecs) * time.Second
}

func (c Cache) JobTTL() time.Duration { return time.Duration(c.JobTTLMinutes) * time.Minute }
