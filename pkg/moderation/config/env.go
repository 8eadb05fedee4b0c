package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// envConfig lists the environment variables understood by WithEnv.
// Unset variables keep the value already in ServerConfig.
type envConfig struct {
	Port        string `env:"PORT" env-description:"HTTP listen port"`
	Environment string `env:"ENVIRONMENT" env-description:"development, production or testing"`
	LogLevel    string `env:"LOG_LEVEL" env-description:"debug, info, warn or error"`

	DatabaseURL string `env:"DATABASE_URL" env-description:"memory, postgres://... or sqlite://path"`
	DBSchema    string `env:"DB_SCHEMA" env-description:"Postgres schema"`

	RedisURL     string `env:"REDIS_URL" env-description:"redis:// URL for event notifications"`
	RedisChannel string `env:"REDIS_CHANNEL" env-description:"pub/sub channel for event notifications"`
	EventsURL    string `env:"EVENTS_URL" env-description:"HTTP endpoint receiving CloudEvents"`
	EventsSource string `env:"EVENTS_SOURCE" env-description:"ce-source attribute"`

	SnapshotURL    string `env:"SNAPSHOT_URL" env-description:"memory:// or s3://bucket/prefix"`
	AWSAccessKeyID string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey   string `env:"AWS_SECRET_ACCESS_KEY"`
	AWSRegion      string `env:"AWS_REGION"`
	AWSS3Endpoint  string `env:"AWS_S3_ENDPOINT"`
	AWSS3SSE       string `env:"AWS_S3_SSE" env-description:"AES256 or aws:kms"`
	AWSS3KMSKeyID  string `env:"AWS_S3_SSE_KMS_KEY_ID"`

	BatchConcurrency   int      `env:"BATCH_CONCURRENCY" env-description:"ids processed in parallel by batch actions"`
	RateLimitPerSecond float64  `env:"RATE_LIMIT_PER_SECOND" env-description:"requests per second per client, 0 disables"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-description:"comma separated origins"`
	TrustProxyHeaders  bool     `env:"TRUST_PROXY_HEADERS" env-description:"take the client address from X-Forwarded-For"`
}

// WithEnv applies environment variable overrides:
//
//	PORT, ENVIRONMENT, LOG_LEVEL
//	DATABASE_URL - "memory" (default), "postgres://..." or "sqlite://path/to/file.db"
//	DB_SCHEMA - Postgres schema (default "moderation")
//	REDIS_URL, REDIS_CHANNEL - Redis pub/sub notifications
//	EVENTS_URL, EVENTS_SOURCE - CloudEvents HTTP notifications
//	SNAPSHOT_URL - "memory://" or "s3://bucket/prefix?region=...&endpoint=...&path_style=true"
//	AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY, AWS_REGION, AWS_S3_ENDPOINT
//	AWS_S3_SSE, AWS_S3_SSE_KMS_KEY_ID - snapshot server-side encryption
//	BATCH_CONCURRENCY, RATE_LIMIT_PER_SECOND, CORS_ALLOWED_ORIGINS
//	TRUST_PROXY_HEADERS - honour X-Forwarded-For for rate limiting and logs
func WithEnv() Option {
	return func(c *ServerConfig) error {
		var env envConfig
		if err := cleanenv.ReadEnv(&env); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		return env.apply(c)
	}
}

func (e envConfig) apply(c *ServerConfig) error {
	setString(&c.Port, e.Port)
	setString(&c.Environment, e.Environment)
	setString(&c.LogLevel, e.LogLevel)
	setString(&c.DBSchema, e.DBSchema)
	setString(&c.RedisURL, e.RedisURL)
	setString(&c.RedisChannel, e.RedisChannel)
	setString(&c.EventsURL, e.EventsURL)
	setString(&c.EventsSource, e.EventsSource)

	if e.DatabaseURL != "" {
		if err := parseDatabaseURL(e.DatabaseURL, c); err != nil {
			return err
		}
	}

	if e.SnapshotURL != "" {
		if err := parseSnapshotURL(e.SnapshotURL, &c.Snapshot); err != nil {
			return err
		}
	}
	setString(&c.Snapshot.AccessKeyID, e.AWSAccessKeyID)
	setString(&c.Snapshot.SecretAccessKey, e.AWSSecretKey)
	if c.Snapshot.Region == "" {
		c.Snapshot.Region = e.AWSRegion
	}
	if c.Snapshot.Endpoint == "" {
		c.Snapshot.Endpoint = e.AWSS3Endpoint
	}
	if c.Snapshot.SSEAlgorithm == "" {
		c.Snapshot.SSEAlgorithm = e.AWSS3SSE
	}
	if c.Snapshot.SSEKMSKeyID == "" {
		c.Snapshot.SSEKMSKeyID = e.AWSS3KMSKeyID
	}

	if e.BatchConcurrency != 0 {
		c.BatchConcurrency = e.BatchConcurrency
	}
	if e.RateLimitPerSecond != 0 {
		c.RateLimitPerSecond = e.RateLimitPerSecond
	}
	if len(e.CORSAllowedOrigins) > 0 {
		c.CORSAllowedOrigins = e.CORSAllowedOrigins
	}
	if e.TrustProxyHeaders {
		c.TrustProxyHeaders = true
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
