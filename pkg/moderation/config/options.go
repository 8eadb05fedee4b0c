package config

import (
	"fmt"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithDatabaseURL selects the store from a URL: memory, postgres://... or sqlite://path.
func WithDatabaseURL(raw string) Option {
	return func(c *ServerConfig) error {
		return parseDatabaseURL(raw, c)
	}
}

// WithDatabaseSchema sets the database schema (for Postgres)
func WithDatabaseSchema(schema string) Option {
	return func(c *ServerConfig) error {
		c.DBSchema = schema
		return nil
	}
}

// WithRedis enables Redis pub/sub notifications.
func WithRedis(url, channel string) Option {
	return func(c *ServerConfig) error {
		if url == "" {
			return fmt.Errorf("redis url cannot be empty")
		}
		c.RedisURL = url
		if channel != "" {
			c.RedisChannel = channel
		}
		return nil
	}
}

// WithCloudEvents enables CloudEvents notifications posted to target.
func WithCloudEvents(target, source string) Option {
	return func(c *ServerConfig) error {
		if target == "" {
			return fmt.Errorf("cloudevents target cannot be empty")
		}
		c.EventsURL = target
		if source != "" {
			c.EventsSource = source
		}
		return nil
	}
}

// WithMemorySnapshots keeps publication snapshots in memory.
func WithMemorySnapshots() Option {
	return func(c *ServerConfig) error {
		c.Snapshot = SnapshotConfig{Type: SnapshotMemory}
		return nil
	}
}

// WithS3Snapshots archives publication snapshots to an S3 bucket.
func WithS3Snapshots(s SnapshotConfig) Option {
	return func(c *ServerConfig) error {
		if s.Bucket == "" {
			return fmt.Errorf("s3 bucket cannot be empty")
		}
		s.Type = SnapshotS3
		c.Snapshot = s
		return nil
	}
}

// WithBatchConcurrency sets how many ids a batch action processes at once.
func WithBatchConcurrency(n int) Option {
	return func(c *ServerConfig) error {
		if n < 1 {
			return fmt.Errorf("batch concurrency must be at least 1, got %d", n)
		}
		c.BatchConcurrency = n
		return nil
	}
}

// WithRateLimit limits requests per second per client; 0 disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *ServerConfig) error {
		if rps < 0 {
			return fmt.Errorf("rate limit cannot be negative")
		}
		c.RateLimitPerSecond = rps
		return nil
	}
}

// WithTrustProxyHeaders makes the server take client addresses from proxy headers.
func WithTrustProxyHeaders(trust bool) Option {
	return func(c *ServerConfig) error {
		c.TrustProxyHeaders = trust
		return nil
	}
}

// WithCORSOrigins sets the allowed CORS origins.
func WithCORSOrigins(origins ...string) Option {
	return func(c *ServerConfig) error {
		c.CORSAllowedOrigins = origins
		return nil
	}
}
