package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/tendant/simple-moderation/pkg/moderation"
	cesink "github.com/tendant/simple-moderation/pkg/moderation/events/cloudevents"
	redissink "github.com/tendant/simple-moderation/pkg/moderation/events/redis"
	"github.com/tendant/simple-moderation/pkg/moderation/repo/memory"
	repopg "github.com/tendant/simple-moderation/pkg/moderation/repo/postgres"
	"github.com/tendant/simple-moderation/pkg/moderation/repo/sqlite"
	memorysnapshot "github.com/tendant/simple-moderation/pkg/moderation/snapshot/memory"
	s3snapshot "github.com/tendant/simple-moderation/pkg/moderation/snapshot/s3"
)

const (
	DatabaseMemory   = "memory"
	DatabasePostgres = "postgres"
	DatabaseSQLite   = "sqlite"

	SnapshotNone   = ""
	SnapshotMemory = "memory"
	SnapshotS3     = "s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:             "8080",
		Environment:      "development",
		LogLevel:         "info",
		DatabaseType:     DatabaseMemory,
		DBSchema:         "moderation",
		RedisChannel:     redissink.DefaultChannel,
		EventsSource:     cesink.DefaultSource,
		BatchConcurrency: 1,
	}
}

// ServerConfig represents configuration for the moderation server
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing
	LogLevel    string

	// Database configuration
	DatabaseURL  string
	DatabaseType string // memory, postgres, sqlite
	DBSchema     string // Postgres schema (default: moderation)
	SQLitePath   string

	// Event notifications; empty URLs disable the sink
	RedisURL     string
	RedisChannel string
	EventsURL    string
	EventsSource string

	// Publication snapshots
	Snapshot SnapshotConfig

	BatchConcurrency   int
	RateLimitPerSecond float64
	CORSAllowedOrigins []string

	// TrustProxyHeaders takes the client address from X-Forwarded-For /
	// X-Real-IP. Only enable it behind a proxy that overwrites them.
	TrustProxyHeaders bool
}

// SnapshotConfig selects where published rows are archived as JSON.
type SnapshotConfig struct {
	Type            string // "", memory, s3
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	CreateBucket    bool

	// Server-side encryption: "" (off), AES256 or aws:kms
	SSEAlgorithm string
	SSEKMSKeyID  string
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	switch c.DatabaseType {
	case DatabaseMemory:
	case DatabasePostgres:
		if c.DatabaseURL == "" {
			return errors.New("database_url is required when using postgres")
		}
	case DatabaseSQLite:
		if c.SQLitePath == "" {
			return errors.New("sqlite path is required when using sqlite")
		}
	default:
		return fmt.Errorf("database_type must be 'memory', 'postgres' or 'sqlite', got %q", c.DatabaseType)
	}

	switch c.Snapshot.Type {
	case SnapshotNone, SnapshotMemory:
	case SnapshotS3:
		if c.Snapshot.Bucket == "" {
			return errors.New("snapshot bucket is required for s3 snapshots")
		}
		switch c.Snapshot.SSEAlgorithm {
		case "", "AES256", "aws:kms":
		default:
			return fmt.Errorf("snapshot sse must be 'AES256' or 'aws:kms', got %q", c.Snapshot.SSEAlgorithm)
		}
		if c.Snapshot.SSEKMSKeyID != "" && c.Snapshot.SSEAlgorithm != "aws:kms" {
			return errors.New("snapshot kms key requires sse 'aws:kms'")
		}
	default:
		return fmt.Errorf("unsupported snapshot type: %s", c.Snapshot.Type)
	}

	if c.BatchConcurrency < 1 {
		return errors.New("batch concurrency must be at least 1")
	}
	if c.RateLimitPerSecond < 0 {
		return errors.New("rate limit cannot be negative")
	}
	if c.EventsURL != "" {
		if _, err := url.ParseRequestURI(c.EventsURL); err != nil {
			return fmt.Errorf("invalid events url: %w", err)
		}
	}
	return nil
}

// Runtime is everything the server needs from a built configuration.
type Runtime struct {
	Service  moderation.Service
	Registry *prometheus.Registry
	Store    moderation.Store

	closers []func()
}

// Close releases pools and clients in reverse order of creation.
func (r *Runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
}

// BuildService creates the Service and its dependencies from the configuration.
// The caller must Close the returned Runtime.
func (c *ServerConfig) BuildService(ctx context.Context, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rt := &Runtime{Registry: prometheus.NewRegistry()}
	rt.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	store, err := c.buildStore(ctx, rt)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to build store: %w", err)
	}
	rt.Store = store

	sink, err := c.buildEventSink(ctx, rt)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to build event sink: %w", err)
	}

	options := []moderation.Option{
		moderation.WithStore(store),
		moderation.WithEventSink(sink),
		moderation.WithLogger(logger),
		moderation.WithMetrics(moderation.NewMetrics(rt.Registry)),
		moderation.WithBatchConcurrency(c.BatchConcurrency),
	}

	snapshots, err := c.buildSnapshotStore(ctx)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to build snapshot store: %w", err)
	}
	if snapshots != nil {
		options = append(options, moderation.WithSnapshotStore(snapshots))
	}

	svc, err := moderation.New(options...)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Service = svc

	logger.Info("moderation service configured",
		"database", c.DatabaseType,
		"redis", c.RedisURL != "",
		"cloudevents", c.EventsURL != "",
		"snapshots", c.Snapshot.Type,
		"batch_concurrency", c.BatchConcurrency,
	)
	return rt, nil
}

func (c *ServerConfig) buildStore(ctx context.Context, rt *Runtime) (moderation.Store, error) {
	switch c.DatabaseType {
	case DatabaseMemory:
		return memory.New(), nil

	case DatabasePostgres:
		if err := repopg.Migrate(ctx, c.DatabaseURL, c.DBSchema); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		if schema := c.DBSchema; schema != "" {
			cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
				_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
				return err
			}
		}
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		rt.closers = append(rt.closers, pool.Close)
		return repopg.NewWithPool(pool), nil

	case DatabaseSQLite:
		store, err := sqlite.Open(c.SQLitePath)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, func() { store.Close() })
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

func (c *ServerConfig) buildEventSink(ctx context.Context, rt *Runtime) (moderation.EventSink, error) {
	var sinks []moderation.EventSink

	if c.RedisURL != "" {
		sink, client, err := redissink.NewFromURL(ctx, c.RedisURL, c.RedisChannel)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, func() { client.Close() })
		sinks = append(sinks, sink)
	}

	if c.EventsURL != "" {
		sink, err := cesink.NewHTTP(c.EventsURL, c.EventsSource)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink)
	}

	return moderation.NewMultiEventSink(sinks...), nil
}

func (c *ServerConfig) buildSnapshotStore(ctx context.Context) (moderation.SnapshotStore, error) {
	switch c.Snapshot.Type {
	case SnapshotNone:
		return nil, nil
	case SnapshotMemory:
		return memorysnapshot.New(), nil
	case SnapshotS3:
		return s3snapshot.New(ctx, s3snapshot.Config{
			Region:                 c.Snapshot.Region,
			Bucket:                 c.Snapshot.Bucket,
			Prefix:                 c.Snapshot.Prefix,
			AccessKeyID:            c.Snapshot.AccessKeyID,
			SecretAccessKey:        c.Snapshot.SecretAccessKey,
			Endpoint:               c.Snapshot.Endpoint,
			UsePathStyle:           c.Snapshot.UsePathStyle,
			CreateBucketIfNotExist: c.Snapshot.CreateBucket,
			EnableSSE:              c.Snapshot.SSEAlgorithm != "",
			SSEAlgorithm:           c.Snapshot.SSEAlgorithm,
			SSEKMSKeyID:            c.Snapshot.SSEKMSKeyID,
		})
	default:
		return nil, fmt.Errorf("unsupported snapshot type: %s", c.Snapshot.Type)
	}
}

// parseDatabaseURL maps a DATABASE_URL onto a database type.
func parseDatabaseURL(raw string, c *ServerConfig) error {
	switch {
	case raw == "" || raw == "memory" || raw == "memory://":
		c.DatabaseType = DatabaseMemory
		c.DatabaseURL = ""
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		c.DatabaseType = DatabasePostgres
		c.DatabaseURL = raw
	case strings.HasPrefix(raw, "sqlite://"):
		path := strings.TrimPrefix(raw, "sqlite://")
		if path == "" {
			return errors.New("sqlite path cannot be empty in DATABASE_URL")
		}
		c.DatabaseType = DatabaseSQLite
		c.DatabaseURL = raw
		c.SQLitePath = path
	default:
		return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory', 'postgres://...' or 'sqlite://...')", raw)
	}
	return nil
}

// parseSnapshotURL maps a SNAPSHOT_URL onto snapshot settings.
// Format: memory:// or s3://bucket/prefix?region=us-east-1&endpoint=http://localhost:9000&path_style=true&create_bucket=true&sse=aws:kms&kms_key=alias/archive
func parseSnapshotURL(raw string, s *SnapshotConfig) error {
	switch {
	case raw == "" || raw == "none":
		s.Type = SnapshotNone
		return nil
	case raw == "memory" || raw == "memory://":
		s.Type = SnapshotMemory
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid SNAPSHOT_URL: %w", err)
	}
	if u.Scheme != "s3" {
		return fmt.Errorf("unsupported SNAPSHOT_URL format: %s (use 'memory://' or 's3://bucket')", raw)
	}
	if u.Host == "" {
		return errors.New("S3 bucket name cannot be empty in SNAPSHOT_URL")
	}

	q := u.Query()
	s.Type = SnapshotS3
	s.Bucket = u.Host
	s.Prefix = strings.Trim(u.Path, "/")
	if v := q.Get("region"); v != "" {
		s.Region = v
	}
	if v := q.Get("endpoint"); v != "" {
		s.Endpoint = v
	}
	s.UsePathStyle = q.Get("path_style") == "true"
	s.CreateBucket = q.Get("create_bucket") == "true"
	if v := q.Get("sse"); v != "" {
		s.SSEAlgorithm = v
	}
	if v := q.Get("kms_key"); v != "" {
		s.SSEKMSKeyID = v
	}
	return nil
}
