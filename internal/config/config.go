package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	ListenAddr  string // SHOPWATCH_LISTEN_ADDR (default "localhost:8080")
	DatabaseURL string // SHOPWATCH_DATABASE_URL (required)
	NATSURL     string // SHOPWATCH_NATS_URL (optional, empty = poll the event log)

	PollWindow    time.Duration // SHOPWATCH_POLL_WINDOW (default 5s)
	Retention     time.Duration // SHOPWATCH_RETENTION (default 1h)
	Tick          time.Duration // SHOPWATCH_TICK (default 1s)
	SnapshotLimit int           // SHOPWATCH_SNAPSHOT_LIMIT (default 5)
	StrictFrames  bool          // SHOPWATCH_STRICT_FRAMES (default false; legacy masking)

	// Archive settings
	ArchiveInterval   time.Duration // SHOPWATCH_ARCHIVE_INTERVAL (default 15m; 0 = disabled)
	ArchiveS3Bucket   string        // SHOPWATCH_ARCHIVE_S3_BUCKET (enables S3 when set)
	ArchiveS3Endpoint string        // SHOPWATCH_ARCHIVE_S3_ENDPOINT (custom endpoint for MinIO)
	ArchiveS3Region   string        // SHOPWATCH_ARCHIVE_S3_REGION (default "us-east-1")
	ArchiveS3Key      string        // SHOPWATCH_ARCHIVE_S3_KEY (default "shopwatch/events.jsonl")
}

func Load() (*Config, error) {
	c := &Config{
		ListenAddr:        envOrDefault("SHOPWATCH_LISTEN_ADDR", "localhost:8080"),
		DatabaseURL:       os.Getenv("SHOPWATCH_DATABASE_URL"),
		NATSURL:           os.Getenv("SHOPWATCH_NATS_URL"),
		ArchiveS3Bucket:   os.Getenv("SHOPWATCH_ARCHIVE_S3_BUCKET"),
		ArchiveS3Endpoint: os.Getenv("SHOPWATCH_ARCHIVE_S3_ENDPOINT"),
		ArchiveS3Region:   envOrDefault("SHOPWATCH_ARCHIVE_S3_REGION", "us-east-1"),
		ArchiveS3Key:      envOrDefault("SHOPWATCH_ARCHIVE_S3_KEY", "shopwatch/events.jsonl"),
	}
	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("SHOPWATCH_DATABASE_URL is required")
	}

	var err error
	if c.PollWindow, err = envDuration("SHOPWATCH_POLL_WINDOW", 5*time.Second); err != nil {
		return nil, err
	}
	if c.Retention, err = envDuration("SHOPWATCH_RETENTION", time.Hour); err != nil {
		return nil, err
	}
	if c.Tick, err = envDuration("SHOPWATCH_TICK", time.Second); err != nil {
		return nil, err
	}
	if c.ArchiveInterval, err = envDuration("SHOPWATCH_ARCHIVE_INTERVAL", 15*time.Minute); err != nil {
		return nil, err
	}

	limitStr := envOrDefault("SHOPWATCH_SNAPSHOT_LIMIT", "5")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 0 {
		return nil, fmt.Errorf("SHOPWATCH_SNAPSHOT_LIMIT: invalid value %q", limitStr)
	}
	c.SnapshotLimit = limit

	if v := os.Getenv("SHOPWATCH_STRICT_FRAMES"); v != "" {
		strict, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("SHOPWATCH_STRICT_FRAMES: %w", err)
		}
		c.StrictFrames = strict
	}

	return c, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
