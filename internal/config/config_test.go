package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SHOPWATCH_DATABASE_URL", "postgres://localhost/shop")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.ListenAddr != "localhost:8080" {
		t.Errorf("ListenAddr = %q", c.ListenAddr)
	}
	if c.PollWindow != 5*time.Second {
		t.Errorf("PollWindow = %v", c.PollWindow)
	}
	if c.Retention != time.Hour {
		t.Errorf("Retention = %v", c.Retention)
	}
	if c.Tick != time.Second {
		t.Errorf("Tick = %v", c.Tick)
	}
	if c.SnapshotLimit != 5 {
		t.Errorf("SnapshotLimit = %d", c.SnapshotLimit)
	}
	if c.StrictFrames {
		t.Error("StrictFrames should default to false")
	}
	if c.ArchiveInterval != 15*time.Minute {
		t.Errorf("ArchiveInterval = %v", c.ArchiveInterval)
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("SHOPWATCH_DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail without SHOPWATCH_DATABASE_URL")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SHOPWATCH_DATABASE_URL", "postgres://localhost/shop")
	t.Setenv("SHOPWATCH_LISTEN_ADDR", ":9999")
	t.Setenv("SHOPWATCH_POLL_WINDOW", "10s")
	t.Setenv("SHOPWATCH_STRICT_FRAMES", "true")
	t.Setenv("SHOPWATCH_SNAPSHOT_LIMIT", "3")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.ListenAddr != ":9999" {
		t.Errorf("ListenAddr = %q", c.ListenAddr)
	}
	if c.PollWindow != 10*time.Second {
		t.Errorf("PollWindow = %v", c.PollWindow)
	}
	if !c.StrictFrames {
		t.Error("StrictFrames should be true")
	}
	if c.SnapshotLimit != 3 {
		t.Errorf("SnapshotLimit = %d", c.SnapshotLimit)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("SHOPWATCH_DATABASE_URL", "postgres://localhost/shop")
	t.Setenv("SHOPWATCH_POLL_WINDOW", "not-a-duration")

	if _, err := Load(); err == nil {
		t.Fatal("Load should reject a malformed duration")
	}
}
