package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseModeRoundTrips(t *testing.T) {
	for _, m := range []Mode{ModeBacktest, ModeLivePaperTrading, ModeLive} {
		got, err := ParseMode(m.String())
		if err != nil {
			t.Fatalf("ParseMode(%q): %v", m.String(), err)
		}
		if got != m {
			t.Errorf("ParseMode(%q) = %v, want %v", m.String(), got, m)
		}
	}
}

func TestParseModeRejectsUnknown(t *testing.T) {
	if _, err := ParseMode("turbo"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func resetFlags(t *testing.T) {
	t.Helper()
	oldArgs := os.Args
	os.Args = []string{"test"}
	t.Cleanup(func() { os.Args = oldArgs })
}

func TestLoadUsesDefaultsWithoutConfigFile(t *testing.T) {
	resetFlags(t)
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != ModeBacktest {
		t.Errorf("Mode = %v, want backtest", cfg.Mode)
	}
	if cfg.MaxConcurrentDownloads != 8 {
		t.Errorf("MaxConcurrentDownloads = %d, want 8", cfg.MaxConcurrentDownloads)
	}
	if cfg.Currency != "USD" {
		t.Errorf("Currency = %q, want USD", cfg.Currency)
	}
}

func TestLoadClampsMaxConcurrentDownloads(t *testing.T) {
	resetFlags(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("max_concurrent_downloads: 400\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxConcurrentDownloads != hardMaxConcurrentDownloads {
		t.Errorf("MaxConcurrentDownloads = %d, want %d", cfg.MaxConcurrentDownloads, hardMaxConcurrentDownloads)
	}
}

func TestValidateRejectsNegativeStartingCash(t *testing.T) {
	resetFlags(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.StartingCash = cfg.StartingCash.Neg()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative starting cash")
	}
}

func TestValidateRequiresMongoURIOutsideBacktest(t *testing.T) {
	resetFlags(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Mode = ModeLive
	cfg.MongoURI = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing mongo_uri outside backtest")
	}
}

func TestColdstoreEnabledReflectsS3Bucket(t *testing.T) {
	resetFlags(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ColdstoreEnabled() {
		t.Error("expected coldstore disabled by default")
	}
	cfg.S3Bucket = "archive-bucket"
	if !cfg.ColdstoreEnabled() {
		t.Error("expected coldstore enabled once S3Bucket is set")
	}
}
