// Package config loads the runtime's configuration: flags with env and
// optional config-file fallbacks bound through viper, following the same
// flags-plus-env shape the teacher's own config.Load used, with viper
// standing in for the teacher's hand-rolled envStr/envInt helpers so a
// config.yaml or .env can also override a default.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Mode selects the runtime's execution mode.
type Mode int

const (
	ModeBacktest Mode = iota
	ModeLivePaperTrading
	ModeLive
)

func (m Mode) String() string {
	switch m {
	case ModeBacktest:
		return "backtest"
	case ModeLivePaperTrading:
		return "live_paper_trading"
	case ModeLive:
		return "live"
	default:
		return "unknown"
	}
}

// ParseMode is the inverse of String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "backtest":
		return ModeBacktest, nil
	case "live_paper_trading", "livepapertrading":
		return ModeLivePaperTrading, nil
	case "live":
		return ModeLive, nil
	default:
		return 0, fmt.Errorf("config: unknown mode %q", s)
	}
}

const hardMaxConcurrentDownloads = 40

// Config is the runtime's top-level configuration, covering both §6's
// enumerated fields (Mode through Leverage) and the ambient services
// (archive root, Mongo URI, coldstore, feedio, logging) the teacher's own
// config.Load carried as flags.
type Config struct {
	Mode            Mode
	StartingCash    decimal.Decimal
	Currency        string
	BufferingDuration time.Duration // zero means unbuffered: forward every event immediately
	Leverage        int

	MaxConcurrentDownloads int
	UpdateSeconds          int
	ClearCacheDuration     time.Duration
	FillForward            bool
	RetainHistory          int

	ArchiveRoot string
	DataDir     string // parent of credentials/, per §6's <data>/credentials path

	MongoURI string

	S3Bucket             string
	S3Region             string
	S3Prefix             string
	ArchiveIntervalHours int
	ArchiveAfterHours    int

	FeedioPort int
	FeedioHost string

	LogLevel string
}

// Load builds viper from (in ascending priority) defaults, an optional
// config file at path, and FUNDFORGE_-prefixed environment variables, binds
// flags on top (so a flag always wins), parses the process's flags, and
// returns the assembled Config. path may be empty, in which case a missing
// config.yaml in the working directory is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FUNDFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		// An explicit path that does not exist surfaces as a file-system
		// error rather than ConfigFileNotFoundError.
		notFound = notFound || os.IsNotExist(err)
		if !notFound && path != "" {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	// A dedicated FlagSet, rather than flag.CommandLine, so Load can be
	// called more than once per process (tests, mainly) without panicking
	// on redefined flags.
	fs := flag.NewFlagSet("fundforge", flag.ContinueOnError)

	modeStr := fs.String("mode", v.GetString("mode"), "backtest | live_paper_trading | live")
	startingCashStr := fs.String("starting-cash", v.GetString("starting_cash"), "initial paper balance")
	currency := fs.String("currency", v.GetString("currency"), "reporting currency")
	bufferingDuration := fs.Duration("buffering-duration", v.GetDuration("buffering_duration"), "event emission batching cadence (0 = unbuffered)")
	leverage := fs.Int("leverage", v.GetInt("leverage"), "per-account integer leverage for paper margin")

	maxConcurrentDownloads := fs.Int("max-concurrent-downloads", v.GetInt("max_concurrent_downloads"), "backfill download permit, hard-capped at 40")
	updateSeconds := fs.Int("update-seconds", v.GetInt("update_seconds"), "backfill scheduler period in seconds")
	clearCacheDuration := fs.Duration("clear-cache-duration", v.GetDuration("clear_cache_duration"), "mmap idle eviction period")
	fillForward := fs.Bool("fill-forward", v.GetBool("fill_forward"), "emit synthetic flat bars across empty consolidator windows")
	retainHistory := fs.Int("retain-history", v.GetInt("retain_history"), "rolling-window depth per subscription")

	archiveRoot := fs.String("archive-root", v.GetString("archive_root"), "historical archive root directory")
	dataDir := fs.String("data-dir", v.GetString("data_dir"), "parent directory of credentials/")
	mongoURI := fs.String("mongo-uri", v.GetString("mongo_uri"), "MongoDB connection URI for the catalog")

	s3Bucket := fs.String("s3-bucket", v.GetString("s3_bucket"), "S3 bucket for cold storage shipment (empty = disabled)")
	s3Region := fs.String("s3-region", v.GetString("s3_region"), "AWS region for S3")
	s3Prefix := fs.String("s3-prefix", v.GetString("s3_prefix"), "S3 key prefix for shipped archive blobs")
	archiveIntervalHours := fs.Int("archive-interval", v.GetInt("archive_interval_hours"), "hours between coldstore shipment runs")
	archiveAfterHours := fs.Int("archive-after", v.GetInt("archive_after_hours"), "ship archive data older than this many hours")

	feedioPort := fs.Int("feedio-port", v.GetInt("feedio_port"), "feedio websocket listen port")
	feedioHost := fs.String("feedio-host", v.GetString("feedio_host"), "feedio websocket listen host")

	logLevel := fs.String("log-level", v.GetString("log_level"), "zap log level")

	if err := fs.Parse(os.Args[1:]); err != nil {
		return nil, fmt.Errorf("config: parse flags: %w", err)
	}

	mode, err := ParseMode(*modeStr)
	if err != nil {
		return nil, err
	}
	startingCash, err := decimal.NewFromString(*startingCashStr)
	if err != nil {
		return nil, fmt.Errorf("config: parse starting_cash: %w", err)
	}
	if *maxConcurrentDownloads <= 0 || *maxConcurrentDownloads > hardMaxConcurrentDownloads {
		*maxConcurrentDownloads = hardMaxConcurrentDownloads
	}

	return &Config{
		Mode: mode, StartingCash: startingCash, Currency: *currency,
		BufferingDuration: *bufferingDuration, Leverage: *leverage,

		MaxConcurrentDownloads: *maxConcurrentDownloads,
		UpdateSeconds:          *updateSeconds,
		ClearCacheDuration:     *clearCacheDuration,
		FillForward:            *fillForward,
		RetainHistory:          *retainHistory,

		ArchiveRoot: *archiveRoot, DataDir: *dataDir, MongoURI: *mongoURI,

		S3Bucket: *s3Bucket, S3Region: *s3Region, S3Prefix: *s3Prefix,
		ArchiveIntervalHours: *archiveIntervalHours, ArchiveAfterHours: *archiveAfterHours,

		FeedioPort: *feedioPort, FeedioHost: *feedioHost,
		LogLevel: *logLevel,
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "backtest")
	v.SetDefault("starting_cash", "100000")
	v.SetDefault("currency", "USD")
	v.SetDefault("buffering_duration", 0)
	v.SetDefault("leverage", 1)

	v.SetDefault("max_concurrent_downloads", 8)
	v.SetDefault("update_seconds", 60)
	v.SetDefault("clear_cache_duration", 10*time.Minute)
	v.SetDefault("fill_forward", true)
	v.SetDefault("retain_history", 500)

	v.SetDefault("archive_root", "./data/historical")
	v.SetDefault("data_dir", "./data")
	v.SetDefault("mongo_uri", "mongodb://localhost:27017/fundforge")

	v.SetDefault("s3_bucket", "")
	v.SetDefault("s3_region", "us-east-1")
	v.SetDefault("s3_prefix", "fund-forge")
	v.SetDefault("archive_interval_hours", 6)
	v.SetDefault("archive_after_hours", 24)

	v.SetDefault("feedio_port", 8100)
	v.SetDefault("feedio_host", "0.0.0.0")

	v.SetDefault("log_level", "info")
}

// Validate checks required fields and value ranges not already enforced by
// Load's parsing.
func (c *Config) Validate() error {
	if c.StartingCash.IsNegative() {
		return fmt.Errorf("config: starting_cash must be >= 0")
	}
	if c.Currency == "" {
		return fmt.Errorf("config: currency is required")
	}
	if c.Leverage <= 0 {
		return fmt.Errorf("config: leverage must be > 0")
	}
	if c.ArchiveRoot == "" {
		return fmt.Errorf("config: archive_root is required")
	}
	if c.Mode != ModeBacktest && c.MongoURI == "" {
		return fmt.Errorf("config: mongo_uri is required outside backtest mode")
	}
	return nil
}

// ColdstoreEnabled reports whether coldstore shipment is configured.
func (c *Config) ColdstoreEnabled() bool {
	return c.S3Bucket != ""
}
