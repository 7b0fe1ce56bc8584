// Package coldstore ships compressed archive day-blobs to S3 for cold
// retention, the network-shipment side of the historical store's
// get_compressed_blobs primitive. It is a periodic cycle in the shape of
// the teacher's internal/archive.Archiver: a ticker-driven loop that walks
// a cursor forward and uploads whatever fell due since the last cycle.
package coldstore

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/ndrandal/fund-forge-go/internal/archive"
)

// Uploader is the subset of *s3.Client the shipper needs, so tests can
// substitute a fake without spinning up a real bucket.
type Uploader interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config controls shipment cadence and S3 object placement.
type Config struct {
	Bucket   string
	Prefix   string
	Interval time.Duration // how often Run ships a new batch
	AfterAge time.Duration // only ship day-blobs whose day ended at least this long ago
}

func (c Config) normalized() Config {
	if c.Interval <= 0 {
		c.Interval = 6 * time.Hour
	}
	if c.AfterAge <= 0 {
		c.AfterAge = 24 * time.Hour
	}
	return c
}

// Shipper periodically uploads compressed archive day-blobs to S3. It
// tracks a per-key cursor in memory, the way the teacher's Archiver tracks
// a single Mongo-persisted cursor, except scoped per (vendor, symbol,
// resolution, data type) key and held in-process: a day-blob already
// shipped is a cheap no-op to re-upload (S3 PutObject overwrites
// idempotently), so losing the cursor across a restart costs one redundant
// upload cycle rather than correctness.
type Shipper struct {
	cfg     Config
	archive *archive.Store
	client  Uploader
	log     *zap.Logger

	mu      sync.Mutex
	shipped map[archive.Key]time.Time // latest day-start already shipped
}

// New builds a Shipper. client is typically *s3.Client built with
// config.LoadDefaultConfig; store supplies the compressed blobs to ship.
func New(cfg Config, store *archive.Store, client Uploader, log *zap.Logger) *Shipper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Shipper{
		cfg: cfg.normalized(), archive: store, client: client, log: log,
		shipped: make(map[archive.Key]time.Time),
	}
}

// Run drives the periodic shipment cycle until ctx is cancelled. keys is
// the set of archive directories coldstore is responsible for; cmd/runtime
// passes the one-minute candle keys of its demo symbols.
func (s *Shipper) Run(ctx context.Context, keys []archive.Key) {
	s.log.Info("coldstore: starting shipment loop",
		zap.String("bucket", s.cfg.Bucket), zap.Duration("interval", s.cfg.Interval))

	s.cycle(ctx, keys)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cycle(ctx, keys)
		}
	}
}

func (s *Shipper) cycle(ctx context.Context, keys []archive.Key) {
	if s.cfg.Bucket == "" {
		return // coldstore disabled
	}
	// A day qualifies once its end (day start + 24h) is AfterAge in the past.
	cutoff := time.Now().Add(-s.cfg.AfterAge - 24*time.Hour)
	for _, key := range keys {
		if err := s.shipKey(ctx, key, cutoff); err != nil {
			s.log.Warn("coldstore: ship key failed", zap.Any("key", key), zap.Error(err))
		}
	}
}

func (s *Shipper) shipKey(ctx context.Context, key archive.Key, cutoff time.Time) error {
	from := s.cursorFor(key)
	blobs, err := s.archive.GetCompressedBlobs(ctx, []archive.Key{key}, from, cutoff)
	if err != nil {
		return fmt.Errorf("coldstore: get compressed blobs: %w", err)
	}
	if len(blobs) == 0 {
		return nil
	}

	var latest time.Time
	for path, blob := range blobs {
		objectKey, day, err := s.objectKey(key, path)
		if err != nil {
			return err
		}
		if err := s.upload(ctx, objectKey, blob); err != nil {
			return err
		}
		if day.After(latest) {
			latest = day
		}
	}

	s.mu.Lock()
	if latest.After(s.shipped[key]) {
		s.shipped[key] = latest
	}
	s.mu.Unlock()
	return nil
}

func (s *Shipper) cursorFor(key archive.Key) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shipped[key]
}

// objectKey derives the S3 object key from a day-file's absolute path by
// stripping the archive root and joining the configured prefix, so S3's
// layout mirrors the archive's own historical/<vendor>/.../YYYYMMDD.bin
// tree under <prefix>/.
func (s *Shipper) objectKey(key archive.Key, path string) (string, time.Time, error) {
	rel, err := filepath.Rel(s.archive.Root(), path)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("coldstore: relativize path %s: %w", path, err)
	}
	day, err := dayOfFileName(filepath.Base(rel))
	if err != nil {
		return "", time.Time{}, err
	}
	objectKey := strings.TrimPrefix(filepath.ToSlash(filepath.Join(s.cfg.Prefix, rel)), "/")
	return objectKey, day, nil
}

func dayOfFileName(name string) (time.Time, error) {
	name = strings.TrimSuffix(name, ".bin")
	t, err := time.Parse("20060102", name)
	if err != nil {
		return time.Time{}, fmt.Errorf("coldstore: malformed day file name %q: %w", name, err)
	}
	return t, nil
}

func (s *Shipper) upload(ctx context.Context, objectKey string, blob []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(s.cfg.Bucket),
		Key:             aws.String(objectKey),
		Body:            bytes.NewReader(blob),
		ContentEncoding: aws.String("gzip"),
	})
	if err != nil {
		return fmt.Errorf("coldstore: put object %s: %w", objectKey, err)
	}
	return nil
}
