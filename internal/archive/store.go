package archive

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/ndrandal/fund-forge-go/internal/basedata"
	"github.com/ndrandal/fund-forge-go/internal/codec"
)

// Store is the historical time-series archive (C2): day files on disk under
// root, an mmap hot cache in front of them, and per-path write
// serialization so concurrent savers never interleave a read-modify-write.
type Store struct {
	root  string
	locks *pathLockTable
	cache *hotCache
	log   *zap.Logger
}

// Config configures a Store. New reads only Root; the idle-eviction sweep
// period is the argument passed to Run, not ClearCacheDuration.
type Config struct {
	Root               string
	ClearCacheDuration time.Duration // not read by New or Run
}

// New opens (or creates) an archive rooted at cfg.Root.
func New(cfg Config, log *zap.Logger) (*Store, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("archive: root directory is required")
	}
	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, fmt.Errorf("archive: create root: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		root:  cfg.Root,
		locks: newPathLockTable(),
		cache: newHotCache(),
		log:   log,
	}, nil
}

// Root returns the archive's root directory, for callers (coldstore
// shipment, the archive CLI) that need to derive paths relative to it.
func (s *Store) Root() string {
	return s.root
}

// Run drives the background idle-eviction sweep until ctx is cancelled,
// mirroring the archive's "garbage-collects idle semaphores" requirement.
func (s *Store) Run(ctx context.Context, clearCacheDuration time.Duration) {
	if clearCacheDuration <= 0 {
		clearCacheDuration = 10 * time.Minute
	}
	ticker := time.NewTicker(clearCacheDuration)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cache.evictIdle(clearCacheDuration)
			s.locks.gcIdle(clearCacheDuration)
		}
	}
}

// Save stores a single datum; a no-op when it is not closed.
func (s *Store) Save(ctx context.Context, d basedata.BaseDatum) error {
	return s.SaveBulk(ctx, []basedata.BaseDatum{d}, false)
}

// SaveBulk groups items by (key, calendar day) and merge-writes each group.
// When isBulk is true the mmap cache entry for each touched path is
// evicted rather than refreshed, per §4.2.
func (s *Store) SaveBulk(ctx context.Context, items []basedata.BaseDatum, isBulk bool) error {
	type groupKey struct {
		key Key
		day time.Time
	}
	groups := make(map[groupKey][]basedata.BaseDatum)
	for _, d := range items {
		if !d.IsClosed() {
			continue
		}
		day, _ := dayBounds(d.TimeClosedUTC())
		gk := groupKey{key: KeyOf(d), day: day}
		groups[gk] = append(groups[gk], d)
	}

	for gk, group := range groups {
		if err := s.mergeWriteDay(ctx, gk.key, gk.day, group, isBulk); err != nil {
			return err
		}
	}
	return nil
}

// mergeWriteDay implements §4.2's merge-write algorithm for one (key, day)
// group: acquire the per-path write permit, merge incoming items over any
// existing file contents keyed by timestamp (last write wins, including
// last-in-input-order among the incoming group), re-encode, and replace the
// file atomically-enough that a read failure always leaves it absent, empty,
// or a valid gzip block.
func (s *Store) mergeWriteDay(ctx context.Context, key Key, day time.Time, incoming []basedata.BaseDatum, isBulk bool) error {
	path := key.DayPath(s.root, day)

	release, err := s.locks.acquire(ctx, path)
	if err != nil {
		return fmt.Errorf("archive: acquire write lock for %s: %w", path, err)
	}
	defer release()

	existingRaw, err := s.cache.get(path)
	if err != nil {
		return fmt.Errorf("archive: read existing %s: %w", path, err)
	}

	merged := make(map[int64]basedata.BaseDatum)
	if len(existingRaw) > 0 {
		items, err := codec.DecodeRaw(existingRaw)
		if err != nil {
			s.log.Warn("archive: existing day file unreadable, treating as absent",
				zap.String("path", path), zap.Error(err))
		} else {
			for _, d := range items {
				merged[d.TimeClosedUTC().UnixNano()] = d
			}
		}
	}
	for _, d := range incoming { // last occurrence in input order wins
		merged[d.TimeClosedUTC().UnixNano()] = d
	}

	values := make([]basedata.BaseDatum, 0, len(merged))
	for _, d := range merged {
		values = append(values, d)
	}

	if err := s.writeDayFile(path, values); err != nil {
		return err
	}

	if isBulk {
		s.cache.evict(path)
	} else {
		raw, err := codec.EncodeRaw(values)
		if err == nil {
			s.cache.refresh(path, raw)
		} else {
			s.cache.evict(path)
		}
	}
	return nil
}

// writeDayFile gzips values and (over)writes path. On failure it deletes
// whatever partial file might be left so the on-disk invariant — absent,
// empty, or valid gzip — always holds.
func (s *Store) writeDayFile(path string, values []basedata.BaseDatum) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("archive: mkdir for %s: %w", path, err)
	}

	var buf bytes.Buffer
	raw, err := codec.EncodeRaw(values)
	if err != nil {
		return fmt.Errorf("archive: encode %s: %w", path, err)
	}
	gz, err := gzip.NewWriterLevel(&buf, gzip.DefaultCompression)
	if err != nil {
		return fmt.Errorf("archive: new gzip writer for %s: %w", path, err)
	}
	if _, err := gz.Write(raw); err != nil {
		gz.Close()
		os.Remove(path)
		return fmt.Errorf("archive: gzip write %s: %w", path, err)
	}
	if err := gz.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("archive: gzip close %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("archive: open %s: %w", path, err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("archive: write %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("archive: fsync %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("archive: close %s: %w", path, err)
	}
	return nil
}
