package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ndrandal/fund-forge-go/internal/basedata"
	"github.com/ndrandal/fund-forge-go/internal/codec"
)

// maxAsOfLookbackDays bounds get_asof's backward scan per §4.2.
const maxAsOfLookbackDays = 30

// dayFiles lists every day file under key's directory, sorted ascending —
// the YYYY/MM/YYYYMMDD.bin layout is lexicographically sortable, so a plain
// string sort over full paths is a chronological walk.
func (s *Store) dayFiles(key Key) ([]string, error) {
	root := key.Dir(s.root)
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		if filepath.Ext(path) == ".bin" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("archive: walk %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

func (s *Store) readDay(path string) ([]basedata.BaseDatum, error) {
	raw, err := s.cache.get(path)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	items, err := codec.DecodeRaw(raw)
	if err != nil {
		return nil, fmt.Errorf("archive: decode %s: %w", path, err)
	}
	return items, nil
}

// GetRange returns every datum under key with start <= t <= end, sorted
// ascending.
func (s *Store) GetRange(ctx context.Context, key Key, start, end time.Time) ([]basedata.BaseDatum, error) {
	files, err := s.dayFiles(key)
	if err != nil {
		return nil, err
	}

	start, end = start.UTC(), end.UTC()
	var out []basedata.BaseDatum
	for _, path := range files {
		day, err := dayOfPath(path)
		if err != nil {
			return nil, err
		}
		dayStart, dayEnd := dayBounds(day)
		if dayEnd.Before(start) || dayStart.After(end) {
			continue
		}
		items, err := s.readDay(path)
		if err != nil {
			return nil, err
		}
		for _, d := range items {
			t := d.TimeClosedUTC()
			if !t.Before(start) && !t.After(end) {
				out = append(out, d)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TimeClosedUTC().Before(out[j].TimeClosedUTC())
	})
	return out, nil
}

// GetLatestTime walks from the latest day file backward, returning the max
// timestamp found, or false if the tree is empty.
func (s *Store) GetLatestTime(ctx context.Context, key Key) (time.Time, bool, error) {
	files, err := s.dayFiles(key)
	if err != nil {
		return time.Time{}, false, err
	}
	for i := len(files) - 1; i >= 0; i-- {
		items, err := s.readDay(files[i])
		if err != nil {
			return time.Time{}, false, err
		}
		if len(items) == 0 {
			continue
		}
		latest := items[0].TimeClosedUTC()
		for _, d := range items[1:] {
			if d.TimeClosedUTC().After(latest) {
				latest = d.TimeClosedUTC()
			}
		}
		return latest, true, nil
	}
	return time.Time{}, false, nil
}

// GetEarliestTime walks from the earliest day file forward, returning the
// min timestamp found, or false if the tree is empty.
func (s *Store) GetEarliestTime(ctx context.Context, key Key) (time.Time, bool, error) {
	files, err := s.dayFiles(key)
	if err != nil {
		return time.Time{}, false, err
	}
	for _, path := range files {
		items, err := s.readDay(path)
		if err != nil {
			return time.Time{}, false, err
		}
		if len(items) == 0 {
			continue
		}
		earliest := items[0].TimeClosedUTC()
		for _, d := range items[1:] {
			if d.TimeClosedUTC().Before(earliest) {
				earliest = d.TimeClosedUTC()
			}
		}
		return earliest, true, nil
	}
	return time.Time{}, false, nil
}

// GetAsOf returns the greatest datum with time <= t, scanning back at most
// maxAsOfLookbackDays calendar days before giving up.
func (s *Store) GetAsOf(ctx context.Context, key Key, t time.Time) (basedata.BaseDatum, bool, error) {
	t = t.UTC()
	for i := 0; i <= maxAsOfLookbackDays; i++ {
		day := t.AddDate(0, 0, -i)
		path := key.DayPath(s.root, day)
		items, err := s.readDay(path)
		if err != nil {
			return nil, false, err
		}

		var best basedata.BaseDatum
		for _, d := range items {
			dt := d.TimeClosedUTC()
			if dt.After(t) {
				continue
			}
			if best == nil || dt.After(best.TimeClosedUTC()) {
				best = d
			}
		}
		if best != nil {
			return best, true, nil
		}
	}
	return nil, false, nil
}

// GetCompressedBlobs returns the verbatim gzip-compressed contents of every
// day file under any of keys whose calendar day falls in [start, end], for
// bulk network shipment (e.g. to cold storage or a replicating peer).
func (s *Store) GetCompressedBlobs(ctx context.Context, keys []Key, start, end time.Time) (map[string][]byte, error) {
	out := make(map[string][]byte)
	start, end = start.UTC(), end.UTC()
	for _, key := range keys {
		files, err := s.dayFiles(key)
		if err != nil {
			return nil, err
		}
		for _, path := range files {
			day, err := dayOfPath(path)
			if err != nil {
				return nil, err
			}
			dayStart, dayEnd := dayBounds(day)
			if dayEnd.Before(start) || dayStart.After(end) {
				continue
			}
			blob, err := os.ReadFile(path)
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return nil, fmt.Errorf("archive: read blob %s: %w", path, err)
			}
			out[path] = blob
		}
	}
	return out, nil
}

// dayOfPath parses the YYYYMMDD.bin filename back into a UTC time.
func dayOfPath(path string) (time.Time, error) {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stamp := base[:len(base)-len(ext)]
	t, err := time.ParseInLocation("20060102", stamp, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("archive: parse day from %s: %w", path, err)
	}
	return t, nil
}
