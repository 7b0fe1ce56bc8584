package archive

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sys/unix"
)

const hotCacheCapacity = 200

// mmapEntry holds a memory-mapped view of one day file's decompressed
// payload. file is kept open to hold the mapping valid after the backing
// tmp path is unlinked; data is nil for an empty day file.
type mmapEntry struct {
	data []byte
	file *os.File
}

func (e *mmapEntry) close() {
	if e.data != nil {
		unix.Munmap(e.data)
	}
	if e.file != nil {
		e.file.Close()
	}
}

// hotCache is the archive's per-path mmap cache: fixed capacity, LRU
// eviction, one entry per day-file path. Population is serialized per path
// (via populating) so concurrent readers of a cold path share one mmap
// rather than racing to build it.
type hotCache struct {
	mu         sync.Mutex
	lru        *lru.Cache[string, *mmapEntry]
	populating map[string]*sync.WaitGroup
	lastAccess map[string]time.Time
}

func newHotCache() *hotCache {
	c := &hotCache{
		populating: make(map[string]*sync.WaitGroup),
		lastAccess: make(map[string]time.Time),
	}
	l, err := lru.NewWithEvict[string, *mmapEntry](hotCacheCapacity, func(path string, e *mmapEntry) {
		e.close()
	})
	if err != nil {
		// Capacity is a package constant > 0; NewWithEvict only errors on
		// size <= 0.
		panic(fmt.Sprintf("archive: hot cache init: %v", err))
	}
	c.lru = l
	return c
}

// get returns the decoded contents of path, populating the cache on miss.
// Returns (nil, nil) if path does not exist.
func (c *hotCache) get(path string) ([]byte, error) {
	c.mu.Lock()
	if e, ok := c.lru.Get(path); ok {
		c.lastAccess[path] = time.Now()
		c.mu.Unlock()
		return e.data, nil
	}
	if wg, busy := c.populating[path]; busy {
		c.mu.Unlock()
		wg.Wait()
		return c.get(path)
	}
	wg := &sync.WaitGroup{}
	wg.Add(1)
	c.populating[path] = wg
	c.mu.Unlock()

	entry, err := populate(path)

	c.mu.Lock()
	delete(c.populating, path)
	if err == nil {
		c.lru.Add(path, entry)
		c.lastAccess[path] = time.Now()
	}
	c.mu.Unlock()
	wg.Done()

	if err != nil {
		return nil, err
	}
	return entry.data, nil
}

// evict removes path from the cache without reading it, used after bulk
// writes (is_bulk == true) per §4.2.
func (c *hotCache) evict(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(path)
	delete(c.lastAccess, path)
}

// refresh replaces path's cached entry with the just-written raw bytes,
// used after non-bulk writes so readers immediately see new data.
func (c *hotCache) refresh(path string, raw []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.lru.Peek(path); ok {
		old.close()
		c.lru.Remove(path)
	}
	c.lru.Add(path, &mmapEntry{data: raw})
	c.lastAccess[path] = time.Now()
}

// evictIdle drops entries whose last access exceeds idleAfter. Called
// periodically by Store's background sweep.
func (c *hotCache) evictIdle(idleAfter time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff := time.Now().Add(-idleAfter)
	for path, last := range c.lastAccess {
		if last.Before(cutoff) {
			c.lru.Remove(path)
			delete(c.lastAccess, path)
		}
	}
}

// populate gunzips path into a sibling tmp file, mmaps the tmp file, then
// unlinks it — the open file descriptor keeps the mapping backed after the
// directory entry is removed.
func populate(path string) (*mmapEntry, error) {
	compressed, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &mmapEntry{data: nil}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("archive: read %s: %w", path, err)
	}

	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("archive: gzip open %s: %w", path, err)
	}
	defer gz.Close()

	tmpPath := path + ".tmp"
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("archive: create tmp for %s: %w", path, err)
	}
	if _, err := io.Copy(tmpFile, gz); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("archive: decompress %s: %w", path, err)
	}

	fi, err := tmpFile.Stat()
	if err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("archive: stat tmp for %s: %w", path, err)
	}

	var data []byte
	if fi.Size() > 0 {
		data, err = unix.Mmap(int(tmpFile.Fd()), 0, int(fi.Size()), unix.PROT_READ, unix.MAP_SHARED)
		if err != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
			return nil, fmt.Errorf("archive: mmap tmp for %s: %w", path, err)
		}
	}

	os.Remove(tmpPath)
	return &mmapEntry{data: data, file: tmpFile}, nil
}
