// Package cache provides LRU caching of encoded artifacts with disk persistence.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/l3aro/go-program-graph/pkg/encode"
)

// DefaultSize is the number of artifacts kept in memory when Options.Size is zero.
const DefaultSize = 128

// entryExt is the extension of on-disk entries.
const entryExt = ".msgpack"

// ErrKeyNotFound is returned when a key is not found in the cache.
var ErrKeyNotFound = errors.New("key not found")

// Entry is one persisted artifact.
type Entry struct {
	Key       string           `msgpack:"key"`
	CreatedAt int64            `msgpack:"created_at"`
	Artifact  *encode.Artifact `msgpack:"artifact"`
}

// Options configures the cache.
type Options struct {
	// Size is the maximum number of artifacts kept in memory.
	Size int
	// Dir persists entries as msgpack files. Empty keeps the cache in memory only.
	Dir string
	// OnEvict is called when an entry leaves the in-memory LRU.
	OnEvict func(key string, a *encode.Artifact)
}

// Stats counts cache traffic.
type Stats struct {
	Hits      int64 `json:"hits"`
	DiskHits  int64 `json:"disk_hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// HitRate returns the share of lookups served from memory or disk.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.DiskHits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits+s.DiskHits) / float64(total)
}

// ArtifactCache keeps recently built artifacts in memory and, optionally, on disk.
// It is safe for concurrent use.
type ArtifactCache struct {
	mem *lru.Cache[string, *encode.Artifact]
	dir string

	mu    sync.Mutex
	stats Stats
}

// New creates a cache. The directory, when set, is created if missing.
func New(opts Options) (*ArtifactCache, error) {
	size := opts.Size
	if size <= 0 {
		size = DefaultSize
	}

	c := &ArtifactCache{dir: opts.Dir}
	mem, err := lru.NewWithEvict[string, *encode.Artifact](size, func(key string, a *encode.Artifact) {
		c.mu.Lock()
		c.stats.Evictions++
		c.mu.Unlock()
		if opts.OnEvict != nil {
			opts.OnEvict(key, a)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("creating lru: %w", err)
	}
	c.mem = mem

	if c.dir != "" {
		if err := os.MkdirAll(c.dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}
	return c, nil
}

// Get returns the artifact stored under key. Disk hits are promoted to memory.
func (c *ArtifactCache) Get(key string) (*encode.Artifact, bool) {
	if a, ok := c.mem.Get(key); ok {
		c.count(func(s *Stats) { s.Hits++ })
		return a, true
	}

	if c.dir != "" {
		entry, err := c.readEntry(key)
		if err == nil {
			c.mem.Add(key, entry.Artifact)
			c.count(func(s *Stats) { s.DiskHits++ })
			return entry.Artifact, true
		}
	}

	c.count(func(s *Stats) { s.Misses++ })
	return nil, false
}

// Set stores a under key in memory and, when a directory is configured, on disk.
func (c *ArtifactCache) Set(key string, a *encode.Artifact) error {
	c.mem.Add(key, a)
	if c.dir == "" {
		return nil
	}
	return c.writeEntry(Entry{Key: key, CreatedAt: time.Now().Unix(), Artifact: a})
}

// Delete removes key from memory and disk.
func (c *ArtifactCache) Delete(key string) error {
	c.mem.Remove(key)
	if c.dir == "" {
		return nil
	}
	if err := os.Remove(c.entryPath(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing cache entry: %w", err)
	}
	return nil
}

// Purge empties the in-memory LRU. Disk entries are kept.
func (c *ArtifactCache) Purge() {
	c.mem.Purge()
}

// Len returns the number of artifacts in memory.
func (c *ArtifactCache) Len() int {
	return c.mem.Len()
}

// Dir returns the persistence directory, empty when memory only.
func (c *ArtifactCache) Dir() string {
	return c.dir
}

// Stats returns a snapshot of the counters.
func (c *ArtifactCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *ArtifactCache) count(fn func(*Stats)) {
	c.mu.Lock()
	fn(&c.stats)
	c.mu.Unlock()
}

func (c *ArtifactCache) entryPath(key string) string {
	return filepath.Join(c.dir, key+entryExt)
}

func (c *ArtifactCache) readEntry(key string) (*Entry, error) {
	data, err := os.ReadFile(c.entryPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	var entry Entry
	if err := msgpack.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("decoding cache entry %s: %w", key, err)
	}
	if entry.Key != key || entry.Artifact == nil {
		return nil, ErrKeyNotFound
	}
	return &entry, nil
}

// writeEntry writes through a temp file so readers never see a partial entry.
func (c *ArtifactCache) writeEntry(entry Entry) error {
	data, err := msgpack.Marshal(&entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, entry.Key+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating cache entry: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing cache entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.entryPath(entry.Key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("committing cache entry: %w", err)
	}
	return nil
}
