// Package dirty provides source change tracking for incremental batches.
// It records, per source, the content hash and build settings its artifact
// was produced with, so unchanged sources can be skipped on the next run.
package dirty

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/minio/highwayhash"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultFile is the default filename of the tracker state inside the cache directory.
const DefaultFile = "sources.msgpack"

// stateVersion is bumped whenever the on-disk layout changes; older files are ignored.
const stateVersion = 1

// hashKey keys the content hash. It is unrelated to the artifact cache key.
var hashKey = []byte("pgraph-source-content-hash-v1-00")

// Entry is the recorded build of one source.
type Entry struct {
	Hash     string `msgpack:"hash"`
	Settings string `msgpack:"settings"`
	Output   string `msgpack:"output"`
	BuiltAt  int64  `msgpack:"built_at"` // Unix timestamp
}

// state is the on-disk structure.
type state struct {
	Version int              `msgpack:"version"`
	Entries map[string]Entry `msgpack:"entries"`
}

// Tracker tracks which sources changed since their artifact was built.
// Sources are keyed by their path relative to the batch root. It is safe
// for concurrent use.
type Tracker struct {
	mu      sync.RWMutex
	entries map[string]Entry
	path    string
	now     func() time.Time
}

// New creates an empty Tracker persisted at path. An empty path keeps it in memory only.
func New(path string) *Tracker {
	return &Tracker{
		entries: make(map[string]Entry),
		path:    path,
		now:     time.Now,
	}
}

// Open creates a Tracker and loads its previous state, if any.
func Open(path string) (*Tracker, error) {
	t := New(path)
	if err := t.Load(); err != nil {
		return nil, err
	}
	return t, nil
}

// HashFile computes the content hash of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer f.Close()

	h, err := highwayhash.New(hashKey)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Check hashes the source at fullPath and reports whether it must be
// rebuilt: it is new, its content changed, or it was built with other
// settings. The hash is returned for a later Record.
func (t *Tracker) Check(key, fullPath, settings string) (hash string, dirty bool, err error) {
	hash, err = HashFile(fullPath)
	if err != nil {
		return "", true, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	existing, ok := t.entries[key]
	dirty = !ok || existing.Hash != hash || existing.Settings != settings
	return hash, dirty, nil
}

// Record stores a successful build of key.
func (t *Tracker) Record(key, hash, settings, output string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[key] = Entry{
		Hash:     hash,
		Settings: settings,
		Output:   output,
		BuiltAt:  t.now().Unix(),
	}
}

// Get returns the recorded build of key.
func (t *Tracker) Get(key string) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[key]
	return e, ok
}

// Remove removes a source from tracking, so its next build is never skipped.
func (t *Tracker) Remove(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, key)
}

// Prune drops every source not in keep, such as files deleted since the
// last batch. It returns the number of entries removed.
func (t *Tracker) Prune(keep []string) int {
	wanted := make(map[string]struct{}, len(keep))
	for _, k := range keep {
		wanted[k] = struct{}{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for k := range t.entries {
		if _, ok := wanted[k]; !ok {
			delete(t.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked sources.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Path returns the state file path.
func (t *Tracker) Path() string {
	return t.path
}

// Save persists the state to the tracker's file. The file is replaced
// atomically so an interrupted save leaves the previous state intact.
func (t *Tracker) Save() error {
	if t.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(t.path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(t.path), ".sources-*")
	if err != nil {
		return fmt.Errorf("failed to create state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if err := t.SaveTo(w); err != nil {
		tmp.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return os.Rename(tmp.Name(), t.path)
}

// Load restores the state from the tracker's file. A missing file is not an error.
func (t *Tracker) Load() error {
	if t.path == "" {
		return nil
	}
	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open state file: %w", err)
	}
	defer f.Close()
	return t.LoadFrom(bufio.NewReader(f))
}

// SaveTo writes the state to w.
func (t *Tracker) SaveTo(w io.Writer) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if err := msgpack.NewEncoder(w).Encode(state{Version: stateVersion, Entries: t.entries}); err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	return nil
}

// LoadFrom reads the state from r. State written by another layout version
// is discarded, which makes every source dirty.
func (t *Tracker) LoadFrom(r io.Reader) error {
	var s state
	if err := msgpack.NewDecoder(r).Decode(&s); err != nil {
		return fmt.Errorf("failed to decode state: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make(map[string]Entry, len(s.Entries))
	if s.Version != stateVersion {
		return nil
	}
	for k, e := range s.Entries {
		t.entries[k] = e
	}
	return nil
}
