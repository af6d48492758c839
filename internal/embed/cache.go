package embed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ferrows/mnemo/internal/storage"
)

// CacheVersion is the current on-disk cache format version.
const CacheVersion = 1

// cacheFileName is the cache file kept at each scope root.
const cacheFileName = "embeddings.json"

// CacheEntry holds one record's vector keyed by its content hash. The entry
// is only trusted while the hash matches the record's current content.
type CacheEntry struct {
	Vector      []float64 `json:"vector"`
	Hash        string    `json:"hash"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// Cache is the per-scope embedding cache. It is owned by a single logical
// process; there is no cross-process coordination.
type Cache struct {
	fs      storage.Provider
	entries map[string]CacheEntry
	dirty   bool
}

type cacheFile struct {
	Version int                   `json:"version"`
	Entries map[string]CacheEntry `json:"entries"`
}

// OpenCache loads the cache file from the scope root, starting empty when
// the file does not exist yet.
func OpenCache(fs storage.Provider) (*Cache, error) {
	c := &Cache{fs: fs, entries: map[string]CacheEntry{}}
	if !fs.Exists(cacheFileName) {
		return c, nil
	}
	data, err := fs.Read(cacheFileName)
	if err != nil {
		return nil, fmt.Errorf("embed: read cache: %w", err)
	}
	var f cacheFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("embed: parse cache: %w", err)
	}
	if f.Entries != nil {
		c.entries = f.Entries
	}
	return c, nil
}

// Get returns the cached vector for id when its stored hash matches the
// given content hash. A mismatch is a cache miss: the stale vector must not
// be trusted for ranking.
func (c *Cache) Get(id, hash string) ([]float64, bool) {
	e, ok := c.entries[id]
	if !ok || e.Hash != hash {
		return nil, false
	}
	return e.Vector, true
}

// Vector returns the cached vector for id regardless of content hash.
// Used by find-similar, which queries by a record's own stored embedding.
func (c *Cache) Vector(id string) ([]float64, bool) {
	e, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	return e.Vector, true
}

// Put stores a freshly generated vector, normalized to unit length.
func (c *Cache) Put(id, hash string, vec []float64) {
	c.entries[id] = CacheEntry{
		Vector:      Normalize(vec),
		Hash:        hash,
		GeneratedAt: time.Now().UTC(),
	}
	c.dirty = true
}

// Forget drops the entry for id, if any.
func (c *Cache) Forget(id string) {
	if _, ok := c.entries[id]; ok {
		delete(c.entries, id)
		c.dirty = true
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int { return len(c.entries) }

// Save persists the cache when it changed since the last save.
func (c *Cache) Save() error {
	if !c.dirty {
		return nil
	}
	data, err := json.MarshalIndent(cacheFile{Version: CacheVersion, Entries: c.entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("embed: marshal cache: %w", err)
	}
	if err := c.fs.Write(cacheFileName, data); err != nil {
		return fmt.Errorf("embed: save cache: %w", err)
	}
	c.dirty = false
	return nil
}
