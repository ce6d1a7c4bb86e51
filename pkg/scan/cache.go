package scan

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/scourdev/scour/pkg/phase"
)

// CacheFile is the extraction cache filename inside the tool directory.
const CacheFile = "cache.db"

var functionsBucket = []byte("functions")

// Cache memoizes per-file function extraction keyed by content hash, so
// rescans of an unchanged repository skip the expensive parse work.
type Cache struct {
	db *bolt.DB
}

// cacheEntry is the stored value: the content hash it was computed from
// plus the extracted functions.
type cacheEntry struct {
	Hash      string           `json:"hash"`
	Functions []phase.Function `json:"functions"`
}

// OpenCache opens (or creates) the extraction cache. A cache that cannot
// be opened is reported; callers treat that as "scan without cache".
func OpenCache(path string) (*Cache, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, berr := tx.CreateBucketIfNotExists(functionsBucket)
		return berr
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close releases the cache database.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Get returns the cached functions for rel when the stored content hash
// still matches.
func (c *Cache) Get(rel, hash string) ([]phase.Function, bool) {
	if c == nil || c.db == nil {
		return nil, false
	}
	var entry cacheEntry
	found := false
	c.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(functionsBucket).Get([]byte(rel))
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil // stale or corrupt entry; recompute
		}
		found = entry.Hash == hash
		return nil
	})
	if !found {
		return nil, false
	}
	return entry.Functions, true
}

// Put stores the extraction result for rel under its content hash.
func (c *Cache) Put(rel, hash string, fns []phase.Function) error {
	if c == nil || c.db == nil {
		return nil
	}
	raw, err := json.Marshal(cacheEntry{Hash: hash, Functions: fns})
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(functionsBucket).Put([]byte(rel), raw)
	})
}

// contentHash is the cache key for a file's content.
func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
