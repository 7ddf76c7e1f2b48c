// Package cache memoizes extraction results keyed by the exact input text.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"time"

	"github.com/ppiankov/panicbutton/internal/model"
)

// keyPrefix is bumped whenever extraction output for the same input can change
const keyPrefix = "panicbutton:v1:"

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CacheKey derives the key for one (text, defaultYear) extraction input
func CacheKey(text string, defaultYear int) string {
	hash := sha256.Sum256([]byte(strconv.Itoa(defaultYear) + "|" + text))
	return keyPrefix + hex.EncodeToString(hash[:])
}

// New builds the cache described by cfg: memory only, memory over disk when
// a directory is configured, or a no-op when disabled
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return Nop{}
	}
	memory := NewMemoryCache(cfg.MemoryTTL, 10*time.Minute)
	if cfg.Dir == "" {
		return memory
	}
	return NewLayeredCache(memory, NewDiskCache(cfg.Dir, cfg.DiskTTL))
}

// ResultStore reads and writes extraction results through a byte cache
type ResultStore struct {
	cache Cache
}

// NewResultStore wraps c
func NewResultStore(c Cache) *ResultStore {
	return &ResultStore{cache: c}
}

// Load returns the cached result for (text, defaultYear). Undecodable entries count as misses.
func (s *ResultStore) Load(text string, defaultYear int) (model.ExtractionResult, bool) {
	data, ok := s.cache.Get(CacheKey(text, defaultYear))
	if !ok {
		return model.ExtractionResult{}, false
	}
	var result model.ExtractionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return model.ExtractionResult{}, false
	}
	return result, true
}

// Save stores result under (text, defaultYear) with the cache's default TTL
func (s *ResultStore) Save(text string, defaultYear int, result model.ExtractionResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return s.cache.Set(CacheKey(text, defaultYear), data, 0)
}

// Nop is a cache that never stores anything
type Nop struct{}

func (Nop) Get(string) ([]byte, bool) { return nil, false }
func (Nop) Set(string, []byte, time.Duration) error { return nil }
func (Nop) Delete(string) error { return nil }
func (Nop) Clear() error { return nil }
