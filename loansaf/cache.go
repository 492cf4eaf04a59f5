package loansaf

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/loantwindb/loantwin-go/dlr"
)

// ResultCacheConfig configures memoization of extraction output by document
// content hash.
type ResultCacheConfig struct {
	Enabled bool `yaml:"enabled"`

	// Dir persists entries across runs. Empty keeps the cache in memory.
	Dir string `yaml:"dir"`

	// MaxEntries bounds the in-memory entry count (default 256). Disk
	// entries are not evicted.
	MaxEntries int `yaml:"max_entries"`
}

// cachedResult is the stored envelope: the record plus the clauses the
// pipeline hands back alongside it.
type cachedResult struct {
	Record  *dlr.DLR     `json:"record"`
	Clauses []dlr.Clause `json:"clauses"`
}

// ResultCache memoizes extraction results keyed by the sha256 of the
// source document, so reprocessing an unchanged batch skips the pipeline.
// Identical documents under different names share one entry. Records are
// immutable after extraction, so entries are returned without copying.
type ResultCache struct {
	config ResultCacheConfig
	logger *zap.Logger

	mu     sync.Mutex
	memory map[string]*cachedResult
	order  []string
}

// NewResultCache builds a cache, creating the persistence directory when
// one is configured.
func NewResultCache(config ResultCacheConfig, logger *zap.Logger) (*ResultCache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = 256
	}
	if config.Dir != "" {
		if err := os.MkdirAll(config.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}
	return &ResultCache{
		config: config,
		logger: logger,
		memory: make(map[string]*cachedResult),
	}, nil
}

// HashDocument returns the cache key for the file at path: the hex sha256
// of its contents.
func HashDocument(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Get returns the cached result for hash, consulting disk on a memory miss.
func (c *ResultCache) Get(hash string) (*dlr.DLR, []dlr.Clause, bool) {
	c.mu.Lock()
	entry, ok := c.memory[hash]
	c.mu.Unlock()
	if ok {
		return entry.Record, entry.Clauses, true
	}

	if c.config.Dir == "" {
		return nil, nil, false
	}
	raw, err := os.ReadFile(c.entryPath(hash))
	if err != nil {
		return nil, nil, false
	}
	var stored cachedResult
	if err := sonic.Unmarshal(raw, &stored); err != nil {
		c.logger.Warn("discarding unreadable cache entry",
			zap.String("hash", hash), zap.Error(err))
		os.Remove(c.entryPath(hash))
		return nil, nil, false
	}

	c.remember(hash, &stored)
	return stored.Record, stored.Clauses, true
}

// Put stores an extraction result under hash.
func (c *ResultCache) Put(hash string, record *dlr.DLR, clauses []dlr.Clause) {
	entry := &cachedResult{Record: record, Clauses: clauses}
	c.remember(hash, entry)

	if c.config.Dir == "" {
		return
	}
	raw, err := sonic.Marshal(entry)
	if err != nil {
		c.logger.Warn("failed to marshal cache entry", zap.String("hash", hash), zap.Error(err))
		return
	}
	if err := os.WriteFile(c.entryPath(hash), raw, 0o644); err != nil {
		c.logger.Warn("failed to persist cache entry", zap.String("hash", hash), zap.Error(err))
	}
}

// Len reports the in-memory entry count.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.memory)
}

func (c *ResultCache) remember(hash string, entry *cachedResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.memory[hash]; !exists {
		for len(c.memory) >= c.config.MaxEntries {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.memory, oldest)
		}
		c.order = append(c.order, hash)
	}
	c.memory[hash] = entry
}

func (c *ResultCache) entryPath(hash string) string {
	return filepath.Join(c.config.Dir, hash+".dlr.json")
}
