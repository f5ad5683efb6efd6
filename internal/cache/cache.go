// Package cache memoizes pipeline results by the content hash of their input.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/temp-anomaly/internal/anomaly"
)

// DefaultCapacity bounds the number of memoized analyses.
const DefaultCapacity = 16

// Hash returns the hex SHA-256 of data. Identical bytes always map to the same dataset.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Analyses is a bounded in-process memo of analyses keyed by dataset hash. When full,
// the oldest inserted entry is evicted. Safe for concurrent use.
type Analyses struct {
	mu       sync.RWMutex
	capacity int
	entries  map[string]*anomaly.Analysis
	order    []string
	group    singleflight.Group
	hits     int
	misses   int
}

// NewAnalyses creates a memo holding at most capacity entries. A capacity below 1 means
// DefaultCapacity.
func NewAnalyses(capacity int) *Analyses {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Analyses{
		capacity: capacity,
		entries:  make(map[string]*anomaly.Analysis, capacity),
	}
}

// Get returns the analysis memoized under hash.
func (c *Analyses) Get(hash string) (*anomaly.Analysis, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	a, ok := c.entries[hash]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return a, ok
}

// Put memoizes a under hash, evicting the oldest entry when full.
func (c *Analyses) Put(hash string, a *anomaly.Analysis) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[hash]; ok {
		c.entries[hash] = a
		return
	}
	if len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
		zap.L().Debug("evicted memoized analysis", zap.String("hash", oldest))
	}
	c.entries[hash] = a
	c.order = append(c.order, hash)
}

// GetOrCompute returns the memoized analysis for hash, or runs compute once and memoizes
// its result. Concurrent callers with the same hash share a single compute call.
func (c *Analyses) GetOrCompute(hash string, compute func() (*anomaly.Analysis, error)) (*anomaly.Analysis, error) {
	if a, ok := c.Get(hash); ok {
		return a, nil
	}

	v, err, _ := c.group.Do(hash, func() (any, error) {
		if a, ok := c.peek(hash); ok {
			return a, nil
		}
		a, err := compute()
		if err != nil {
			return nil, err
		}
		c.Put(hash, a)
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*anomaly.Analysis), nil
}

func (c *Analyses) peek(hash string) (*anomaly.Analysis, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.entries[hash]
	return a, ok
}

// Len returns the number of memoized analyses.
func (c *Analyses) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns the hit and miss counts of Get.
func (c *Analyses) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
