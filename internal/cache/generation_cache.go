package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"
)

// Entry holds one cached generation output keyed by a prompt signature.
type Entry struct {
	Value     json.RawMessage
	ModelID   string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type Config struct {
	TTL        time.Duration
	MaxEntries int
}

// GenerationCache deduplicates adapter calls whose prompt inputs are
// identical, such as channel drafts regenerated for the same campaign.
type GenerationCache struct {
	mu         sync.RWMutex
	entries    map[string]Entry
	ttl        time.Duration
	maxEntries int
}

func NewGenerationCache(config Config) *GenerationCache {
	if config.TTL <= 0 {
		config.TTL = 15 * time.Minute
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = 2000
	}
	return &GenerationCache{
		entries:    make(map[string]Entry),
		ttl:        config.TTL,
		maxEntries: config.MaxEntries,
	}
}

func (c *GenerationCache) Get(signature string) (Entry, bool) {
	c.mu.RLock()
	entry, exists := c.entries[signature]
	c.mu.RUnlock()

	if !exists {
		return Entry{}, false
	}
	if time.Now().UTC().After(entry.ExpiresAt) {
		c.mu.Lock()
		delete(c.entries, signature)
		c.mu.Unlock()
		return Entry{}, false
	}
	return cloneEntry(entry), true
}

func (c *GenerationCache) Set(signature string, entry Entry) {
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.ExpiresAt = now.Add(c.ttl)
	entry.Value = append([]byte(nil), entry.Value...)

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}
	c.entries[signature] = entry
}

// BuildSignature hashes the prompt-relevant parts of a generation call.
// Case and surrounding whitespace are not significant.
func (c *GenerationCache) BuildSignature(parts ...string) string {
	normalized := make([]string, 0, len(parts))
	for _, part := range parts {
		normalized = append(normalized, strings.TrimSpace(strings.ToLower(part)))
	}
	joined := strings.Join(normalized, "||")
	sum := sha256.Sum256([]byte(joined))
	return hex.EncodeToString(sum[:])
}

func (c *GenerationCache) evictOldest() {
	if len(c.entries) == 0 {
		return
	}

	type pair struct {
		key   string
		value Entry
	}
	pairs := make([]pair, 0, len(c.entries))
	for key, value := range c.entries {
		pairs = append(pairs, pair{key: key, value: value})
	}
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].value.CreatedAt.Before(pairs[j].value.CreatedAt)
	})
	delete(c.entries, pairs[0].key)
}

func cloneEntry(entry Entry) Entry {
	clone := entry
	clone.Value = append([]byte(nil), entry.Value...)
	return clone
}
