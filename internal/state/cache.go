package state

import "sync"

// ConfigCache memoizes LoadConfig per working directory so repeated lookups
// from within the same process (e.g. one per issue worker) don't re-walk
// the filesystem and re-parse YAML on every call.
type ConfigCache struct {
	mu      sync.RWMutex
	entries map[string]*Config
}

// NewConfigCache returns an empty ConfigCache.
func NewConfigCache() *ConfigCache {
	return &ConfigCache{entries: make(map[string]*Config)}
}

// Get returns the cached config for dir, loading and caching it on first
// use. The returned *Config is shared across callers and must be treated as
// read-only.
func (c *ConfigCache) Get(dir string) (*Config, error) {
	c.mu.RLock()
	cfg, ok := c.entries[dir]
	c.mu.RUnlock()
	if ok {
		return cfg, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cfg, ok := c.entries[dir]; ok {
		return cfg, nil
	}

	cfg, err := LoadConfig(dir)
	if err != nil {
		return nil, err
	}
	c.entries[dir] = cfg
	return cfg, nil
}

// Invalidate drops the cached entry for dir, forcing the next Get to reload
// it from disk.
func (c *ConfigCache) Invalidate(dir string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, dir)
}
