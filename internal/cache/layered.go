package cache

import (
	"errors"
	"time"
)

// LayeredCache checks a fast front cache before a slower back cache.
// Hits in the back are promoted to the front.
type LayeredCache struct {
	front      Cache
	back       Cache
	promoteTTL time.Duration
}

// NewLayeredCache layers front over back. Promoted entries live for promoteTTL
// in the front (0 uses the front's default).
func NewLayeredCache(front, back Cache, promoteTTL time.Duration) *LayeredCache {
	return &LayeredCache{front: front, back: back, promoteTTL: promoteTTL}
}

// NewMemoryOverDisk layers a memory cache over a disk cache in dir
func NewMemoryOverDisk(memoryTTL time.Duration, dir string, diskTTL time.Duration) *LayeredCache {
	return NewLayeredCache(NewMemoryCache(memoryTTL, 2*memoryTTL), NewDiskCache(dir, diskTTL), memoryTTL)
}

// Get retrieves a value, front first
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, found := c.front.Get(key); found {
		return val, true
	}
	val, found := c.back.Get(key)
	if !found {
		return nil, false
	}
	_ = c.front.Set(key, val, c.promoteTTL)
	return val, true
}

// Set stores a value in both layers
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.front.Set(key, value, ttl); err != nil {
		return err
	}
	return c.back.Set(key, value, ttl)
}

// Delete removes a value from both layers
func (c *LayeredCache) Delete(key string) error {
	return errors.Join(c.front.Delete(key), c.back.Delete(key))
}

// Clear empties both layers
func (c *LayeredCache) Clear() error {
	return errors.Join(c.front.Clear(), c.back.Clear())
}
