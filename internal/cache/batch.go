package cache

import (
	"encoding/json"
	"fmt"
)

// BatchStore memoizes normalized text batches keyed by their raw input
type BatchStore struct {
	cache   Cache
	version string
}

// NewBatchStore wraps c; version is the normalization rules version
func NewBatchStore(c Cache, version string) *BatchStore {
	return &BatchStore{cache: c, version: version}
}

// Get returns the normalized batch for raw, if cached
func (s *BatchStore) Get(raw []string) ([]string, bool) {
	data, ok := s.cache.Get(BatchKey(s.version, raw))
	if !ok {
		return nil, false
	}

	var normalized []string
	if err := json.Unmarshal(data, &normalized); err != nil || len(normalized) != len(raw) {
		return nil, false
	}
	return normalized, true
}

// Put stores the normalized form of raw
func (s *BatchStore) Put(raw, normalized []string) error {
	if len(raw) != len(normalized) {
		return fmt.Errorf("batch size mismatch: %d raw, %d normalized", len(raw), len(normalized))
	}
	data, err := json.Marshal(normalized)
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}
	return s.cache.Set(BatchKey(s.version, raw), data, 0)
}
