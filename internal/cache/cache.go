// Package cache memoizes normalization and prediction results.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for byte caches
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// BatchKey identifies a batch of raw texts normalized under the given rules version
func BatchKey(version string, texts []string) string {
	h := sha256.New()
	h.Write([]byte(version))
	for _, t := range texts {
		h.Write([]byte{0})
		h.Write([]byte(t))
	}
	return "batch-" + hex.EncodeToString(h.Sum(nil))
}

// PredictionKey identifies text classified by the model with the given checksum
func PredictionKey(modelChecksum, text string) string {
	h := sha256.New()
	h.Write([]byte(modelChecksum))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return "pred-" + hex.EncodeToString(h.Sum(nil))
}
