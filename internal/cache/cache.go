// Package cache stores the backend model catalog between requests.
// Local (file) and Redis backends are supported; Redis lets several frontend
// instances share one catalog.
package cache

import (
	"context"
	"slices"
	"time"

	"multichat/internal/core"
)

// ModelCache is the persisted catalog snapshot.
type ModelCache struct {
	UpdatedAt time.Time        `json:"updated_at"`
	Source    string           `json:"source,omitempty"`
	Models    []core.ModelInfo `json:"models"`
}

// Fresh reports whether the snapshot is younger than ttl.
// A non-positive ttl never expires.
func (c *ModelCache) Fresh(now time.Time, ttl time.Duration) bool {
	if c == nil {
		return false
	}
	if ttl <= 0 {
		return true
	}
	return now.Sub(c.UpdatedAt) < ttl
}

// clone copies the snapshot so callers cannot mutate a cached model list.
func (c *ModelCache) clone() *ModelCache {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Models = slices.Clone(c.Models)
	return &cp
}

// Cache defines the interface for model catalog storage.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns nil, nil if nothing has been stored yet.
	Get(ctx context.Context) (*ModelCache, error)

	Set(ctx context.Context, cache *ModelCache) error

	// Close releases any resources held by the cache.
	Close() error
}
