// Package catalog serves the list of models offered on the page.
package catalog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"multichat/internal/cache"
	"multichat/internal/core"
	"multichat/internal/observability"
)

// Fetcher loads the model list from its source of truth.
type Fetcher interface {
	Models(ctx context.Context) ([]core.ModelInfo, error)
}

// Option configures a Service.
type Option func(*Service)

// WithTTL sets how long a cached catalog is served without refetching.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

// WithSource records where the catalog comes from in cache snapshots.
func WithSource(source string) Option {
	return func(s *Service) { s.source = source }
}

// WithMetrics counts lookups by how they were served.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service returns the model catalog, preferring a fresh cache entry and
// falling back to a stale one when the fetcher fails.
type Service struct {
	fetcher Fetcher
	cache   cache.Cache
	ttl     time.Duration
	source  string
	metrics *observability.Metrics
	now     func() time.Time

	// fetchMu collapses concurrent refreshes into one backend call.
	fetchMu sync.Mutex
}

// New creates a catalog service. A nil cache disables caching.
func New(fetcher Fetcher, c cache.Cache, opts ...Option) *Service {
	s := &Service{
		fetcher: fetcher,
		cache:   c,
		ttl:     5 * time.Minute,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List never fails: when neither the backend nor the cache can supply a
// catalog, it returns an empty list and the page renders without models.
func (s *Service) List(ctx context.Context) []core.ModelInfo {
	if snapshot := s.cached(ctx); snapshot.Fresh(s.now(), s.ttl) {
		s.metrics.ObserveCatalog(observability.CatalogCacheHit)
		return snapshot.Models
	}

	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()

	// Another caller may have refreshed while we waited.
	stale := s.cached(ctx)
	if stale.Fresh(s.now(), s.ttl) {
		s.metrics.ObserveCatalog(observability.CatalogCacheHit)
		return stale.Models
	}

	models, err := s.fetcher.Models(ctx)
	if err != nil {
		if stale != nil {
			slog.Warn("model catalog fetch failed, serving stale cache",
				"error", err,
				"cached_at", stale.UpdatedAt,
				"models", len(stale.Models),
			)
			s.metrics.ObserveCatalog(observability.CatalogStale)
			return stale.Models
		}
		slog.Warn("model catalog fetch failed, no cache available", "error", err)
		s.metrics.ObserveCatalog(observability.CatalogEmpty)
		return []core.ModelInfo{}
	}
	if models == nil {
		models = []core.ModelInfo{}
	}

	s.store(ctx, models)
	s.metrics.ObserveCatalog(observability.CatalogFetched)
	slog.Debug("model catalog refreshed", "models", len(models))
	return models
}

func (s *Service) cached(ctx context.Context) *cache.ModelCache {
	if s.cache == nil {
		return nil
	}
	snapshot, err := s.cache.Get(ctx)
	if err != nil {
		slog.Warn("failed to read model cache", "error", err)
		return nil
	}
	return snapshot
}

func (s *Service) store(ctx context.Context, models []core.ModelInfo) {
	if s.cache == nil {
		return
	}
	snapshot := &cache.ModelCache{
		UpdatedAt: s.now().UTC(),
		Source:    s.source,
		Models:    models,
	}
	if err := s.cache.Set(ctx, snapshot); err != nil {
		slog.Warn("failed to write model cache", "error", err)
	}
}
