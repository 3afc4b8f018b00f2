package companion

import (
	"context"

	"github.com/companiondir/backend/internal/domain/companion"
	"github.com/companiondir/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// QueryService serves the public companion listing. The catalog cannot query
// attributes, so the whole active collection is loaded and filtered here.
type QueryService struct {
	loader  *CollectionLoader
	cache   ListingCache
	config  Config
	logger  *zap.Logger
	metrics *telemetry.DirectoryMetrics
}

// NewQueryService creates a new QueryService. cache may be nil.
func NewQueryService(loader *CollectionLoader, cache ListingCache, cfg Config, logger *zap.Logger) *QueryService {
	return &QueryService{
		loader: loader,
		cache:  cache,
		config: cfg.withDefaults(),
		logger: logger,
	}
}

// SetMetrics sets the directory metrics recorder
func (s *QueryService) SetMetrics(m *telemetry.DirectoryMetrics) {
	s.metrics = m
}

// Search returns one page of publicly listed companions matching the query
// and city filters. Pages are 1-based; a page outside [1, TotalPages]
// returns ErrPageNotFound, except that page 1 of an empty result is an
// empty page.
func (s *QueryService) Search(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "companion", "search",
		telemetry.WithAttribute(telemetry.SpanAttrPage, q.Page),
	)
	defer span.End()

	result, err := s.search(ctx, q)
	if err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordSearch(ctx, outcomeOf(err))
		return nil, err
	}
	s.metrics.RecordSearch(ctx, telemetry.OutcomeSuccess)
	return result, nil
}

func (s *QueryService) search(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	if q.Page < 1 {
		return nil, companion.ErrPageNotFound
	}

	all, err := s.listing(ctx, companion.StatusActive)
	if err != nil {
		return nil, err
	}

	m := newMatcher(q.Query, q.Cities)
	filtered := make([]companion.Companion, 0, len(all))
	for i := range all {
		if m.Match(&all[i]) {
			filtered = append(filtered, all[i])
		}
	}

	pageSize := s.config.ListingPageSize
	total := len(filtered)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages > 0 && q.Page > totalPages {
		return nil, companion.ErrPageNotFound
	}

	start := min((q.Page-1)*pageSize, total)
	end := min(start+pageSize, total)

	return &SearchResult{
		Items:      filtered[start:end],
		Total:      total,
		Page:       q.Page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// listing returns the public snapshot of every companion with status,
// from the cache when enabled
func (s *QueryService) listing(ctx context.Context, status companion.Status) ([]companion.Companion, error) {
	key := listingCacheKey(status)
	useCache := s.cache != nil && s.config.ListingCacheTTL > 0

	if useCache {
		items, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			requestLogger(ctx, s.logger).Warn("Failed to read listing cache", zap.String("key", key), zap.Error(err))
		} else if ok {
			return items, nil
		}
	}

	loaded, err := s.loader.Load(ctx, status)
	if err != nil {
		requestLogger(ctx, s.logger).Error("Failed to load companion listing", zap.Error(err))
		return nil, upstreamError("Failed to load companion listing", err)
	}

	items := make([]companion.Companion, 0, len(loaded))
	for _, c := range loaded {
		if c.Status != status {
			continue
		}
		items = append(items, c.Public())
	}

	if useCache {
		if err := s.cache.Set(ctx, key, items, s.config.ListingCacheTTL); err != nil {
			requestLogger(ctx, s.logger).Warn("Failed to write listing cache", zap.String("key", key), zap.Error(err))
		}
	}
	return items, nil
}
