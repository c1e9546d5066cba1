// Package fields lists the fields available for an entity type by sampling
// the search index.
package fields

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rpattn/ckanbulk/internal/domain"
	"github.com/rpattn/ckanbulk/internal/logging"
	"github.com/rpattn/ckanbulk/internal/query"
	"github.com/rpattn/ckanbulk/internal/search"
)

// Cache stores discovered field lists. A returned error is treated as a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]domain.FieldItem, bool, error)
	Set(ctx context.Context, key string, fields []domain.FieldItem) error
}

// NopCache never stores anything.
type NopCache struct{}

func (NopCache) Get(context.Context, string) ([]domain.FieldItem, bool, error) { return nil, false, nil }
func (NopCache) Set(context.Context, string, []domain.FieldItem) error        { return nil }

// CacheKey is the cache key for an entity type's field list.
func CacheKey(entityType string) string {
	return "bulk:fields:" + entityType
}

// Discovery samples one entity of a type and reports its fields.
type Discovery struct {
	backend search.Backend
	cache   Cache
	logger  *slog.Logger
}

func NewDiscovery(backend search.Backend, cache Cache, logger *slog.Logger) *Discovery {
	if cache == nil {
		cache = NopCache{}
	}
	return &Discovery{
		backend: backend,
		cache:   cache,
		logger:  logging.Default(logger).With("component", "fields"),
	}
}

// ListFields returns the fields of entityType. An entity type without any
// entities yields an empty list, which is not cached so that a later call
// can pick fields up once data exists.
func (d *Discovery) ListFields(ctx context.Context, entityType string) ([]domain.FieldItem, error) {
	key := CacheKey(entityType)

	cached, ok, err := d.cache.Get(ctx, key)
	if err != nil {
		d.logger.Warn("field cache read failed", "entity_type", entityType, "error", err)
	} else if ok {
		return cached, nil
	}

	resp, err := d.backend.Search(ctx, search.Request{
		Query:          query.TypeClause(entityType),
		Rows:           1,
		IncludePrivate: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sample %s fields: %w", entityType, domain.NewBackendError("search", err))
	}
	if len(resp.Results) == 0 {
		return []domain.FieldItem{}, nil
	}

	keys := resp.Results[0].Keys()
	items := make([]domain.FieldItem, len(keys))
	for i, k := range keys {
		items[i] = domain.FieldItem{Value: k, Text: k}
	}

	if err := d.cache.Set(ctx, key, items); err != nil {
		d.logger.Warn("field cache write failed", "entity_type", entityType, "error", err)
	}
	return items, nil
}
