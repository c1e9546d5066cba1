package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rpattn/ckanbulk/internal/domain"
	"github.com/rpattn/ckanbulk/internal/logging"
)

const (
	DefaultPageSize       = 1000
	DefaultRequestTimeout = 30 * time.Second
)

type fetchConfig struct {
	pageSize       int
	requestTimeout time.Duration
	logger         *slog.Logger
}

type FetchOption func(*fetchConfig)

func WithPageSize(size int) FetchOption {
	return func(c *fetchConfig) {
		if size > 0 {
			c.pageSize = size
		}
	}
}

// WithRequestTimeout bounds every page request. Zero disables the bound.
func WithRequestTimeout(timeout time.Duration) FetchOption {
	return func(c *fetchConfig) {
		if timeout >= 0 {
			c.requestTimeout = timeout
		}
	}
}

func WithLogger(logger *slog.Logger) FetchOption {
	return func(c *fetchConfig) {
		c.logger = logger
	}
}

// FetchAll pages through every result of query, private and draft entities
// included. The offset advances by the number of rows actually returned,
// so short pages are fine. Any backend failure aborts the whole fetch.
func FetchAll(ctx context.Context, backend Backend, query string, opts ...FetchOption) ([]domain.EntityRecord, error) {
	cfg := fetchConfig{
		pageSize:       DefaultPageSize,
		requestTimeout: DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := logging.Default(cfg.logger).With("component", "fetch")

	started := time.Now()
	logger.Debug("performing search", "query", query)

	var (
		results []domain.EntityRecord
		start   int
		pages   int
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fetch cancelled after %d rows: %w", start, err)
		}

		page, err := fetchPage(ctx, backend, cfg.requestTimeout, Request{
			Query:          query,
			Rows:           cfg.pageSize,
			Start:          start,
			IncludePrivate: true,
			IncludeDrafts:  true,
		})
		if err != nil {
			return nil, domain.NewBackendError("search", err)
		}
		pages++

		if results == nil {
			results = make([]domain.EntityRecord, 0, max(0, min(page.Count, 10*cfg.pageSize)))
		}
		results = append(results, page.Results...)
		start += len(page.Results)
		logger.Debug("fetched page", "page", pages, "rows", len(page.Results), "offset", start, "count", page.Count)

		if start >= page.Count {
			break
		}
		if len(page.Results) == 0 {
			return nil, domain.NewBackendError("search", fmt.Errorf("%w: offset %d of %d", domain.ErrInconsistentPaging, start, page.Count))
		}
	}

	logger.Info("search completed", "rows", len(results), "pages", pages, "duration", time.Since(started))
	return results, nil
}

func fetchPage(ctx context.Context, backend Backend, timeout time.Duration, req Request) (Response, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return backend.Search(ctx, req)
}
