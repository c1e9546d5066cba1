package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rpattn/ckanbulk/internal/bulk"
	"github.com/rpattn/ckanbulk/internal/ckan"
	"github.com/rpattn/ckanbulk/internal/config"
	"github.com/rpattn/ckanbulk/internal/db"
	"github.com/rpattn/ckanbulk/internal/fieldcache"
	"github.com/rpattn/ckanbulk/internal/fields"
)

// buildService assembles the bulk service from configuration. The returned
// cleanup releases the database pool when the postgres cache is used.
func (a *app) buildService(ctx context.Context) (*bulk.Service, func(), error) {
	cfg := a.cfg

	client, err := ckan.NewClient(cfg.CKAN.URL,
		ckan.WithHTTPClient(newHTTPClient(cfg.Search.ExpandConcurrency)),
		ckan.WithAPIToken(cfg.CKAN.APIToken),
		ckan.WithAnonymousFallback(cfg.CKAN.AnonymousFallback),
		ckan.WithTimeout(cfg.CKAN.Timeout),
		ckan.WithRateLimit(cfg.CKAN.RateLimit, cfg.CKAN.Burst),
		ckan.WithLogger(a.logger),
	)
	if err != nil {
		return nil, nil, err
	}

	cache, cleanup, err := a.buildCache(ctx)
	if err != nil {
		return nil, nil, err
	}

	service := bulk.NewService(client,
		bulk.WithFieldCache(cache),
		bulk.WithPageSize(cfg.Search.PageSize),
		bulk.WithRequestTimeout(cfg.Search.RequestTimeout),
		bulk.WithExpandLimit(cfg.Search.ExpandLimit),
		bulk.WithExpandConcurrency(cfg.Search.ExpandConcurrency),
		bulk.WithLogger(a.logger),
	)
	return service, cleanup, nil
}

// newHTTPClient keeps enough idle connections to the CKAN host for the
// concurrent package_show calls of an expand.
func newHTTPClient(concurrency int) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if concurrency > transport.MaxIdleConnsPerHost {
		transport.MaxIdleConnsPerHost = concurrency
	}
	return &http.Client{Transport: transport}
}

func (a *app) buildCache(ctx context.Context) (fields.Cache, func(), error) {
	noop := func() {}

	switch a.cfg.Cache.Driver {
	case config.CacheNone:
		return fields.NopCache{}, noop, nil
	case config.CachePostgres:
		if err := db.RunMigrations(a.cfg.Database); err != nil {
			return nil, nil, err
		}
		conn, err := db.NewConnection(ctx, a.cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		a.logger.Info("using postgres field cache", "host", a.cfg.Database.Host, "db", a.cfg.Database.DBName)
		return fieldcache.NewPostgres(conn.Pool, a.cfg.Cache.TTL), conn.Close, nil
	case config.CacheMemory:
		return fieldcache.NewMemory(a.cfg.Cache.Size, a.cfg.Cache.TTL), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache driver %q", a.cfg.Cache.Driver)
	}
}
