// Package bulk resolves filter submissions into complete entity result sets.
package bulk

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rpattn/ckanbulk/internal/domain"
	"github.com/rpattn/ckanbulk/internal/fields"
	"github.com/rpattn/ckanbulk/internal/logging"
	"github.com/rpattn/ckanbulk/internal/query"
	"github.com/rpattn/ckanbulk/internal/search"
)

const (
	DefaultExpandLimit       = 50
	DefaultExpandConcurrency = 8
)

// Client is the part of the CKAN client the service needs.
type Client interface {
	SearchWith(action string) search.BackendFunc
	Show(ctx context.Context, action, id string) (domain.EntityRecord, error)
}

type entityHandler struct {
	manager   Manager
	compiler  *query.Compiler
	backend   search.Backend
	discovery *fields.Discovery
}

type Service struct {
	client   Client
	managers []Manager
	cache    fields.Cache

	pageSize          int
	requestTimeout    time.Duration
	expandLimit       int
	expandConcurrency int
	logger            *slog.Logger

	initOnce sync.Once
	handlers map[string]*entityHandler
}

type Option func(*Service)

// WithManager registers an entity type. A manager for an already
// registered type replaces it.
func WithManager(m Manager) Option {
	return func(s *Service) {
		s.managers = append(s.managers, m)
	}
}

func WithFieldCache(cache fields.Cache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

func WithPageSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

func WithRequestTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.requestTimeout = timeout
		}
	}
}

func WithExpandLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.expandLimit = limit
		}
	}
}

func WithExpandConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.expandConcurrency = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService returns a service that knows about datasets plus any
// managers passed as options.
func NewService(client Client, opts ...Option) *Service {
	service := &Service{
		client:            client,
		managers:          []Manager{DatasetManager()},
		pageSize:          search.DefaultPageSize,
		requestTimeout:    search.DefaultRequestTimeout,
		expandLimit:       DefaultExpandLimit,
		expandConcurrency: DefaultExpandConcurrency,
	}
	for _, opt := range opts {
		opt(service)
	}
	if service.cache == nil {
		service.cache = fields.NopCache{}
	}
	service.logger = logging.Default(service.logger).With("component", "bulk")
	return service
}

func (s *Service) init() {
	s.initOnce.Do(func() {
		s.handlers = make(map[string]*entityHandler, len(s.managers))
		for _, m := range s.managers {
			resolver := m.Resolver
			if resolver == nil {
				resolver = query.NewFieldResolver(query.ExtrasPrefix)
			}
			backend := s.client.SearchWith(m.SearchAction)
			s.handlers[m.EntityType] = &entityHandler{
				manager:   m,
				compiler:  query.NewCompiler(resolver),
				backend:   backend,
				discovery: fields.NewDiscovery(backend, s.cache, s.logger),
			}
		}
	})
}

func (s *Service) handler(entityType string) (*entityHandler, error) {
	s.init()
	h, ok := s.handlers[strings.TrimSpace(entityType)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownEntityType, entityType)
	}
	return h, nil
}

// EntityTypes lists the registered entity types, sorted.
func (s *Service) EntityTypes() []string {
	s.init()
	types := make([]string, 0, len(s.handlers))
	for t := range s.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// BuildQuery normalizes the submission and compiles it.
func (s *Service) BuildQuery(filters domain.SearchFilters) (string, error) {
	normalized, err := filters.Normalize()
	if err != nil {
		return "", err
	}
	h, err := s.handler(normalized.EntityType)
	if err != nil {
		return "", err
	}
	return h.compiler.Assemble(h.manager.EntityType, normalized.Filters, normalized.GlobalOperator)
}

// SearchResult is the full set of entities matching one submission.
type SearchResult struct {
	Query    string                `json:"query"`
	Count    int                   `json:"count"`
	Entities []domain.EntityRecord `json:"entities"`
}

// SearchEntities returns every entity matching filters.
func (s *Service) SearchEntities(ctx context.Context, filters domain.SearchFilters) (SearchResult, error) {
	normalized, err := filters.Normalize()
	if err != nil {
		return SearchResult{}, err
	}
	h, err := s.handler(normalized.EntityType)
	if err != nil {
		return SearchResult{}, err
	}
	q, err := h.compiler.Assemble(h.manager.EntityType, normalized.Filters, normalized.GlobalOperator)
	if err != nil {
		return SearchResult{}, err
	}

	entities, err := search.FetchAll(ctx, h.backend, q,
		search.WithPageSize(s.pageSize),
		search.WithRequestTimeout(s.requestTimeout),
		search.WithLogger(s.logger),
	)
	if err != nil {
		return SearchResult{}, fmt.Errorf("failed to search %s entities: %w", h.manager.EntityType, err)
	}

	s.logger.Info("entities matched", "entity_type", h.manager.EntityType, "filters", len(normalized.Filters), "count", len(entities))
	return SearchResult{Query: q, Count: len(entities), Entities: entities}, nil
}

// Fields lists the fields available for entityType.
func (s *Service) Fields(ctx context.Context, entityType string) ([]domain.FieldItem, error) {
	h, err := s.handler(entityType)
	if err != nil {
		return nil, err
	}
	return h.discovery.ListFields(ctx, h.manager.EntityType)
}

// ExpandedResult holds the expanded head of a result set.
type ExpandedResult struct {
	Entities []domain.EntityRecord `json:"entities"`
	Total    int                   `json:"total"`
}

// Expand re-fetches the first entities of a result set through the show
// action. An entity that cannot be shown is returned as it came from search.
func (s *Service) Expand(ctx context.Context, entityType string, entities []domain.EntityRecord) (ExpandedResult, error) {
	h, err := s.handler(entityType)
	if err != nil {
		return ExpandedResult{}, err
	}

	head := entities
	if len(head) > s.expandLimit {
		head = head[:s.expandLimit]
	}

	loader := newShowLoader(s.client, h.manager.ShowAction, s.expandConcurrency)
	thunks := make([]func() (domain.EntityRecord, error), len(head))
	for i, entity := range head {
		id := entity.ID()
		if id == "" {
			continue
		}
		thunks[i] = loadRecord(ctx, loader, id)
	}

	expanded := make([]domain.EntityRecord, len(head))
	for i, entity := range head {
		expanded[i] = entity
		if thunks[i] == nil {
			continue
		}
		record, err := thunks[i]()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ExpandedResult{}, ctxErr
			}
			s.logger.Warn("show failed, using search record", "entity_type", h.manager.EntityType, "id", entity.ID(), "error", err)
			continue
		}
		expanded[i] = record
	}

	return ExpandedResult{Entities: expanded, Total: len(entities)}, nil
}
