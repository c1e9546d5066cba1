// Package api exposes the bulk query builder over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rpattn/ckanbulk/internal/bulk"
	"github.com/rpattn/ckanbulk/internal/domain"
	"github.com/rpattn/ckanbulk/internal/export"
	"github.com/rpattn/ckanbulk/internal/logging"
)

// Service is the bulk service as seen by the HTTP layer.
type Service interface {
	EntityTypes() []string
	SearchEntities(ctx context.Context, filters domain.SearchFilters) (bulk.SearchResult, error)
	Fields(ctx context.Context, entityType string) ([]domain.FieldItem, error)
	Expand(ctx context.Context, entityType string, entities []domain.EntityRecord) (bulk.ExpandedResult, error)
}

type Handler struct {
	service Service
	export  http.Handler
	logger  *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	h := &Handler{
		service: service,
		logger:  logging.Default(logger).With("component", "api"),
	}
	h.export = export.NewHTTPHandler(service, h.writeError, logger)
	return h
}

// HandleSearch answers POST /bulk/entities with every matching entity.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	var payload domain.SearchFilters
	if !h.decode(w, r, &payload) {
		return
	}

	result, err := h.service.SearchEntities(r.Context(), payload)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if result.Entities == nil {
		result.Entities = []domain.EntityRecord{}
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleFields(w http.ResponseWriter, r *http.Request) {
	entityType := mux.Vars(r)["entityType"]

	items, err := h.service.Fields(r.Context(), entityType)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) HandleOperators(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, domain.OperatorOptions())
}

func (h *Handler) HandleEntityTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.EntityTypes())
}

type expandPayload struct {
	EntityType string                `json:"entity_type"`
	Entities   []domain.EntityRecord `json:"entities"`
}

// HandleExpand answers POST /bulk/expand with the head of a result set
// re-fetched in full.
func (h *Handler) HandleExpand(w http.ResponseWriter, r *http.Request) {
	var payload expandPayload
	if !h.decode(w, r, &payload) {
		return
	}

	result, err := h.service.Expand(r.Context(), payload.EntityType, payload.Entities)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	h.export.ServeHTTP(w, r)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, into any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		h.writeError(w, r, fmt.Errorf("%w: invalid payload: %v", domain.ErrInvalidFilter, err))
		return false
	}
	return true
}
