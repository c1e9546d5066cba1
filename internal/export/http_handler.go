package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/rpattn/ckanbulk/internal/bulk"
	"github.com/rpattn/ckanbulk/internal/domain"
	"github.com/rpattn/ckanbulk/internal/logging"
)

// Searcher resolves a filter submission into its full result set.
type Searcher interface {
	SearchEntities(ctx context.Context, filters domain.SearchFilters) (bulk.SearchResult, error)
}

// ErrorWriter renders a failed request. The API package supplies one so that
// export errors share its status mapping.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

type Handler struct {
	searcher   Searcher
	writeError ErrorWriter
	logger     *slog.Logger
}

func NewHTTPHandler(searcher Searcher, writeError ErrorWriter, logger *slog.Logger) http.Handler {
	if writeError == nil {
		writeError = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
	return &Handler{
		searcher:   searcher,
		writeError: writeError,
		logger:     logging.Default(logger).With("component", "export"),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	format, err := ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var payload domain.SearchFilters
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, r, fmt.Errorf("%w: invalid payload: %v", domain.ErrInvalidFilter, err))
		return
	}

	result, err := h.searcher.SearchEntities(r.Context(), payload)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	// Render fully before writing headers so a failure still yields a
	// proper error response.
	var buf bytes.Buffer
	rows, err := Write(&buf, format, result.Entities)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	name := FileName(payload.EntityType, format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Bulk-Query", result.Query)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("export download interrupted", "file", name, "error", err)
		return
	}
	h.logger.Info("export written", "entity_type", payload.EntityType, "format", string(format), "rows", rows)
}
