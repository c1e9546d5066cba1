package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/rpattn/ckanbulk/internal/auth"
	"github.com/rpattn/ckanbulk/internal/middleware"
)

// RegisterRoutes registers all API routes with the given router
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/healthz", h.HandleHealth).Methods(http.MethodGet)

	router.HandleFunc("/bulk/entities", h.HandleSearch).Methods(http.MethodPost)
	router.HandleFunc("/bulk/entity-types", h.HandleEntityTypes).Methods(http.MethodGet)
	router.HandleFunc("/bulk/fields/{entityType}", h.HandleFields).Methods(http.MethodGet)
	router.HandleFunc("/bulk/operators", h.HandleOperators).Methods(http.MethodGet)
	router.HandleFunc("/bulk/expand", h.HandleExpand).Methods(http.MethodPost)
	router.HandleFunc("/bulk/export", h.HandleExport).Methods(http.MethodPost)
}

// NewRouter wires the routes behind request ids, access logging, CORS and
// caller token forwarding.
func NewRouter(h *Handler, allowedOrigins []string, logger *slog.Logger) http.Handler {
	router := mux.NewRouter()
	h.RegisterRoutes(router)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteJSONError(w, http.StatusNotFound, "no route for "+r.URL.Path)
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteJSONError(w, http.StatusMethodNotAllowed, r.Method+" not allowed on "+r.URL.Path)
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Disposition", middleware.RequestIDHeader, "X-Bulk-Query"},
	})

	return middleware.RequestID(middleware.Logging(logger)(corsHandler.Handler(auth.ForwardToken(router))))
}
