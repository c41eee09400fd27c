// routes.go
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/catalogd/catalogd/internal/query"
)

// NewRouter builds the chi router serving the catalog's HTTP surface:
// liveness, dataset list/get, and search.
func NewRouter(engine *query.Engine, logger *zap.Logger) http.Handler {
	h := &handlers{engine: engine, logger: logger}
	activeLogger = logger

	r := chi.NewRouter()
	r.Use(LoggingMiddleware)

	r.Get("/health", h.health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/datasets", h.listDatasets)
		r.Get("/datasets/{name}", h.getDataset)
		r.Get("/search", h.search)
	})

	return r
}
