package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/catalogd/catalogd/internal/catalogerr"
	"github.com/catalogd/catalogd/internal/model"
	"github.com/catalogd/catalogd/internal/query"
)

type handlers struct {
	engine *query.Engine
	logger *zap.Logger
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) listDatasets(w http.ResponseWriter, r *http.Request) {
	filter := model.ListFilter{
		Tenant: r.URL.Query().Get("tenant"),
		Domain: r.URL.Query().Get("domain"),
	}
	datasets, err := h.engine.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, datasets)
}

func (h *handlers) getDataset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	dataset, err := h.engine.Get(r.Context(), name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dataset)
}

func (h *handlers) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	results, err := h.engine.Search(r.Context(), q)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// errorBody is the JSON error shape every endpoint returns.
type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func (h *handlers) writeError(w http.ResponseWriter, err error) {
	kind := catalogerr.KindOf(err)
	if kind == catalogerr.Internal || kind == catalogerr.StorageUnavailable {
		h.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, kind.HTTPStatus(), errorBody{Error: kind.String(), Detail: err.Error()})
}
