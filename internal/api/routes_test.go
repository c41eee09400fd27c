package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/catalogd/catalogd/internal/api"
	"github.com/catalogd/catalogd/internal/emitter"
	"github.com/catalogd/catalogd/internal/model"
	"github.com/catalogd/catalogd/internal/query"
	"github.com/catalogd/catalogd/pkg/fixcatalog"
)

func newTestRouter(t *testing.T) http.Handler {
	sbx := fixcatalog.NewSandbox(t)
	em := emitter.New(sbx.Store)
	require.NoError(t, em.Emit(context.Background(), model.EmitRequest{
		Name: "orders", Path: "o.parquet", Format: "parquet", Domain: "sales",
		Schema: []model.Field{{Name: "id", DataType: "Int64"}},
	}))
	return api.NewRouter(query.New(sbx.Store), zap.NewNop())
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestGetDatasetEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/datasets/orders", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var d model.Dataset
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &d))
	require.Equal(t, "orders", d.Name)
}

func TestGetDatasetEndpointNotFound(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/datasets/missing", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "not_found", body["error"])
}

func TestSearchEndpointRequiresQuery(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListDatasetsEndpointFiltersByDomain(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/datasets?domain=sales", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var datasets []model.DatasetSummary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &datasets))
	require.Len(t, datasets, 1)
}
