package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imovel-limpo/engine/internal/domain"
	"github.com/imovel-limpo/engine/internal/observability"
	"github.com/imovel-limpo/engine/internal/storage"
)

func newReportsRouter(t *testing.T) (chi.Router, storage.Store) {
	t.Helper()
	store := storage.NewMemoryStore()
	h := NewReportsHandler(observability.NewTestLogger(), store)

	r := chi.NewRouter()
	r.Route("/api/reports", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/stats", h.Stats)
		r.Get("/export", h.Export)
		r.Post("/import", h.Import)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Patch("/", h.Update)
			r.Delete("/", h.Delete)
			r.Post("/favorite", h.ToggleFavorite)
		})
	})
	return r, store
}

func seedAnalysis(t *testing.T, store storage.Store, registration string) *domain.StoredAnalysis {
	t.Helper()
	saved, err := store.Save(context.Background(), &domain.AnalysisReport{
		Property:       domain.PropertySummary{RegistrationNumber: registration},
		Classification: domain.ClassificationClean,
	}, storage.SaveOptions{})
	require.NoError(t, err)
	return saved
}

func TestReportsListAndGet(t *testing.T) {
	router, store := newReportsRouter(t)
	saved := seedAnalysis(t, store, "12.345")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var listBody struct {
		Total    int                     `json:"total"`
		Analyses []domain.StoredAnalysis `json:"analyses"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listBody))
	assert.Equal(t, 1, listBody.Total)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/"+saved.ID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "12.345")
}

func TestReportsGetMissingReturns404(t *testing.T) {
	router, _ := newReportsRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Análise não encontrada.")
}

func TestReportsFavoriteAndDelete(t *testing.T) {
	router, store := newReportsRouter(t)
	saved := seedAnalysis(t, store, "12.345")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/reports/"+saved.ID+"/favorite", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := store.Get(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.True(t, got.Favorite)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/reports/"+saved.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	_, err = store.Get(context.Background(), saved.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestReportsUpdate(t *testing.T) {
	router, store := newReportsRouter(t)
	saved := seedAnalysis(t, store, "12.345")

	body := strings.NewReader(`{"notas":"cliente retornou","tags":["vip"]}`)
	req := httptest.NewRequest(http.MethodPatch, "/api/reports/"+saved.ID, body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := store.Get(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "cliente retornou", got.Notes)
	assert.Equal(t, []string{"vip"}, got.Tags)
}

func TestReportsStats(t *testing.T) {
	router, store := newReportsRouter(t)
	seedAnalysis(t, store, "1")
	seedAnalysis(t, store, "2")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Stats domain.AnalysisStats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Stats.Total)
	assert.Equal(t, 100, body.Stats.ApprovalRate)
}

func TestReportsExportImport(t *testing.T) {
	router, store := newReportsRouter(t)
	seedAnalysis(t, store, "12.345")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/export", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")

	// A fresh workspace imports the full export.
	freshRouter, freshStore := newReportsRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/reports/import", rec.Body)
	importRec := httptest.NewRecorder()
	freshRouter.ServeHTTP(importRec, req)
	require.Equal(t, http.StatusOK, importRec.Code)
	assert.Contains(t, importRec.Body.String(), `"imported":1`)

	list, err := freshStore.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestReportsListBadDateFilter(t *testing.T) {
	router, _ := newReportsRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/?from=ontem", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
