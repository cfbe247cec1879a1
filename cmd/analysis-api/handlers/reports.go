package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/imovel-limpo/engine/internal/domain"
	"github.com/imovel-limpo/engine/internal/observability"
	"github.com/imovel-limpo/engine/internal/storage"
)

// ReportsHandler serves the stored-analysis workspace.
type ReportsHandler struct {
	logger *observability.Logger
	store  storage.Store
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(logger *observability.Logger, store storage.Store) *ReportsHandler {
	return &ReportsHandler{
		logger: logger,
		store:  store,
	}
}

// List returns stored analyses, newest first, honoring the query filters.
func (h *ReportsHandler) List(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	analyses, err := h.store.Filter(r.Context(), filters)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"analyses": analyses,
		"total":    len(analyses),
	})
}

func parseFilters(r *http.Request) (domain.AnalysisFilters, error) {
	q := r.URL.Query()
	filters := domain.AnalysisFilters{
		Search:         q.Get("search"),
		Classification: domain.Classification(q.Get("status")),
		Broker:         q.Get("broker"),
		FavoritesOnly:  q.Get("favorites") == "true",
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filters, errors.New("Parâmetro 'from' inválido. Use AAAA-MM-DD.")
		}
		filters.DateFrom = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filters, errors.New("Parâmetro 'to' inválido. Use AAAA-MM-DD.")
		}
		filters.DateTo = t.Add(24*time.Hour - time.Nanosecond)
	}
	return filters, nil
}

// Get returns one stored analysis.
func (h *ReportsHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "analysis": a})
}

type updateReportRequest struct {
	Broker *domain.Contact `json:"corretor"`
	Client *domain.Contact `json:"cliente"`
	Notes  *string         `json:"notas"`
	Tags   []string        `json:"tags"`
}

// Update applies a partial metadata update to a stored analysis.
func (h *ReportsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Corpo da requisição inválido.")
		return
	}

	a, err := h.store.Update(r.Context(), chi.URLParam(r, "id"), storage.UpdateOptions{
		Broker: req.Broker,
		Client: req.Client,
		Notes:  req.Notes,
		Tags:   req.Tags,
	})
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "analysis": a})
}

// Delete removes one stored analysis.
func (h *ReportsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// ToggleFavorite flips the favorite flag of one stored analysis.
func (h *ReportsHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	a, err := h.store.ToggleFavorite(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "analysis": a})
}

// Stats returns the dashboard aggregates.
func (h *ReportsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "stats": stats})
}

// Export streams every stored analysis as a JSON attachment.
func (h *ReportsHandler) Export(w http.ResponseWriter, r *http.Request) {
	data, err := h.store.ExportJSON(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition",
		`attachment; filename="analises-`+time.Now().Format("2006-01-02")+`.json"`)
	w.Write(data)
}

// Import merges previously exported analyses, skipping IDs already stored.
func (h *ReportsHandler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Erro ao ler arquivo de importação.")
		return
	}

	added, err := h.store.ImportJSON(r.Context(), data)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "imported": added})
}

func (h *ReportsHandler) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Análise não encontrada.")
		return
	}
	writeDomainError(w, h.logger, err)
}
