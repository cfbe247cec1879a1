// Package main provides the API router setup.
package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/imovel-limpo/engine/cmd/analysis-api/handlers"
	"github.com/imovel-limpo/engine/cmd/analysis-api/middleware"
	"github.com/imovel-limpo/engine/internal/config"
	"github.com/imovel-limpo/engine/internal/extract"
	"github.com/imovel-limpo/engine/internal/llm"
	"github.com/imovel-limpo/engine/internal/observability"
	"github.com/imovel-limpo/engine/internal/pipeline"
	"github.com/imovel-limpo/engine/internal/storage"
)

// Dependencies carries the wired pipeline components the routes serve.
type Dependencies struct {
	Gateway  *extract.Gateway
	Analyzer *pipeline.Analyzer
	Chatter  llm.Chatter
	Store    storage.Store
}

// NewRouter creates the API router with all routes configured.
func NewRouter(logger *observability.Logger, cfg *config.Config, deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(chimiddleware.Timeout(cfg.Server.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"analysis-engine"}`))
	})

	analysisHandler := handlers.NewAnalysisHandler(logger, deps.Gateway, deps.Analyzer)
	chatHandler := handlers.NewChatHandler(logger, deps.Chatter)
	reportsHandler := handlers.NewReportsHandler(logger, deps.Store)

	r.Route("/api", func(r chi.Router) {
		r.Post("/extract-file", analysisHandler.ExtractFile)
		r.Post("/analyze", analysisHandler.Analyze)
		r.Post("/chat", chatHandler.Chat)

		r.Route("/reports", func(r chi.Router) {
			r.Get("/", reportsHandler.List)
			r.Get("/stats", reportsHandler.Stats)
			r.Get("/export", reportsHandler.Export)
			r.Post("/import", reportsHandler.Import)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", reportsHandler.Get)
				r.Patch("/", reportsHandler.Update)
				r.Delete("/", reportsHandler.Delete)
				r.Post("/favorite", reportsHandler.ToggleFavorite)
			})
		})
	})

	return r
}
