// Package pipeline chains the analysis stages: text extraction, structured
// parsing, certificate fan-out and verdict synthesis.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/imovel-limpo/engine/internal/domain"
	"github.com/imovel-limpo/engine/internal/extract"
	"github.com/imovel-limpo/engine/internal/observability"
	"github.com/imovel-limpo/engine/internal/registry"
	"github.com/imovel-limpo/engine/internal/report"
	"github.com/imovel-limpo/engine/internal/storage"
)

// Analyzer runs the full analysis pipeline. A run either delivers a complete
// report or a typed error; no partial reports escape.
type Analyzer struct {
	gateway     *extract.Gateway
	extractor   *extract.StructuredExtractor
	fanout      *registry.Engine
	synthesizer *report.Synthesizer
	store       storage.Store // nil disables persistence
	logger      *observability.Logger
}

// NewAnalyzer wires the pipeline stages together. store may be nil, in which
// case finished reports are returned but not persisted.
func NewAnalyzer(
	gateway *extract.Gateway,
	extractor *extract.StructuredExtractor,
	fanout *registry.Engine,
	synthesizer *report.Synthesizer,
	store storage.Store,
	logger *observability.Logger,
) *Analyzer {
	return &Analyzer{
		gateway:     gateway,
		extractor:   extractor,
		fanout:      fanout,
		synthesizer: synthesizer,
		store:       store,
		logger:      logger.WithComponent("pipeline"),
	}
}

// AnalyzeUpload extracts text from an uploaded artifact and runs the full
// analysis on it.
func (a *Analyzer) AnalyzeUpload(ctx context.Context, up extract.Upload) (*domain.AnalysisReport, error) {
	text, method, err := a.gateway.Extract(ctx, up)
	if err != nil {
		return nil, err
	}
	a.logger.Info().
		Str("method", method).
		Str("filename", up.Filename).
		Int("chars", len(text)).
		Msg("Document text extracted")

	return a.AnalyzeText(ctx, text)
}

// AnalyzeText runs the analysis on matrícula text that is already plain.
func (a *Analyzer) AnalyzeText(ctx context.Context, matriculaText string) (*domain.AnalysisReport, error) {
	if strings.TrimSpace(matriculaText) == "" {
		return nil, domain.ValidationError("Texto da matrícula é obrigatório.", nil)
	}

	started := time.Now()

	prop, err := a.extractor.ExtractProperty(ctx, matriculaText)
	if err != nil {
		return nil, err
	}
	a.logger.Info().
		Str("registration", prop.RegistrationNumber).
		Int("parties", len(prop.Parties)).
		Msg("Property data extracted")

	checks, err := a.fanout.Run(ctx, prop.Parties)
	if err != nil {
		return nil, err
	}

	syn := a.synthesizer.Synthesize(ctx, prop, checks)
	rep := report.Build(prop, checks, syn)

	a.logger.Info().
		Str("registration", prop.RegistrationNumber).
		Str("classification", string(rep.Classification)).
		Int("checks", len(checks)).
		Dur("elapsed", time.Since(started)).
		Msg("Analysis complete")

	a.persist(ctx, rep)
	return rep, nil
}

// persist saves the finished report when a store is configured. A storage
// failure is logged and swallowed; the caller still gets the report.
func (a *Analyzer) persist(ctx context.Context, rep *domain.AnalysisReport) {
	if a.store == nil {
		return
	}
	if _, err := a.store.Save(ctx, rep, storage.SaveOptions{}); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to persist analysis report")
	}
}
