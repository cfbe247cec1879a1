package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/imovel-limpo/engine/internal/extract"
	"github.com/imovel-limpo/engine/internal/observability"
	"github.com/imovel-limpo/engine/internal/pipeline"
)

// AnalysisHandler serves document extraction and full analysis runs.
type AnalysisHandler struct {
	logger   *observability.Logger
	gateway  *extract.Gateway
	analyzer *pipeline.Analyzer
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(logger *observability.Logger, gateway *extract.Gateway, analyzer *pipeline.Analyzer) *AnalysisHandler {
	return &AnalysisHandler{
		logger:   logger,
		gateway:  gateway,
		analyzer: analyzer,
	}
}

type extractFileResponse struct {
	Success  bool   `json:"success"`
	Text     string `json:"text"`
	FileName string `json:"fileName"`
	Method   string `json:"method"`
}

// ExtractFile accepts one multipart upload under the "file" field and
// returns its extracted plain text.
func (h *AnalysisHandler) ExtractFile(w http.ResponseWriter, r *http.Request) {
	// Slack above the document cap covers multipart framing overhead.
	r.Body = http.MaxBytesReader(w, r.Body, extract.MaxUploadBytes+1<<20)

	if err := r.ParseMultipartForm(extract.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Arquivo não enviado.")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Arquivo não enviado.")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Erro ao ler arquivo enviado.")
		return
	}

	text, method, err := h.gateway.Extract(r.Context(), extract.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, extractFileResponse{
		Success:  true,
		Text:     text,
		FileName: header.Filename,
		Method:   method,
	})
}

type analyzeRequest struct {
	MatriculaText string `json:"matriculaText"`
}

// Analyze runs the full pipeline on matrícula text and returns the report.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Corpo da requisição inválido.")
		return
	}
	if strings.TrimSpace(req.MatriculaText) == "" {
		writeError(w, http.StatusBadRequest, "Texto da matrícula é obrigatório.")
		return
	}

	report, err := h.analyzer.AnalyzeText(r.Context(), req.MatriculaText)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"report":  report,
	})
}
