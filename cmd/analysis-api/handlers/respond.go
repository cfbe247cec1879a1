// Package handlers provides the HTTP handlers of the analysis API.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/imovel-limpo/engine/internal/domain"
	"github.com/imovel-limpo/engine/internal/observability"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps a pipeline error to an HTTP status and writes only
// its user-facing message. The raw detail goes to the log, never the client.
func writeDomainError(w http.ResponseWriter, logger *observability.Logger, err error) {
	logger.Error().Err(err).Str("type", string(domain.TypeOf(err))).Msg("Request failed")

	status := http.StatusInternalServerError
	switch domain.TypeOf(err) {
	case domain.ErrorTypeValidation, domain.ErrorTypeUnsupportedMedia,
		domain.ErrorTypeEmptyExtraction:
		status = http.StatusBadRequest
	case domain.ErrorTypeRateLimited, domain.ErrorTypeRetryExhausted:
		status = http.StatusTooManyRequests
	case domain.ErrorTypeLookup:
		status = http.StatusBadGateway
	}

	writeError(w, status, domain.UserMessage(err))
}
