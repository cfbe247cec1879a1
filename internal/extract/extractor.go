package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/imovel-limpo/engine/internal/domain"
	"github.com/imovel-limpo/engine/internal/llm"
	"github.com/imovel-limpo/engine/internal/observability"
)

const extractMaxTokens = 2048

// StructuredExtractor converts raw matrícula text into a Property record via
// the completion capability.
type StructuredExtractor struct {
	completer llm.Completer
	logger    *observability.Logger
}

// NewStructuredExtractor creates a new structured-data extractor.
func NewStructuredExtractor(completer llm.Completer, logger *observability.Logger) *StructuredExtractor {
	return &StructuredExtractor{
		completer: completer,
		logger:    logger.WithComponent("extractor"),
	}
}

// propertyPayload is the exact JSON shape the extraction prompt demands.
// Decoding is strict: any deviation fails closed rather than accepting a
// partially-shaped object.
type propertyPayload struct {
	Numero        string         `json:"numero"`
	Cartorio      string         `json:"cartorio"`
	Endereco      string         `json:"endereco"`
	Area          string         `json:"area"`
	Proprietarios []partyPayload `json:"proprietarios"`
	Averbacoes    []string       `json:"averbacoes"`
	Onus          []string       `json:"onus"`
}

type partyPayload struct {
	Nome    string `json:"nome"`
	CpfCnpj string `json:"cpfCnpj"`
	Tipo    string `json:"tipo"`
}

// ExtractProperty parses the matrícula text into a Property. The model's
// output is treated as untrusted: a response that does not match the expected
// JSON shape surfaces immediately as a malformed-output error and is never
// retried, since retrying rarely fixes a parsing mismatch.
func (e *StructuredExtractor) ExtractProperty(ctx context.Context, matriculaText string) (*domain.Property, error) {
	resp, err := e.completer.Complete(ctx, llm.Request{
		Prompt:    matriculaPrompt(matriculaText),
		MaxTokens: extractMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	payload, err := decodePropertyPayload(resp.Text)
	if err != nil {
		e.logger.Error().Err(err).Msg("Model returned an unparseable matrícula payload")
		return nil, err
	}

	prop := payload.normalize()
	e.logger.Info().
		Str("registration", prop.RegistrationNumber).
		Int("parties", len(prop.Parties)).
		Int("encumbrances", len(prop.Encumbrances)).
		Msg("Matrícula parsed")
	return prop, nil
}

// decodePropertyPayload strips markdown fences and strictly decodes the JSON
// object, failing closed on unknown fields or trailing content.
func decodePropertyPayload(text string) (*propertyPayload, error) {
	cleaned := stripFences(text)

	dec := json.NewDecoder(bytes.NewReader([]byte(cleaned)))
	dec.DisallowUnknownFields()

	var payload propertyPayload
	if err := dec.Decode(&payload); err != nil {
		return nil, domain.MalformedOutputError(
			"Não foi possível interpretar a matrícula. Tente novamente.", err)
	}
	if dec.More() {
		return nil, domain.MalformedOutputError(
			"Não foi possível interpretar a matrícula. Tente novamente.", nil)
	}

	valid := payload.Proprietarios[:0]
	for _, p := range payload.Proprietarios {
		if strings.TrimSpace(p.Nome) != "" {
			valid = append(valid, p)
		}
	}
	payload.Proprietarios = valid
	if len(payload.Proprietarios) == 0 {
		return nil, domain.MalformedOutputError(
			"Nenhum proprietário identificado na matrícula.", nil)
	}

	return &payload, nil
}

func (p *propertyPayload) normalize() *domain.Property {
	prop := &domain.Property{
		RegistrationNumber: strings.TrimSpace(p.Numero),
		RegistryOffice:     strings.TrimSpace(p.Cartorio),
		Address:            strings.TrimSpace(p.Endereco),
		Area:               strings.TrimSpace(p.Area),
		Encumbrances:       []string{},
		Annotations:        []string{},
	}
	if prop.RegistrationNumber == "" {
		prop.RegistrationNumber = domain.UnidentifiedRegistration
	}

	for _, raw := range p.Proprietarios {
		kind := domain.PartyKind(strings.ToUpper(strings.TrimSpace(raw.Tipo)))
		if kind != domain.PartyOrganization {
			kind = domain.PartyIndividual
		}
		prop.Parties = append(prop.Parties, domain.Party{
			Name:  strings.TrimSpace(raw.Nome),
			TaxID: digitsOnly(raw.CpfCnpj),
			Kind:  kind,
		})
	}

	for _, a := range p.Averbacoes {
		if s := strings.TrimSpace(a); s != "" {
			prop.Annotations = append(prop.Annotations, s)
		}
	}
	for _, o := range p.Onus {
		if s := strings.TrimSpace(o); s != "" {
			prop.Encumbrances = append(prop.Encumbrances, s)
		}
	}

	return prop
}

// stripFences removes markdown code fences the model sometimes wraps around
// JSON answers.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
