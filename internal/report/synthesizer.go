// Package report turns a property record and its check results into the
// final risk report: a classification, an estimated resolution time, a
// narrative summary and the list of open issues.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/imovel-limpo/engine/internal/domain"
	"github.com/imovel-limpo/engine/internal/llm"
	"github.com/imovel-limpo/engine/internal/observability"
)

const synthesisMaxTokens = 1024

const synthesisPromptTemplate = `Você é um especialista em due diligence imobiliária no Brasil. Analise os dados do imóvel e os resultados das certidões consultadas e produza um parecer para o corretor de imóveis.

DADOS DO IMÓVEL:
%s

RESULTADOS DAS CERTIDÕES:
%s

Critérios de classificação:
- "limpo": nenhuma certidão com apontamento e nenhum ônus registrado na matrícula
- "atencao": certidões retornaram apontamentos que merecem verificação antes de fechar negócio
- "pendencia": existem ônus registrados na matrícula ou apontamentos graves nas certidões

Responda APENAS com JSON válido, sem nenhum texto adicional:
{
  "status": "limpo" | "atencao" | "pendencia",
  "tempoEstimado": "prazo estimado para resolução e liberação da comissão",
  "resumo": "resumo objetivo em 2-3 frases, em linguagem acessível ao corretor"
}`

// Synthesis is the verdict produced for one analysis.
type Synthesis struct {
	Classification          domain.Classification `json:"status"`
	EstimatedResolutionTime string                `json:"tempoEstimado"`
	Summary                 string                `json:"resumo"`
}

// Synthesizer produces the final verdict. It asks the language model for a
// narrative reading of the evidence and falls back to the deterministic
// rules whenever the model is unavailable or answers nonsense.
type Synthesizer struct {
	completer llm.Completer
	logger    *observability.Logger
}

// NewSynthesizer creates a synthesizer backed by the given completer.
func NewSynthesizer(completer llm.Completer, logger *observability.Logger) *Synthesizer {
	return &Synthesizer{
		completer: completer,
		logger:    logger.WithComponent("synthesizer"),
	}
}

// Synthesize produces the verdict for a property and its check results. It
// never fails: any model problem degrades to RuleBased. Registered
// encumbrances always force the pending classification, whatever the model
// argued.
func (s *Synthesizer) Synthesize(ctx context.Context, prop *domain.Property, checks []domain.CheckResult) Synthesis {
	syn, err := s.fromModel(ctx, prop, checks)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Model synthesis failed, using rule-based verdict")
		return RuleBased(prop, checks)
	}

	if len(prop.Encumbrances) > 0 && syn.Classification != domain.ClassificationPending {
		s.logger.Warn().
			Str("model_status", string(syn.Classification)).
			Msg("Property has registered encumbrances, forcing pending classification")
		syn.Classification = domain.ClassificationPending
		syn.EstimatedResolutionTime = "3-6 meses ou mais"
	}
	return syn
}

func (s *Synthesizer) fromModel(ctx context.Context, prop *domain.Property, checks []domain.CheckResult) (Synthesis, error) {
	propJSON, err := json.MarshalIndent(prop, "", "  ")
	if err != nil {
		return Synthesis{}, err
	}
	checksJSON, err := json.MarshalIndent(checks, "", "  ")
	if err != nil {
		return Synthesis{}, err
	}

	resp, err := s.completer.Complete(ctx, llm.Request{
		Prompt:    fmt.Sprintf(synthesisPromptTemplate, propJSON, checksJSON),
		MaxTokens: synthesisMaxTokens,
	})
	if err != nil {
		return Synthesis{}, err
	}

	return parseSynthesis(resp.Text)
}

func parseSynthesis(text string) (Synthesis, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var syn Synthesis
	if err := json.Unmarshal([]byte(cleaned), &syn); err != nil {
		return Synthesis{}, domain.MalformedOutputError("Resposta da análise em formato inválido.", err)
	}

	switch syn.Classification {
	case domain.ClassificationClean, domain.ClassificationCaution, domain.ClassificationPending:
	default:
		return Synthesis{}, domain.MalformedOutputError(
			fmt.Sprintf("Classificação desconhecida: %q.", syn.Classification), nil)
	}
	if syn.EstimatedResolutionTime == "" || syn.Summary == "" {
		return Synthesis{}, domain.MalformedOutputError("Resposta da análise incompleta.", nil)
	}
	return syn, nil
}

// RuleBased derives the verdict from the evidence alone. Encumbrances on the
// registration dominate, then any adverse certificate, then clean.
func RuleBased(prop *domain.Property, checks []domain.CheckResult) Synthesis {
	if len(prop.Encumbrances) > 0 {
		return Synthesis{
			Classification:          domain.ClassificationPending,
			EstimatedResolutionTime: "3-6 meses ou mais",
			Summary:                 "Imóvel possui ônus registrados na matrícula. Recomenda-se análise jurídica antes de prosseguir com a venda.",
		}
	}
	for _, c := range checks {
		if c.Status == domain.CheckPositive {
			return Synthesis{
				Classification:          domain.ClassificationCaution,
				EstimatedResolutionTime: "45-90 dias",
				Summary:                 "Algumas certidões retornaram com apontamentos. Verificar detalhes antes de fechar negócio.",
			}
		}
	}
	return Synthesis{
		Classification:          domain.ClassificationClean,
		EstimatedResolutionTime: "30-45 dias",
		Summary:                 "Imóvel sem pendências identificadas. Documentação em ordem para venda.",
	}
}

// OpenIssues lists every registered encumbrance and every adverse check, in
// evidence order.
func OpenIssues(prop *domain.Property, checks []domain.CheckResult) []string {
	issues := []string{}
	for _, o := range prop.Encumbrances {
		issues = append(issues, "Ônus: "+o)
	}
	for _, c := range checks {
		if c.Status == domain.CheckPositive {
			issues = append(issues, fmt.Sprintf("%s: %s", c.DisplayName, c.Details))
		}
	}
	return issues
}

// Build assembles the final report from its parts.
func Build(prop *domain.Property, checks []domain.CheckResult, syn Synthesis) *domain.AnalysisReport {
	return &domain.AnalysisReport{
		Property: domain.PropertySummary{
			RegistrationNumber: prop.RegistrationNumber,
			RegistryOffice:     prop.RegistryOffice,
			Address:            prop.Address,
			Area:               prop.Area,
		},
		Parties:                 prop.Parties,
		Checks:                  checks,
		Classification:          syn.Classification,
		EstimatedResolutionTime: syn.EstimatedResolutionTime,
		NarrativeSummary:        syn.Summary,
		OpenIssues:              OpenIssues(prop, checks),
	}
}
