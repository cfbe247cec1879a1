// Package registry queries the certificate aggregation service: one lookup
// per owner per applicable check type, interpreted into normalized statuses.
package registry

import (
	"strings"

	"github.com/imovel-limpo/engine/internal/domain"
)

// Applicability restricts a check type to a party kind.
type Applicability string

const (
	AppliesBoth         Applicability = "AMBOS"
	AppliesIndividual   Applicability = Applicability(domain.PartyIndividual)
	AppliesOrganization Applicability = Applicability(domain.PartyOrganization)
)

// CheckSpec describes one check type answered by a live external call.
type CheckSpec struct {
	Type        string
	Endpoint    string
	DisplayName string
	AppliesTo   Applicability
}

// Check type identifiers for the enabled checks.
const (
	CheckCNDT       = "tst_cndt"
	CheckProtests   = "cenprot_sp"
	CheckCNPJStatus = "receita_cnpj"
)

// EnabledChecks are answered by live lookups, in the order they are issued
// for each party. The order is fixed for reproducibility.
var EnabledChecks = []CheckSpec{
	{
		Type:        CheckCNDT,
		Endpoint:    "/consultas/tst/cndt",
		DisplayName: "CNDT - Débitos Trabalhistas (TST)",
		AppliesTo:   AppliesBoth,
	},
	{
		Type:        CheckProtests,
		Endpoint:    "/consultas/cenprot-sp/protestos",
		DisplayName: "Protestos (CENPROT SP)",
		AppliesTo:   AppliesBoth,
	},
	{
		Type:        CheckCNPJStatus,
		Endpoint:    "/consultas/receita-federal/cnpj",
		DisplayName: "Situação Cadastral CNPJ",
		AppliesTo:   AppliesOrganization,
	},
}

// PlanGatedCheck is a check type available only on the paid tier. It is
// never queried; a synthetic not-performed result is reported instead when
// at least one present party kind matches.
type PlanGatedCheck struct {
	DisplayName string
	AppliesTo   Applicability
}

// PlanGatedChecks lists the paid-tier certificates, in report order.
var PlanGatedChecks = []PlanGatedCheck{
	{DisplayName: "CND Federal (Receita + PGFN)", AppliesTo: AppliesBoth},
	{DisplayName: "CNJ - Improbidade Administrativa", AppliesTo: AppliesBoth},
	{DisplayName: "CGU - Certidão Correcional (CEIS/CNEP)", AppliesTo: AppliesBoth},
	{DisplayName: "PGFN - Lista de Devedores", AppliesTo: AppliesBoth},
	{DisplayName: "Empresas Vinculadas ao CPF", AppliesTo: AppliesIndividual},
	{DisplayName: "Processos TJ (Estadual)", AppliesTo: AppliesBoth},
	{DisplayName: "Processos TRF (Federal)", AppliesTo: AppliesBoth},
	{DisplayName: "Antecedentes Criminais", AppliesTo: AppliesIndividual},
	{DisplayName: "CRF/FGTS (Caixa)", AppliesTo: AppliesOrganization},
	{DisplayName: "Consulta IPTU do Imóvel", AppliesTo: AppliesBoth},
}

// Type derives the stable check-type identifier of a plan-gated check from
// its display name.
func (c PlanGatedCheck) Type() string {
	return strings.ReplaceAll(strings.ToLower(c.DisplayName), " ", "_")
}

// appliesTo reports whether a check applicability covers a party kind.
func appliesTo(a Applicability, kind domain.PartyKind) bool {
	return a == AppliesBoth || a == Applicability(kind)
}
