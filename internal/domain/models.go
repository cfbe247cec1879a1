package domain

import (
	"time"
)

// UnidentifiedRegistration is the sentinel used when the registry number
// cannot be read from the document.
const UnidentifiedRegistration = "Não identificado"

// PartyKind distinguishes individuals (CPF holders) from organizations (CNPJ holders).
type PartyKind string

const (
	PartyIndividual   PartyKind = "PF"
	PartyOrganization PartyKind = "PJ"
)

// Party is one person or entity appearing as a current owner of the property.
// TaxID holds digits only after normalization.
type Party struct {
	Name  string    `json:"nome"`
	TaxID string    `json:"cpfCnpj"`
	Kind  PartyKind `json:"tipo"`
}

// Property is the parsed legal identity of the property as read from the
// matrícula. Parties holds only the current owners: the parties named in the
// most recent valid transfer, never prior owners in the chronological chain.
type Property struct {
	RegistrationNumber string   `json:"matricula"`
	RegistryOffice     string   `json:"cartorio,omitempty"`
	Address            string   `json:"endereco,omitempty"`
	Area               string   `json:"area,omitempty"`
	Parties            []Party  `json:"proprietarios"`
	Encumbrances       []string `json:"onus"`
	Annotations        []string `json:"averbacoes"`
}

// CheckStatus is the normalized outcome of one certificate lookup.
// "negativa" means no adverse record was found (favorable); "positiva" means
// an adverse record exists.
type CheckStatus string

const (
	CheckPositive      CheckStatus = "positiva"
	CheckNegative      CheckStatus = "negativa"
	CheckNotApplicable CheckStatus = "nada_consta"
	CheckError         CheckStatus = "erro"
	CheckNotPerformed  CheckStatus = "nao_consultada"
)

// CheckResult is one normalized certificate lookup outcome for one party.
type CheckResult struct {
	CheckType   string      `json:"tipo"`
	DisplayName string      `json:"nome"`
	Status      CheckStatus `json:"status"`
	Details     string      `json:"detalhes,omitempty"`
	QueriedAt   time.Time   `json:"dataConsulta"`
	Source      string      `json:"fonte"`
	ReceiptURL  string      `json:"comprovante,omitempty"`
}

// Classification is the final risk verdict of an analysis.
type Classification string

const (
	ClassificationClean   Classification = "limpo"
	ClassificationCaution Classification = "atencao"
	ClassificationPending Classification = "pendencia"
)

// PropertySummary carries the property identity fields of a finished report.
type PropertySummary struct {
	RegistrationNumber string `json:"matricula"`
	RegistryOffice     string `json:"cartorio,omitempty"`
	Address            string `json:"endereco,omitempty"`
	Area               string `json:"area,omitempty"`
}

// AnalysisReport is the final deliverable of a pipeline run. Reports are
// assembled once and never mutated; a new analysis produces a new report.
type AnalysisReport struct {
	Property                PropertySummary `json:"imovel"`
	Parties                 []Party         `json:"proprietarios"`
	Checks                  []CheckResult   `json:"certidoes"`
	Classification          Classification  `json:"status"`
	EstimatedResolutionTime string          `json:"tempoEstimadoComissao"`
	NarrativeSummary        string          `json:"resumo"`
	OpenIssues              []string        `json:"pendencias"`
}

// Contact identifies a broker or client attached to a stored analysis.
type Contact struct {
	Name  string `json:"nome"`
	Email string `json:"email,omitempty"`
	Phone string `json:"telefone,omitempty"`
}

// StoredAnalysis is an analysis report persisted with its workspace metadata.
type StoredAnalysis struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Report    AnalysisReport `json:"report"`
	Broker    *Contact       `json:"corretor,omitempty"`
	Client    *Contact       `json:"cliente,omitempty"`
	Notes     string         `json:"notas,omitempty"`
	Tags      []string       `json:"tags,omitempty"`
	Favorite  bool           `json:"favorito"`
}

// AnalysisFilters selects stored analyses. Zero values mean "no filter".
type AnalysisFilters struct {
	Search         string
	Classification Classification
	DateFrom       time.Time
	DateTo         time.Time
	Broker         string
	FavoritesOnly  bool
}

// AnalysisStats aggregates the stored analyses for the dashboard.
type AnalysisStats struct {
	Total        int `json:"total"`
	Clean        int `json:"limpos"`
	Caution      int `json:"atencao"`
	Pending      int `json:"pendencias"`
	Favorites    int `json:"favoritos"`
	LastWeek     int `json:"ultimaSemana"`
	LastMonth    int `json:"ultimoMes"`
	ApprovalRate int `json:"taxaAprovacao"` // percentage of clean analyses
}
