package registry

import (
	"fmt"
	"strings"

	"github.com/imovel-limpo/engine/internal/domain"
)

// Interpret maps one check type's raw aggregator payload into a normalized
// status and a human-readable explanation. It is a pure function: no I/O, no
// hidden state, same answer for the same payload.
//
// Status semantics follow certificate conventions: "negativa" means the
// certificate came back negative, i.e. no adverse record (favorable);
// "positiva" means an adverse record exists.
func Interpret(checkType string, data map[string]any) (domain.CheckStatus, string) {
	switch checkType {
	case CheckCNDT:
		return interpretCNDT(data)
	case CheckCNPJStatus:
		return interpretCNPJStatus(data)
	case CheckProtests:
		return interpretProtests(data)
	default:
		return interpretFallback(data)
	}
}

// interpretCNDT handles the labor-debt clearance certificate.
func interpretCNDT(data map[string]any) (domain.CheckStatus, string) {
	issued, issuedSet := boolField(data, "conseguiu_emitir_certidao_negativa")
	applies, appliesSet := boolField(data, "consta")
	message := strings.ToLower(strField(data, "mensagem"))

	switch {
	case (issuedSet && issued) || (appliesSet && !applies) || strings.Contains(message, "negativa"):
		certificate := strField(data, "certidao")
		if certificate == "" {
			certificate = "OK"
		}
		validity := strField(data, "validade")
		if validity == "" {
			validity = "N/A"
		}
		return domain.CheckNegative,
			fmt.Sprintf("CNDT expedida (%s) - válida até %s", certificate, validity)

	case (appliesSet && applies) || strings.Contains(message, "positiva"):
		count := strField(data, "total_de_processos")
		if count == "" {
			count = numField(data, "total_de_processos")
		}
		if count == "" {
			count = "N/A"
		}
		return domain.CheckPositive,
			fmt.Sprintf("Existem débitos trabalhistas - %s processo(s)", count)

	default:
		return interpretFallback(data)
	}
}

// interpretCNPJStatus handles the tax-entity registration status. An active
// registration is the favorable outcome, hence "negativa".
func interpretCNPJStatus(data map[string]any) (domain.CheckStatus, string) {
	situation := strings.ToLower(strField(data, "situacao"))

	switch {
	case strings.Contains(situation, "ativa"):
		return domain.CheckNegative, "Situação: ATIVA"

	case strings.Contains(situation, "baixada"),
		strings.Contains(situation, "inapta"),
		strings.Contains(situation, "suspensa"):
		return domain.CheckPositive,
			fmt.Sprintf("Situação: %s - ATENÇÃO", strings.ToUpper(situation))

	default:
		if situation == "" {
			situation = "Consultado"
		}
		return domain.CheckNotApplicable, fmt.Sprintf("Situação: %s", situation)
	}
}

// interpretProtests handles the protest registry.
func interpretProtests(data map[string]any) (domain.CheckStatus, string) {
	titles := intField(data, "quantidade_titulos")
	if titles == 0 {
		return domain.CheckNegative, "Nenhum protesto encontrado em SP"
	}

	details := fmt.Sprintf("%d protesto(s) encontrado(s)", titles)
	if offices := sliceLen(data, "cartorios"); offices > 0 {
		details += fmt.Sprintf(" em %d cartório(s)", offices)
	}
	return domain.CheckPositive, details + " - ATENÇÃO"
}

// interpretFallback is the explicit branch for a payload shape no table
// recognizes. It defaults to "nada consta", which mirrors how the issuing
// sources phrase absent records. The unmatched message is echoed so the
// optimistic default stays visible to the reader.
func interpretFallback(data map[string]any) (domain.CheckStatus, string) {
	message := strField(data, "mensagem")
	if message == "" {
		message = "Consulta realizada"
	}
	return domain.CheckNotApplicable, message
}

// Payload field helpers. The aggregator proxies dozens of government sites
// and is loose about types, so every accessor tolerates the usual JSON
// shapes.

func strField(data map[string]any, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

func boolField(data map[string]any, key string) (value, present bool) {
	v, ok := data[key].(bool)
	return v, ok
}

func numField(data map[string]any, key string) string {
	if v, ok := data[key].(float64); ok {
		return fmt.Sprintf("%.0f", v)
	}
	return ""
}

func intField(data map[string]any, key string) int {
	switch v := data[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		var n int
		fmt.Sscanf(v, "%d", &n)
		return n
	default:
		return 0
	}
}

func sliceLen(data map[string]any, key string) int {
	if v, ok := data[key].([]any); ok {
		return len(v)
	}
	return 0
}
