package registry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/imovel-limpo/engine/internal/cache"
	"github.com/imovel-limpo/engine/internal/domain"
	"github.com/imovel-limpo/engine/internal/observability"
)

type fakeLookupAPI struct {
	calls   []string
	respond func(endpoint string, params map[string]string) (*Response, error)
}

func (f *fakeLookupAPI) Lookup(ctx context.Context, endpoint string, params map[string]string) (*Response, error) {
	f.calls = append(f.calls, endpoint)
	return f.respond(endpoint, params)
}

func okResponse(data map[string]any) *Response {
	return &Response{Code: 200, Data: []map[string]any{data}}
}

func newTestEngine(api LookupAPI, c cache.Client) *Engine {
	e := NewEngine(api, EngineConfig{
		Cache:      c,
		CacheTTL:   time.Hour,
		NewLimiter: func() Limiter { return NopLimiter{} },
	}, observability.NewTestLogger())
	e.now = func() time.Time { return time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC) }
	return e
}

var testParties = []domain.Party{
	{Name: "Maria Silva", TaxID: "12345678901", Kind: domain.PartyIndividual},
	{Name: "Empresa XYZ Ltda", TaxID: "11222333000181", Kind: domain.PartyOrganization},
}

func TestRunFansOutPerPartyPerCheck(t *testing.T) {
	api := &fakeLookupAPI{
		respond: func(endpoint string, params map[string]string) (*Response, error) {
			return okResponse(map[string]any{"mensagem": "ok"}), nil
		},
	}

	results, err := newTestEngine(api, nil).Run(context.Background(), testParties)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Individual: CNDT + protests. Organization: CNDT + protests + CNPJ status.
	wantCalls := []string{
		"/consultas/tst/cndt",
		"/consultas/cenprot-sp/protestos",
		"/consultas/tst/cndt",
		"/consultas/cenprot-sp/protestos",
		"/consultas/receita-federal/cnpj",
	}
	if len(api.calls) != len(wantCalls) {
		t.Fatalf("made %d calls, want %d: %v", len(api.calls), len(wantCalls), api.calls)
	}
	for i, want := range wantCalls {
		if api.calls[i] != want {
			t.Errorf("call %d = %q, want %q", i, api.calls[i], want)
		}
	}

	// Five live results plus every plan-gated check (both kinds present).
	wantTotal := len(wantCalls) + len(PlanGatedChecks)
	if len(results) != wantTotal {
		t.Fatalf("got %d results, want %d", len(results), wantTotal)
	}

	if !strings.HasPrefix(results[0].Details, "Maria Silva: ") {
		t.Errorf("details %q missing party prefix", results[0].Details)
	}
	if results[0].Source != Source {
		t.Errorf("source = %q, want %q", results[0].Source, Source)
	}
}

func TestRunParamNameFollowsPartyKind(t *testing.T) {
	var seen []map[string]string
	api := &fakeLookupAPI{
		respond: func(endpoint string, params map[string]string) (*Response, error) {
			seen = append(seen, params)
			return okResponse(map[string]any{}), nil
		},
	}

	if _, err := newTestEngine(api, nil).Run(context.Background(), testParties); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if seen[0]["cpf"] != "12345678901" {
		t.Errorf("individual lookup params = %v, want cpf", seen[0])
	}
	if seen[len(seen)-1]["cnpj"] != "11222333000181" {
		t.Errorf("organization lookup params = %v, want cnpj", seen[len(seen)-1])
	}
}

func TestRunFirstCallTransportFailureAborts(t *testing.T) {
	api := &fakeLookupAPI{
		respond: func(endpoint string, params map[string]string) (*Response, error) {
			return nil, errors.New("connection refused")
		},
	}

	_, err := newTestEngine(api, nil).Run(context.Background(), testParties)
	if err == nil {
		t.Fatal("expected error when the aggregator never answers")
	}
	if !domain.IsType(err, domain.ErrorTypeLookup) {
		t.Errorf("error type = %q, want lookup", domain.TypeOf(err))
	}
	if len(api.calls) != 1 {
		t.Errorf("made %d calls after dead first call, want 1", len(api.calls))
	}
}

func TestRunLaterTransportFailureIsContained(t *testing.T) {
	call := 0
	api := &fakeLookupAPI{
		respond: func(endpoint string, params map[string]string) (*Response, error) {
			call++
			if call == 3 {
				return nil, errors.New("timeout")
			}
			return okResponse(map[string]any{"mensagem": "ok"}), nil
		},
	}

	results, err := newTestEngine(api, nil).Run(context.Background(), testParties)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var errored *domain.CheckResult
	for i := range results {
		if results[i].Status == domain.CheckError {
			errored = &results[i]
		}
	}
	if errored == nil {
		t.Fatal("expected one error-status result")
	}
	if !strings.Contains(errored.Details, "Não foi possível consultar esta certidão") {
		t.Errorf("details = %q", errored.Details)
	}
	if len(api.calls) != 5 {
		t.Errorf("made %d calls, want 5: run should continue past one failure", len(api.calls))
	}
}

func TestRunUpstreamRejectionBecomesErrorResult(t *testing.T) {
	api := &fakeLookupAPI{
		respond: func(endpoint string, params map[string]string) (*Response, error) {
			if endpoint == "/consultas/cenprot-sp/protestos" {
				return &Response{Code: 612, CodeMessage: "Documento inválido"}, nil
			}
			return okResponse(map[string]any{"mensagem": "ok"}), nil
		},
	}

	results, err := newTestEngine(api, nil).Run(context.Background(), testParties[:1])
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	found := false
	for _, r := range results {
		if r.CheckType == CheckProtests && r.Status == domain.CheckError {
			found = true
			if !strings.Contains(r.Details, "Documento inválido") {
				t.Errorf("details = %q, want upstream code message", r.Details)
			}
		}
	}
	if !found {
		t.Error("expected error-status result for the rejected lookup")
	}
}

func TestRunSkipsPartyWithoutTaxID(t *testing.T) {
	api := &fakeLookupAPI{
		respond: func(endpoint string, params map[string]string) (*Response, error) {
			return okResponse(map[string]any{}), nil
		},
	}

	parties := []domain.Party{
		{Name: "Sem Documento", Kind: domain.PartyIndividual},
		{Name: "Maria Silva", TaxID: "12345678901", Kind: domain.PartyIndividual},
	}
	_, err := newTestEngine(api, nil).Run(context.Background(), parties)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(api.calls) != 2 {
		t.Errorf("made %d calls, want 2 (only the documented party)", len(api.calls))
	}
}

func TestRunPlanGatedResultsFollowPresentKinds(t *testing.T) {
	api := &fakeLookupAPI{
		respond: func(endpoint string, params map[string]string) (*Response, error) {
			return okResponse(map[string]any{}), nil
		},
	}

	// Individual only: organization-only plan entries must not appear.
	results, err := newTestEngine(api, nil).Run(context.Background(), testParties[:1])
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, r := range results {
		if r.Status != domain.CheckNotPerformed {
			continue
		}
		if r.DisplayName == "CRF/FGTS (Caixa)" {
			t.Error("organization-only plan check reported for an individual")
		}
		if r.Details != "Disponível no plano completo" {
			t.Errorf("plan-gated details = %q", r.Details)
		}
		if r.Source != PlanSource {
			t.Errorf("plan-gated source = %q, want %q", r.Source, PlanSource)
		}
	}
}

func TestRunServesRepeatLookupsFromCache(t *testing.T) {
	api := &fakeLookupAPI{
		respond: func(endpoint string, params map[string]string) (*Response, error) {
			return okResponse(map[string]any{"mensagem": "ok"}), nil
		},
	}
	c := cache.NewMemoryClient()
	engine := newTestEngine(api, c)

	if _, err := engine.Run(context.Background(), testParties[:1]); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	first := len(api.calls)

	if _, err := engine.Run(context.Background(), testParties[:1]); err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if len(api.calls) != first {
		t.Errorf("second run made %d extra calls, want 0", len(api.calls)-first)
	}
}

func TestRunHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	api := &fakeLookupAPI{
		respond: func(endpoint string, params map[string]string) (*Response, error) {
			cancel()
			return nil, ctx.Err()
		},
	}

	_, err := newTestEngine(api, nil).Run(ctx, testParties)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if len(api.calls) != 1 {
		t.Errorf("made %d calls after cancellation, want 1", len(api.calls))
	}
}
