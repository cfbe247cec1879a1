package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/imovel-limpo/engine/internal/cache"
	"github.com/imovel-limpo/engine/internal/domain"
	"github.com/imovel-limpo/engine/internal/observability"
)

// PlanSource is the reported source of synthetic plan-gated results.
const PlanSource = "Imóvel Limpo"

const planGatedDetails = "Disponível no plano completo"

// EngineConfig configures the fan-out engine.
type EngineConfig struct {
	// CallSpacing is the minimum interval between aggregator calls.
	CallSpacing time.Duration

	// Cache, when set, short-circuits repeat lookups of the same document
	// within CacheTTL. A hit skips both the network call and the spacing wait.
	Cache    cache.Client
	CacheTTL time.Duration

	// NewLimiter overrides the per-run limiter construction. Tests substitute
	// a NopLimiter here to run without real delays.
	NewLimiter func() Limiter
}

// Engine issues one lookup per party per applicable enabled check, in a
// fixed order, with mandatory spacing between calls.
type Engine struct {
	api    LookupAPI
	cfg    EngineConfig
	now    func() time.Time
	logger *observability.Logger
}

// NewEngine creates a fan-out engine over the given lookup transport.
func NewEngine(api LookupAPI, cfg EngineConfig, logger *observability.Logger) *Engine {
	if cfg.CallSpacing == 0 {
		cfg.CallSpacing = time.Second
	}
	if cfg.NewLimiter == nil {
		spacing := cfg.CallSpacing
		cfg.NewLimiter = func() Limiter { return NewIntervalLimiter(spacing) }
	}
	return &Engine{
		api:    api,
		cfg:    cfg,
		now:    time.Now,
		logger: logger.WithComponent("fanout"),
	}
}

// Run queries every applicable enabled check for every party, in input
// order, then appends the plan-gated entries relevant to the present party
// kinds. One party's failure never aborts the remaining lookups; the run
// only fails outright when the aggregator is unreachable from the very first
// call, or when the context ends.
func (e *Engine) Run(ctx context.Context, parties []domain.Party) ([]domain.CheckResult, error) {
	limiter := e.cfg.NewLimiter()
	results := make([]domain.CheckResult, 0, len(parties)*len(EnabledChecks))
	reachedAggregator := false

	e.logger.Info().Int("parties", len(parties)).Msg("Starting certificate lookups")

	for _, party := range parties {
		if party.TaxID == "" {
			e.logger.Warn().Str("party", party.Name).Msg("Party has no tax ID, skipping lookups")
			continue
		}

		for _, spec := range EnabledChecks {
			if !appliesTo(spec.AppliesTo, party.Kind) {
				continue
			}

			result, called, err := e.runCheck(ctx, limiter, spec, party)
			if err != nil {
				if ctx.Err() != nil {
					return nil, err
				}
				if !reachedAggregator {
					// A dead endpoint on the opening call would otherwise burn
					// the whole spacing budget producing nothing but errors.
					return nil, domain.LookupError(
						"Serviço de consulta de certidões indisponível. Tente novamente.", err)
				}
				e.logger.Error().Err(err).
					Str("check", spec.Type).
					Str("party", party.Name).
					Msg("Lookup transport failure, recording error result")
				result = domain.CheckResult{
					CheckType:   spec.Type,
					DisplayName: spec.DisplayName,
					Status:      domain.CheckError,
					Details:     "Não foi possível consultar esta certidão",
					QueriedAt:   e.now(),
					Source:      Source,
				}
			}
			if called {
				reachedAggregator = true
			}

			result.Details = fmt.Sprintf("%s: %s", party.Name, result.Details)
			results = append(results, result)
		}
	}

	results = append(results, e.planGatedResults(parties)...)
	return results, nil
}

// runCheck performs a single lookup. The returned error is transport-level
// only; an upstream rejection is already folded into an error-status result.
// called reports whether the aggregator actually answered a network call.
func (e *Engine) runCheck(ctx context.Context, limiter Limiter, spec CheckSpec, party domain.Party) (domain.CheckResult, bool, error) {
	result := domain.CheckResult{
		CheckType:   spec.Type,
		DisplayName: spec.DisplayName,
		QueriedAt:   e.now(),
		Source:      Source,
	}

	resp, cached := e.cachedResponse(ctx, spec, party)
	called := false
	if resp == nil {
		if err := limiter.Wait(ctx); err != nil {
			return result, false, err
		}

		var err error
		resp, err = e.api.Lookup(ctx, spec.Endpoint, lookupParams(party))
		if err != nil {
			return result, false, err
		}
		called = true

		if resp.OK() {
			e.storeResponse(ctx, spec, party, resp)
		}
	} else {
		e.logger.Debug().Str("check", spec.Type).Bool("cache_hit", cached).
			Msg("Lookup served from cache")
	}

	if !resp.OK() {
		// A wrong or stale record is worse than a missing one: missing ones
		// are visibly flagged, so upstream failures are never retried here.
		details := resp.CodeMessage
		if details == "" {
			details = "Erro na consulta"
		}
		result.Status = domain.CheckError
		result.Details = details
		return result, called, nil
	}

	result.Status, result.Details = Interpret(spec.Type, resp.Record())
	result.ReceiptURL = resp.ReceiptURL()
	return result, called, nil
}

func (e *Engine) planGatedResults(parties []domain.Party) []domain.CheckResult {
	present := map[domain.PartyKind]bool{}
	for _, p := range parties {
		present[p.Kind] = true
	}
	if len(present) == 0 {
		return nil
	}

	var results []domain.CheckResult
	for _, pg := range PlanGatedChecks {
		relevant := pg.AppliesTo == AppliesBoth ||
			(pg.AppliesTo == AppliesIndividual && present[domain.PartyIndividual]) ||
			(pg.AppliesTo == AppliesOrganization && present[domain.PartyOrganization])
		if !relevant {
			continue
		}
		results = append(results, domain.CheckResult{
			CheckType:   pg.Type(),
			DisplayName: pg.DisplayName,
			Status:      domain.CheckNotPerformed,
			Details:     planGatedDetails,
			QueriedAt:   e.now(),
			Source:      PlanSource,
		})
	}
	return results
}

func lookupParams(party domain.Party) map[string]string {
	if party.Kind == domain.PartyOrganization {
		return map[string]string{"cnpj": party.TaxID}
	}
	return map[string]string{"cpf": party.TaxID}
}

func cacheKey(checkType, taxID string) string {
	return fmt.Sprintf("lookup:%s:%s", checkType, taxID)
}

func (e *Engine) cachedResponse(ctx context.Context, spec CheckSpec, party domain.Party) (*Response, bool) {
	if e.cfg.Cache == nil {
		return nil, false
	}
	raw, err := e.cfg.Cache.Get(ctx, cacheKey(spec.Type, party.TaxID))
	if err != nil {
		return nil, false
	}
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

func (e *Engine) storeResponse(ctx context.Context, spec CheckSpec, party domain.Party, resp *Response) {
	if e.cfg.Cache == nil {
		return
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := e.cfg.Cache.Set(ctx, cacheKey(spec.Type, party.TaxID), raw, e.cfg.CacheTTL); err != nil {
		e.logger.Warn().Err(err).Str("check", spec.Type).Msg("Failed to cache lookup response")
	}
}
