package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/imovel-limpo/engine/internal/domain"
)

// The completion provider rate-limits aggressively on the free tier. The
// policy is a fixed wait, not exponential: the limit window resets on a fixed
// schedule, so longer waits buy nothing.
const (
	maxAttempts    = 3
	rateLimitDelay = 25 * time.Second
)

type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// isRateLimited reports whether the outcome of one attempt is a rate-limit
// rejection. Some gateways wrap the upstream 429 into an opaque error string,
// so the message is checked as well.
func isRateLimited(resp *http.Response, err error) bool {
	if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "429")
}

// doWithRetry executes send, retrying only rate-limit rejections. Any other
// failure propagates immediately: retrying a malformed request or an auth
// error just burns quota.
func (c *Client) doWithRetry(ctx context.Context, send func() (*http.Response, error)) (*http.Response, error) {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := send()

		if !isRateLimited(resp, err) {
			if err != nil {
				return nil, domain.APIError("Erro ao processar análise. Tente novamente.", err)
			}
			return resp, nil
		}

		if resp != nil {
			resp.Body.Close()
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
		}

		if attempt == maxAttempts {
			break
		}

		c.logger.Warn().
			Int("attempt", attempt).
			Int("max_attempts", maxAttempts).
			Dur("delay", rateLimitDelay).
			Msg("Rate limited by completion service, waiting before retry")

		if err := c.sleep(ctx, rateLimitDelay); err != nil {
			return nil, err
		}
	}

	return nil, domain.RetryExhaustedError(
		fmt.Sprintf("limite de requisições excedido após %d tentativas", maxAttempts), lastErr)
}
