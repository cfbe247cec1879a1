package llm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/imovel-limpo/engine/internal/domain"
	"github.com/imovel-limpo/engine/internal/observability"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient("http://localhost:0", "test-key", "", observability.NewTestLogger())
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func rateLimitedResponse() *http.Response {
	return &http.Response{
		StatusCode: http.StatusTooManyRequests,
		Body:       io.NopCloser(strings.NewReader("")),
	}
}

func TestDoWithRetryExhaustsAfterFixedAttempts(t *testing.T) {
	c := newTestClient(t)

	var slept []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	attempts := 0
	_, err := c.doWithRetry(context.Background(), func() (*http.Response, error) {
		attempts++
		return rateLimitedResponse(), nil
	})

	if err == nil {
		t.Fatal("expected retry exhaustion error")
	}
	if !domain.IsType(err, domain.ErrorTypeRetryExhausted) {
		t.Errorf("error type = %q, want retry_exhausted", domain.TypeOf(err))
	}
	if attempts != maxAttempts {
		t.Errorf("attempts = %d, want %d", attempts, maxAttempts)
	}
	// One wait between each pair of attempts, never after the last.
	if len(slept) != maxAttempts-1 {
		t.Fatalf("slept %d times, want %d", len(slept), maxAttempts-1)
	}
	for i, d := range slept {
		if d != rateLimitDelay {
			t.Errorf("sleep %d = %v, want %v", i, d, rateLimitDelay)
		}
	}
}

func TestDoWithRetrySucceedsAfterRateLimit(t *testing.T) {
	c := newTestClient(t)
	c.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	attempts := 0
	resp, err := c.doWithRetry(context.Background(), func() (*http.Response, error) {
		attempts++
		if attempts == 1 {
			return rateLimitedResponse(), nil
		}
		return &http.Response{StatusCode: http.StatusOK,
			Body: io.NopCloser(strings.NewReader("{}"))}, nil
	})
	if err != nil {
		t.Fatalf("doWithRetry failed: %v", err)
	}
	defer resp.Body.Close()

	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestDoWithRetryDoesNotRetryOtherErrors(t *testing.T) {
	c := newTestClient(t)
	c.sleep = func(ctx context.Context, d time.Duration) error {
		t.Error("unexpected sleep for a non-rate-limit failure")
		return nil
	}

	attempts := 0
	_, err := c.doWithRetry(context.Background(), func() (*http.Response, error) {
		attempts++
		return nil, errors.New("dial tcp: connection refused")
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if !domain.IsType(err, domain.ErrorTypeAPI) {
		t.Errorf("error type = %q, want api", domain.TypeOf(err))
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestDoWithRetryTreats429ErrorStringAsRateLimit(t *testing.T) {
	c := newTestClient(t)
	c.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	attempts := 0
	_, err := c.doWithRetry(context.Background(), func() (*http.Response, error) {
		attempts++
		return nil, errors.New("upstream said: 429 Too Many Requests")
	})

	if !domain.IsType(err, domain.ErrorTypeRetryExhausted) {
		t.Errorf("error type = %q, want retry_exhausted", domain.TypeOf(err))
	}
	if attempts != maxAttempts {
		t.Errorf("attempts = %d, want %d", attempts, maxAttempts)
	}
}

func TestDoWithRetryStopsWhenContextEnds(t *testing.T) {
	c := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	c.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	attempts := 0
	_, err := c.doWithRetry(ctx, func() (*http.Response, error) {
		attempts++
		return rateLimitedResponse(), nil
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient("http://localhost:0", "", "", observability.NewTestLogger())
	if !domain.IsType(err, domain.ErrorTypeConfig) {
		t.Errorf("error type = %q, want config", domain.TypeOf(err))
	}
}

func TestNewClientDefaultsModel(t *testing.T) {
	c := newTestClient(t)
	if c.model != defaultModel {
		t.Errorf("model = %q, want %q", c.model, defaultModel)
	}
}
