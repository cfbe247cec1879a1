package registry

import (
	"context"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/imovel-limpo/engine/internal/observability"
)

// Source is the name reported on check results answered by the aggregator.
const Source = "InfoSimples"

// lookupTimeoutSeconds is passed to the aggregator, which proxies slow
// government sites and needs a generous budget of its own.
const lookupTimeoutSeconds = 300

// Response is the aggregator's envelope. Code 200 means the underlying
// source answered; anything else is an upstream failure for that lookup.
type Response struct {
	Code         int              `json:"code"`
	CodeMessage  string           `json:"code_message"`
	Data         []map[string]any `json:"data"`
	Errors       []string         `json:"errors"`
	SiteReceipts []string         `json:"site_receipts"`
}

// OK reports whether the lookup itself succeeded.
func (r *Response) OK() bool {
	return r.Code == 200
}

// Record returns the first payload record, or an empty map.
func (r *Response) Record() map[string]any {
	if len(r.Data) == 0 {
		return map[string]any{}
	}
	return r.Data[0]
}

// ReceiptURL returns the proof-document link, if the service produced one.
func (r *Response) ReceiptURL() string {
	if url, ok := r.Record()["site_receipt"].(string); ok && url != "" {
		return url
	}
	if len(r.SiteReceipts) > 0 {
		return r.SiteReceipts[0]
	}
	return ""
}

// LookupAPI is the transport boundary of the fan-out engine.
type LookupAPI interface {
	Lookup(ctx context.Context, endpoint string, params map[string]string) (*Response, error)
}

// Client calls the certificate aggregation REST API.
type Client struct {
	rc     *resty.Client
	token  string
	logger *observability.Logger
}

// NewClient creates a new aggregator client.
func NewClient(baseURL, token string, requestTimeout time.Duration, logger *observability.Logger) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(requestTimeout).
		SetHeader("Content-Type", "application/x-www-form-urlencoded")

	return &Client{
		rc:     rc,
		token:  token,
		logger: logger.WithComponent("registry-client"),
	}
}

// Lookup posts one form-encoded query to the given consulta endpoint. A
// transport failure returns an error; an upstream rejection comes back inside
// the Response envelope with a non-200 code.
func (c *Client) Lookup(ctx context.Context, endpoint string, params map[string]string) (*Response, error) {
	form := map[string]string{
		"token":   c.token,
		"timeout": strconv.Itoa(lookupTimeoutSeconds),
	}
	for k, v := range params {
		form[k] = v
	}

	c.logger.Debug().Str("endpoint", endpoint).Msg("Querying certificate aggregator")

	var out Response
	resp, err := c.rc.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(&out).
		Post(endpoint + ".json")
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Int("http_status", resp.StatusCode()).
		Int("code", out.Code).
		Str("code_message", out.CodeMessage).
		Msg("Aggregator answered")

	return &out, nil
}
