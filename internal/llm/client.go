// Package llm implements the text/vision completion capability used by the
// extraction and synthesis stages.
package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/imovel-limpo/engine/internal/domain"
	"github.com/imovel-limpo/engine/internal/observability"
)

const defaultModel = "gpt-4o-mini"

// Completer is the completion capability consumed by pipeline stages: a
// text-only instruction, or an instruction plus one embedded image.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Request describes one completion call.
type Request struct {
	Prompt    string
	Image     *Image // optional; when set the call runs in vision mode
	MaxTokens int
}

// Image is an inline image attached to a vision request.
type Image struct {
	MIME string
	Data []byte
}

// Response carries the completion text plus usage counters. Token counts are
// logged but never drive control flow.
type Response struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *observability.Logger
	sleep      sleepFunc
}

// NewClient creates a new completion client.
func NewClient(baseURL, apiKey, model string, logger *observability.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, domain.ConfigError("OPENAI_API_KEY not set", nil)
	}
	if model == "" {
		model = defaultModel
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{},
		logger:     logger.WithComponent("llm"),
		sleep:      sleepContext,
	}, nil
}

// Wire types for the chat completions endpoint.

type apiRequest struct {
	Model     string       `json:"model"`
	Messages  []apiMessage `json:"messages"`
	MaxTokens int          `json:"max_tokens,omitempty"`
}

type apiMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string or []contentPart
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type apiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete performs one completion call, retrying rate-limit responses per
// the fixed retry policy.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	return c.send(ctx, c.buildRequest(req), req.Image != nil)
}

func (c *Client) send(ctx context.Context, areq *apiRequest, vision bool) (*Response, error) {
	body, err := json.Marshal(areq)
	if err != nil {
		return nil, domain.ConfigError("failed to marshal completion request", err)
	}

	resp, err := c.doWithRetry(ctx, func() (*http.Response, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		return c.httpClient.Do(httpReq)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		c.logger.Error().Int("status", resp.StatusCode).Str("body", string(raw)).
			Msg("Completion request failed")
		return nil, domain.APIError("Erro ao processar análise. Tente novamente.",
			fmt.Errorf("completion API returned status %d", resp.StatusCode))
	}

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, domain.MalformedOutputError("resposta inválida do serviço de análise", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return nil, domain.MalformedOutputError("resposta vazia do serviço de análise", nil)
	}

	out := &Response{
		Text:         parsed.Choices[0].Message.Content,
		InputTokens:  parsed.Usage.PromptTokens,
		OutputTokens: parsed.Usage.CompletionTokens,
	}
	c.logger.Info().
		Int("input_tokens", out.InputTokens).
		Int("output_tokens", out.OutputTokens).
		Int("total_tokens", out.InputTokens+out.OutputTokens).
		Bool("vision", vision).
		Msg("Completion call finished")

	return out, nil
}

func (c *Client) buildRequest(req Request) *apiRequest {
	var msg apiMessage
	if req.Image != nil {
		dataURL := fmt.Sprintf("data:%s;base64,%s",
			req.Image.MIME, base64.StdEncoding.EncodeToString(req.Image.Data))
		msg = apiMessage{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: req.Prompt},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL, Detail: "high"}},
			},
		}
	} else {
		msg = apiMessage{Role: "user", Content: req.Prompt}
	}

	return &apiRequest{
		Model:     c.model,
		Messages:  []apiMessage{msg},
		MaxTokens: req.MaxTokens,
	}
}
