// Package anthropic implements the judge port against the Anthropic
// Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/wigsbury-ui/evalent.io-sub001/internal/adapter/ai/tokencount"
	"github.com/wigsbury-ui/evalent.io-sub001/internal/adapter/observability"
	"github.com/wigsbury-ui/evalent.io-sub001/internal/config"
	"github.com/wigsbury-ui/evalent.io-sub001/internal/domain"
)

const apiVersion = "2023-06-01"

// Client implements domain.Judge. Calls are single-shot with an explicit
// timeout: a failed judge call is substituted by the caller's fallback, never
// retried here.
type Client struct {
	cfg     config.Config
	hc      *http.Client
	counter *tokencount.Counter
}

// New constructs a judge client with the configured timeout and an
// OTEL-instrumented transport.
func New(cfg config.Config) *Client {
	return &Client{
		cfg: cfg,
		hc: &http.Client{
			Timeout:   cfg.JudgeTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		counter: tokencount.DefaultCounter,
	}
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Judge sends one system+user prompt pair and returns the text of the first
// content block. The user prompt is clamped to the configured token budget
// before sending.
func (c *Client) Judge(ctx domain.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	if c.cfg.AnthropicAPIKey == "" {
		return "", fmt.Errorf("%w: ANTHROPIC_API_KEY missing", domain.ErrInvalidArgument)
	}
	if maxTokens <= 0 {
		maxTokens = c.cfg.JudgeMaxTokens
	}
	userPrompt = c.clamp(userPrompt)

	body, _ := json.Marshal(messagesRequest{
		Model:     c.cfg.AnthropicModel,
		MaxTokens: maxTokens,
		System:    systemPrompt,
		Messages:  []message{{Role: "user", Content: userPrompt}},
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AnthropicBaseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("op=judge.request: %w", err)
	}
	req.Header.Set("x-api-key", c.cfg.AnthropicAPIKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	observability.JudgeRequestDuration.WithLabelValues("messages").Observe(time.Since(start).Seconds())
	if err != nil {
		observability.JudgeRequestsTotal.WithLabelValues("messages", "transport_error").Inc()
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("op=judge.call: %w", domain.ErrUpstreamTimeout)
		}
		return "", fmt.Errorf("op=judge.call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		observability.JudgeRequestsTotal.WithLabelValues("messages", "read_error").Inc()
		return "", fmt.Errorf("op=judge.read: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		observability.JudgeRequestsTotal.WithLabelValues("messages", "rate_limited").Inc()
		slog.Warn("judge rate limited", slog.Int("status", resp.StatusCode), slog.String("request_id", resp.Header.Get("Request-Id")))
		return "", fmt.Errorf("op=judge.call: %w", domain.ErrRateLimited)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		observability.JudgeRequestsTotal.WithLabelValues("messages", "http_error").Inc()
		snippet := string(respBody)
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		slog.Error("judge non-2xx",
			slog.Int("status", resp.StatusCode),
			slog.String("model", c.cfg.AnthropicModel),
			slog.String("request_id", resp.Header.Get("Request-Id")),
			slog.String("body", snippet))
		return "", fmt.Errorf("op=judge.call: status %d", resp.StatusCode)
	}

	var out messagesResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		observability.JudgeRequestsTotal.WithLabelValues("messages", "decode_error").Inc()
		return "", fmt.Errorf("op=judge.decode: %w", err)
	}
	if out.Error != nil {
		observability.JudgeRequestsTotal.WithLabelValues("messages", "api_error").Inc()
		return "", fmt.Errorf("op=judge.call: %s: %s", out.Error.Type, out.Error.Message)
	}
	if len(out.Content) == 0 {
		observability.JudgeRequestsTotal.WithLabelValues("messages", "empty").Inc()
		return "", errors.New("op=judge.call: empty content")
	}
	observability.JudgeRequestsTotal.WithLabelValues("messages", "ok").Inc()
	return out.Content[0].Text, nil
}

func (c *Client) clamp(prompt string) string {
	budget := c.cfg.JudgePromptTokenBudget
	if budget <= 0 {
		return prompt
	}
	if n := c.counter.Count(prompt); n > budget {
		slog.Warn("judge prompt over token budget, truncating",
			slog.Int("tokens", n),
			slog.Int("budget", budget))
		return c.counter.Truncate(prompt, budget)
	}
	return prompt
}
