// Package resend dispatches assessor emails through the Resend HTTP API.
package resend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/wigsbury-ui/evalent.io-sub001/internal/domain"
)

// Client implements domain.EmailSender against the Resend /emails endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	from       string
}

// New constructs a Client. An empty API key is allowed at construction so the
// service can boot without email configured; Send fails with
// ErrInvalidArgument instead.
func New(apiKey, baseURL, from string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://api.resend.com"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		from:    from,
	}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Send dispatches one HTML email. No retries; the caller treats dispatch as
// best effort.
func (c *Client) Send(ctx domain.Context, to, subject, html string) error {
	if c.apiKey == "" {
		return fmt.Errorf("op=resend.send: %w: missing api key", domain.ErrInvalidArgument)
	}
	if to == "" {
		return fmt.Errorf("op=resend.send: %w: missing recipient", domain.ErrInvalidArgument)
	}

	body, err := json.Marshal(sendRequest{From: c.from, To: []string{to}, Subject: subject, HTML: html})
	if err != nil {
		return fmt.Errorf("op=resend.send: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("op=resend.send: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("op=resend.send: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("op=resend.send: %w", domain.ErrRateLimited)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		slog.Warn("resend rejected dispatch",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(snippet)))
		return fmt.Errorf("op=resend.send: unexpected status %d", resp.StatusCode)
	}
	return nil
}
