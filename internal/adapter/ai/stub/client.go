// Package stub provides a fast, deterministic judge for local development.
package stub

import (
	"encoding/json"
	"strings"

	"github.com/wigsbury-ui/evalent.io-sub001/internal/domain"
)

// Client implements domain.Judge with canned responses.
type Client struct{}

// New constructs a stub judge.
func New() *Client { return &Client{} }

// Judge returns a canned writing evaluation for JSON-shaped prompts and a
// short canned narrative otherwise.
func (c *Client) Judge(_ domain.Context, systemPrompt, _ string, _ int) (string, error) {
	if strings.Contains(systemPrompt, "JSON") {
		payload := map[string]any{
			"band":              "Good",
			"score":             3,
			"content_narrative": "The response addresses the prompt with relevant, ordered ideas.",
			"writing_narrative": "Sentences are mostly controlled with occasional errors.",
			"threshold_comment": "Comfortably above the expected level for this grade.",
		}
		b, _ := json.Marshal(payload)
		return string(b), nil
	}
	return "The candidate's results sit above the expected threshold for this grade, suggesting secure readiness for the programme.", nil
}
