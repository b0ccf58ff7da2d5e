// Package ai wraps the external text-generation service. The service is
// treated as unreliable: callers always keep a deterministic fallback and
// malformed output never becomes a hard failure.
package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"

	"openpersona/internal/config"
)

// Generator produces free text for a prompt.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Client talks to a Gemini-compatible generateContent endpoint.
type Client struct {
	http  *resty.Client
	model string
}

// NewClient constructs a Client from config.
func NewClient(cfg config.AIConfig) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetQueryParam("key", cfg.APIKey)

	return &Client{
		http:  httpClient,
		model: cfg.Model,
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// GenerateText sends one prompt and returns the first candidate's text.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	var result generateResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(generateRequest{
			Contents: []content{{Parts: []part{{Text: prompt}}}},
		}).
		SetResult(&result).
		Post(fmt.Sprintf("/v1beta/models/%s:generateContent", c.model))
	if err != nil {
		return "", fmt.Errorf("call generation service: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("generation service returned %s", resp.Status())
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("generation service returned no candidates")
	}
	return result.Candidates[0].Content.Parts[0].Text, nil
}
