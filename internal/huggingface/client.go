// Package huggingface is a minimal client for the Hugging Face Inference API
// text-generation task.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/parchment-ai/parchment/internal/domain"
)

const (
	// DefaultEndpoint is the hosted inference API base URL
	DefaultEndpoint = "https://api-inference.huggingface.co"
	// DefaultMaxNewTokens bounds the generated output length
	DefaultMaxNewTokens = 512

	defaultTimeout = 60 * time.Second
)

type Config struct {
	Token        string
	Endpoint     string
	Model        string
	MaxNewTokens int
	Timeout      time.Duration
}

// Client calls a text-generation model with deterministic decoding.
type Client struct {
	token        string
	endpoint     string
	model        string
	maxNewTokens int
	httpClient   *http.Client
}

func NewClient(cfg Config) *Client {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	maxNewTokens := cfg.MaxNewTokens
	if maxNewTokens <= 0 {
		maxNewTokens = DefaultMaxNewTokens
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		token:        cfg.Token,
		endpoint:     endpoint,
		model:        cfg.Model,
		maxNewTokens: maxNewTokens,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

type generationParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float64 `json:"temperature"`
	DoSample       bool    `json:"do_sample"`
	ReturnFullText bool    `json:"return_full_text"`
}

type generationRequest struct {
	Inputs     string               `json:"inputs"`
	Parameters generationParameters `json:"parameters"`
}

type generationResponse struct {
	GeneratedText string `json:"generated_text"`
}

// Generate runs the prompt through the configured model. Decoding is
// deterministic: sampling off, temperature zero, output length bounded.
// Failures are returned as typed domain errors; the caller decides how to
// surface them.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.token == "" {
		return "", domain.ErrNoGenerationCredential
	}

	reqBody := generationRequest{
		Inputs: prompt,
		Parameters: generationParameters{
			MaxNewTokens:   c.maxNewTokens,
			Temperature:    0,
			DoSample:       false,
			ReturnFullText: false,
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal generation request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s", c.endpoint, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build generation request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeNetwork, "generation request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeNetwork, "failed to read generation response", err)
	}

	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		return "", domain.ErrModelWarmingUp
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		message := fmt.Sprintf("generation API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		return "", domain.NewDomainError(domain.ErrCodeRemoteAPI, message)
	}

	var results []generationResponse
	if err := json.Unmarshal(body, &results); err != nil {
		// Some deployments return a single object rather than a list.
		var single generationResponse
		if err := json.Unmarshal(body, &single); err != nil {
			return "", domain.NewDomainErrorWithCause(domain.ErrCodeRemoteAPI, "unexpected generation response shape", err)
		}
		results = []generationResponse{single}
	}

	if len(results) == 0 || strings.TrimSpace(results[0].GeneratedText) == "" {
		return "", domain.NewDomainError(domain.ErrCodeRemoteAPI, "generation API returned no text")
	}

	return strings.TrimSpace(results[0].GeneratedText), nil
}
