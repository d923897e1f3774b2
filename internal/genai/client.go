// Package genai calls an external text-completion API to synthesize
// curricula, hints and feedback. The endpoint is treated as opaque: it
// may return free text or JSON-ish text, so callers that need structure
// must go through GenerateJSON and handle ErrNotJSON as recoverable.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"freepace/internal/config"
)

var (
	// ErrNotJSON means the model answered with text that is not valid
	// JSON. Callers may re-prompt; the failure is recoverable.
	ErrNotJSON = errors.New("model output is not valid JSON")

	// ErrExhausted means every model in the fallback list failed within
	// its attempt budget.
	ErrExhausted = errors.New("all models failed")
)

// Client is a text-completion client with a fixed attempt budget per
// model and a model fallback list tried in order.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	models      []string
	maxAttempts int
	backoff     time.Duration
}

// NewClient builds a client from config. The API key is read from the
// environment variable the config names, so keys never sit in files.
func NewClient(cfg *config.GenAIConfig) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      os.Getenv(cfg.APIKeyEnv),
		models:      cfg.Models,
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.Backoff,
	}
}

// Request/response shapes for the generateContent wire format.
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
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate sends prompt to the first model that answers. Per model it
// makes up to maxAttempts attempts with doubling backoff, retrying on
// transport errors, 429 and 5xx. Any other 4xx fails that model
// immediately and moves on to the next in the fallback list.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for _, model := range c.models {
		text, err := c.generateWithModel(ctx, model, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		log.Printf("Model %s failed, falling back: %v", model, err)

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}

	return "", fmt.Errorf("%w: %v", ErrExhausted, lastErr)
}

// GenerateJSON generates text and unmarshals it into v. Surrounding
// whitespace is tolerated; anything else that is not strict JSON
// returns ErrNotJSON.
func (c *Client) GenerateJSON(ctx context.Context, prompt string, v interface{}) error {
	text, err := c.Generate(ctx, prompt)
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), v); err != nil {
		return fmt.Errorf("%w: %v", ErrNotJSON, err)
	}
	return nil
}

func (c *Client) generateWithModel(ctx context.Context, model, prompt string) (string, error) {
	var lastErr error
	delay := c.backoff

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			delay *= 2
		}

		text, retryable, err := c.doRequest(ctx, model, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
	}

	return "", fmt.Errorf("model %s: %d attempts failed: %w", model, c.maxAttempts, lastErr)
}

// doRequest performs one completion call. The second return value says
// whether the failure is worth retrying on the same model.
func (c *Client) doRequest(ctx context.Context, model, prompt string) (string, bool, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-goog-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", true, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		// Fall through to decoding below.
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return "", true, fmt.Errorf("model %s returned %d", model, resp.StatusCode)
	default:
		return "", false, fmt.Errorf("model %s returned %d: %s", model, resp.StatusCode, truncate(respBody, 200))
	}

	var decoded generateResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return "", true, fmt.Errorf("unexpected response shape: %w", err)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", true, fmt.Errorf("model %s returned no candidates", model)
	}

	return decoded.Candidates[0].Content.Parts[0].Text, false, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
