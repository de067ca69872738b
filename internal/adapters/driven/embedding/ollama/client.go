// Package ollama provides an embedding provider adapter using Ollama.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/semdex/semdex/internal/core/domain"
	"github.com/semdex/semdex/internal/core/ports/driven"
	"github.com/semdex/semdex/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.EmbeddingProvider = (*Client)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultTimeout = 30 * time.Second
)

// Retry schedule: one initial attempt plus maxRetries retries, with
// exponential backoff starting at backoffBase. A timed-out attempt counts
// like any other failure.
const (
	maxRetries  = 3
	backoffBase = 100 * time.Millisecond
)

// Config holds configuration for the Ollama client.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Timeout is the per-request timeout (default: 30s). It applies to each
	// attempt independently of the retry schedule.
	Timeout time.Duration
}

// Client generates embeddings using Ollama. It is stateless beyond its base
// URL and timeout and is safe to share across concurrent callers.
type Client struct {
	client  *http.Client
	baseURL string
}

// embedRequest is the Ollama API request format.
type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// embedResponse is the Ollama API response format.
type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// tagsResponse is the Ollama /api/tags response format.
type tagsResponse struct {
	Models []modelDetail `json:"models"`
}

type modelDetail struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modified_at"`
}

// NewClient creates a new Ollama client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
	}
}

// Embed generates a vector embedding for the given text.
func (c *Client) Embed(ctx context.Context, model, text string) ([]float32, error) {
	return c.embedWithRetry(ctx, embedRequest{Model: model, Prompt: text})
}

// EmbedBatch generates embeddings for multiple texts, one request per text.
// Ollama's embeddings endpoint accepts a single prompt per call, so a
// failure on one text aborts the batch without attempting the rest.
func (c *Client) EmbedBatch(ctx context.Context, model string, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	embeddings := make([][]float32, 0, len(texts))
	for i, text := range texts {
		embedding, err := c.embedWithRetry(ctx, embedRequest{Model: model, Prompt: text})
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		embeddings = append(embeddings, embedding)

		if (i+1)%10 == 0 {
			logger.Debug("generated %d/%d embeddings", i+1, len(texts))
		}
	}

	return embeddings, nil
}

// attemptOutcome classifies one embedding attempt.
type attemptOutcome int

const (
	outcomeSuccess attemptOutcome = iota
	outcomeRetryTransport
	outcomeRetryServer
	outcomeFatal
)

// backoffDelay returns the delay before retry n: base * 2^n.
func backoffDelay(attempt int) time.Duration {
	return backoffBase << attempt
}

// embedWithRetry issues one embedding request, retrying transport failures
// and non-404 error statuses up to maxRetries times with exponential
// backoff. A 404 means the model is unknown and fails immediately; so does a
// response that cannot be parsed.
func (c *Client) embedWithRetry(ctx context.Context, req embedRequest) ([]float32, error) {
	var (
		lastOutcome attemptOutcome
		lastErr     error
	)

	for attempt := 0; ; attempt++ {
		vector, outcome, err := c.embedOnce(ctx, req)
		switch outcome {
		case outcomeSuccess:
			return vector, nil
		case outcomeFatal:
			return nil, err
		}

		lastOutcome, lastErr = outcome, err

		if attempt >= maxRetries {
			break
		}

		logger.Warn("embedding request failed (attempt %d/%d): %v", attempt+1, maxRetries+1, err)

		select {
		case <-time.After(backoffDelay(attempt)):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, ctx.Err())
		}
	}

	if lastOutcome == outcomeRetryTransport {
		return nil, fmt.Errorf("%w: after %d retries: %v", domain.ErrProviderUnavailable, maxRetries, lastErr)
	}
	return nil, fmt.Errorf("%w: after %d retries: %v", domain.ErrEmbeddingFailed, maxRetries, lastErr)
}

// embedOnce performs a single attempt and classifies the result.
func (c *Client) embedOnce(ctx context.Context, req embedRequest) ([]float32, attemptOutcome, error) {
	jsonBody, err := json.Marshal(req)
	if err != nil {
		return nil, outcomeFatal, fmt.Errorf("%w: marshal request: %v", domain.ErrEmbeddingFailed, err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/api/embeddings",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, outcomeFatal, fmt.Errorf("%w: create request: %v", domain.ErrEmbeddingFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		// Connection refused, timeout, DNS failure: transient.
		return nil, outcomeRetryTransport, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		body, _ := io.ReadAll(resp.Body)
		return nil, outcomeFatal, fmt.Errorf("%w: model %q: %s", domain.ErrModelNotFound, req.Model, string(body))
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, outcomeRetryServer, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, outcomeFatal, fmt.Errorf("%w: parse response: %v", domain.ErrEmbeddingFailed, err)
	}

	return embedResp.Embedding, outcomeSuccess, nil
}

// HealthCheck probes the /api/tags endpoint. Any successful response is
// healthy; transport failures and non-success statuses are unhealthy.
// Liveness is advisory and never produces an error.
func (c *Client) HealthCheck(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		logger.Warn("provider health check failed: %v", err)
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// ListModels returns the models the provider has available.
func (c *Client) ListModels(ctx context.Context) ([]domain.ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", domain.ErrProviderUnavailable, err)
	}

	models := make([]domain.ModelInfo, 0, len(tags.Models))
	for _, m := range tags.Models {
		models = append(models, domain.ModelInfo{
			Name:       m.Name,
			Size:       m.Size,
			ModifiedAt: m.ModifiedAt,
		})
	}

	return models, nil
}

// HasModel reports whether the named model is available. Users may request a
// model with or without a tag while Ollama always lists tagged names, so the
// match is three-tier: exact, then name:latest, then base name with any tag
// stripped from both sides.
func (c *Client) HasModel(ctx context.Context, name string) (bool, error) {
	models, err := c.ListModels(ctx)
	if err != nil {
		return false, err
	}

	for _, m := range models {
		if m.Name == name {
			return true, nil
		}
	}

	if !strings.Contains(name, ":") {
		withLatest := name + ":latest"
		for _, m := range models {
			if m.Name == withLatest {
				return true, nil
			}
		}
	}

	base, tag, tagged := strings.Cut(name, ":")
	for _, m := range models {
		modelBase, modelTag, modelTagged := strings.Cut(m.Name, ":")
		if modelBase != base {
			continue
		}
		// Two explicitly different tags never match: foo:v1 is not foo:v2.
		if tagged && modelTagged && tag != modelTag {
			continue
		}
		return true, nil
	}

	return false, nil
}
