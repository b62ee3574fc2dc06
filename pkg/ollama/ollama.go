// Package ollama provides Ollama-backed embedding and generation clients.
// Both are rate limited so a local model server is never flooded, and both
// mark transport failures as collaborator-unavailable so callers can fall
// back cleanly.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ClimateIQ/climateiq-mvp/engine/domain"
	"github.com/ClimateIQ/climateiq-mvp/pkg/resilience"
)

// DefaultRate bounds requests per second against the model server.
const DefaultRate = 10

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout:   60 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// EmbedClient produces embeddings via Ollama's HTTP API. It satisfies the
// engine's Embedder contract.
type EmbedClient struct {
	baseURL   string
	model     string
	dimension int
	client    *http.Client
	limiter   *resilience.Limiter
}

// NewEmbedClient creates an Ollama embedding client. The dimension must
// match the named model's output.
func NewEmbedClient(baseURL, model string, dimension int) *EmbedClient {
	return &EmbedClient{
		baseURL:   baseURL,
		model:     model,
		dimension: dimension,
		client:    newHTTPClient(),
		limiter:   resilience.NewLimiter(resilience.LimiterOpts{Rate: DefaultRate, Burst: DefaultRate}),
	}
}

func (c *EmbedClient) Dimension() int { return c.dimension }
func (c *EmbedClient) Model() string  { return c.model }

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed returns the embedding for one text.
func (c *EmbedClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, _ := json.Marshal(embedRequest{Model: c.model, Prompt: text})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w: %w", domain.ErrCollaboratorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama embed: status %d: %w", resp.StatusCode, domain.ErrCollaboratorUnavailable)
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("ollama embed decode: %w", err)
	}

	out := make([]float32, len(result.Embedding))
	for i, v := range result.Embedding {
		out[i] = float32(v)
	}
	return out, nil
}

// EmbedBatch embeds texts sequentially, preserving input order.
func (c *EmbedClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := c.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed batch [%d]: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

// GenerateClient produces completions via Ollama's HTTP API. It satisfies
// the advice pipeline's Generator contract.
type GenerateClient struct {
	baseURL string
	model   string
	client  *http.Client
	limiter *resilience.Limiter
}

// NewGenerateClient creates an Ollama generation client.
func NewGenerateClient(baseURL, model string) *GenerateClient {
	return &GenerateClient{
		baseURL: baseURL,
		model:   model,
		client:  newHTTPClient(),
		limiter: resilience.NewLimiter(resilience.LimiterOpts{Rate: DefaultRate, Burst: DefaultRate}),
	}
}

func (c *GenerateClient) Model() string { return c.model }

type generateRequest struct {
	Model  string `json:"model"`
	System string `json:"system,omitempty"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate returns the model's completion for a prompt.
func (c *GenerateClient) Generate(ctx context.Context, system, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	body, _ := json.Marshal(generateRequest{Model: c.model, System: system, Prompt: prompt})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w: %w", domain.ErrCollaboratorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama generate: status %d: %w", resp.StatusCode, domain.ErrCollaboratorUnavailable)
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("ollama generate decode: %w", err)
	}
	return result.Response, nil
}
