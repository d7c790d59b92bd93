package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/glimpsebot/glimpse/api/schemas"
	"github.com/glimpsebot/glimpse/internal/config"
)

// OllamaClient implements schemas.InferenceClient against a local Ollama
// server. Generation and embedding use separate models.
type OllamaClient struct {
	baseURL       string
	generateModel string
	embedModel    string
	httpClient    *http.Client
	retryWindow   time.Duration
	logger        *zap.Logger
}

// -- Ollama API Request/Response Structures (internal to this file) --

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Images  []string       `json:"images,omitempty"`
	Format  string         `json:"format,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// NewOllamaClient builds the client from configuration.
func NewOllamaClient(cfg config.InferenceConfig, logger *zap.Logger) *OllamaClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &OllamaClient{
		baseURL:       baseURL,
		generateModel: cfg.GenerateModel,
		embedModel:    cfg.EmbedModel,
		httpClient:    &http.Client{Timeout: cfg.RequestTimeout},
		retryWindow:   cfg.MaxRetryWindow,
		logger:        logger.Named("inference.ollama"),
	}
}

// Generate sends the request to /api/generate and returns the raw model text.
func (c *OllamaClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	payload := ollamaGenerateRequest{
		Model:  c.generateModel,
		Prompt: req.Prompt,
		System: req.System,
		Stream: false,
	}
	if req.ForceJSON {
		payload.Format = "json"
	}
	for _, img := range req.Images {
		payload.Images = append(payload.Images, base64.StdEncoding.EncodeToString(img))
	}
	opts := map[string]any{}
	if req.NumPredict > 0 {
		opts["num_predict"] = req.NumPredict
	}
	if req.Temperature > 0 {
		opts["temperature"] = req.Temperature
	}
	if len(opts) > 0 {
		payload.Options = opts
	}

	var out ollamaGenerateResponse
	if err := c.post(ctx, "/api/generate", payload, &out); err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	return out.Response, nil
}

// Embed returns the embedding vector for the given text.
func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	var out ollamaEmbedResponse
	if err := c.post(ctx, "/api/embeddings", ollamaEmbedRequest{Model: c.embedModel, Prompt: text}, &out); err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("ollama embed: empty vector for model %q", c.embedModel)
	}
	vec := make([]float32, len(out.Embedding))
	for i, v := range out.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// post issues one JSON request with exponential backoff on transient
// failures. 4xx responses are permanent; retrying them only burns quota.
func (c *OllamaClient) post(ctx context.Context, path string, reqBody, respBody interface{}) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("marshal request: %w", err))
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = c.retryWindow
	b.MaxInterval = 15 * time.Second

	operation := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			c.logger.Warn("Inference request failed, retrying", zap.String("path", path), zap.Error(err))
			return err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			apiErr := fmt.Errorf("status %d: %s", resp.StatusCode, truncateBody(raw))
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return backoff.Permanent(apiErr)
			}
			c.logger.Warn("Inference server error, retrying", zap.String("path", path), zap.Int("status", resp.StatusCode))
			return apiErr
		}
		return json.Unmarshal(raw, respBody)
	}

	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}

func truncateBody(raw []byte) string {
	const maxLen = 256
	if len(raw) > maxLen {
		return string(raw[:maxLen]) + "..."
	}
	return string(raw)
}

var _ schemas.InferenceClient = (*OllamaClient)(nil)
