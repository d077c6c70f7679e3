package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBaseURL    = "https://openrouter.ai/api/v1"
	defaultModel      = "meta-llama/llama-3.3-70b-instruct"
	defaultTimeout    = 60 * time.Second
	defaultMaxRetries = 3
	defaultMaxTokens  = 2000
	defaultBackoff    = 500 * time.Millisecond
)

// OpenRouterClient calls the OpenRouter Chat Completions API (OpenAI-compatible).
// See: https://openrouter.ai/docs/api-reference
type OpenRouterClient struct {
	http       *http.Client
	apiKey     string
	model      string
	baseURL    string
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
	log        *zap.Logger
}

// OpenRouterConfig tunes the client; zero values take the defaults above.
type OpenRouterConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
	Log        *zap.Logger
}

// NewOpenRouterClient creates an OpenRouter client. If APIKey is empty, it
// falls back to the OPENROUTER_API_KEY env var.
func NewOpenRouterClient(cfg OpenRouterConfig) *OpenRouterClient {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = defaultBackoff
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	return &OpenRouterClient{
		// Per-attempt deadlines come from the context; no client-level timeout.
		http:       &http.Client{},
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    cfg.BaseURL,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.Backoff,
		log:        cfg.Log,
	}
}

func (c *OpenRouterClient) Name() string { return "OpenRouter:" + c.model }
func (c *OpenRouterClient) Close() error { return nil }

type chatReq struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type chatResp struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Chat sends the conversation and returns the raw completion text. Transient
// failures are retried up to MaxRetries with exponential backoff; the deadline
// for attempt n is timeout*n, so slow responses get progressively more room.
// A 401 is permanent and fails immediately.
func (c *OpenRouterClient) Chat(ctx context.Context, req ChatRequest) (string, error) {
	if c.apiKey == "" {
		return "", NewPermanentError(ErrBadCredentials)
	}
	if len(req.Messages) == 0 {
		return "", errors.New("llmclient: empty message sequence")
	}
	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	body, err := json.Marshal(chatReq{
		Model:       model,
		Messages:    req.Messages,
		Temperature: 0.7,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}

	var last error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout*time.Duration(attempt))
		text, err := c.send(attemptCtx, body)
		cancel()
		if err == nil {
			return text, nil
		}
		var pErr *PermanentError
		if errors.As(err, &pErr) {
			return "", err
		}
		last = err
		c.log.Warn("chat attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", c.maxRetries),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}
		if attempt < c.maxRetries {
			time.Sleep(c.backoff * time.Duration(1<<(attempt-1)))
		}
	}
	return "", fmt.Errorf("llmclient: request failed after %d attempts: %w", c.maxRetries, last)
}

func (c *OpenRouterClient) send(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("HTTP-Referer", "https://github.com/ideapipe/ideapipe")
	httpReq.Header.Set("X-Title", "ideapipe")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return "", NewPermanentError(ErrBadCredentials)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("llmclient: unexpected status %s: %s", resp.Status, string(snippet))
	}
	var out chatResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", ErrNoContent
	}
	return out.Choices[0].Message.Content, nil
}
