package llmclient

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	genai "google.golang.org/genai"
)

const (
	geminiAttempts = 3
	geminiBackoff  = 300 * time.Millisecond
)

// GeminiClient is a thin wrapper around the official genai client. It flattens
// the role-tagged conversation into a single tagged prompt, since the Gemini
// API does not take OpenAI-style message arrays.
type GeminiClient struct {
	cli     *genai.Client
	model   string
	rl      *rpsLimiter
	backoff time.Duration
	log     *zap.Logger

	// generate is the API call; swapped out in tests.
	generate func(ctx context.Context, model, prompt string) (string, error)
}

// GeminiConfig tunes the client. RPS <= 0 disables request throttling.
type GeminiConfig struct {
	APIKey  string
	Model   string
	RPS     float64
	Burst   int
	Backoff time.Duration
	Log     *zap.Logger
}

func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = geminiBackoff
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	g := &GeminiClient{
		cli:     cli,
		model:   cfg.Model,
		rl:      newRPSLimiter(cfg.RPS, cfg.Burst),
		backoff: cfg.Backoff,
		log:     cfg.Log,
	}
	g.generate = g.callAPI
	return g, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }

func (g *GeminiClient) Close() error {
	g.rl.Stop()
	return nil
}

// Chat sends the flattened conversation with a short internal retry for
// transient API failures.
func (g *GeminiClient) Chat(ctx context.Context, req ChatRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = g.model
	}
	full := flatten(req.Messages)
	g.log.Debug("gemini request", zap.String("model", model), zap.Int("bytes", len(full)))

	var lastErr error
	for attempt := 0; attempt < geminiAttempts; attempt++ {
		// Each API call consumes a limiter token.
		if err := g.rl.Acquire(ctx); err != nil {
			return "", err
		}
		text, err := g.generate(ctx, model, full)
		if err == nil {
			return text, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}
		if attempt < geminiAttempts-1 {
			time.Sleep(g.backoff * time.Duration(1<<attempt))
		}
	}
	return "", lastErr
}

func (g *GeminiClient) callAPI(ctx context.Context, model, prompt string) (string, error) {
	resp, err := g.cli.Models.GenerateContent(ctx, model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		nil,
	)
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrNoContent
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

func flatten(messages []Message) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString("[")
		b.WriteString(strings.ToUpper(m.Role))
		b.WriteString("]\n")
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}
