package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"ideapipe/internal/artifact"
	"ideapipe/internal/config"
	llmclient "ideapipe/internal/llmClient"
	"ideapipe/internal/logger"
	"ideapipe/internal/pipeline"
	"ideapipe/internal/prompt"
	"ideapipe/internal/schema"
)

func main() {
	cfgPath := flag.String("config", "", "path to config file (default: ./config.yaml when present)")
	start := flag.String("start", "1", "step to start from: 1/ideas, 2/requirements, 3/code, 4/dependencies")
	numIdeas := flag.Int("n", 0, "number of ideas to generate (overrides config)")
	model := flag.String("model", "", "model id (overrides config)")
	apiKey := flag.String("api-key", "", "API key (overrides config/env)")
	outDir := flag.String("out", "", "base output directory (overrides config)")
	workDir := flag.String("workdir", "", "working directory name (defaults to a timestamp)")
	workers := flag.Int("workers", 0, "parallel workers per stage (overrides config)")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *numIdeas > 0 {
		cfg.Pipeline.NumIdeas = *numIdeas
	}
	if *model != "" {
		cfg.API.Model = *model
	}
	if *apiKey != "" {
		cfg.API.Key = *apiKey
	}
	if *outDir != "" {
		cfg.Output.Dir = *outDir
	}
	if *workDir != "" {
		cfg.Output.WorkingDir = *workDir
	}
	if *workers > 0 {
		cfg.Pipeline.Workers = *workers
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	defer log.Sync()

	step, err := pipeline.ParseStep(*start)
	if err != nil {
		log.Fatal("invalid start step", zap.Error(err))
	}
	if cfg.API.Key == "" {
		log.Fatal("no API key provided; set OPENROUTER_API_KEY (or GEMINI_API_KEY) or use -api-key")
	}

	ctx := context.Background()
	client, err := newClient(ctx, cfg, log)
	if err != nil {
		log.Fatal("client init failed", zap.Error(err))
	}
	defer client.Close()

	working := cfg.Output.WorkingDir
	if working == "" {
		working = time.Now().Format("20060102_150405")
	}
	store, err := artifact.NewStore(filepath.Join(cfg.Output.Dir, working), log)
	if err != nil {
		log.Fatal("output directory init failed", zap.Error(err))
	}
	prompts, err := prompt.NewStore(cfg.Prompts.Dir)
	if err != nil {
		log.Fatal("prompt directory init failed", zap.Error(err))
	}
	files := prompt.DefaultSet()

	ideaSchema := schema.RichIdea
	if cfg.Pipeline.Schema == "minimal" {
		ideaSchema = schema.MinimalIdea
	}

	log.Info("starting pipeline",
		zap.String("step", step.String()),
		zap.String("model", cfg.API.Model),
		zap.String("workdir", store.Dir()))

	if step <= pipeline.StepIdeas {
		g := pipeline.Ideas{
			Client: client, Prompts: prompts, Files: files, Store: store, Schema: ideaSchema,
			Model:            cfg.API.Model,
			NumIdeas:         cfg.Pipeline.NumIdeas,
			BatchSize:        cfg.Pipeline.BatchSize,
			MaxFormatRetries: cfg.Pipeline.MaxFormatRetries,
			MaxTokens:        cfg.API.MaxTokens,
			Log:              log,
		}
		if _, err := g.Run(ctx); err != nil {
			log.Fatal("ideas stage failed", zap.Error(err))
		}
	}

	if step <= pipeline.StepRequirements {
		r := pipeline.Requirements{
			Client: client, Prompts: prompts, Files: files, Store: store, Schema: ideaSchema,
			Model:     cfg.API.Model,
			Workers:   cfg.Pipeline.Workers,
			MaxTokens: cfg.API.MaxTokens,
			Log:       log,
		}
		ok, err := r.Run(ctx)
		if err != nil {
			log.Fatal("requirements stage failed", zap.Error(err))
		}
		if !ok {
			log.Error("requirements stage completed with failures")
			os.Exit(1)
		}
	}

	if step <= pipeline.StepCode {
		c := pipeline.Code{
			Client: client, Prompts: prompts, Files: files, Store: store, Schema: ideaSchema,
			Model:     cfg.API.Model,
			Workers:   cfg.Pipeline.Workers,
			MaxTokens: 10000,
			Log:       log,
		}
		ok, err := c.Run(ctx)
		if err != nil {
			log.Fatal("code stage failed", zap.Error(err))
		}
		if !ok {
			log.Error("code stage completed with failures")
			os.Exit(1)
		}
	}

	if step <= pipeline.StepDependencies {
		d := pipeline.Dependencies{
			Client: client, Prompts: prompts, Files: files, Store: store,
			Model:            cfg.API.Model,
			Workers:          cfg.Pipeline.Workers,
			MaxFormatRetries: cfg.Pipeline.MaxFormatRetries,
			MaxTokens:        cfg.API.MaxTokens,
			Log:              log,
		}
		if _, _, err := d.Run(ctx); err != nil {
			log.Fatal("dependencies stage failed", zap.Error(err))
		}
	}

	log.Info("processing complete", zap.String("workdir", store.Dir()))
}

func newClient(ctx context.Context, cfg *config.Config, log *zap.Logger) (llmclient.ChatClient, error) {
	switch cfg.API.Provider {
	case "gemini":
		return llmclient.NewGeminiClient(ctx, llmclient.GeminiConfig{
			APIKey: cfg.API.Key,
			Model:  cfg.API.Model,
			RPS:    cfg.API.RPS,
			Burst:  cfg.API.Burst,
			Log:    log,
		})
	default:
		return llmclient.NewOpenRouterClient(llmclient.OpenRouterConfig{
			APIKey:     cfg.API.Key,
			Model:      cfg.API.Model,
			BaseURL:    cfg.API.BaseURL,
			Timeout:    cfg.API.Timeout(),
			MaxRetries: cfg.API.MaxRetries,
			Log:        log,
		}), nil
	}
}
