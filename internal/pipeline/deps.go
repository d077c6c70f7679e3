package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"ideapipe/internal/artifact"
	"ideapipe/internal/batch"
	llmclient "ideapipe/internal/llmClient"
	"ideapipe/internal/prompt"
	"ideapipe/internal/scan"
	"ideapipe/internal/schema"
	"ideapipe/internal/util/jsonutil"
)

// Dependencies classifies generated source files into framework names and
// aggregates them into a name -> occurrence-count mapping. Unlike the idea
// path, extraction is best-effort: a file whose replies never validate
// contributes nothing instead of failing the stage, since the scan covers
// potentially hundreds of files.
type Dependencies struct {
	Client  llmclient.ChatClient
	Prompts *prompt.Store
	Files   prompt.Set
	Store   *artifact.Store

	Model            string
	Workers          int
	MaxFormatRetries int
	MaxTokens        int
	Log              *zap.Logger
}

// Extract classifies one file's source text into a set of lowercase framework
// names. It never fails: a missing client, empty content, or an unrecoverable
// format failure all yield an empty set.
func (d *Dependencies) Extract(ctx context.Context, tmpl, content string) map[string]struct{} {
	set := map[string]struct{}{}
	if d.Client == nil || strings.TrimSpace(content) == "" {
		return set
	}
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	correction, err := d.Prompts.Load(d.Files.WrongFormat)
	if err != nil {
		log.Warn("dependency extraction skipped", zap.Error(err))
		return set
	}

	conv := batch.NewConversation(
		llmclient.System("You are a production engineer that analyzes code dependencies."),
		llmclient.User(prompt.Render(tmpl, map[string]string{"DETAILS": content})),
	)
	ex := batch.Exchange{
		Client:           d.Client,
		Correction:       correction,
		MaxFormatRetries: d.MaxFormatRetries,
		Model:            d.Model,
		MaxTokens:        d.MaxTokens,
		Log:              log,
	}
	value, _, err := ex.JSON(ctx, conv, func(raw []byte) (any, error) {
		v, err := jsonutil.ParseValue(raw)
		if err != nil {
			return nil, err
		}
		return schema.Strings(v)
	})
	if err != nil {
		log.Warn("dependency extraction failed", zap.Error(err))
		return set
	}
	for _, name := range value.([]string) {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			set[name] = struct{}{}
		}
	}
	return set
}

// Run scans the code directory, extracts per-file framework sets in parallel,
// and merges them into the dependencies artifact on the coordinating
// goroutine. The same name across multiple files increments its count.
func (d *Dependencies) Run(ctx context.Context) (artifact.Dependencies, bool, error) {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	tmpl, err := d.Prompts.Load(d.Files.Dependencies)
	if err != nil {
		return artifact.Dependencies{}, false, err
	}
	// Fail fast on a missing correction template rather than once per file.
	if _, err := d.Prompts.Load(d.Files.WrongFormat); err != nil {
		return artifact.Dependencies{}, false, err
	}

	files, err := scan.List(filepath.Join(d.Store.Dir(), CodeDir), ".txt", ".py", ".js", ".ts", ".go")
	if err != nil {
		return artifact.Dependencies{}, false, err
	}
	log.Info("scanning generated code", zap.Int("files", len(files)))

	sets := fanOut(ctx, len(files), d.Workers, func(ctx context.Context, i int) map[string]struct{} {
		content, err := os.ReadFile(files[i].AbsPath)
		if err != nil {
			log.Warn("skipping unreadable file", zap.String("path", files[i].Path), zap.Error(err))
			return map[string]struct{}{}
		}
		return d.Extract(ctx, tmpl, string(content))
	})

	counts := map[string]int{}
	for _, set := range sets {
		for name := range set {
			counts[name]++
		}
	}
	deps, err := d.Store.UpdateDependencies(counts, DependenciesFile)
	if err != nil {
		return artifact.Dependencies{}, false, err
	}
	log.Info("dependencies collected",
		zap.Int("files", len(files)),
		zap.Int("frameworks", len(deps.Frameworks)))
	return deps, true, nil
}
