package pipeline

import (
	"context"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"ideapipe/internal/artifact"
	"ideapipe/internal/batch"
	llmclient "ideapipe/internal/llmClient"
	"ideapipe/internal/prompt"
	"ideapipe/internal/schema"
)

// Requirements turns each generated idea into a requirements document via a
// single-shot text exchange.
type Requirements struct {
	Client  llmclient.ChatClient
	Prompts *prompt.Store
	Files   prompt.Set
	Store   *artifact.Store
	Schema  schema.Schema

	Model     string
	Workers   int
	MaxTokens int
	Log       *zap.Logger
}

type reqResult struct {
	name    string
	content string
	err     error
}

// Run fans ideas out over a bounded worker pool; each worker returns its
// document and the coordinator writes all files after the join. A failed idea
// flips the ok flag without aborting its siblings.
func (r *Requirements) Run(ctx context.Context) (ok bool, err error) {
	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}

	var ideas []schema.Record
	if err := r.Store.LoadJSON(IdeasFile, &ideas); err != nil {
		return false, err
	}
	if len(ideas) == 0 {
		return false, fmt.Errorf("requirements: no ideas in %s", IdeasFile)
	}
	tmpl, err := r.Prompts.Load(r.Files.Requirements)
	if err != nil {
		return false, err
	}

	results := fanOut(ctx, len(ideas), r.Workers, func(ctx context.Context, i int) reqResult {
		idea := ideas[i]
		name := idea.String(r.Schema.Fields[0].Name)
		rendered := prompt.Render(tmpl, map[string]string{
			"THE_IDEA": formatIdea(idea, r.Schema),
		})
		ex := batch.Exchange{Client: r.Client, Model: r.Model, MaxTokens: r.MaxTokens, Log: log}
		conv := batch.NewConversation(
			llmclient.System("You are a helpful Assistant."),
			llmclient.User(rendered),
		)
		doc, err := ex.Text(ctx, conv)
		if err != nil {
			return reqResult{name: name, err: fmt.Errorf("requirements for %q: %w", name, err)}
		}
		return reqResult{name: name, content: doc}
	})

	ok = true
	written := 0
	for _, res := range results {
		// A zero-valued slot (cancelled before its worker ran) has no name;
		// never write a nameless file.
		if res.err != nil || res.name == "" {
			log.Error("requirements unit failed", zap.String("idea", res.name), zap.Error(res.err))
			ok = false
			continue
		}
		file := path.Join(RequirementsDir, "requirements_"+normalizeName(res.name)+".txt")
		if err := r.Store.SaveText(file, res.content); err != nil {
			return false, err
		}
		written++
	}
	log.Info("requirements generated", zap.Int("written", written), zap.Int("ideas", len(ideas)))
	return ok, nil
}

// formatIdea renders a record field-per-line in schema order, list fields
// comma-joined.
func formatIdea(rec schema.Record, s schema.Schema) string {
	var b strings.Builder
	for i, f := range s.Fields {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(f.Name)
		b.WriteString(": ")
		if f.Kind == schema.KindStringList {
			b.WriteString(strings.Join(rec.StringList(f.Name), ", "))
		} else {
			b.WriteString(rec.String(f.Name))
		}
	}
	return b.String()
}
