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

// Code turns each requirements document into generated source through a
// two-step exchange: an initial plan, then a writer turn that sees the plan as
// assistant context.
type Code struct {
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

type codeResult struct {
	name    string
	content string
	err     error
}

// Run processes every requirements_*.txt under the requirements directory.
// Workers return generated code; the coordinator writes all files post-join.
func (c *Code) Run(ctx context.Context) (ok bool, err error) {
	log := c.Log
	if log == nil {
		log = zap.NewNop()
	}

	var ideas []schema.Record
	if err := c.Store.LoadJSON(IdeasFile, &ideas); err != nil {
		return false, err
	}
	initial, err := c.Prompts.Load(c.Files.CodeInitial)
	if err != nil {
		return false, err
	}
	writer, err := c.Prompts.Load(c.Files.CodeWriter)
	if err != nil {
		return false, err
	}
	files, err := c.Store.List(RequirementsDir)
	if err != nil {
		return false, err
	}
	var reqFiles []string
	for _, f := range files {
		if strings.HasPrefix(f, "requirements_") && strings.HasSuffix(f, ".txt") {
			reqFiles = append(reqFiles, f)
		}
	}
	if len(reqFiles) == 0 {
		return false, fmt.Errorf("code: no requirements documents under %s", RequirementsDir)
	}

	nameField := c.Schema.Fields[0].Name
	results := fanOut(ctx, len(reqFiles), c.Workers, func(ctx context.Context, i int) codeResult {
		file := reqFiles[i]
		name := matchIdeaName(ideas, nameField, file)
		if name == "" {
			return codeResult{err: fmt.Errorf("code: no idea matches %s", file)}
		}
		requirements, err := c.Store.ReadText(path.Join(RequirementsDir, file))
		if err != nil {
			return codeResult{name: name, err: err}
		}

		ex := batch.Exchange{Client: c.Client, Model: c.Model, MaxTokens: c.MaxTokens, Log: log}

		// Step 1: plan.
		plan := batch.NewConversation(
			llmclient.System("You are a helpful assistant."),
			llmclient.User(initial+"\n\n"+requirements),
		)
		planOut, err := ex.Text(ctx, plan)
		if err != nil {
			return codeResult{name: name, err: fmt.Errorf("code plan for %q: %w", name, err)}
		}

		// Step 2: write, with the plan as assistant context.
		write := batch.NewConversation(
			llmclient.System("You are a helpful assistant."),
			llmclient.Assistant(planOut),
			llmclient.User(writer),
		)
		code, err := ex.Text(ctx, write)
		if err != nil {
			return codeResult{name: name, err: fmt.Errorf("code write for %q: %w", name, err)}
		}
		return codeResult{name: name, content: code}
	})

	ok = true
	written := 0
	for _, res := range results {
		// A zero-valued slot (cancelled before its worker ran) has no name;
		// never write a nameless file.
		if res.err != nil || res.name == "" {
			log.Error("code unit failed", zap.String("idea", res.name), zap.Error(res.err))
			ok = false
			continue
		}
		file := path.Join(CodeDir, normalizeName(res.name)+".txt")
		if err := c.Store.SaveText(file, res.content); err != nil {
			return false, err
		}
		written++
	}
	log.Info("code generated", zap.Int("written", written), zap.Int("requirements", len(reqFiles)))
	return ok, nil
}

// matchIdeaName maps a requirements file name back to the idea whose
// normalized name produced it.
func matchIdeaName(ideas []schema.Record, nameField, reqFile string) string {
	base := strings.TrimSuffix(strings.TrimPrefix(reqFile, "requirements_"), ".txt")
	for _, idea := range ideas {
		name := idea.String(nameField)
		if normalizeName(name) == base {
			return name
		}
	}
	return ""
}
