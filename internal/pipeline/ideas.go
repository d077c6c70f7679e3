package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"ideapipe/internal/artifact"
	"ideapipe/internal/batch"
	llmclient "ideapipe/internal/llmClient"
	"ideapipe/internal/prompt"
	"ideapipe/internal/schema"
)

// Ideas generates product ideas through the conversational batch loop and
// writes them to the ideas artifact.
type Ideas struct {
	Client  llmclient.ChatClient
	Prompts *prompt.Store
	Files   prompt.Set
	Store   *artifact.Store
	Schema  schema.Schema

	Model            string
	NumIdeas         int
	BatchSize        int
	MaxFormatRetries int
	MaxTokens        int
	Log              *zap.Logger
}

// Run seeds the conversation with two plain-text turns (a broad brainstorm,
// then a narrowing pass), then drives structured batches until NumIdeas
// validated records have accumulated. Any terminal failure aborts the stage;
// partial accumulation is discarded.
func (g *Ideas) Run(ctx context.Context) ([]schema.Record, error) {
	log := g.Log
	if log == nil {
		log = zap.NewNop()
	}

	initial, err := g.Prompts.Load(g.Files.IdeasInitial)
	if err != nil {
		return nil, err
	}
	expand, err := g.Prompts.Load(g.Files.IdeasExpand)
	if err != nil {
		return nil, err
	}
	list, err := g.Prompts.Load(g.Files.IdeasList)
	if err != nil {
		return nil, err
	}
	more, err := g.Prompts.Load(g.Files.IdeasMore)
	if err != nil {
		return nil, err
	}
	correction, err := g.Prompts.Load(g.Files.WrongFormat)
	if err != nil {
		return nil, err
	}

	ex := batch.Exchange{
		Client:           g.Client,
		Correction:       correction,
		MaxFormatRetries: g.MaxFormatRetries,
		Model:            g.Model,
		MaxTokens:        g.MaxTokens,
		Log:              log,
	}

	// Think before structuring: two free-text turns whose replies feed the
	// next request as context.
	conv := batch.NewConversation(llmclient.System("You are a helpful Assistant."))
	conv.User(initial)
	if _, err := ex.Text(ctx, conv); err != nil {
		return nil, fmt.Errorf("ideas: brainstorm turn: %w", err)
	}
	conv.User(expand)
	if _, err := ex.Text(ctx, conv); err != nil {
		return nil, fmt.Errorf("ideas: expand turn: %w", err)
	}

	loop := batch.Loop{
		Exchange:   ex,
		Schema:     g.Schema,
		ListPrompt: list,
		MorePrompt: more,
		BatchSize:  g.BatchSize,
		Log:        log,
	}
	records, err := loop.Run(ctx, conv, g.NumIdeas)
	if err != nil {
		return nil, fmt.Errorf("ideas: %w", err)
	}

	if err := g.Store.SaveJSON(IdeasFile, records); err != nil {
		return nil, err
	}
	log.Info("ideas generated", zap.Int("count", len(records)))
	return records, nil
}
