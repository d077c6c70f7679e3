package batch

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	llmclient "ideapipe/internal/llmClient"
	"ideapipe/internal/util/jsonutil"
)

// ErrFormatExhausted is returned when the format-correction budget runs out
// without a valid reply.
var ErrFormatExhausted = errors.New("batch: format validation exhausted")

// ValidateFunc parses a normalized JSON payload and returns the validated
// value, or an error describing the violation.
type ValidateFunc func(raw []byte) (any, error)

// Exchange performs one structured request-response round trip with bounded
// format repair: a reply that fails to parse or validate is appended to the
// conversation together with the correction prompt, and the request is
// reissued, up to MaxFormatRetries attempts total.
type Exchange struct {
	Client     llmclient.ChatClient
	Correction string // user turn appended after a rejected reply

	MaxFormatRetries int // total structured attempts; default 3
	Model            string
	MaxTokens        int
	Log              *zap.Logger
}

// JSON sends the conversation and validates the normalized reply. Transport
// and auth errors propagate untouched; format errors consume the retry budget.
// On success it returns the validated value and the raw assistant reply.
func (e *Exchange) JSON(ctx context.Context, conv *Conversation, validate ValidateFunc) (any, string, error) {
	max := e.MaxFormatRetries
	if max <= 0 {
		max = 3
	}
	log := e.Log
	if log == nil {
		log = zap.NewNop()
	}

	var lastErr error
	for attempt := 1; attempt <= max; attempt++ {
		reply, err := e.Client.Chat(ctx, llmclient.ChatRequest{
			Messages:  conv.Messages(),
			Model:     e.Model,
			MaxTokens: e.MaxTokens,
		})
		if err != nil {
			return nil, "", err
		}
		v := Classify(reply, validate)
		if v.Kind == VerdictValid {
			return v.Value, reply, nil
		}
		lastErr = v.Err
		log.Warn("structured reply rejected",
			zap.Int("attempt", attempt),
			zap.Int("budget", max),
			zap.Error(v.Err))
		// Keep the failed reply in history so the model sees what it got wrong,
		// then ask for the fix.
		conv.Assistant(reply)
		conv.User(e.Correction)
	}
	terminal := Exhausted(fmt.Errorf("%w after %d attempts: %v", ErrFormatExhausted, max, lastErr))
	return nil, "", terminal.Err
}

// Text sends the conversation as a plain-text exchange and appends the reply
// as assistant context for the next turn.
func (e *Exchange) Text(ctx context.Context, conv *Conversation) (string, error) {
	reply, err := e.Client.Chat(ctx, llmclient.ChatRequest{
		Messages:  conv.Messages(),
		Model:     e.Model,
		MaxTokens: e.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	conv.Assistant(reply)
	return reply, nil
}

// Classify normalizes one raw reply and applies validate, yielding an explicit
// Verdict. Both extraction and validation failures are correctable.
func Classify(reply string, validate ValidateFunc) Verdict {
	payload, err := jsonutil.ExtractStructure(reply)
	if err != nil {
		return Correctable(err)
	}
	value, err := validate([]byte(payload))
	if err != nil {
		return Correctable(err)
	}
	return Valid(value)
}
