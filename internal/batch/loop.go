package batch

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ideapipe/internal/prompt"
	"ideapipe/internal/schema"
	"ideapipe/internal/util/jsonutil"
)

// DefaultBatchSize is the per-request item count when none is configured.
const DefaultBatchSize = 25

// Loop accumulates validated records across as many structured round trips as
// it takes to reach a target count. Each round trip is repaired by the
// embedded Exchange; each valid batch is folded back into the conversation as
// canonical JSON so later "more items" turns see exactly what was accepted.
type Loop struct {
	Exchange Exchange
	Schema   schema.Schema

	// ListPrompt is the first structured request; its {NUM_IDEAS} placeholder
	// receives the batch size. MorePrompt drives follow-up batches via {NUM}.
	ListPrompt string
	MorePrompt string

	BatchSize int
	Log       *zap.Logger
}

// Run drives the conversation until target records are accumulated or a
// terminal failure occurs. The conversation must already contain any seeding
// turns; Run appends the structured-request turns itself. A batch returning
// fewer records than requested is accepted, not an error; a batch returning
// more is truncated to the requested count. The loop is not
// restartable mid-flight: on error the partial accumulation is discarded by
// the caller and a new call starts from scratch.
func (l *Loop) Run(ctx context.Context, conv *Conversation, target int) ([]schema.Record, error) {
	if target <= 0 {
		return nil, errors.New("batch: target must be positive")
	}
	size := l.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	log := l.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("conversation_id", uuid.NewString()))

	validate := func(raw []byte) (any, error) {
		v, err := jsonutil.ParseValue(raw)
		if err != nil {
			return nil, err
		}
		return l.Schema.Validate(v)
	}

	var out []schema.Record
	remaining := target
	first := true
	for remaining > 0 {
		n := remaining
		if n > size {
			n = size
		}
		if first {
			conv.User(prompt.Render(l.ListPrompt, map[string]string{
				"NUM_IDEAS": strconv.Itoa(n),
			}))
			first = false
		} else {
			conv.User(prompt.Render(l.MorePrompt, map[string]string{
				"NUM": strconv.Itoa(n),
			}))
		}

		value, _, err := l.Exchange.JSON(ctx, conv, validate)
		if err != nil {
			return nil, err
		}
		records := value.([]schema.Record)
		returned := len(records)
		if returned > n {
			// The model over-delivered; keep only the requested count so the
			// accumulator lands on exactly target.
			records = records[:n]
		}
		out = append(out, records...)
		remaining -= len(records)
		log.Info("batch accepted",
			zap.Int("requested", n),
			zap.Int("returned", returned),
			zap.Int("kept", len(records)),
			zap.Int("remaining", remaining))

		if remaining > 0 {
			// The validated batch, not the raw reply, becomes the assistant
			// context for the next request.
			b, err := jsonutil.MarshalNoEscape(records)
			if err != nil {
				return nil, err
			}
			conv.Assistant(string(b))
		}
	}
	return out, nil
}
