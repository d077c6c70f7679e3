package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmclient "ideapipe/internal/llmClient"
	"ideapipe/internal/schema"
)

// scriptedClient replays canned completions in order and records every
// request it saw.
type scriptedClient struct {
	replies  []string
	requests [][]llmclient.Message
	err      error
}

func (s *scriptedClient) Name() string { return "scripted" }
func (s *scriptedClient) Close() error { return nil }
func (s *scriptedClient) Chat(ctx context.Context, req llmclient.ChatRequest) (string, error) {
	s.requests = append(s.requests, req.Messages)
	if s.err != nil {
		return "", s.err
	}
	if len(s.replies) == 0 {
		return "", fmt.Errorf("scripted: out of replies after %d requests", len(s.requests))
	}
	out := s.replies[0]
	s.replies = s.replies[1:]
	return out, nil
}

func ideaBatch(n int, prefix string) string {
	items := make([]map[string]string, n)
	for i := range items {
		items[i] = map[string]string{
			"Idea":    fmt.Sprintf("%s-%d", prefix, i),
			"Details": "details",
		}
	}
	b, _ := json.Marshal(items)
	return string(b)
}

func newLoop(client llmclient.ChatClient) Loop {
	return Loop{
		Exchange: Exchange{
			Client:           client,
			Correction:       "fix the format",
			MaxFormatRetries: 3,
		},
		Schema:     schema.MinimalIdea,
		ListPrompt: "List {NUM_IDEAS} ideas as JSON.",
		MorePrompt: "Generate {NUM} more ideas.",
		BatchSize:  25,
	}
}

func TestLoop_SingleRoundTrip(t *testing.T) {
	client := &scriptedClient{replies: []string{ideaBatch(1, "a")}}
	loop := newLoop(client)

	records, err := loop.Run(context.Background(), NewConversation(), 1)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	// Exactly one structured request, asking for exactly 1 item.
	require.Len(t, client.requests, 1)
	last := client.requests[0][len(client.requests[0])-1]
	assert.Equal(t, "List 1 ideas as JSON.", last.Content)
}

func TestLoop_TwoBatches(t *testing.T) {
	client := &scriptedClient{replies: []string{ideaBatch(25, "a"), ideaBatch(5, "b")}}
	loop := newLoop(client)

	records, err := loop.Run(context.Background(), NewConversation(), 30)
	require.NoError(t, err)
	require.Len(t, records, 30)
	// Order preserved: first batch then second.
	assert.Equal(t, "a-0", records[0].String("Idea"))
	assert.Equal(t, "b-4", records[29].String("Idea"))

	require.Len(t, client.requests, 2)
	second := client.requests[1]
	assert.Equal(t, "Generate 5 more ideas.", second[len(second)-1].Content)
	// The validated first batch rides along as assistant context.
	assert.Equal(t, llmclient.RoleAssistant, second[len(second)-2].Role)
}

func TestLoop_ShortBatchAccepted(t *testing.T) {
	// The model returns fewer items than requested; the loop keeps asking.
	client := &scriptedClient{replies: []string{ideaBatch(3, "a"), ideaBatch(2, "b")}}
	loop := newLoop(client)
	loop.BatchSize = 5

	records, err := loop.Run(context.Background(), NewConversation(), 5)
	require.NoError(t, err)
	assert.Len(t, records, 5)
	assert.Len(t, client.requests, 2)
}

func TestLoop_OverFullBatchTruncated(t *testing.T) {
	// The model returns more items than requested; the surplus is dropped so
	// the accumulator lands on exactly the target.
	client := &scriptedClient{replies: []string{ideaBatch(10, "a")}}
	loop := newLoop(client)
	loop.BatchSize = 3

	records, err := loop.Run(context.Background(), NewConversation(), 3)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "a-2", records[2].String("Idea"))
	assert.Len(t, client.requests, 1)
}

func TestLoop_OverFullMidRun(t *testing.T) {
	// First batch over-delivers against a larger target; the loop keeps the
	// requested count and still asks for exactly the remainder.
	client := &scriptedClient{replies: []string{ideaBatch(5, "a"), ideaBatch(2, "b")}}
	loop := newLoop(client)
	loop.BatchSize = 3

	records, err := loop.Run(context.Background(), NewConversation(), 5)
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, "a-2", records[2].String("Idea"))
	assert.Equal(t, "b-1", records[4].String("Idea"))

	require.Len(t, client.requests, 2)
	second := client.requests[1]
	assert.Equal(t, "Generate 2 more ideas.", second[len(second)-1].Content)
}

func TestLoop_CorrectionThenValid(t *testing.T) {
	client := &scriptedClient{replies: []string{
		`[{"Idea":"X"}]`, // missing Details
		ideaBatch(1, "fixed"),
	}}
	loop := newLoop(client)

	conv := NewConversation()
	records, err := loop.Run(context.Background(), conv, 1)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	require.Len(t, client.requests, 2)

	// History holds exactly one correction turn: the rejected reply followed
	// by the correction prompt.
	msgs := conv.Messages()
	var corrections int
	for _, m := range msgs {
		if m.Role == llmclient.RoleUser && m.Content == "fix the format" {
			corrections++
		}
	}
	assert.Equal(t, 1, corrections)
}

func TestLoop_FormatExhausted(t *testing.T) {
	client := &scriptedClient{replies: []string{
		"not json at all",
		"still not json",
		"nope",
	}}
	loop := newLoop(client)

	_, err := loop.Run(context.Background(), NewConversation(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFormatExhausted)
	// Exactly MaxFormatRetries structured attempts, then fatal.
	assert.Len(t, client.requests, 3)
}

func TestLoop_TransportErrorPropagates(t *testing.T) {
	client := &scriptedClient{err: fmt.Errorf("connection refused")}
	loop := newLoop(client)

	_, err := loop.Run(context.Background(), NewConversation(), 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrFormatExhausted)
	// Transport errors do not consume the format budget.
	assert.Len(t, client.requests, 1)
}

func TestLoop_FencedReply(t *testing.T) {
	client := &scriptedClient{replies: []string{"```json\n" + ideaBatch(2, "a") + "\n```"}}
	loop := newLoop(client)

	records, err := loop.Run(context.Background(), NewConversation(), 2)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Len(t, client.requests, 1)
}

func TestLoop_InvalidTarget(t *testing.T) {
	loop := newLoop(&scriptedClient{})
	_, err := loop.Run(context.Background(), NewConversation(), 0)
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	validate := func(raw []byte) (any, error) {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
	v := Classify(`[1,2]`, validate)
	assert.Equal(t, VerdictValid, v.Kind)

	v = Classify("free text only", validate)
	assert.Equal(t, VerdictCorrectable, v.Kind)
	assert.Error(t, v.Err)
}

func TestExchange_Text(t *testing.T) {
	client := &scriptedClient{replies: []string{"a brainstorm"}}
	ex := Exchange{Client: client}
	conv := NewConversation(llmclient.System("sys"))
	conv.User("think about it")

	reply, err := ex.Text(context.Background(), conv)
	require.NoError(t, err)
	assert.Equal(t, "a brainstorm", reply)
	// The reply is folded back in as assistant context.
	msgs := conv.Messages()
	assert.Equal(t, llmclient.RoleAssistant, msgs[len(msgs)-1].Role)
}
