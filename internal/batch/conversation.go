// Package batch drives multi-turn conversational exchanges against an
// unreliable text generator until a target count of schema-conforming records
// has been accumulated, repairing malformed replies with bounded
// correction turns along the way.
package batch

import (
	llmclient "ideapipe/internal/llmClient"
)

// Conversation is an ordered message history owned by a single generation
// call. It is never shared across concurrent calls; each call builds its own
// and discards it when done.
type Conversation struct {
	msgs []llmclient.Message
}

// NewConversation seeds a conversation with the given messages.
func NewConversation(msgs ...llmclient.Message) *Conversation {
	c := &Conversation{}
	c.msgs = append(c.msgs, msgs...)
	return c
}

// System appends a system turn.
func (c *Conversation) System(content string) {
	c.msgs = append(c.msgs, llmclient.System(content))
}

// User appends a user turn.
func (c *Conversation) User(content string) {
	c.msgs = append(c.msgs, llmclient.User(content))
}

// Assistant appends an assistant turn.
func (c *Conversation) Assistant(content string) {
	c.msgs = append(c.msgs, llmclient.Assistant(content))
}

// Messages returns a copy of the history in order.
func (c *Conversation) Messages() []llmclient.Message {
	out := make([]llmclient.Message, len(c.msgs))
	copy(out, c.msgs)
	return out
}

// Len returns the number of turns so far.
func (c *Conversation) Len() int { return len(c.msgs) }
