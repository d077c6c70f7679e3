package llmclient

import (
	"context"
	"errors"
)

// Message roles accepted by chat-completions style APIs.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged turn in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func System(content string) Message    { return Message{Role: RoleSystem, Content: content} }
func User(content string) Message      { return Message{Role: RoleUser, Content: content} }
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// ChatRequest carries an ordered message sequence plus per-call overrides.
// Model falls back to the client's default when empty; MaxTokens <= 0 uses the
// client default.
type ChatRequest struct {
	Messages  []Message
	Model     string
	MaxTokens int
}

// ChatClient issues one chat exchange and returns the raw text completion.
type ChatClient interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (string, error)
	Close() error
}

var (
	// ErrBadCredentials marks an authentication failure; never retried.
	ErrBadCredentials = errors.New("llmclient: bad credentials")
	// ErrNoContent marks a structurally empty completion.
	ErrNoContent = errors.New("llmclient: empty completion from model")
)

// PermanentError indicates an error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}
