// Package llm provides the language-model collaborator used for intent
// classification. The model is a black box behind the Client interface:
// it receives a system prompt, a rendered context block, and the
// normalized user input, and returns raw text expected to parse as a
// classification JSON object.
package llm

import (
	"context"
	"time"
)

// ClassifyRequest carries one classification call to the model.
type ClassifyRequest struct {
	// SystemPrompt holds the persona and classification instructions.
	SystemPrompt string
	// ContextBlock is the rendered session context, possibly empty.
	ContextBlock string
	// UserInput is the normalized utterance.
	UserInput string
}

// Reply is the provider-neutral response to a classification call.
type Reply struct {
	// Content is the raw model text; the intent package parses it.
	Content string
	// Model names the model that produced the reply.
	Model string

	InputTokens  int
	OutputTokens int
	Duration     time.Duration
}

// Client is the interface every model provider implements.
type Client interface {
	// Classify sends one classification request. The call is the only
	// suspension point in the pipeline; it must honor ctx cancellation
	// and deadlines.
	Classify(ctx context.Context, req ClassifyRequest) (*Reply, error)

	// Ping checks that the provider is reachable.
	Ping(ctx context.Context) error
}
