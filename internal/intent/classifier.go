package intent

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fairwaylabs/caddie/internal/inject"
	"github.com/fairwaylabs/caddie/internal/llm"
	"github.com/fairwaylabs/caddie/internal/normalize"
	"github.com/fairwaylabs/caddie/internal/prompts"
	"github.com/fairwaylabs/caddie/internal/session"
)

// User-facing messages. All error paths share MsgClassifyFailed; the
// distinction between timeout, network failure, and malformed reply
// lives in the logs only.
const (
	MsgEmptyInput     = "say or type something"
	MsgClassifyFailed = "classification failed"
)

// ErrCanceled is returned when the caller's context was canceled before
// a result could be produced — typically because newer input superseded
// this one. No result is emitted and nothing may be appended to the
// session.
var ErrCanceled = errors.New("classification canceled")

// DefaultTimeout bounds one model call unless configured otherwise.
const DefaultTimeout = 20 * time.Second

// Classifier orchestrates normalize → context injection → model call →
// parse → confidence routing.
type Classifier struct {
	client       llm.Client
	clarifier    Clarifier
	logger       *slog.Logger
	timeout      time.Duration
	systemPrompt string
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithTimeout overrides the model-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Classifier) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithPersona prepends a persona block to the classification system
// prompt, typically loaded from the configured persona file.
func WithPersona(persona string) Option {
	return func(c *Classifier) {
		if persona != "" {
			c.systemPrompt = persona + "\n\n" + c.systemPrompt
		}
	}
}

// NewClassifier creates a classifier using the given model client and
// clarification generator.
func NewClassifier(client llm.Client, clarifier Clarifier, logger *slog.Logger, opts ...Option) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}

	typeNames := make([]string, len(AllTypes))
	for i, t := range AllTypes {
		typeNames[i] = string(t)
	}

	c := &Classifier{
		client:       client,
		clarifier:    clarifier,
		logger:       logger,
		timeout:      DefaultTimeout,
		systemPrompt: prompts.ClassifierSystem(typeNames),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify turns one utterance into a ClassificationResult. Blank input
// short-circuits without a model call. The model call is bounded by the
// classifier timeout; a timeout or malformed reply yields an Error
// result. ErrCanceled is returned — with no result — only when ctx
// itself was canceled, so a superseded turn never emits anything.
func (c *Classifier) Classify(ctx context.Context, raw string, sess *session.Context) (Result, error) {
	normalized := normalize.Normalize(raw)
	if normalized == "" {
		return NewError(MsgEmptyInput, false), nil
	}

	contextBlock := inject.BuildPrompt(sess)

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	reply, err := c.client.Classify(callCtx, llm.ClassifyRequest{
		SystemPrompt: c.systemPrompt,
		ContextBlock: contextBlock,
		UserInput:    normalized,
	})
	if err != nil {
		if ctx.Err() != nil {
			// The caller's context died, not our timeout: newer input
			// wins and this turn vanishes.
			return Result{}, ErrCanceled
		}
		if errors.Is(err, context.DeadlineExceeded) {
			c.logger.Warn("classification timed out",
				"timeout", c.timeout, "input_len", len(normalized))
		} else {
			c.logger.Warn("classification call failed", "error", err)
		}
		return NewError(MsgClassifyFailed, true), nil
	}

	parsed, err := ParseReply(reply.Content)
	if err != nil {
		// Schema violations are never guessed around.
		c.logger.Warn("invalid model reply",
			"error", err, "model", reply.Model, "reply_len", len(reply.Content))
		return NewError(MsgClassifyFailed, true), nil
	}

	c.logger.Debug("intent classified",
		"intent", parsed.Type,
		"confidence", parsed.Confidence,
		"latency_ms", time.Since(start).Milliseconds(),
		"tokens_in", reply.InputTokens,
		"tokens_out", reply.OutputTokens,
	)

	return Route(parsed, normalized, c.clarifier), nil
}
