// Package pipeline orchestrates one user turn end to end: classify the
// utterance, execute or stage the resulting action, run the response
// through the persona formatter, and append the exchange to the session
// context. The pipeline is the session store's single writer; turns are
// appended in submission order and a newer submission cancels the one
// still in flight ("latest input wins").
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fairwaylabs/caddie/internal/events"
	"github.com/fairwaylabs/caddie/internal/intent"
	"github.com/fairwaylabs/caddie/internal/persona"
	"github.com/fairwaylabs/caddie/internal/session"
	"github.com/fairwaylabs/caddie/internal/store"
)

// ErrSuperseded is returned when a turn was canceled because newer
// input arrived. The superseded turn leaves no trace: no session
// mutation, no response.
var ErrSuperseded = errors.New("superseded by newer input")

// RoundStore is the durable persistence collaborator. *store.Store
// implements it; tests substitute fakes.
type RoundStore interface {
	CreateRound(course string) (store.Round, error)
	EndRound(roundID string) error
	AddShot(roundID string, hole int, shot store.Shot) (string, error)
	MissPatterns() ([]persona.MissPattern, error)
}

// Response is what one submitted turn produces for the caller. Every
// kind carries user-visible text; Route additionally carries the
// navigation target.
type Response struct {
	RequestID   string                 `json:"request_id"`
	Kind        string                 `json:"kind"`
	Text        string                 `json:"text"`
	Target      *intent.RoutingTarget  `json:"target,omitempty"`
	Suggestions []intent.Suggestion    `json:"suggestions,omitempty"`
	Recoverable bool                   `json:"recoverable,omitempty"`
}

// Pipeline wires the classifier, formatter, session store, round store,
// and event bus together.
type Pipeline struct {
	logger     *slog.Logger
	classifier *intent.Classifier
	formatter  *persona.Formatter
	session    *session.Store
	rounds     RoundStore // may be nil: durable storage disabled
	bus        *events.Bus

	mu             sync.Mutex
	cancelInFlight context.CancelFunc
}

// New creates a pipeline. rounds and bus may be nil.
func New(logger *slog.Logger, classifier *intent.Classifier, formatter *persona.Formatter,
	sess *session.Store, rounds RoundStore, bus *events.Bus) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		logger:     logger,
		classifier: classifier,
		formatter:  formatter,
		session:    sess,
		rounds:     rounds,
		bus:        bus,
	}
}

// Submit processes one user turn. It returns ErrSuperseded (and nothing
// else) when a newer submission canceled this one mid-flight.
func (p *Pipeline) Submit(ctx context.Context, raw string) (*Response, error) {
	requestID := uuid.NewString()
	snapshot := p.session.Snapshot()

	p.bus.Publish(events.SourcePipeline, events.KindInputReceived, map[string]any{
		"request_id":     requestID,
		"input_len":      len(raw),
		"session_active": !snapshot.Empty(),
	})

	// Cancel whatever is still in flight; this turn owns the session now.
	p.mu.Lock()
	if p.cancelInFlight != nil {
		p.cancelInFlight()
	}
	turnCtx, cancel := context.WithCancel(ctx)
	p.cancelInFlight = cancel
	p.mu.Unlock()
	defer cancel()

	start := time.Now()
	result, err := p.classifier.Classify(turnCtx, raw, &snapshot)
	if err != nil {
		// Canceled before producing a result: no mutation, no emission.
		return nil, ErrSuperseded
	}

	p.emitClassified(requestID, result, time.Since(start))

	p.mu.Lock()
	defer p.mu.Unlock()
	if turnCtx.Err() != nil {
		// Newer input won the race after classification finished.
		return nil, ErrSuperseded
	}

	resp := p.resolve(requestID, raw, result)
	p.session.AppendTurn(raw, resp.Text)
	return resp, nil
}

// SelectSuggestion executes a clarification suggestion the user picked,
// as if it had been classified with full confidence.
func (p *Pipeline) SelectSuggestion(ctx context.Context, t intent.Type) (*Response, error) {
	if !t.Valid() {
		return nil, errors.New("unknown intent type")
	}

	requestID := uuid.NewString()
	p.bus.Publish(events.SourcePipeline, events.KindSuggestionSelected, map[string]any{
		"request_id":  requestID,
		"intent_type": string(t),
	})

	parsed, err := intent.NewParsedIntent(t, 1.0, intent.Entities{}, "")
	if err != nil {
		return nil, err
	}
	target, ok := intent.TargetFor(t, parsed.Entities)
	if !ok {
		return nil, errors.New("intent has no routing target")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	resp := p.resolve(requestID, "", intent.NewRoute(parsed, target))
	p.session.AppendTurn("["+string(t)+"]", resp.Text)
	return resp, nil
}

// resolve turns a ClassificationResult into the final formatted
// Response, executing route actions. Callers hold p.mu.
func (p *Pipeline) resolve(requestID, raw string, result intent.Result) *Response {
	resp := &Response{RequestID: requestID, Kind: result.Kind.String()}

	switch result.Kind {
	case intent.KindRoute:
		text, opts, ok := p.execute(*result.Intent)
		if !ok {
			// Action needed round context that is absent.
			resp.Kind = intent.KindError.String()
			resp.Recoverable = true
			resp.Text = p.format(text, nil, persona.Options{})
			p.emitError(requestID, "no_active_session", true)
			return resp
		}
		resp.Target = result.Target
		resp.Text = p.format(text, p.missPatterns(opts), opts)
		p.bus.Publish(events.SourcePipeline, events.KindRouteExecuted, map[string]any{
			"request_id": requestID,
			"module":     string(result.Target.Module),
			"screen":     result.Target.Screen,
		})

	case intent.KindConfirm:
		resp.Text = p.format(result.Message, nil, persona.Options{
			SensitiveInput: sensitive(result.Intent),
		})

	case intent.KindClarify:
		resp.Suggestions = result.Suggestions
		resp.Text = p.format(result.Message, nil, persona.Options{})
		p.bus.Publish(events.SourcePipeline, events.KindClarificationRequested, map[string]any{
			"request_id":  requestID,
			"suggestions": len(result.Suggestions),
		})

	case intent.KindError:
		resp.Recoverable = result.Recoverable
		resp.Text = p.format(result.Message, nil, persona.Options{})
		p.emitError(requestID, "classification", result.Recoverable)

	default:
		// The union is closed; a new kind must be handled above.
		p.logger.Error("unhandled result kind", "kind", result.Kind)
		resp.Kind = intent.KindError.String()
		resp.Text = p.format(intent.MsgClassifyFailed, nil, persona.Options{})
	}

	return resp
}

func (p *Pipeline) format(text string, patterns []persona.MissPattern, opts persona.Options) string {
	return p.formatter.Format(text, patterns, opts).Text
}

// missPatterns fetches stored miss patterns when the action wants them.
func (p *Pipeline) missPatterns(opts persona.Options) []persona.MissPattern {
	if !opts.IncludePatterns || p.rounds == nil {
		return nil
	}
	patterns, err := p.rounds.MissPatterns()
	if err != nil {
		p.logger.Warn("miss pattern lookup failed", "error", err)
		return nil
	}
	return patterns
}

func sensitive(parsed *intent.ParsedIntent) bool {
	return parsed != nil && (parsed.Type == intent.TypeReportPain || parsed.Entities.Pain)
}

func (p *Pipeline) emitClassified(requestID string, result intent.Result, latency time.Duration) {
	data := map[string]any{
		"request_id": requestID,
		"outcome":    result.Kind.String(),
		"latency_ms": latency.Milliseconds(),
		"ok":         result.Kind != intent.KindError,
	}
	if result.Intent != nil {
		data["intent_type"] = string(result.Intent.Type)
		data["confidence"] = result.Intent.Confidence
	}
	p.bus.Publish(events.SourceClassifier, events.KindIntentClassified, data)
}

func (p *Pipeline) emitError(requestID, category string, recoverable bool) {
	p.bus.Publish(events.SourcePipeline, events.KindErrorOccurred, map[string]any{
		"request_id":  requestID,
		"category":    category,
		"recoverable": recoverable,
	})
}
