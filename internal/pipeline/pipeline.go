// Package pipeline provides the high-level orchestration for one reply
// generation run: tag extraction, strategy matching, reply generation, and
// the optional rebuttal and evaluation stages.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/reply-coach/internal/evaluation"
	"github.com/jonathan/reply-coach/internal/llm"
	"github.com/jonathan/reply-coach/internal/rebuttal"
	"github.com/jonathan/reply-coach/internal/replying"
	"github.com/jonathan/reply-coach/internal/schemas"
	"github.com/jonathan/reply-coach/internal/strategy"
	"github.com/jonathan/reply-coach/internal/tagging"
)

// Run is one complete execution of the pipeline: the input, everything
// derived from it, and its position in the owning session. Runs are never
// mutated after creation; feedback collected later is attached to the
// persisted record and conditions the next run's prompt.
type Run struct {
	ID                uuid.UUID
	SessionID         uuid.UUID
	Version           int
	Input             replying.Input
	Tags              []string
	MatchedTags       []string
	MatchedStrategies []strategy.Strategy
	Reply             *replying.Result
	Rebuttal          string
	Evaluation        *evaluation.Result
	CreatedAt         time.Time
}

// RecordSink persists runs to the local record store. Implementations are
// append-only: each run writes a new uniquely identified record.
type RecordSink interface {
	AppendRun(ctx context.Context, run *Run) error
	AttachFeedback(ctx context.Context, runID uuid.UUID, fb replying.Feedback) error
}

// MirrorSink mirrors run documents to a remote store, best-effort. Write
// failures must never fail or block the interactive flow.
type MirrorSink interface {
	WriteRun(ctx context.Context, run *Run) error
	WriteFeedback(ctx context.Context, run *Run, fb replying.Feedback) error
}

// MultiMirror fans writes out to several mirrors. Each write is attempted
// on every mirror; the first error is returned after all attempts.
type MultiMirror []MirrorSink

func (mm MultiMirror) WriteRun(ctx context.Context, run *Run) error {
	var first error
	for _, m := range mm {
		if err := m.WriteRun(ctx, run); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (mm MultiMirror) WriteFeedback(ctx context.Context, run *Run, fb replying.Feedback) error {
	var first error
	for _, m := range mm {
		if err := m.WriteFeedback(ctx, run, fb); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Options toggles the optional stages. The source's script variants
// collapse into one parameterized pipeline.
type Options struct {
	Rebuttal   bool
	Evaluation bool
}

// Deps holds the pipeline's collaborators, constructed once at process
// start and passed in explicitly. Records and Mirror may be nil when the
// corresponding sink is not configured.
type Deps struct {
	LLM        llm.Client
	Strategies *strategy.Store
	Records    RecordSink
	Mirror     MirrorSink
	Logger     *slog.Logger
}

// Pipeline executes runs against a fixed set of dependencies.
type Pipeline struct {
	deps Deps
	opts Options
}

// New creates a pipeline. A nil logger falls back to slog.Default.
func New(deps Deps, opts Options) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Strategies == nil {
		deps.Strategies = strategy.Empty()
	}
	return &Pipeline{deps: deps, opts: opts}
}

// Options returns the configured stage toggles.
func (p *Pipeline) Options() Options {
	return p.opts
}

// Execute runs the full pipeline once for the given input. Tag extraction,
// rebuttal, and evaluation failures are recoverable and degrade to safe
// defaults; a reply-generation or parse failure is terminal and returns an
// error with no Run produced, so the caller appends nothing to history.
func (p *Pipeline) Execute(ctx context.Context, sessionID uuid.UUID, version int, input replying.Input, prior *replying.Feedback) (*Run, error) {
	log := p.deps.Logger

	tags, err := tagging.ExtractTags(ctx, p.deps.LLM, input.Comment, input.Draft)
	if err != nil {
		// Recoverable: zero tags means "no strategies match", not an abort.
		log.Warn("tag extraction failed, continuing without tags", "error", err)
		tags = nil
	}

	match := strategy.Match(p.deps.Strategies, tags)

	reply, err := replying.Generate(ctx, p.deps.LLM, input, match.Strategies, prior)
	if err != nil {
		return nil, err
	}

	if issues := schemas.ValidateReplyResult(reply.Raw); len(issues) > 0 {
		// Decoding already succeeded and normalization covers the gaps;
		// the mismatch is diagnostic only.
		log.Warn("reply JSON deviates from contract schema", "issues", issues)
	}

	run := &Run{
		ID:                uuid.New(),
		SessionID:         sessionID,
		Version:           version,
		Input:             input,
		Tags:              tags,
		MatchedTags:       match.MatchedTags,
		MatchedStrategies: match.Strategies,
		Reply:             reply,
		CreatedAt:         time.Now().UTC(),
	}

	// A clarification request always short-circuits the supplementary
	// stages: there is no reply to rebut or score yet.
	if !reply.NeedsClarification {
		if p.opts.Rebuttal {
			rebut, err := rebuttal.Rebut(ctx, p.deps.LLM, reply.Message, input.Comment)
			if err != nil {
				log.Warn("rebuttal stage failed, omitting section", "error", err)
			}
			run.Rebuttal = rebut
		}
		if p.opts.Evaluation {
			eval, err := evaluation.Evaluate(ctx, p.deps.LLM, reply.Message, run.Rebuttal, input.Comment, strategy.FormatBullets(match.Strategies))
			if err != nil {
				log.Warn("evaluation stage failed", "error", err)
			}
			run.Evaluation = eval
		}
	}

	p.persist(ctx, run)

	return run, nil
}

// AttachFeedback records the user's rating/free text against an existing
// run in both sinks, best-effort.
func (p *Pipeline) AttachFeedback(ctx context.Context, run *Run, fb replying.Feedback) {
	log := p.deps.Logger

	if p.deps.Records != nil {
		if err := p.deps.Records.AttachFeedback(ctx, run.ID, fb); err != nil {
			log.Warn("failed to attach feedback to record store", "run_id", run.ID, "error", err)
		}
	}
	if p.deps.Mirror != nil {
		if err := p.deps.Mirror.WriteFeedback(ctx, run, fb); err != nil {
			log.Warn("failed to mirror feedback", "run_id", run.ID, "error", err)
		}
	}
}

func (p *Pipeline) persist(ctx context.Context, run *Run) {
	log := p.deps.Logger

	if p.deps.Records != nil {
		if err := p.deps.Records.AppendRun(ctx, run); err != nil {
			log.Warn("failed to append run to record store", "run_id", run.ID, "error", err)
		}
	}
	if p.deps.Mirror != nil {
		if err := p.deps.Mirror.WriteRun(ctx, run); err != nil {
			log.Warn("failed to mirror run", "run_id", run.ID, "error", err)
		}
	}
}
