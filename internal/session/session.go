// Package session owns the per-session run history and the finite-state
// machine driving it. UI-driven control flow from the source became
// explicit commands here: generate, regenerate, send_feedback, navigate,
// and new session, independent of any presentation technology.
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/jonathan/reply-coach/internal/pipeline"
	"github.com/jonathan/reply-coach/internal/replying"
)

// State is the session's position in the interaction state machine.
type State string

// Session states
const (
	StateIdle                   State = "idle"
	StateRunning                State = "running"
	StateClarificationDisplayed State = "clarification_displayed"
	StateResultDisplayed        State = "result_displayed"
)

// Direction selects history navigation.
type Direction string

// Navigation directions
const (
	DirPrev Direction = "prev"
	DirNext Direction = "next"
)

// Session is an ordered, append-only log of pipeline runs for one user
// interaction lifetime. Insertion order is chronological and never
// reordered. One command executes at a time.
type Session struct {
	mu sync.Mutex

	id    uuid.UUID
	pipe  *pipeline.Pipeline
	state State

	history []*pipeline.Run
	input   replying.Input
	pending *replying.Feedback
	view    int
}

// New creates an idle session bound to a pipeline.
func New(pipe *pipeline.Pipeline) *Session {
	return &Session{
		id:    uuid.New(),
		pipe:  pipe,
		state: StateIdle,
	}
}

// ID returns the opaque session identifier.
func (s *Session) ID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// State returns the current FSM state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// History returns the runs in chronological order.
func (s *Session) History() []*pipeline.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*pipeline.Run, len(s.history))
	copy(out, s.history)
	return out
}

// Current returns the latest run, or nil before the first generation.
func (s *Session) Current() *pipeline.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) == 0 {
		return nil
	}
	return s.history[len(s.history)-1]
}

// Generate runs the pipeline for fresh input. Only valid from Idle; once a
// result is displayed, the session moves forward via Regenerate. A
// terminal pipeline failure appends nothing, returns the state to Idle,
// and leaves prior history untouched, so an immediate retry is possible.
func (s *Session) Generate(ctx context.Context, input replying.Input) (*pipeline.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return nil, &InvalidStateError{Command: "generate", State: s.state}
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	s.input = input
	s.pending = nil
	return s.run(ctx, nil)
}

// Regenerate re-runs the full pipeline on the session's retained input,
// conditioned on feedback. When fb is nil the feedback last sent via
// SendFeedback is carried forward. Valid only after a run was displayed.
func (s *Session) Regenerate(ctx context.Context, fb *replying.Feedback) (*pipeline.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateClarificationDisplayed && s.state != StateResultDisplayed {
		return nil, &InvalidStateError{Command: "regenerate", State: s.state}
	}

	prior := fb
	if prior == nil {
		prior = s.pending
	}
	if prior != nil {
		if err := validateFeedback(*prior); err != nil {
			return nil, err
		}
		s.pending = prior
	}

	return s.run(ctx, prior)
}

// run executes the pipeline while holding the lock, managing the
// Running-state transition. Callers must hold s.mu.
func (s *Session) run(ctx context.Context, prior *replying.Feedback) (*pipeline.Run, error) {
	s.state = StateRunning

	run, err := s.pipe.Execute(ctx, s.id, len(s.history)+1, s.input, prior)
	if err != nil {
		// Terminal for the run only: history stays as it was.
		if len(s.history) == 0 {
			s.state = StateIdle
		} else if s.history[len(s.history)-1].Reply.NeedsClarification {
			s.state = StateClarificationDisplayed
		} else {
			s.state = StateResultDisplayed
		}
		return nil, err
	}

	s.history = append(s.history, run)
	if run.Reply.NeedsClarification {
		s.state = StateClarificationDisplayed
	} else {
		s.state = StateResultDisplayed
	}

	// Keep the view pointed at the most recent browsable run.
	if max := s.maxBrowsable(); max >= 0 {
		s.view = max
	}

	return run, nil
}

// SendFeedback attaches a rating and free text to the current run's
// persisted record and keeps it as the prior feedback for the next
// regeneration. No state transition and no new generation.
func (s *Session) SendFeedback(ctx context.Context, fb replying.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.history) == 0 {
		return &InvalidStateError{Command: "send_feedback", State: s.state}
	}
	if err := validateFeedback(fb); err != nil {
		return err
	}

	s.pending = &fb
	s.pipe.AttachFeedback(ctx, s.history[len(s.history)-1], fb)
	return nil
}

// Navigate moves the browsable view index. A pure view-state change with
// no pipeline effect; bounds clamp to [0, len(history)-2] so the latest
// run is always excluded from the browsable range.
func (s *Session) Navigate(dir Direction) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	max := s.maxBrowsable()
	if max < 0 {
		s.view = 0
		return 0
	}

	switch dir {
	case DirPrev:
		if s.view > 0 {
			s.view--
		}
	case DirNext:
		if s.view < max {
			s.view++
		}
	}
	if s.view > max {
		s.view = max
	}
	return s.view
}

// ViewIndex returns the current browsable index.
func (s *Session) ViewIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// ViewRun returns the run at the browsable index, or nil when fewer than
// two runs exist.
func (s *Session) ViewRun() *pipeline.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.maxBrowsable() < 0 {
		return nil
	}
	if s.view > s.maxBrowsable() {
		s.view = s.maxBrowsable()
	}
	return s.history[s.view]
}

func (s *Session) maxBrowsable() int {
	return len(s.history) - 2
}

func validateFeedback(fb replying.Feedback) error {
	if fb.Rating != 0 && (fb.Rating < 1 || fb.Rating > 5) {
		return &InvalidFeedbackError{Rating: fb.Rating}
	}
	return nil
}
