package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/reply-coach/internal/llm/llmtest"
	"github.com/jonathan/reply-coach/internal/replying"
	"github.com/jonathan/reply-coach/internal/strategy"
)

const (
	tagsResponse  = `["skeptical", "health"]`
	replyResponse = `{"message": "Try one meal.", "explanation": "health framing", "input_type": "comment", "needs_clarification": false}`
	rebutResponse = `{"rebuttal": "Protein is still a problem."}`
	evalResponse  = `{"confidence_score": 7, "justification": "solid", "suggested_improvements": "cite a source", "ultimate_reply": "Better reply."}`
)

type memorySink struct {
	runs     []*Run
	feedback map[uuid.UUID]replying.Feedback
	failWith error
}

func newMemorySink() *memorySink {
	return &memorySink{feedback: make(map[uuid.UUID]replying.Feedback)}
}

func (m *memorySink) AppendRun(_ context.Context, run *Run) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.runs = append(m.runs, run)
	return nil
}

func (m *memorySink) AttachFeedback(_ context.Context, runID uuid.UUID, fb replying.Feedback) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.feedback[runID] = fb
	return nil
}

func testStore() *strategy.Store {
	return strategy.NewStore([]strategy.Strategy{
		{Title: "Health framing", Description: "cite evidence", Tags: []string{"health"}},
	})
}

func testInput() replying.Input {
	return replying.Input{Comment: "Vegan diets are missing protein"}
}

func TestExecute_FullRun(t *testing.T) {
	fake := llmtest.NewFake(tagsResponse, replyResponse, rebutResponse, evalResponse)
	sink := newMemorySink()
	p := New(Deps{LLM: fake, Strategies: testStore(), Records: sink}, Options{Rebuttal: true, Evaluation: true})

	sessionID := uuid.New()
	run, err := p.Execute(context.Background(), sessionID, 1, testInput(), nil)
	require.NoError(t, err)

	assert.Equal(t, sessionID, run.SessionID)
	assert.Equal(t, 1, run.Version)
	assert.Equal(t, []string{"skeptical", "health"}, run.Tags)
	assert.Equal(t, []string{"health"}, run.MatchedTags)
	require.Len(t, run.MatchedStrategies, 1)
	assert.Equal(t, "Health framing", run.MatchedStrategies[0].Title)
	assert.Equal(t, "Try one meal.", run.Reply.Message)
	assert.Equal(t, replying.InputComment, run.Reply.InputType)
	assert.Equal(t, "Protein is still a problem.", run.Rebuttal)
	require.NotNil(t, run.Evaluation)
	require.NotNil(t, run.Evaluation.ConfidenceScore)
	assert.InDelta(t, 7, *run.Evaluation.ConfidenceScore, 0.001)

	assert.Equal(t, 4, fake.Calls())
	require.Len(t, sink.runs, 1)
	assert.Equal(t, run.ID, sink.runs[0].ID)
}

func TestExecute_TagFailureIsRecoverable(t *testing.T) {
	fake := &llmtest.Fake{
		Responses: []string{"", replyResponse},
		Errs:      []error{errors.New("tag service down"), nil},
	}
	p := New(Deps{LLM: fake, Strategies: testStore()}, Options{})

	run, err := p.Execute(context.Background(), uuid.New(), 1, testInput(), nil)
	require.NoError(t, err)

	assert.Empty(t, run.Tags)
	assert.Empty(t, run.MatchedStrategies)
	assert.Equal(t, "Try one meal.", run.Reply.Message)
}

func TestExecute_ReplyFailureIsTerminal(t *testing.T) {
	fake := llmtest.NewFake(tagsResponse, `{"message": "Hi`)
	sink := newMemorySink()
	p := New(Deps{LLM: fake, Strategies: testStore(), Records: sink}, Options{Rebuttal: true, Evaluation: true})

	run, err := p.Execute(context.Background(), uuid.New(), 1, testInput(), nil)
	assert.Nil(t, run)

	var parseErr *replying.ParseError
	require.ErrorAs(t, err, &parseErr)

	// terminal failure appends nothing and stops before optional stages
	assert.Empty(t, sink.runs)
	assert.Equal(t, 2, fake.Calls())
}

func TestExecute_ClarificationShortCircuitsOptionalStages(t *testing.T) {
	clarification := `{"follow_up_question": "Draft or comment?", "needs_clarification": true}`
	fake := llmtest.NewFake(tagsResponse, clarification)
	sink := newMemorySink()
	p := New(Deps{LLM: fake, Strategies: testStore(), Records: sink}, Options{Rebuttal: true, Evaluation: true})

	run, err := p.Execute(context.Background(), uuid.New(), 1, testInput(), nil)
	require.NoError(t, err)

	assert.True(t, run.Reply.NeedsClarification)
	assert.Empty(t, run.Rebuttal)
	assert.Nil(t, run.Evaluation)
	// only tag extraction and reply generation were called
	assert.Equal(t, 2, fake.Calls())
	// clarification is a normal completed state and is recorded
	assert.Len(t, sink.runs, 1)
}

func TestExecute_RebuttalFailureOmitsSection(t *testing.T) {
	fake := &llmtest.Fake{
		Responses: []string{tagsResponse, replyResponse, "", evalResponse},
		Errs:      []error{nil, nil, errors.New("rebuttal down"), nil},
	}
	p := New(Deps{LLM: fake, Strategies: testStore()}, Options{Rebuttal: true, Evaluation: true})

	run, err := p.Execute(context.Background(), uuid.New(), 1, testInput(), nil)
	require.NoError(t, err)

	assert.Empty(t, run.Rebuttal)
	require.NotNil(t, run.Evaluation)
	assert.False(t, run.Evaluation.Failed())
}

func TestExecute_EvaluationFailureKeepsMarker(t *testing.T) {
	fake := llmtest.NewFake(tagsResponse, replyResponse, rebutResponse, "not json")
	p := New(Deps{LLM: fake, Strategies: testStore()}, Options{Rebuttal: true, Evaluation: true})

	run, err := p.Execute(context.Background(), uuid.New(), 1, testInput(), nil)
	require.NoError(t, err)

	require.NotNil(t, run.Evaluation)
	assert.True(t, run.Evaluation.Failed())
	assert.Equal(t, "not json", run.Evaluation.RawOutput)
}

func TestExecute_SinkFailureDoesNotFailRun(t *testing.T) {
	fake := llmtest.NewFake(tagsResponse, replyResponse)
	sink := newMemorySink()
	sink.failWith = errors.New("disk full")
	p := New(Deps{LLM: fake, Strategies: testStore(), Records: sink}, Options{})

	run, err := p.Execute(context.Background(), uuid.New(), 1, testInput(), nil)
	require.NoError(t, err)
	assert.NotNil(t, run)
}

func TestExecute_StagesDisabledByDefault(t *testing.T) {
	fake := llmtest.NewFake(tagsResponse, replyResponse)
	p := New(Deps{LLM: fake, Strategies: testStore()}, Options{})

	run, err := p.Execute(context.Background(), uuid.New(), 1, testInput(), nil)
	require.NoError(t, err)

	assert.Empty(t, run.Rebuttal)
	assert.Nil(t, run.Evaluation)
	assert.Equal(t, 2, fake.Calls())
}

func TestAttachFeedback_WritesToSink(t *testing.T) {
	fake := llmtest.NewFake(tagsResponse, replyResponse)
	sink := newMemorySink()
	p := New(Deps{LLM: fake, Strategies: testStore(), Records: sink}, Options{})

	run, err := p.Execute(context.Background(), uuid.New(), 1, testInput(), nil)
	require.NoError(t, err)

	fb := replying.Feedback{Rating: 4, Text: "good"}
	p.AttachFeedback(context.Background(), run, fb)

	assert.Equal(t, fb, sink.feedback[run.ID])
}

type memoryMirror struct {
	runs     int
	feedback int
	failWith error
}

func (m *memoryMirror) WriteRun(context.Context, *Run) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.runs++
	return nil
}

func (m *memoryMirror) WriteFeedback(context.Context, *Run, replying.Feedback) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.feedback++
	return nil
}

func TestMultiMirror_FansOutAndKeepsGoing(t *testing.T) {
	broken := &memoryMirror{failWith: errors.New("connection refused")}
	healthy := &memoryMirror{}
	mm := MultiMirror{broken, healthy}

	run := &Run{ID: uuid.New()}
	err := mm.WriteRun(context.Background(), run)
	assert.Error(t, err)
	assert.Equal(t, 1, healthy.runs)

	err = mm.WriteFeedback(context.Background(), run, replying.Feedback{Rating: 4})
	assert.Error(t, err)
	assert.Equal(t, 1, healthy.feedback)
}

func TestExecute_MirrorReceivesRun(t *testing.T) {
	fake := llmtest.NewFake(tagsResponse, replyResponse)
	mirror := &memoryMirror{}
	p := New(Deps{LLM: fake, Strategies: testStore(), Records: newMemorySink(), Mirror: mirror}, Options{})

	_, err := p.Execute(context.Background(), uuid.New(), 1, testInput(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, mirror.runs)
}
