// Package llmtest provides a scripted fake llm.Client for tests.
package llmtest

import (
	"context"
	"errors"

	"github.com/jonathan/reply-coach/internal/llm"
)

// Fake is a scripted llm.Client. Each call pops the next queued response
// (or error). Requests are recorded for assertions on prompt assembly.
type Fake struct {
	Responses []string
	Errs      []error
	Requests  []llm.Request

	calls int
}

// NewFake creates a fake client that returns the given responses in order.
func NewFake(responses ...string) *Fake {
	return &Fake{Responses: responses}
}

// GenerateContent records the request and returns the next scripted response.
func (f *Fake) GenerateContent(_ context.Context, req llm.Request) (string, error) {
	return f.next(req)
}

// GenerateJSON records the request and returns the next scripted response
// with fence markers stripped, mirroring real providers.
func (f *Fake) GenerateJSON(_ context.Context, req llm.Request) (string, error) {
	text, err := f.next(req)
	if err != nil {
		return "", err
	}
	return llm.CleanJSONBlock(text), nil
}

func (f *Fake) next(req llm.Request) (string, error) {
	f.Requests = append(f.Requests, req)
	i := f.calls
	f.calls++
	if i < len(f.Errs) && f.Errs[i] != nil {
		return "", f.Errs[i]
	}
	if i < len(f.Responses) {
		return f.Responses[i], nil
	}
	return "", errors.New("llmtest: no scripted response left")
}

// GetModel returns a fixed model name.
func (f *Fake) GetModel(llm.ModelTier) string {
	return "fake-model"
}

// Close is a no-op.
func (f *Fake) Close() error {
	return nil
}

// Calls returns how many generation calls were made.
func (f *Fake) Calls() int {
	return f.calls
}
