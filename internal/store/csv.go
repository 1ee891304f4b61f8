package store

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/reply-coach/internal/pipeline"
	"github.com/jonathan/reply-coach/internal/replying"
)

var csvHeader = []string{
	"record_type", "timestamp", "session_id", "version",
	"comment", "draft_reply", "input_type",
	"needs_clarification", "follow_up_question", "message", "explanation",
	"tags", "matched_strategies", "rebuttal", "confidence_score",
	"rating", "feedback",
}

// CSVMirror appends run and feedback rows to a flat CSV file. It is a
// secondary sink: rows are only ever appended, never rewritten, so
// feedback arrives as its own row referencing the run's session/version.
type CSVMirror struct {
	mu   sync.Mutex
	path string
}

// NewCSVMirror creates a mirror writing to path. The file and its header
// row are created on first write.
func NewCSVMirror(path string) *CSVMirror {
	return &CSVMirror{path: path}
}

// WriteRun appends one run row.
func (m *CSVMirror) WriteRun(_ context.Context, run *pipeline.Run) error {
	confidence := ""
	if run.Evaluation != nil && run.Evaluation.ConfidenceScore != nil {
		confidence = strconv.FormatFloat(*run.Evaluation.ConfidenceScore, 'f', -1, 64)
	}
	return m.append([]string{
		"run", run.CreatedAt.UTC().Format(time.RFC3339),
		run.SessionID.String(), strconv.Itoa(run.Version),
		run.Input.Comment, run.Input.Draft, string(run.Reply.InputType),
		strconv.FormatBool(run.Reply.NeedsClarification),
		run.Reply.FollowUpQuestion, run.Reply.Message, run.Reply.Explanation,
		strings.Join(run.Tags, "|"),
		strings.Join(strategyTitles(run), "|"),
		run.Rebuttal, confidence,
		"", "",
	})
}

// WriteFeedback appends one feedback row referencing the run.
func (m *CSVMirror) WriteFeedback(_ context.Context, run *pipeline.Run, fb replying.Feedback) error {
	return m.append([]string{
		"feedback", time.Now().UTC().Format(time.RFC3339),
		run.SessionID.String(), strconv.Itoa(run.Version),
		"", "", "", "", "", "", "", "", "", "", "",
		strconv.Itoa(fb.Rating), fb.Text,
	})
}

func (m *CSVMirror) append(row []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return &WriteError{Op: "create mirror directory", Cause: err}
	}

	writeHeader := false
	if info, err := os.Stat(m.path); os.IsNotExist(err) || (err == nil && info.Size() == 0) {
		writeHeader = true
	}

	f, err := os.OpenFile(m.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return &WriteError{Op: "open mirror file", Cause: err}
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(csvHeader); err != nil {
			return &WriteError{Op: "write mirror header", Cause: err}
		}
	}
	if err := w.Write(row); err != nil {
		return &WriteError{Op: "write mirror row", Cause: err}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return &WriteError{Op: "flush mirror", Cause: err}
	}
	return nil
}

func strategyTitles(run *pipeline.Run) []string {
	titles := make([]string, 0, len(run.MatchedStrategies))
	for _, st := range run.MatchedStrategies {
		titles = append(titles, st.Title)
	}
	return titles
}
