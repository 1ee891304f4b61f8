// Package remote mirrors run documents to a PostgreSQL store. The mirror
// is best-effort: callers log write failures and keep going, so an
// unreachable database never blocks the interactive flow.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/reply-coach/internal/pipeline"
	"github.com/jonathan/reply-coach/internal/replying"
)

const schema = `
CREATE TABLE IF NOT EXISTS run_documents (
	session_id UUID NOT NULL,
	version INTEGER NOT NULL,
	run_id UUID NOT NULL,
	document JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (session_id, version)
);
CREATE TABLE IF NOT EXISTS run_feedback (
	run_id UUID NOT NULL,
	session_id UUID NOT NULL,
	version INTEGER NOT NULL,
	rating INTEGER NOT NULL,
	feedback TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// Mirror wraps a PostgreSQL connection pool and writes one JSONB document
// per run. Documents are insert-only.
type Mirror struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool and ensures the mirror tables
// exist.
func Connect(ctx context.Context, databaseURL string) (*Mirror, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mirror database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping mirror database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create mirror tables: %w", err)
	}

	return &Mirror{pool: pool}, nil
}

// Close closes the connection pool.
func (m *Mirror) Close() {
	if m.pool != nil {
		m.pool.Close()
	}
}

// runDocument is the JSONB shape stored per run.
type runDocument struct {
	RunID             uuid.UUID          `json:"run_id"`
	SessionID         uuid.UUID          `json:"session_id"`
	Version           int                `json:"version"`
	CreatedAt         time.Time          `json:"created_at"`
	Input             replying.Input     `json:"input"`
	Tags              []string           `json:"tags"`
	MatchedTags       []string           `json:"matched_tags"`
	MatchedStrategies []string           `json:"matched_strategies"`
	Reply             *replying.Result   `json:"reply"`
	Rebuttal          string             `json:"rebuttal,omitempty"`
	Evaluation        *evaluationSummary `json:"evaluation,omitempty"`
}

type evaluationSummary struct {
	ConfidenceScore       *float64 `json:"confidence_score"`
	Justification         string   `json:"justification"`
	SuggestedImprovements string   `json:"suggested_improvements,omitempty"`
	UltimateReply         string   `json:"ultimate_reply,omitempty"`
}

// WriteRun inserts the run's document keyed by (session_id, version).
func (m *Mirror) WriteRun(ctx context.Context, run *pipeline.Run) error {
	titles := make([]string, 0, len(run.MatchedStrategies))
	for _, st := range run.MatchedStrategies {
		titles = append(titles, st.Title)
	}

	doc := runDocument{
		RunID:             run.ID,
		SessionID:         run.SessionID,
		Version:           run.Version,
		CreatedAt:         run.CreatedAt.UTC(),
		Input:             run.Input,
		Tags:              run.Tags,
		MatchedTags:       run.MatchedTags,
		MatchedStrategies: titles,
		Reply:             run.Reply,
		Rebuttal:          run.Rebuttal,
	}
	if run.Evaluation != nil {
		doc.Evaluation = &evaluationSummary{
			ConfidenceScore:       run.Evaluation.ConfidenceScore,
			Justification:         run.Evaluation.Justification,
			SuggestedImprovements: run.Evaluation.SuggestedImprovements,
			UltimateReply:         run.Evaluation.UltimateReply,
		}
	}

	jsonBytes, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal run document: %w", err)
	}

	_, err = m.pool.Exec(ctx,
		`INSERT INTO run_documents (session_id, version, run_id, document)
		 VALUES ($1, $2, $3, $4)`,
		run.SessionID, run.Version, run.ID, jsonBytes,
	)
	if err != nil {
		return fmt.Errorf("failed to write run document: %w", err)
	}
	return nil
}

// WriteFeedback inserts one feedback row referencing the run.
func (m *Mirror) WriteFeedback(ctx context.Context, run *pipeline.Run, fb replying.Feedback) error {
	_, err := m.pool.Exec(ctx,
		`INSERT INTO run_feedback (run_id, session_id, version, rating, feedback)
		 VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.SessionID, run.Version, fb.Rating, fb.Text,
	)
	if err != nil {
		return fmt.Errorf("failed to write feedback: %w", err)
	}
	return nil
}
