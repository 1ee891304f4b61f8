// Package store persists pipeline runs locally. The SQLite record store is
// the primary sink; a flat CSV mirror can be layered on top of it.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jonathan/reply-coach/internal/pipeline"
	"github.com/jonathan/reply-coach/internal/replying"
)

// Store is an append-only SQLite record store for pipeline runs. Each run
// writes one new row; feedback collected later updates only the rating and
// feedback columns of the identified row.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// applies pending migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite doesn't handle concurrent writers well
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

type migration struct {
	version string
	sql     string
}

var migrations = []migration{
	{
		version: "001_create_runs",
		sql: `CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			version INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL,
			comment TEXT NOT NULL,
			draft_reply TEXT NOT NULL,
			input_type TEXT NOT NULL,
			needs_clarification INTEGER NOT NULL,
			follow_up_question TEXT NOT NULL,
			message TEXT NOT NULL,
			explanation TEXT NOT NULL,
			tags TEXT NOT NULL,
			matched_tags TEXT NOT NULL,
			matched_strategies TEXT NOT NULL,
			rebuttal TEXT NOT NULL,
			eval_confidence REAL,
			eval_justification TEXT NOT NULL,
			eval_improvements TEXT NOT NULL,
			eval_ultimate_reply TEXT NOT NULL,
			rating INTEGER,
			feedback TEXT NOT NULL DEFAULT '',
			UNIQUE (session_id, version)
		);
		CREATE INDEX IF NOT EXISTS idx_runs_session ON runs (session_id, version);`,
	},
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	applied := make(map[string]bool)
	rows, err := s.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("query migrations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return fmt.Errorf("scan migration: %w", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %s: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %s: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", m.version, err)
		}
	}
	return nil
}

// AppendRun writes one run as a new record.
func (s *Store) AppendRun(ctx context.Context, run *pipeline.Run) error {
	tags, err := marshalStrings(run.Tags)
	if err != nil {
		return &WriteError{Op: "append run", Cause: err}
	}
	matchedTags, err := marshalStrings(run.MatchedTags)
	if err != nil {
		return &WriteError{Op: "append run", Cause: err}
	}
	titles := make([]string, 0, len(run.MatchedStrategies))
	for _, st := range run.MatchedStrategies {
		titles = append(titles, st.Title)
	}
	strategies, err := marshalStrings(titles)
	if err != nil {
		return &WriteError{Op: "append run", Cause: err}
	}

	var (
		evalConfidence *float64
		evalJust       string
		evalImprove    string
		evalUltimate   string
	)
	if run.Evaluation != nil {
		evalConfidence = run.Evaluation.ConfidenceScore
		evalJust = run.Evaluation.Justification
		evalImprove = run.Evaluation.SuggestedImprovements
		evalUltimate = run.Evaluation.UltimateReply
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (
			id, session_id, version, created_at,
			comment, draft_reply, input_type,
			needs_clarification, follow_up_question, message, explanation,
			tags, matched_tags, matched_strategies, rebuttal,
			eval_confidence, eval_justification, eval_improvements, eval_ultimate_reply
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.SessionID.String(), run.Version, run.CreatedAt.UTC(),
		run.Input.Comment, run.Input.Draft, string(run.Reply.InputType),
		boolToInt(run.Reply.NeedsClarification), run.Reply.FollowUpQuestion,
		run.Reply.Message, run.Reply.Explanation,
		tags, matchedTags, strategies, run.Rebuttal,
		evalConfidence, evalJust, evalImprove, evalUltimate,
	)
	if err != nil {
		return &WriteError{Op: "append run", Cause: err}
	}
	return nil
}

// AttachFeedback records the user's rating and free text against an
// existing run record. Only the rating and feedback columns change.
func (s *Store) AttachFeedback(ctx context.Context, runID uuid.UUID, fb replying.Feedback) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET rating = ?, feedback = ? WHERE id = ?`,
		fb.Rating, fb.Text, runID.String(),
	)
	if err != nil {
		return &WriteError{Op: "attach feedback", Cause: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &WriteError{Op: "attach feedback", Cause: err}
	}
	if n == 0 {
		return &NotFoundError{RunID: runID}
	}
	return nil
}

// Record is one persisted run row.
type Record struct {
	ID                 uuid.UUID
	SessionID          uuid.UUID
	Version            int
	CreatedAt          time.Time
	Comment            string
	Draft              string
	InputType          string
	NeedsClarification bool
	FollowUpQuestion   string
	Message            string
	Explanation        string
	Tags               []string
	MatchedTags        []string
	MatchedStrategies  []string
	Rebuttal           string
	EvalConfidence     *float64
	EvalJustification  string
	Rating             *int
	Feedback           string
}

// ListRuns returns all records for a session in version order.
func (s *Store) ListRuns(ctx context.Context, sessionID uuid.UUID) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, version, created_at,
			comment, draft_reply, input_type,
			needs_clarification, follow_up_question, message, explanation,
			tags, matched_tags, matched_strategies, rebuttal,
			eval_confidence, eval_justification, rating, feedback
		 FROM runs WHERE session_id = ? ORDER BY version`,
		sessionID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var (
		rec                   Record
		id, sessionID         string
		needsClarification    int
		tags, matched, strats string
	)
	err := rows.Scan(
		&id, &sessionID, &rec.Version, &rec.CreatedAt,
		&rec.Comment, &rec.Draft, &rec.InputType,
		&needsClarification, &rec.FollowUpQuestion, &rec.Message, &rec.Explanation,
		&tags, &matched, &strats, &rec.Rebuttal,
		&rec.EvalConfidence, &rec.EvalJustification, &rec.Rating, &rec.Feedback,
	)
	if err != nil {
		return Record{}, fmt.Errorf("scan run: %w", err)
	}

	if rec.ID, err = uuid.Parse(id); err != nil {
		return Record{}, fmt.Errorf("parse run id: %w", err)
	}
	if rec.SessionID, err = uuid.Parse(sessionID); err != nil {
		return Record{}, fmt.Errorf("parse session id: %w", err)
	}
	rec.NeedsClarification = needsClarification != 0
	if rec.Tags, err = unmarshalStrings(tags); err != nil {
		return Record{}, err
	}
	if rec.MatchedTags, err = unmarshalStrings(matched); err != nil {
		return Record{}, err
	}
	if rec.MatchedStrategies, err = unmarshalStrings(strats); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func marshalStrings(ss []string) (string, error) {
	if ss == nil {
		ss = []string{}
	}
	b, err := json.Marshal(ss)
	if err != nil {
		return "", fmt.Errorf("marshal string list: %w", err)
	}
	return string(b), nil
}

func unmarshalStrings(s string) ([]string, error) {
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("unmarshal string list: %w", err)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
