package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/reply-coach/internal/pipeline"
	"github.com/jonathan/reply-coach/internal/replying"
	"github.com/jonathan/reply-coach/internal/session"
)

// GenerateRequest is the request body for /sessions/{id}/generate
type GenerateRequest struct {
	Comment string `json:"comment"`
	Draft   string `json:"draft_reply"`
}

// RegenerateRequest is the optional request body for /sessions/{id}/regenerate
type RegenerateRequest struct {
	Rating   int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Feedback string `json:"feedback"`
}

// FeedbackRequest is the request body for /sessions/{id}/feedback. Rating
// and free text are each optional, but at least one must be present.
type FeedbackRequest struct {
	Rating   int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Feedback string `json:"feedback"`
}

// NavigateRequest is the request body for /sessions/{id}/navigate
type NavigateRequest struct {
	Direction string `json:"direction" validate:"required,oneof=prev next"`
}

// SessionResponse describes a session and its current state
type SessionResponse struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
}

// EvaluationView is the evaluation section of a run response
type EvaluationView struct {
	ConfidenceScore       *float64 `json:"confidence_score"`
	Justification         string   `json:"justification"`
	SuggestedImprovements string   `json:"suggested_improvements,omitempty"`
	UltimateReply         string   `json:"ultimate_reply,omitempty"`
}

// RunView is the JSON shape of one run
type RunView struct {
	RunID              string          `json:"run_id"`
	Version            int             `json:"version"`
	CreatedAt          string          `json:"created_at"`
	Comment            string          `json:"comment,omitempty"`
	Draft              string          `json:"draft_reply,omitempty"`
	NeedsClarification bool            `json:"needs_clarification"`
	FollowUpQuestion   string          `json:"follow_up_question,omitempty"`
	Message            string          `json:"message,omitempty"`
	Explanation        string          `json:"explanation,omitempty"`
	InputType          string          `json:"input_type,omitempty"`
	Tags               []string        `json:"tags"`
	MatchedTags        []string        `json:"matched_tags"`
	MatchedStrategies  []string        `json:"matched_strategies"`
	Rebuttal           string          `json:"rebuttal,omitempty"`
	Evaluation         *EvaluationView `json:"evaluation,omitempty"`
}

// RunResponse wraps a run with the session's resulting state
type RunResponse struct {
	SessionID string  `json:"session_id"`
	State     string  `json:"state"`
	Run       RunView `json:"run"`
}

// NavigateResponse is the response for /sessions/{id}/navigate
type NavigateResponse struct {
	SessionID string   `json:"session_id"`
	ViewIndex int      `json:"view_index"`
	Run       *RunView `json:"run"`
}

// HistoryResponse is the response for /sessions/{id}/history
type HistoryResponse struct {
	SessionID string    `json:"session_id"`
	State     string    `json:"state"`
	Runs      []RunView `json:"runs"`
}

func runView(run *pipeline.Run) RunView {
	v := RunView{
		RunID:              run.ID.String(),
		Version:            run.Version,
		CreatedAt:          run.CreatedAt.UTC().Format(time.RFC3339),
		Comment:            run.Input.Comment,
		Draft:              run.Input.Draft,
		NeedsClarification: run.Reply.NeedsClarification,
		FollowUpQuestion:   run.Reply.FollowUpQuestion,
		Message:            run.Reply.Message,
		Explanation:        run.Reply.Explanation,
		InputType:          string(run.Reply.InputType),
		Tags:               emptyIfNil(run.Tags),
		MatchedTags:        emptyIfNil(run.MatchedTags),
		Rebuttal:           run.Rebuttal,
	}
	titles := make([]string, 0, len(run.MatchedStrategies))
	for _, st := range run.MatchedStrategies {
		titles = append(titles, st.Title)
	}
	v.MatchedStrategies = titles
	if run.Evaluation != nil {
		v.Evaluation = &EvaluationView{
			ConfidenceScore:       run.Evaluation.ConfidenceScore,
			Justification:         run.Evaluation.Justification,
			SuggestedImprovements: run.Evaluation.SuggestedImprovements,
			UltimateReply:         run.Evaluation.UltimateReply,
		}
	}
	return v
}

func emptyIfNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

// handleCreateSession starts a new session
func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	sess := s.manager.Create()
	s.jsonResponse(w, http.StatusCreated, SessionResponse{
		SessionID: sess.ID().String(),
		State:     string(sess.State()),
	})
}

// handleDeleteSession drops a session; persisted records stay
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := parseSessionID(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if err := s.manager.Delete(id); err != nil {
		s.errorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGenerate runs the pipeline for a fresh input
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, &ErrValidation{Field: "body", Message: "invalid request body: " + err.Error()})
		return
	}

	run, err := sess.Generate(r.Context(), replying.Input{Comment: req.Comment, Draft: req.Draft})
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, RunResponse{
		SessionID: sess.ID().String(),
		State:     string(sess.State()),
		Run:       runView(run),
	})
}

// handleRegenerate re-runs the pipeline on the retained input, optionally
// conditioned on feedback supplied in the body
func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	var fb *replying.Feedback
	var req RegenerateRequest
	switch err := json.NewDecoder(r.Body).Decode(&req); {
	case errors.Is(err, io.EOF):
		// empty body: reuse the feedback last sent, if any
	case err != nil:
		s.errorResponse(w, &ErrValidation{Field: "body", Message: "invalid request body: " + err.Error()})
		return
	default:
		if err := s.validate.Struct(req); err != nil {
			s.errorResponse(w, &ErrValidation{Field: "rating", Message: err.Error()})
			return
		}
		if req.Rating != 0 || req.Feedback != "" {
			fb = &replying.Feedback{Rating: req.Rating, Text: req.Feedback}
		}
	}

	run, err := sess.Regenerate(r.Context(), fb)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, RunResponse{
		SessionID: sess.ID().String(),
		State:     string(sess.State()),
		Run:       runView(run),
	})
}

// handleFeedback attaches a rating to the current run without regenerating
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, &ErrValidation{Field: "body", Message: "invalid request body: " + err.Error()})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.errorResponse(w, &ErrValidation{Field: "rating", Message: err.Error()})
		return
	}
	if req.Rating == 0 && req.Feedback == "" {
		s.errorResponse(w, &ErrValidation{Field: "body", Message: "feedback requires a rating or text"})
		return
	}

	if err := sess.SendFeedback(r.Context(), replying.Feedback{Rating: req.Rating, Text: req.Feedback}); err != nil {
		s.errorResponse(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, SessionResponse{
		SessionID: sess.ID().String(),
		State:     string(sess.State()),
	})
}

// handleNavigate moves the browsable view over past runs
func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	var req NavigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, &ErrValidation{Field: "body", Message: "invalid request body: " + err.Error()})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.errorResponse(w, &ErrValidation{Field: "direction", Message: err.Error()})
		return
	}

	dir := session.DirPrev
	if req.Direction == "next" {
		dir = session.DirNext
	}

	idx := sess.Navigate(dir)
	resp := NavigateResponse{
		SessionID: sess.ID().String(),
		ViewIndex: idx,
	}
	if run := sess.ViewRun(); run != nil {
		v := runView(run)
		resp.Run = &v
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleHistory returns all of the session's runs in order
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	history := sess.History()
	runs := make([]RunView, 0, len(history))
	for _, run := range history {
		runs = append(runs, runView(run))
	}
	s.jsonResponse(w, http.StatusOK, HistoryResponse{
		SessionID: sess.ID().String(),
		State:     string(sess.State()),
		Runs:      runs,
	})
}

func (s *Server) session(r *http.Request) (*session.Session, error) {
	id, err := parseSessionID(r)
	if err != nil {
		return nil, err
	}
	return s.manager.Get(id)
}

func parseSessionID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, &ErrValidation{Field: "id", Message: "invalid session ID"}
	}
	return id, nil
}
