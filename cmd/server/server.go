package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/liamcoop/scoreform/internal/logger"
	"github.com/liamcoop/scoreform/rules"
	"github.com/liamcoop/scoreform/session"
)

type Server struct {
	sessions *session.Manager
	compiler *rules.Compiler
	router   *chi.Mux
}

func NewServer(sessions *session.Manager, compiler *rules.Compiler) *Server {
	s := &Server{
		sessions: sessions,
		compiler: compiler,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/api/v1/health", s.handleHealth)

	r.Route("/api/v1/sessions", func(r chi.Router) {
		r.Get("/", s.handleListSessions)
		r.Post("/", s.handleCreateSession)

		r.Route("/{sessionId}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleCloseSession)

			r.Post("/rules", s.handleAddRule)
			r.Delete("/rules/{index}", s.handleDeleteRule)
			r.Put("/rules/{index}/key", s.handleUpdateKey)
			r.Put("/rules/{index}/output/{field}", s.handleUpdateOutputField)
			r.Put("/combinator", s.handleSetCombinator)

			r.Post("/submit", s.handleSubmit)
			r.Get("/output", s.handleGetOutput)
		})
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ids, err := s.sessions.List()
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "unhealthy", err, nil)
		return
	}

	respondJSON(w, http.StatusOK, HealthResponse{
		Status:         "healthy",
		SessionsActive: len(ids),
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.sessions.List()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list sessions", err, nil)
		return
	}

	respondJSON(w, http.StatusOK, SessionsListResponse{Sessions: ids})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Create()
	if err != nil {
		respondError(w, statusFor(err), "failed to create session", err, nil)
		return
	}

	respondJSON(w, http.StatusCreated, SessionResponse{Snapshot: sess.Snapshot()})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, SessionResponse{Snapshot: sess.Snapshot()})
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Close(chi.URLParam(r, "sessionId")); err != nil {
		respondError(w, statusFor(err), "failed to close session", err, nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddRule(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, http.StatusCreated, func(m *rules.RuleSetModel) error {
		m.AddRule()
		return nil
	})
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}

	s.apply(w, r, http.StatusOK, func(m *rules.RuleSetModel) error {
		return m.DeleteRule(index)
	})
}

func (s *Server) handleUpdateKey(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}

	var req UpdateKeyRequest
	if !decode(w, r, &req) {
		return
	}

	s.apply(w, r, http.StatusOK, func(m *rules.RuleSetModel) error {
		key, err := rules.ParseKey(req.Key)
		if err != nil {
			return err
		}
		return m.UpdateRuleKey(index, key)
	})
}

func (s *Server) handleUpdateOutputField(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}

	field, err := rules.ParseOutputField(chi.URLParam(r, "field"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid output field", err, nil)
		return
	}

	var req UpdateOutputFieldRequest
	if !decode(w, r, &req) {
		return
	}

	s.apply(w, r, http.StatusOK, func(m *rules.RuleSetModel) error {
		return m.UpdateOutputField(index, field, req.Value)
	})
}

func (s *Server) handleSetCombinator(w http.ResponseWriter, r *http.Request) {
	var req SetCombinatorRequest
	if !decode(w, r, &req) {
		return
	}

	s.apply(w, r, http.StatusOK, func(m *rules.RuleSetModel) error {
		c, err := rules.ParseCombinator(req.Combinator)
		if err != nil {
			return err
		}
		return m.SetCombinator(c)
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var (
		doc      *rules.SubmittedExpression
		compiled *rules.CompiledExpression
	)
	err := sess.Do(func(m *rules.RuleSetModel) error {
		var err error
		doc, err = m.SubmitWithCheck(func(candidate *rules.SubmittedExpression) error {
			var err error
			compiled, err = s.compiler.Compile(candidate)
			return err
		})
		return err
	})
	if err != nil {
		if errors.Is(err, rules.ErrValidation) {
			logger.WarnRejectedSubmit()
		}
		respondError(w, statusFor(err), "submission rejected", err, sess.Notifications())
		return
	}

	logger.Info("rule set submitted",
		"session_id", sess.ID,
		"rules", len(doc.Rules),
		"combinator", doc.Combinator,
	)

	respondJSON(w, http.StatusOK, SubmitResponse{
		Output:        doc,
		Expression:    compiled,
		Notifications: sess.Notifications(),
	})
}

func (s *Server) handleGetOutput(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	format, err := rules.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid format", err, nil)
		return
	}

	snap := sess.Snapshot()
	if snap.Output == nil || !snap.OutputVisible {
		respondError(w, http.StatusNotFound, "nothing submitted yet", nil, nil)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	if err := rules.Render(w, snap.Output, format); err != nil {
		logger.Error("failed to render output", "session_id", sess.ID, "error", err)
	}
}

// apply runs one model event and responds with the resulting snapshot
func (s *Server) apply(w http.ResponseWriter, r *http.Request, status int, fn func(m *rules.RuleSetModel) error) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	if err := sess.Do(fn); err != nil {
		if errors.Is(err, rules.ErrInvariantViolation) {
			logger.WarnRejectedDelete()
		}
		respondError(w, statusFor(err), "operation rejected", err, sess.Notifications())
		return
	}

	respondJSON(w, status, SessionResponse{Snapshot: sess.Snapshot()})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "sessionId"))
	if err != nil {
		respondError(w, http.StatusNotFound, "session not found", err, nil)
		return nil, false
	}
	return sess, true
}

func indexParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		respondError(w, http.StatusBadRequest, "index must be a non-negative integer", err, nil)
		return 0, false
	}
	return index, true
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err, nil)
		return false
	}
	return true
}

// statusFor maps rule-set errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrTooManySessions):
		return http.StatusServiceUnavailable
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, rules.ErrInvariantViolation):
		return http.StatusConflict
	case errors.Is(err, rules.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, rules.ErrPrecondition):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string, err error, notifications []rules.Notification) {
	if status >= 500 {
		logger.ErrorHttp5xx()
		logger.Error(message, "status", status, "error", err)
	} else {
		logger.WarnHttp4xx()
	}

	response := ErrorResponse{
		Error:         message,
		Notifications: notifications,
	}
	if err != nil {
		response.Details = err.Error()
	}
	respondJSON(w, status, response)
}
