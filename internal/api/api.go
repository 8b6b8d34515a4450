// Package api exposes the claim checker over HTTP with JSON bodies.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/session"
)

const (
	minClaimChars   = 5
	minMessageChars = 3
	maxBodyBytes    = 1 << 20
	readyTimeout    = 5 * time.Second
)

// Service is the part of the pipeline the HTTP layer needs
type Service interface {
	CheckClaim(ctx context.Context, text string) (*model.ClaimResult, error)
	Chat(ctx context.Context, req model.ChatRequest) (*model.ChatResult, error)
	Session(ctx context.Context, id string) (*model.Session, error)
	Ready(ctx context.Context) bool
}

// CheckRequest is the body of POST /check
type CheckRequest struct {
	Text string `json:"text"`
}

// ChatRequest is the body of POST /chat
type ChatRequest struct {
	Message      string   `json:"message"`
	SessionID    string   `json:"session_id"`
	ExpandOnline *bool    `json:"expand_online,omitempty"`
	Days         int      `json:"days,omitempty"`
	Context      string   `json:"context,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
}

// ErrorResponse is returned with every non-2xx status
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Server serves the claim-check API
type Server struct {
	svc    Service
	logger *zap.Logger
}

// NewServer creates a server
func NewServer(svc Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{svc: svc, logger: logger.With(zap.String("component", "api"))}
}

// Register wires the endpoints onto mux
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /check", s.handleCheck)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /sessions/{id}", s.handleSession)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())
}

// Handler returns a mux with every endpoint registered
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return mux
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if !s.decode(w, r, &req) {
		return
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(req.Text)); n < minClaimChars {
		s.writeError(w, model.Errorf(model.CodeInvalidRequest, "check", "text must be at least %d characters", minClaimChars))
		return
	}

	res, err := s.svc.CheckClaim(r.Context(), req.Text)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !s.decode(w, r, &req) {
		return
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(req.Message)); n < minMessageChars {
		s.writeError(w, model.Errorf(model.CodeInvalidRequest, "chat", "message must be at least %d characters", minMessageChars))
		return
	}
	if req.Days < 0 {
		s.writeError(w, model.Errorf(model.CodeInvalidRequest, "chat", "days must not be negative"))
		return
	}

	res, err := s.svc.Chat(r.Context(), model.ChatRequest{
		Message:      req.Message,
		SessionID:    req.SessionID,
		ExpandOnline: req.ExpandOnline,
		Days:         req.Days,
		Context:      req.Context,
		Keywords:     req.Keywords,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.svc.Session(r.Context(), r.PathValue("id"))
	if errors.Is(err, session.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "session not found", Code: "NOT_FOUND"})
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()
	if !s.svc.Ready(ctx) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "reasoner unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.writeError(w, model.NewError(model.CodeInvalidRequest, "decode", fmt.Errorf("invalid body: %w", err)))
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := model.CodeOf(err)
	status := StatusFor(err)
	if status >= 500 {
		s.logger.Error("request failed", zap.String("code", string(code)), zap.Error(err))
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: string(code)})
}

// StatusFor maps an error onto an HTTP status
func StatusFor(err error) int {
	switch model.CodeOf(err) {
	case model.CodeInvalidRequest:
		return http.StatusBadRequest
	case model.CodeReasoningUnavailable:
		return http.StatusBadGateway
	case model.CodeIndexUnavailable:
		return http.StatusServiceUnavailable
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// client went away; the status is never read
		return 499
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
