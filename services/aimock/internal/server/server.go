package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"cooktube/internal/util"
	"cooktube/services/aimock/internal/app"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App
}

// Server exposes the mock enrichment producer endpoint.
type Server struct {
	app *app.App
	mux *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{app: cfg.App, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("aimock", util.WithCORS(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/aimock", s.handleStart)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type startRequest struct {
	VideoID  string `json:"video_id"`
	RecipeID int64  `json:"recipe_id"`
}

// handleStart acknowledges immediately; the enrichment payload is delivered
// by the queue worker after the configured delay.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req startRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if _, err := s.app.Start(r.Context(), req.VideoID, req.RecipeID); err != nil {
		if errors.Is(err, app.ErrInvalidVideoID) {
			writeError(w, http.StatusBadRequest, "invalid video_id")
			return
		}
		util.LoggerFromContext(r.Context()).Error("schedule enrichment failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Processing started",
		"video_id":  req.VideoID,
		"recipe_id": req.RecipeID,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	code := "REQUEST_ERROR"
	switch status {
	case http.StatusBadRequest:
		code = "AIMOCK_INVALID_REQUEST"
	case http.StatusMethodNotAllowed:
		code = "SYSTEM_METHOD_NOT_ALLOWED"
	default:
		if status >= http.StatusInternalServerError {
			code = "SYSTEM_INTERNAL_ERROR"
		}
	}
	writeJSON(w, status, errorResponse{
		Error:     msg,
		Code:      code,
		RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
	})
}
