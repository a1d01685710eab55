package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"cooktube/internal/util"
	"cooktube/pkg/grocery"
)

// maxResults caps how many reshaped products a lookup returns.
const maxResults = 5

// Config wires required dependencies for the HTTP server.
type Config struct {
	Grocery *grocery.Client
}

// Server exposes the ingredient price lookup endpoint.
type Server struct {
	grocery *grocery.Client
	mux     *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{grocery: cfg.Grocery, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("ingredient", util.WithCORS(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/ingredient", s.handleSearch)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSearch proxies the keyword to the grocery search API. Upstream
// failures degrade to an empty list rather than an error response.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	keyword := strings.TrimSpace(r.URL.Query().Get("keyword"))
	if keyword == "" {
		writeJSON(w, http.StatusOK, []grocery.Product{})
		return
	}
	products, err := s.grocery.Search(r.Context(), keyword)
	if err != nil {
		util.LoggerFromContext(r.Context()).Warn("grocery search failed", "keyword", keyword, "err", err)
		writeJSON(w, http.StatusOK, []grocery.Product{})
		return
	}
	if len(products) > maxResults {
		products = products[:maxResults]
	}
	writeJSON(w, http.StatusOK, products)
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
	switch {
	case status == http.StatusMethodNotAllowed:
		code = "SYSTEM_METHOD_NOT_ALLOWED"
	case status >= http.StatusInternalServerError:
		code = "SYSTEM_INTERNAL_ERROR"
	}
	writeJSON(w, status, errorResponse{
		Error:     msg,
		Code:      code,
		RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
	})
}
