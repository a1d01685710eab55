package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"cooktube/internal/callbacktoken"
	"cooktube/internal/usertoken"
	"cooktube/internal/util"
	"cooktube/pkg/domain"
	"cooktube/services/recipe/internal/app"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	TokenVerifier  *usertoken.Verifier
	CallbackSecret string
}

// Server exposes the recipe HTTP endpoints.
type Server struct {
	app            *app.App
	tokenVerifier  *usertoken.Verifier
	callbackVerify *callbacktoken.Verifier
	mux            *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	callbackVerify, err := callbacktoken.NewVerifier(cfg.CallbackSecret, callbacktoken.DefaultLeeway)
	if err != nil {
		return nil, err
	}
	s := &Server{
		app:            cfg.App,
		tokenVerifier:  cfg.TokenVerifier,
		callbackVerify: callbackVerify,
		mux:            http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("recipe", util.WithCORS(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.Handle("/recipe", s.withUser(s.handleRecipes))
	s.mux.HandleFunc("/recipe/", s.handleRecipeSubpath)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type userHandler func(http.ResponseWriter, *http.Request, usertoken.Identity)

func (s *Server) withUser(next userHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.tokenVerifier == nil {
			writeError(w, http.StatusInternalServerError, "token verifier not configured")
			return
		}
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		identity, err := s.tokenVerifier.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, identity)
	})
}

func (s *Server) handleRecipes(w http.ResponseWriter, r *http.Request, user usertoken.Identity) {
	switch r.Method {
	case http.MethodPost:
		s.handleIngest(w, r, user)
	case http.MethodGet:
		s.handleList(w, user)
	default:
		methodNotAllowed(w)
	}
}

// /recipe/process or /recipe/{id}
func (s *Server) handleRecipeSubpath(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/recipe/")
	if rest == "" || strings.Contains(rest, "/") {
		notFound(w, "not found")
		return
	}
	if rest == "process" {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		s.handleProcess(w, r)
		return
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		notFound(w, "not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	s.withUser(func(w http.ResponseWriter, r *http.Request, user usertoken.Identity) {
		s.handleDetail(w, user, id)
	}).ServeHTTP(w, r)
}

type ingestRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request, user usertoken.Identity) {
	var req ingestRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "missing 'url' in request body")
		return
	}
	res, err := s.app.Ingest(user.UserID, req.URL)
	if err != nil {
		if errors.Is(err, app.ErrInvalidURL) {
			writeError(w, http.StatusBadRequest, "invalid YouTube URL")
			return
		}
		util.LoggerFromContext(r.Context()).Error("ingest failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	message := "Recipe linked to user"
	if res.IsNewRecipe {
		message = "Recipe created and linked to user"
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":       message,
		"recipe_id":     res.RecipeID,
		"user_id":       user.UserID,
		"video_id":      res.VideoID,
		"is_new_recipe": res.IsNewRecipe,
	})
}

func (s *Server) handleList(w http.ResponseWriter, user usertoken.Identity) {
	recipes, err := s.app.List(user.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"recipes": recipes,
		"count":   len(recipes),
	})
}

func (s *Server) handleDetail(w http.ResponseWriter, user usertoken.Identity, id int64) {
	recipe, err := s.app.Detail(user.UserID, id)
	if err != nil {
		if errors.Is(err, app.ErrNotFound) {
			notFound(w, "recipe not found or access denied")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

type processRequest struct {
	RecipeID    int64               `json:"recipe_id"`
	VideoID     string              `json:"video_id"`
	Title       string              `json:"title"`
	Name        string              `json:"name"`
	Channel     string              `json:"channel"`
	Items       []string            `json:"item"`
	Ingredients []domain.Ingredient `json:"ingredients"`
}

// handleProcess receives the enrichment callback. Instead of trusting any
// caller it demands a callback token signed with the shared secret and bound
// to the recipe id in the body.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	token, ok := callbacktoken.BearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	tokenRecipeID, err := s.callbackVerify.Verify(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req processRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.RecipeID == 0 {
		writeError(w, http.StatusBadRequest, "missing 'recipe_id' in request body")
		return
	}
	if req.RecipeID != tokenRecipeID {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := s.app.ProcessEnrichment(req.RecipeID, domain.Enrichment{
		VideoID:     req.VideoID,
		Title:       req.Title,
		Name:        req.Name,
		Channel:     req.Channel,
		Items:       req.Items,
		Ingredients: req.Ingredients,
	}); err != nil {
		util.LoggerFromContext(r.Context()).Error("apply enrichment failed", "recipe_id", req.RecipeID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Recipe updated successfully",
		"recipe_id": req.RecipeID,
		"video_id":  req.VideoID,
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func notFound(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusNotFound, msg)
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
	writeJSON(w, status, errorResponse{
		Error:     msg,
		Code:      errorCodeForRecipe(status),
		RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
	})
}

func errorCodeForRecipe(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "RECIPE_INVALID_REQUEST"
	case http.StatusUnauthorized:
		return "AUTH_INVALID_TOKEN"
	case http.StatusNotFound:
		return "RECIPE_NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "SYSTEM_METHOD_NOT_ALLOWED"
	default:
		if status >= http.StatusInternalServerError {
			return "SYSTEM_INTERNAL_ERROR"
		}
		return "REQUEST_ERROR"
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}
