package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/feedtide/feedtide/internal/config"
	"github.com/feedtide/feedtide/internal/domain"
	"github.com/feedtide/feedtide/internal/query"
	"github.com/feedtide/feedtide/internal/search"
)

// Server is the HTTP server that serves the search and timeline endpoints.
type Server struct {
	cfg        *config.Config
	engine     *search.Engine
	logger     *slog.Logger
	httpServer *http.Server
}

// NewServer creates a new HTTP server around the given search engine.
func NewServer(cfg *config.Config, engine *search.Engine, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		engine: engine,
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/search", s.handleSearch)
	mux.HandleFunc("GET /v1/feeds/{id}/posts", s.handleFeedPosts)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      withLogging(logger, mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start begins listening for HTTP requests. It blocks until the server is
// shut down or an error occurs.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "q parameter is required")
		return
	}

	params, ok := s.pageParams(w, r)
	if !ok {
		return
	}

	postIDs, err := s.engine.Search(r.Context(), q, params)
	if err != nil {
		s.writeSearchError(w, q, err)
		return
	}

	s.logger.Info("search request served", "viewer", params.ViewerID, "posts_returned", len(postIDs))
	writeJSON(w, http.StatusOK, toPostsResponse(postIDs))
}

func (s *Server) handleFeedPosts(w http.ResponseWriter, r *http.Request) {
	feedID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "feed id must be an integer")
		return
	}

	params, ok := s.pageParams(w, r)
	if !ok {
		return
	}

	postIDs, err := s.engine.FeedPosts(r.Context(), feedID, params)
	if err != nil {
		s.logger.Error("failed to get feed posts", "feed", feedID, "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "failed to get feed posts")
		return
	}

	writeJSON(w, http.StatusOK, toPostsResponse(postIDs))
}

// pageParams parses the request parameters shared by search and feed
// timelines. It writes the error response itself and reports ok=false on bad
// input.
func (s *Server) pageParams(w http.ResponseWriter, r *http.Request) (search.Params, bool) {
	params := search.Params{Limit: 50}

	if v := r.URL.Query().Get("viewer"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "InvalidRequest", "viewer must be a UUID")
			return params, false
		}
		params.ViewerID = id
	}

	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 || parsed > 100 {
			writeError(w, http.StatusBadRequest, "InvalidRequest", "limit must be between 1 and 100")
			return params, false
		}
		params.Limit = parsed
	}

	if o := r.URL.Query().Get("offset"); o != "" {
		parsed, err := strconv.Atoi(o)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "InvalidRequest", "offset must be a non-negative integer")
			return params, false
		}
		params.Offset = parsed
	}

	if v := r.URL.Query().Get("sort"); v != "" {
		sort := domain.SortOrder(v)
		if !sort.Valid() {
			writeError(w, http.StatusBadRequest, "InvalidRequest", "sort must be bumped or created")
			return params, false
		}
		params.Sort = sort
	}

	return params, true
}

// writeSearchError maps the search error taxonomy onto HTTP statuses. Bad
// queries and over-budget queries are the caller's fault, a missing viewer is
// an authorization failure, everything else is ours.
func (s *Server) writeSearchError(w http.ResponseWriter, q string, err error) {
	var syntaxErr *query.SyntaxError
	var complexityErr *search.ComplexityError
	var authErr *search.AuthError

	switch {
	case errors.As(err, &syntaxErr):
		s.logger.Warn("malformed search query", "q", q, "error", err)
		writeError(w, http.StatusBadRequest, "InvalidQuery", syntaxErr.Error())
	case errors.As(err, &complexityErr):
		s.logger.Warn("search query over complexity budget", "q", q, "cost", complexityErr.Cost)
		writeError(w, http.StatusBadRequest, "QueryTooComplex", complexityErr.Error())
	case errors.As(err, &authErr):
		writeError(w, http.StatusUnauthorized, "AuthRequired", authErr.Error())
	default:
		s.logger.Error("search failed", "q", q, "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "search failed")
	}
}

func toPostsResponse(postIDs []uuid.UUID) map[string]any {
	posts := make([]map[string]string, len(postIDs))
	for i, id := range postIDs {
		posts[i] = map[string]string{"post": id.String()}
	}
	return map[string]any{"posts": posts}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, map[string]string{
		"error":   errType,
		"message": message,
	})
}

func withLogging(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration", time.Since(start),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
