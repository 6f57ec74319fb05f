package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedtide/feedtide/internal/config"
	"github.com/feedtide/feedtide/internal/domain"
	"github.com/feedtide/feedtide/internal/search"
	"github.com/feedtide/feedtide/internal/timeline"
	"github.com/feedtide/feedtide/internal/visibility"
)

type stubResolver struct{}

func (stubResolver) AccountIDs(_ context.Context, names []string) (map[string]uuid.UUID, error) {
	return map[string]uuid.UUID{}, nil
}

func (stubResolver) FeedIDs(_ context.Context, _ []uuid.UUID, _ []string) ([]int64, error) {
	return nil, nil
}

func (stubResolver) ViewerFeedIDs(_ context.Context, _ uuid.UUID, _ string) ([]int64, error) {
	return nil, nil
}

type stubContexts struct{}

func (stubContexts) LoadContext(_ context.Context, viewerID uuid.UUID) (visibility.Ctx, error) {
	vc := visibility.Anonymous()
	vc.ViewerID = viewerID
	return vc, nil
}

type stubRepo struct {
	rows []domain.TimedPostID
}

func (s *stubRepo) SelectPostIDs(_ context.Context, _ timeline.Selection) ([]domain.TimedPostID, error) {
	return s.rows, nil
}

func (s *stubRepo) SelectLocalBumpIDs(_ context.Context, _ uuid.UUID, _ timeline.Selection) ([]domain.TimedPostID, error) {
	return nil, nil
}

func testServer(rows []domain.TimedPostID) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	selector := timeline.NewSelector(&stubRepo{rows: rows}, logger, timeline.Options{})
	engine := search.NewEngine(stubResolver{}, stubContexts{}, selector, logger, search.Options{MaxComplexity: 5})
	return NewServer(&config.Config{Port: 0}, engine, logger)
}

func do(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, testServer(nil), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSearchReturnsPosts(t *testing.T) {
	id := uuid.New()
	s := testServer([]domain.TimedPostID{{ID: id, At: time.Now()}})

	rec := do(t, s, "/v1/search?q=cats")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Posts []struct {
			Post string `json:"post"`
		} `json:"posts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Posts, 1)
	assert.Equal(t, id.String(), body.Posts[0].Post)
}

func TestSearchErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantError  string
	}{
		{"missing q", "/v1/search", http.StatusBadRequest, "InvalidRequest"},
		{"unterminated quote", `/v1/search?q="open`, http.StatusBadRequest, "InvalidQuery"},
		{"over complexity budget", "/v1/search?q=a+b+c+d+e+f", http.StatusBadRequest, "QueryTooComplex"},
		{"viewer-bound query without viewer", "/v1/search?q=in-my:saves", http.StatusUnauthorized, "AuthRequired"},
		{"bad viewer id", "/v1/search?q=cats&viewer=nope", http.StatusBadRequest, "InvalidRequest"},
		{"bad limit", "/v1/search?q=cats&limit=9000", http.StatusBadRequest, "InvalidRequest"},
		{"bad sort", "/v1/search?q=cats&sort=sideways", http.StatusBadRequest, "InvalidRequest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, testServer(nil), tt.target)
			assert.Equal(t, tt.wantStatus, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantError, body["error"])
		})
	}
}

func TestFeedPosts(t *testing.T) {
	id := uuid.New()
	s := testServer([]domain.TimedPostID{{ID: id, At: time.Now()}})

	rec := do(t, s, "/v1/feeds/7/posts")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), id.String())

	rec = do(t, s, "/v1/feeds/seven/posts")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
