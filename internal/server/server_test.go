package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueprintmaster/blueprint/internal/analysis"
	"github.com/blueprintmaster/blueprint/internal/config"
	"github.com/blueprintmaster/blueprint/internal/llm"
	"github.com/blueprintmaster/blueprint/internal/stats"
)

type stubOCR struct{}

func (stubOCR) Recognize(context.Context, []byte) (string, error) { return "文档内容", nil }

type stubStreamer struct{}

func (stubStreamer) ChatStream(context.Context, []llm.Message, float64) (<-chan llm.StreamDelta, error) {
	out := make(chan llm.StreamDelta, 1)
	out <- llm.StreamDelta{Content: "分析"}
	close(out)
	return out, nil
}

func (stubStreamer) GetModel() string { return "stub" }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Security.SecurityMode = "development"

	store, err := stats.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	pipeline := analysis.NewService(analysis.Config{
		OCR:               stubOCR{},
		LLM:               stubStreamer{},
		Logger:            zerolog.Nop(),
		HeartbeatInterval: 5 * time.Millisecond,
	})
	return New(cfg, pipeline, store, zerolog.Nop())
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestMethodRouting(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/blueprint/analyze", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGenerateMindmapRoute(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/blueprint/generate_mindmap",
		strings.NewReader(`{"content":"# 报告"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "分析")
	assert.Contains(t, rec.Body.String(), "[DONE]")
}

func TestDashboardRoutes(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/api/dashboard/books", "/api/dashboard/usage"} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
