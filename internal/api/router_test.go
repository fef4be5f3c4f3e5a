package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/askstream/internal/api/middleware"
	"github.com/liliang-cn/askstream/internal/chat"
	"github.com/liliang-cn/askstream/internal/config"
	"github.com/liliang-cn/askstream/internal/domain"
	"github.com/liliang-cn/askstream/internal/metrics"
	"github.com/liliang-cn/askstream/internal/repository"
	"github.com/liliang-cn/askstream/internal/service"
	"github.com/liliang-cn/askstream/internal/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var responderConfig = config.ResponderConfig{
	ChunkWords: 2,
	Fallback:   "I don't know.",
	Scripts: []config.Script{{
		Keywords: []string{"refund"},
		Answer:   "Refunds are available within 30 days [1].",
		Sources:  []config.ScriptSource{{Title: "Refund policy", URL: "https://example.com/refunds"}},
		Steps: []config.ScriptStep{
			{Type: "search", Title: "Searching documents"},
			{Type: "rank", Title: "Ranking results"},
		},
	}},
}

type testServer struct {
	router *gin.Engine
	reg    *prometheus.Registry
}

func newTestServer(t *testing.T, limiter *middleware.RateLimiter) *testServer {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "askstream.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	sites := repository.NewSiteRepository(db)
	widgetService := service.NewWidgetService("http://localhost", sites)
	require.NoError(t, widgetService.RegisterSites([]domain.Site{{Token: "tok", Name: "Docs"}}))
	streamService := service.NewStreamService(sites, repository.NewConversationRepository(db),
		service.NewScriptedResponder(responderConfig), nil, m)

	router := SetupRouter(widgetService, streamService, RouterConfig{
		APIKey:       "secret",
		AllowOrigins: []string{"https://docs.example.com"},
		RateLimiter:  limiter,
		Gatherer:     reg,
	})
	return &testServer{router: router, reg: reg}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestWidgetConfig(t *testing.T) {
	s := newTestServer(t, nil)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/widget/tok/config", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp service.WidgetConfigResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Docs", resp.Name)
	assert.Equal(t, "tok", resp.Token)
}

func TestUnknownSite(t *testing.T) {
	s := newTestServer(t, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/widget/nope/chat/stream", strings.NewReader(`{"message":"hi"}`))
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"message":"site not found"}`, w.Body.String())
}

func TestChatStream_BadRequest(t *testing.T) {
	s := newTestServer(t, nil)

	for _, body := range []string{`{}`, `not json`, `{"message":"   "}`} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/c/tok/chat/stream", strings.NewReader(body))
		s.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)

		var errBody domain.ErrorBody
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errBody))
		assert.NotEmpty(t, errBody.Message)
	}
}

func TestChatStream_Frames(t *testing.T) {
	s := newTestServer(t, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/widget/tok/chat/stream",
		strings.NewReader(`{"message":"refund please"}`))
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()
	assert.True(t, strings.HasPrefix(body, `data: {"type":"status"`))
	assert.Contains(t, body, `"type":"sources"`)
	assert.Contains(t, body, `"type":"done","conversationId":"`)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, middleware.NewRateLimiter(1, 1))

	get := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/widget/tok/config", nil))
		return w
	}
	assert.Equal(t, http.StatusOK, get().Code)

	w := get()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"message":"rate limit exceeded"}`, w.Body.String())
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/widget/tok/chat/stream", nil)
	req.Header.Set("Origin", "https://docs.example.com")
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://docs.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	s.router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsRequiresAPIKey(t *testing.T) {
	s := newTestServer(t, nil)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Authorization", "Bearer secret")
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestClientAgainstServer(t *testing.T) {
	s := newTestServer(t, nil)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	store := session.NewMemoryStore()
	client := chat.New(chat.Config{APIBase: srv.URL, Token: "tok"}, chat.WithStore(store))

	result, err := client.Send(context.Background(), "What is the refund policy?")
	require.NoError(t, err)
	require.Equal(t, chat.OutcomeCompleted, result.Outcome)

	msg := result.Message
	assert.Equal(t, "Refunds are available within 30 days [1].", msg.Content)
	require.Len(t, msg.Citations, 1)
	assert.True(t, msg.Citations[0].Navigable())
	require.Len(t, msg.ReasoningSteps, 2)
	for _, step := range msg.ReasoningSteps {
		assert.Equal(t, domain.StepCompleted, step.Status)
	}

	first := client.ConversationID()
	require.NotEmpty(t, first)
	stored, ok, err := store.Get(session.Key(chat.DefaultNamespace, "tok"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, first, stored)

	// a fresh client on the same store continues the conversation
	again := chat.New(chat.Config{APIBase: srv.URL, Token: "tok", Mode: chat.ModeIntegration}, chat.WithStore(store))
	result, err = again.Send(context.Background(), "Anything else?")
	require.NoError(t, err)
	assert.Equal(t, chat.OutcomeCompleted, result.Outcome)
	assert.Equal(t, "I don't know.", result.Message.Content)
	assert.Empty(t, result.Message.Citations)
	assert.Equal(t, first, again.ConversationID())

	again.Reset()
	_, ok, err = store.Get(session.Key(chat.DefaultNamespace, "tok"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClientAgainstServer_UnknownToken(t *testing.T) {
	s := newTestServer(t, nil)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	client := chat.New(chat.Config{APIBase: srv.URL, Token: "missing"})
	result, err := client.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, chat.OutcomeFailed, result.Outcome)
	assert.Equal(t, "site not found", client.Snapshot().Error)
	assert.Equal(t, chat.ApologyMessage, result.Message.Content)
}
