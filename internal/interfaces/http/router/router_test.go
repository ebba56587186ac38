package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"story-studio/internal/application/plan"
	"story-studio/internal/application/story"
	"story-studio/internal/config"
	"story-studio/internal/domain/entity"
	"story-studio/internal/infrastructure/persistence/memory"
	"story-studio/internal/interfaces/http/handler"
	"story-studio/internal/interfaces/http/middleware"
	"story-studio/internal/interfaces/http/view"
)

type fakeBackend struct {
	mu      sync.Mutex
	created []string
	calls   []entity.GenerationRequest
	stories map[string]*entity.Story
	updates map[string]string
	frames  []entity.ChatFrame
}

func (f *fakeBackend) Generate(_ context.Context, req entity.GenerationRequest) (*entity.GenerationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if len(f.created) == 0 {
		return &entity.GenerationResult{}, nil
	}
	id := f.created[0]
	f.created = f.created[1:]
	if id == "" {
		return &entity.GenerationResult{}, nil
	}
	return &entity.GenerationResult{Created: &entity.CreatedStory{ID: id}}, nil
}

func (f *fakeBackend) GetStory(_ context.Context, id string) (*entity.Story, error) {
	return f.stories[id], nil
}

func (f *fakeBackend) UpdateStory(_ context.Context, id string, patch entity.StoryPatch) (*entity.Story, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updates == nil {
		f.updates = map[string]string{}
	}
	f.updates[id] = patch.Content
	return &entity.Story{ID: id, Content: patch.Content}, nil
}

func (f *fakeBackend) StartChat(context.Context, entity.ChatRequest) (*entity.ChatSession, error) {
	return &entity.ChatSession{SocketAddress: "wss://example/abc"}, nil
}

func (f *fakeBackend) StreamChat(_ context.Context, _ string, fn func(entity.ChatFrame) error) error {
	for _, fr := range f.frames {
		if err := fn(fr); err != nil {
			return err
		}
	}
	return nil
}

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return false, nil
}

type failingCheck struct{}

func (failingCheck) HealthCheck(context.Context) error { return errors.New("connection refused") }

type options struct {
	plans   []string
	proxy   *config.ProxyConfig
	limiter bool
	checks  map[string]handler.HealthChecker
}

func newTestRouter(t *testing.T, backend *fakeBackend, opts options) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if len(opts.plans) == 0 {
		opts.plans = []string{plan.Abstract}
	}
	cfg := &config.Config{
		App:   config.AppConfig{Name: "story-studio", Env: "test"},
		Story: config.StoryConfig{Plans: opts.plans, SessionTTL: time.Hour, CookieName: "story_session"},
		Security: config.SecurityConfig{
			RateLimit: config.RateLimitConfig{Enabled: opts.limiter, RequestsPerMinute: 1},
		},
	}

	registry := plan.NewRegistry()
	plans, err := registry.Resolve(opts.plans)
	require.NoError(t, err)

	orchestrator := story.NewOrchestrator(backend, memory.NewSessionStore(time.Hour), plans)
	editor := story.NewEditor(backend)

	handlers := Handlers{
		Health: handler.NewHealthHandler("test", opts.checks),
		Page:   handler.NewPageHandler("Capitol AI", orchestrator, editor),
		Story:  handler.NewStoryHandler(orchestrator, editor),
		Plan:   handler.NewPlanHandler(registry, opts.plans),
		Chat:   handler.NewChatHandler(story.NewChatRelay(backend, registry)),
	}
	if opts.proxy != nil {
		handlers.Proxy, err = handler.NewProxyHandler(*opts.proxy)
		require.NoError(t, err)
	}

	tmpl, err := view.Templates()
	require.NoError(t, err)

	var limiter middleware.RateLimiter
	if opts.limiter {
		limiter = denyLimiter{}
	}
	return New(cfg, handlers, tmpl, limiter).Engine()
}

func do(engine http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func formPost(target string, values url.Values, cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "story_session" {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestHomeSubmitRedirectsAndListsStory(t *testing.T) {
	backend := &fakeBackend{created: []string{"abc123"}}
	engine := newTestRouter(t, backend, options{})

	home := do(engine, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, home.Code)
	assert.Contains(t, home.Body.String(), `name="userPrompt"`)
	cookie := sessionCookie(t, home)
	assert.True(t, cookie.HttpOnly)

	submit := do(engine, formPost("/", url.Values{"userPrompt": {"Draft Q3 report"}}, cookie))
	require.Equal(t, http.StatusSeeOther, submit.Code)
	assert.Equal(t, "/", submit.Header().Get("Location"))

	require.Len(t, backend.calls, 1)
	assert.Equal(t, "Draft Q3 report", backend.calls[0].UserPrompt)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	after := do(engine, req)
	body := after.Body.String()
	assert.Contains(t, body, `<a href="/story/abc123">Edit Story: abc123</a>`)
	assert.NotContains(t, body, "disabled")

	other := do(engine, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotContains(t, other.Body.String(), "abc123")
}

func TestHomeSubmitEmptyPrompt(t *testing.T) {
	backend := &fakeBackend{}
	engine := newTestRouter(t, backend, options{})

	w := do(engine, formPost("/", url.Values{"userPrompt": {"  "}}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "prompt must not be empty")
	assert.Empty(t, backend.calls)
}

func TestEditorRendersRequestedStory(t *testing.T) {
	backend := &fakeBackend{stories: map[string]*entity.Story{
		"story-id-1": {ID: "story-id-1", Content: "Existing story content."},
	}}
	engine := newTestRouter(t, backend, options{})

	w := do(engine, httptest.NewRequest(http.MethodGet, "/story/story-id-1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<h1>Edit Story: story-id-1</h1>")
	assert.Contains(t, w.Body.String(), "<p>Existing story content.</p>")

	missing := do(engine, httptest.NewRequest(http.MethodGet, "/story/nonexistent-id", nil))
	require.Equal(t, http.StatusOK, missing.Code)
	assert.Contains(t, missing.Body.String(), "<h1>Edit Story: nonexistent-id</h1>")
	assert.Contains(t, missing.Body.String(), "no content yet")

	empty := do(engine, httptest.NewRequest(http.MethodGet, "/story/", nil))
	assert.Equal(t, http.StatusNotFound, empty.Code)
}

func TestEditorSave(t *testing.T) {
	backend := &fakeBackend{}
	engine := newTestRouter(t, backend, options{})

	w := do(engine, formPost("/story/story-id-1", url.Values{"storyData": {"Updated story content."}}))

	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/story/story-id-1?saved=1", w.Header().Get("Location"))
	assert.Equal(t, "Updated story content.", backend.updates["story-id-1"])
}

func TestCreateStoryJSON(t *testing.T) {
	backend := &fakeBackend{created: []string{"abs-1", ""}}
	engine := newTestRouter(t, backend, options{plans: []string{plan.Abstract, plan.Technical}})

	req := httptest.NewRequest(http.MethodPost, "/v1/stories", strings.NewReader(`{"prompt":"Grant proposal"}`))
	req.Header.Set("Content-Type", "application/json")
	w := do(engine, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Data struct {
			Attempts []struct {
				Plan    string `json:"plan"`
				Status  string `json:"status"`
				StoryID string `json:"story_id"`
			} `json:"attempts"`
			Session struct {
				InFlight bool `json:"in_flight"`
				Stories  []struct {
					Label string `json:"label"`
					URL   string `json:"url"`
				} `json:"stories"`
			} `json:"session"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.Len(t, resp.Data.Attempts, 2)
	assert.Equal(t, "abstract", resp.Data.Attempts[0].Plan)
	assert.Equal(t, "created", resp.Data.Attempts[0].Status)
	assert.Equal(t, "empty", resp.Data.Attempts[1].Status)
	assert.False(t, resp.Data.Session.InFlight)
	require.Len(t, resp.Data.Session.Stories, 1)
	assert.Equal(t, "Edit Story: abs-1", resp.Data.Session.Stories[0].Label)
	assert.Equal(t, "/story/abs-1", resp.Data.Session.Stories[0].URL)
}

func TestCreateStoryEmptyPromptJSON(t *testing.T) {
	engine := newTestRouter(t, &fakeBackend{}, options{})

	req := httptest.NewRequest(http.MethodPost, "/v1/stories", strings.NewReader(`{"prompt":""}`))
	req.Header.Set("Content-Type", "application/json")
	w := do(engine, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"error_code":"4002"`)
}

func TestListPlans(t *testing.T) {
	engine := newTestRouter(t, &fakeBackend{}, options{})

	w := do(engine, httptest.NewRequest(http.MethodGet, "/v1/plans", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []struct {
			Name   string `json:"name"`
			Active bool   `json:"active"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "abstract", resp.Data[0].Name)
	assert.True(t, resp.Data[0].Active)
	assert.False(t, resp.Data[1].Active)
}

func TestChatStreamRelaysFrames(t *testing.T) {
	backend := &fakeBackend{frames: []entity.ChatFrame{
		{Type: "block", Raw: json.RawMessage(`{"type":"block","text":"hi"}`)},
		{Type: "terminate", Raw: json.RawMessage(`{"type":"terminate"}`)},
	}}
	engine := newTestRouter(t, backend, options{})

	w := do(engine, httptest.NewRequest(http.MethodGet, "/v1/stories/s-1/chat/stream?query=hello", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, "event:frame")
	assert.Contains(t, body, `"text":"hi"`)
	assert.Contains(t, body, "event:done")
}

func TestRateLimitedSubmit(t *testing.T) {
	backend := &fakeBackend{}
	engine := newTestRouter(t, backend, options{limiter: true})

	req := httptest.NewRequest(http.MethodPost, "/v1/stories", strings.NewReader(`{"prompt":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	w := do(engine, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Empty(t, backend.calls)

	// 只读页面不限流
	assert.Equal(t, http.StatusOK, do(engine, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestHealthEndpoints(t *testing.T) {
	engine := newTestRouter(t, &fakeBackend{}, options{
		checks: map[string]handler.HealthChecker{"redis": failingCheck{}},
	})

	assert.Equal(t, http.StatusOK, do(engine, httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
	assert.Equal(t, http.StatusOK, do(engine, httptest.NewRequest(http.MethodGet, "/live", nil)).Code)

	ready := do(engine, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, ready.Code)
	assert.Contains(t, ready.Body.String(), "connection refused")
}

func TestDevProxyStripsPrefixAndRewritesHost(t *testing.T) {
	var gotPath, gotHost, gotQuery string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotHost, gotQuery = r.URL.Path, r.Host, r.URL.RawQuery
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer upstream.Close()

	engine := newTestRouter(t, &fakeBackend{}, options{proxy: &config.ProxyConfig{
		Enabled: true,
		Prefix:  "/proxy/api/capitolai",
		Target:  upstream.URL + "/api/v1",
	}})
	srv := httptest.NewServer(engine)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/proxy/api/capitolai/stories/abc?x=1")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"ok":true}`, string(body))
	assert.Equal(t, "/api/v1/stories/abc", gotPath)
	assert.Equal(t, "x=1", gotQuery)
	assert.Equal(t, strings.TrimPrefix(upstream.URL, "http://"), gotHost)
}

func TestDevProxyKeepsEscapedSegments(t *testing.T) {
	var gotPath, gotEscaped string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotEscaped = r.URL.Path, r.URL.EscapedPath()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer upstream.Close()

	engine := newTestRouter(t, &fakeBackend{}, options{proxy: &config.ProxyConfig{
		Enabled: true,
		Prefix:  "/proxy/api/capitolai",
		Target:  upstream.URL + "/api/v1",
	}})
	srv := httptest.NewServer(engine)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/proxy/api/capitolai/files/a%2Fb")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "/api/v1/files/a/b", gotPath)
	assert.Equal(t, "/api/v1/files/a%2Fb", gotEscaped)
}

func TestDevProxyUpstreamDown(t *testing.T) {
	engine := newTestRouter(t, &fakeBackend{}, options{proxy: &config.ProxyConfig{
		Prefix: "/proxy/api/capitolai",
		Target: "http://127.0.0.1:1",
	}})
	srv := httptest.NewServer(engine)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/proxy/api/capitolai/generate")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestDevProxyNotMountedWhenDisabled(t *testing.T) {
	engine := newTestRouter(t, &fakeBackend{}, options{})

	w := do(engine, httptest.NewRequest(http.MethodGet, "/proxy/api/capitolai/generate", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
