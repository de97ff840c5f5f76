//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/dashgenie/internal/domain"
	"github.com/ashureev/dashgenie/internal/session"
)

type fakeSessions struct {
	mu      sync.Mutex
	reply   session.Reply
	err     error
	panicOn string
	state   domain.State
	keys    []string
	claims  []*domain.UserContext
	resets  []string
	history []domain.Turn
}

func (f *fakeSessions) HandleMessage(_ context.Context, key, text string, claim *domain.UserContext) (session.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if text == f.panicOn {
		panic("boom")
	}
	f.keys = append(f.keys, key)
	f.claims = append(f.claims, claim)
	if strings.TrimSpace(text) == "" {
		return session.Reply{}, session.ErrEmptyMessage
	}
	return f.reply, f.err
}

func (f *fakeSessions) History(string) []domain.Turn { return f.history }

func (f *fakeSessions) State(string) domain.State {
	if f.state == "" {
		return domain.StateNew
	}
	return f.state
}

func (f *fakeSessions) Reset(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, key)
}

func newRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func postMessage(t *testing.T, router http.Handler, body string) MessageResponse {
	t.Helper()
	return postMessageFrom(t, router, "192.0.2.1:1234", body)
}

func postMessageFrom(t *testing.T, router http.Handler, remoteAddr, body string) MessageResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/message", strings.NewReader(body))
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp MessageResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Content-Type") != "application/json" {
		t.Errorf("Expected JSON content type, got %q", resp.Header.Get("Content-Type"))
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestMessageSuccess(t *testing.T) {
	t.Parallel()

	sessions := &fakeSessions{reply: session.Reply{
		Reply: "Done! I created 1 chart in your dashboard: http://x/superset/dashboard/1/", State: domain.StateDone, DashboardURL: "http://x/superset/dashboard/1/",
	}}
	router := newRouter(NewHandler(sessions, nil, nil))

	resp := postMessage(t, router, `{"session_id":"abc","message":"yes","user_context":{"user":{"username":"alice"},"datasets":[{"id":1,"table_name":"sales","columns":["a"]}]}}`)
	if resp.State != domain.StateDone || resp.DashboardURL == "" || resp.SessionID != "abc" {
		t.Fatalf("unexpected response %+v", resp)
	}
	claim := sessions.claims[0]
	if claim == nil || claim.User.Username != "alice" || claim.Datasets[0].TableName != "sales" {
		t.Fatalf("claim not forwarded: %+v", claim)
	}
}

func TestMessageGeneratesSessionID(t *testing.T) {
	t.Parallel()

	sessions := &fakeSessions{reply: session.Reply{Reply: "hi", State: domain.StateWaitingConfirm}}
	router := newRouter(NewHandler(sessions, nil, nil))

	resp := postMessage(t, router, `{"message":"sales"}`)
	if len(resp.SessionID) != 36 || sessions.keys[0] != resp.SessionID {
		t.Fatalf("expected generated uuid, got %q", resp.SessionID)
	}
}

func TestMessageErrorsAreInBand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		err   error
		want  string
		state domain.State
	}{
		{"generic", errors.New("model call: connection refused"), "Error: model call: connection refused", domain.StateWaitingConfirm},
		{"billing", errors.New(`API error (status 400): {"message":"Your Credit Balance is too low"}`), "Error: " + billingMessage, domain.StateNew},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sessions := &fakeSessions{err: tt.err, state: tt.state}
			resp := postMessage(t, newRouter(NewHandler(sessions, nil, nil)), `{"session_id":"s","message":"hi"}`)
			if resp.Reply != tt.want || resp.State != tt.state {
				t.Fatalf("unexpected response %+v", resp)
			}
		})
	}
}

func TestMessagePanicIsInBand(t *testing.T) {
	t.Parallel()

	sessions := &fakeSessions{panicOn: "explode"}
	resp := postMessage(t, newRouter(NewHandler(sessions, nil, nil)), `{"session_id":"s","message":"explode"}`)
	if !strings.HasPrefix(resp.Reply, "Error: internal error") || resp.State != domain.StateNew {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestMessageEmpty(t *testing.T) {
	t.Parallel()

	resp := postMessage(t, newRouter(NewHandler(&fakeSessions{}, nil, nil)), `{"session_id":"s","message":"  "}`)
	if resp.Reply != "Please type a message." {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestMessageRejectsBadInput(t *testing.T) {
	t.Parallel()

	router := newRouter(NewHandler(&fakeSessions{}, nil, nil))
	for _, body := range []string{`not json`, `{"session_id":"has spaces","message":"hi"}`} {
		req := httptest.NewRequest(http.MethodPost, "/message", strings.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, w.Code)
		}
	}
}

func TestMessageRateLimited(t *testing.T) {
	t.Parallel()

	limiter := NewRateLimiter(2, time.Minute)
	defer limiter.Close()
	sessions := &fakeSessions{reply: session.Reply{Reply: "ok", State: domain.StateWaitingConfirm}}
	router := newRouter(NewHandler(sessions, limiter, nil))

	for range 2 {
		postMessage(t, router, `{"session_id":"s","message":"hi"}`)
	}
	resp := postMessage(t, router, `{"session_id":"s","message":"hi"}`)
	if resp.Reply != rateLimitedMessage {
		t.Fatalf("expected rate limit reply, got %+v", resp)
	}
	if len(sessions.keys) != 2 {
		t.Fatalf("throttled message must not reach the session, got %d calls", len(sessions.keys))
	}
	if resp := postMessage(t, router, `{"session_id":"other","message":"hi"}`); resp.Reply != rateLimitedMessage {
		t.Fatal("switching session ids must not reset the limit")
	}
	if resp := postMessageFrom(t, router, "198.51.100.7:5555", `{"session_id":"s","message":"hi"}`); resp.Reply != "ok" {
		t.Fatal("other clients must not be throttled")
	}
}

func TestMessageRateLimitedWithoutSessionID(t *testing.T) {
	t.Parallel()

	limiter := NewRateLimiter(2, time.Minute)
	defer limiter.Close()
	sessions := &fakeSessions{reply: session.Reply{Reply: "ok", State: domain.StateProposing}}
	router := newRouter(NewHandler(sessions, limiter, nil))

	var last MessageResponse
	for range 3 {
		last = postMessage(t, router, `{"message":"hi"}`)
	}
	if last.Reply != rateLimitedMessage {
		t.Fatalf("fresh session ids must not bypass throttling, got %+v", last)
	}
	if len(sessions.keys) != 2 {
		t.Fatalf("expected 2 messages to reach the session, got %d", len(sessions.keys))
	}
}

func TestOriginPatterns(t *testing.T) {
	t.Parallel()

	got := originPatterns([]string{"https://app.example/", " * ", "", "http://localhost:3000"})
	want := []string{"app.example", "*", "localhost:3000"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestHistory(t *testing.T) {
	t.Parallel()

	sessions := &fakeSessions{history: []domain.Turn{{Role: domain.RoleUser, Content: "sales"}}}
	router := newRouter(NewHandler(sessions, nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/history/abc", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var got struct {
		Messages []domain.Turn `json:"messages"`
	}
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "sales" {
		t.Fatalf("unexpected history %+v", got)
	}

	sessions.history = []domain.Turn{}
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/history/abc", nil))
	if strings.TrimSpace(w.Body.String()) != `{"messages":[]}` {
		t.Fatalf("expected empty messages array, got %s", w.Body.String())
	}
}

func TestReset(t *testing.T) {
	t.Parallel()

	sessions := &fakeSessions{}
	router := newRouter(NewHandler(sessions, nil, nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/reset/abc", nil))
	if w.Code != http.StatusOK || len(sessions.resets) != 1 || sessions.resets[0] != "abc" {
		t.Fatalf("reset not applied: %d %v", w.Code, sessions.resets)
	}
}

type fakeCatalog struct {
	n     int
	ready bool
}

func (f fakeCatalog) Len() int      { return f.n }
func (f fakeCatalog) IsReady() bool { return f.ready }

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestHealth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		db     Pinger
		status string
	}{
		{"healthy", fakePinger{}, "ok"},
		{"database down", fakePinger{err: errors.New("refused")}, "degraded"},
		{"no database", nil, "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := chi.NewRouter()
			NewHealthHandler(fakeCatalog{n: 3, ready: true}, tt.db).RegisterHealth(r)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", w.Code)
			}
			var got map[string]any
			if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got["status"] != tt.status || got["datasets_loaded"] != float64(3) || got["catalog_ready"] != true {
				t.Fatalf("unexpected health %+v", got)
			}
		})
	}
}
