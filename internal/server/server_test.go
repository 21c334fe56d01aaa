package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/01001010sedano/TidyTapv1/internal/config"
	"github.com/01001010sedano/TidyTapv1/internal/database"
	"github.com/01001010sedano/TidyTapv1/internal/metrics"
	"github.com/01001010sedano/TidyTapv1/internal/model"
	"github.com/01001010sedano/TidyTapv1/internal/store"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Host: "127.0.0.1", Port: 8080, BaseURL: "http://localhost:8080"},
		Database:  config.DatabaseConfig{Path: ":memory:"},
		Log:       config.LogConfig{Level: "error", Format: "text"},
		Assistant: config.AssistantConfig{Timeout: time.Second},
		Session:   config.SessionConfig{TTL: time.Hour},
		RateLimit: config.RateLimitConfig{Auth: 100, Assistant: 100, Window: time.Minute},
		Timezone:  "UTC",
	}
}

func newTestServer(t *testing.T, cfg *config.Config) (*httptest.Server, *Server) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(db, cfg, metrics.New(), logger)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, srv
}

func do(t *testing.T, ts *httptest.Server, method, path, token string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.URL+path, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func expect(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: status = %d, want %d: %s", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, want, b)
	}
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

type session struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

func registerUser(t *testing.T, ts *httptest.Server, email, name, role, code string) session {
	t.Helper()
	resp := do(t, ts, "POST", "/api/auth/register", "", map[string]string{
		"email": email, "password": "correct-horse", "name": name, "role": role, "invite_code": code,
	})
	expect(t, resp, http.StatusCreated)
	return decode[session](t, resp)
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, testConfig())

	resp := do(t, ts, "GET", "/health", "", nil)
	expect(t, resp, http.StatusOK)
	if got := decode[map[string]string](t, resp); got["status"] != "ok" {
		t.Errorf("health = %v", got)
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	ts, _ := newTestServer(t, testConfig())

	for _, path := range []string{"/api/me", "/api/tasks", "/api/households", "/api/settings", "/ws"} {
		resp := do(t, ts, "GET", path, "", nil)
		expect(t, resp, http.StatusUnauthorized)
	}
	resp := do(t, ts, "GET", "/api/tasks", "not-a-token", nil)
	expect(t, resp, http.StatusUnauthorized)
}

func TestHouseholdTaskFlow(t *testing.T) {
	ts, _ := newTestServer(t, testConfig())

	maya := registerUser(t, ts, "maya@example.com", "Maya", model.RoleManager, "")
	resp := do(t, ts, "GET", "/api/me", maya.Token, nil)
	expect(t, resp, http.StatusOK)
	me := decode[struct {
		Households []model.HouseholdSummary `json:"households"`
	}](t, resp)
	if len(me.Households) != 1 || me.Households[0].InviteCode == "" {
		t.Fatalf("households = %+v", me.Households)
	}
	code := me.Households[0].InviteCode

	resp = do(t, ts, "POST", "/api/households/lookup", "", map[string]string{"code": code})
	expect(t, resp, http.StatusOK)
	if got := decode[model.Lookup](t, resp); !got.Found {
		t.Fatalf("lookup = %+v", got)
	}

	ana := registerUser(t, ts, "ana@example.com", "Ana", model.RoleHelper, code)

	due := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	newTask := map[string]any{"title": "Mop floors", "priority": "high", "assigned_to": []string{ana.User.ID}, "due_time": due}

	resp = do(t, ts, "POST", "/api/tasks", ana.Token, newTask)
	expect(t, resp, http.StatusForbidden)

	resp = do(t, ts, "POST", "/api/tasks", maya.Token, newTask)
	expect(t, resp, http.StatusCreated)
	created := decode[model.Task](t, resp)

	resp = do(t, ts, "GET", "/api/tasks", ana.Token, nil)
	expect(t, resp, http.StatusOK)
	if tasks := decode[[]model.Task](t, resp); len(tasks) != 1 || tasks[0].ID != created.ID {
		t.Fatalf("helper tasks = %+v", tasks)
	}

	resp = do(t, ts, "POST", "/api/tasks/"+created.ID+"/status", ana.Token, map[string]string{"status": model.StatusCompleted})
	expect(t, resp, http.StatusOK)
	if got := decode[model.Task](t, resp); got.Status != model.StatusCompleted {
		t.Errorf("status = %q", got.Status)
	}

	resp = do(t, ts, "GET", "/api/tasks/summary", maya.Token, nil)
	expect(t, resp, http.StatusOK)
	if s := decode[model.TaskSummary](t, resp); s.Total != 1 || s.Completed != 1 {
		t.Errorf("summary = %+v", s)
	}

	resp = do(t, ts, "DELETE", "/api/tasks/"+created.ID, ana.Token, nil)
	expect(t, resp, http.StatusForbidden)

	resp = do(t, ts, "POST", "/api/auth/logout", ana.Token, nil)
	expect(t, resp, http.StatusNoContent)
	resp = do(t, ts, "GET", "/api/tasks", ana.Token, nil)
	expect(t, resp, http.StatusUnauthorized)
}

func TestRemovedMemberLosesHouseholdAccess(t *testing.T) {
	ts, srv := newTestServer(t, testConfig())

	maya := registerUser(t, ts, "maya@example.com", "Maya", model.RoleManager, "")
	resp := do(t, ts, "GET", "/api/me", maya.Token, nil)
	expect(t, resp, http.StatusOK)
	households := decode[struct {
		Households []model.HouseholdSummary `json:"households"`
	}](t, resp).Households
	if len(households) != 1 {
		t.Fatalf("households = %+v", households)
	}
	hid, code := households[0].ID, households[0].InviteCode
	ana := registerUser(t, ts, "ana@example.com", "Ana", model.RoleHelper, code)

	expect(t, do(t, ts, "POST", "/api/templates/defaults", maya.Token, nil), http.StatusOK)
	if _, err := store.NewSuggestionStore(srv.db).Create(model.Suggestion{
		HouseholdID: hid, Title: "Descale kettle", SuggestedDate: time.Now(),
	}); err != nil {
		t.Fatalf("create suggestion: %v", err)
	}

	resp = do(t, ts, "GET", "/api/suggestions", ana.Token, nil)
	expect(t, resp, http.StatusOK)
	if got := decode[[]model.Suggestion](t, resp); len(got) != 1 {
		t.Fatalf("member suggestions = %+v", got)
	}

	expect(t, do(t, ts, "DELETE", "/api/households/"+hid+"/members/"+ana.User.ID, maya.Token, nil), http.StatusNoContent)

	resp = do(t, ts, "GET", "/api/me", ana.Token, nil)
	expect(t, resp, http.StatusOK)
	if me := decode[model.User](t, resp); me.HouseholdID == nil || *me.HouseholdID != hid {
		t.Errorf("household pointer = %v, want it kept", me.HouseholdID)
	}

	resp = do(t, ts, "GET", "/api/suggestions", ana.Token, nil)
	expect(t, resp, http.StatusOK)
	if got := decode[[]model.Suggestion](t, resp); len(got) != 0 {
		t.Errorf("removed member suggestions = %+v", got)
	}
	resp = do(t, ts, "GET", "/api/templates", ana.Token, nil)
	expect(t, resp, http.StatusOK)
	if got := decode[[]model.TaskTemplate](t, resp); len(got) != 0 {
		t.Errorf("removed member templates = %d", len(got))
	}
	resp = do(t, ts, "GET", "/api/settings", ana.Token, nil)
	expect(t, resp, http.StatusOK)
	if got := decode[map[string]string](t, resp); len(got) != 0 {
		t.Errorf("removed member settings = %v", got)
	}
}

func TestMetricsUseRoutePatterns(t *testing.T) {
	ts, _ := newTestServer(t, testConfig())

	maya := registerUser(t, ts, "maya@example.com", "Maya", model.RoleManager, "")
	expect(t, do(t, ts, "GET", "/api/tasks/does-not-exist", maya.Token, nil), http.StatusNotFound)

	resp := do(t, ts, "GET", "/metrics", "", nil)
	expect(t, resp, http.StatusOK)
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	for _, want := range []string{
		`path_pattern="POST /api/auth/register"`,
		`path_pattern="GET /api/tasks/{id}"`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics missing %s", want)
		}
	}
}

func TestAuthRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Auth = 2
	ts, _ := newTestServer(t, cfg)

	login := map[string]string{"email": "nobody@example.com", "password": "correct-horse"}
	expect(t, do(t, ts, "POST", "/api/auth/login", "", login), http.StatusUnauthorized)
	expect(t, do(t, ts, "POST", "/api/auth/login", "", login), http.StatusUnauthorized)

	resp := do(t, ts, "POST", "/api/auth/login", "", login)
	expect(t, resp, http.StatusTooManyRequests)
	if resp.Header.Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q", resp.Header.Get("Retry-After"))
	}
}

func TestVAPIDKeyWithoutPush(t *testing.T) {
	ts, srv := newTestServer(t, testConfig())
	if srv.PushScheduler() != nil {
		t.Error("scheduler should be nil without VAPID keys")
	}

	maya := registerUser(t, ts, "maya@example.com", "Maya", model.RoleManager, "")
	resp := do(t, ts, "GET", "/api/push/vapid-key", maya.Token, nil)
	expect(t, resp, http.StatusOK)
	if got := decode[map[string]string](t, resp); got["public_key"] != "" {
		t.Errorf("vapid key = %v", got)
	}
}
