package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/01001010sedano/TidyTapv1/internal/auth"
	"github.com/01001010sedano/TidyTapv1/internal/database"
	"github.com/01001010sedano/TidyTapv1/internal/model"
	"github.com/01001010sedano/TidyTapv1/internal/store"
)

type sentMail struct {
	kind, to, token, code string
}

type fakeMailer struct {
	sent []sentMail
}

func (m *fakeMailer) SendPasswordReset(to, token string) error {
	m.sent = append(m.sent, sentMail{kind: "reset", to: to, token: token})
	return nil
}

func (m *fakeMailer) SendInvite(to, inviterName, householdName, code string) error {
	m.sent = append(m.sent, sentMail{kind: "invite", to: to, code: code})
	return nil
}

type fixture struct {
	users       *store.UserStore
	households  *store.HouseholdStore
	sessions    *store.SessionStore
	resets      *store.PasswordResetStore
	tasks       *store.TaskStore
	templates   *store.TemplateStore
	suggestions *store.SuggestionStore
	settings    *store.SettingsStore
	push        *store.PushStore
	mailer      *fakeMailer
	logger      *slog.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &fixture{
		users:       store.NewUserStore(db),
		households:  store.NewHouseholdStore(db),
		sessions:    store.NewSessionStore(db, time.Hour),
		resets:      store.NewPasswordResetStore(db),
		tasks:       store.NewTaskStore(db),
		templates:   store.NewTemplateStore(db),
		suggestions: store.NewSuggestionStore(db),
		settings:    store.NewSettingsStore(db),
		push:        store.NewPushStore(db),
		mailer:      &fakeMailer{},
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// manager creates a manager with a household and returns their session and
// the household's invite code.
func (f *fixture) manager(t *testing.T, id, name string) (auth.Session, string) {
	t.Helper()
	p := model.Profile{ID: id, Email: id + "@example.com", Name: name, Role: model.RoleManager}
	created, err := f.households.CreateWithManager(p, "")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	return auth.Session{UserID: id, Name: name, Email: p.Email, Role: model.RoleManager, HouseholdID: created.HouseholdID}, created.InviteCode
}

// helper creates a helper who joined with code. An empty code leaves them
// without a household.
func (f *fixture) helper(t *testing.T, id, name, code string) auth.Session {
	t.Helper()
	p := model.Profile{ID: id, Email: id + "@example.com", Name: name, Role: model.RoleHelper}
	sess := auth.Session{UserID: id, Name: name, Email: p.Email, Role: model.RoleHelper}
	if code == "" {
		if _, err := f.users.Create(p, ""); err != nil {
			t.Fatalf("create helper: %v", err)
		}
		return sess
	}
	h, err := f.households.RegisterHelper(code, p, "")
	if err != nil {
		t.Fatalf("register helper: %v", err)
	}
	sess.HouseholdID = h.ID
	return sess
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func as(req *http.Request, sess auth.Session) *http.Request {
	return req.WithContext(auth.WithSession(req.Context(), sess))
}

func withPath(req *http.Request, kv ...string) *http.Request {
	for i := 0; i+1 < len(kv); i += 2 {
		req.SetPathValue(kv[i], kv[i+1])
	}
	return req
}

func serve(fn http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	fn(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return v
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}
