package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/01001010sedano/TidyTapv1/internal/assistant"
	"github.com/01001010sedano/TidyTapv1/internal/model"
)

type scriptedLLM struct {
	reply string
	err   error
	calls int
}

func (s *scriptedLLM) Complete(ctx context.Context, messages []assistant.Message, maxTokens int) (string, error) {
	s.calls++
	return s.reply, s.err
}

func newTestAssistantHandler(f *fixture, llm assistant.Completer) *AssistantHandler {
	svc := assistant.NewService(llm, f.tasks, f.suggestions, f.households, f.logger,
		assistant.WithLocation(time.UTC),
		assistant.WithClock(func() time.Time { return testNow }),
	)
	h := NewAssistantHandler(svc, f.suggestions, f.households, f.settings, nil, nil, f.logger)
	h.now = func() time.Time { return testNow }
	return h
}

func TestChatAddCreatesTask(t *testing.T) {
	f := newFixture(t)
	llm := &scriptedLLM{reply: `Sure! {"title": "Wash car", "assignedTo": "ana", "dueDate": "2026-03-20", "dueTime": "10:00", "priority": "high"}`}
	h := newTestAssistantHandler(f, llm)
	mgr, code := f.manager(t, "m1", "Maya")
	f.helper(t, "h1", "Ana", code)

	rec := serve(h.Chat, as(jsonRequest(t, "POST", "/api/assistant/chat", chatRequest{Message: "/add wash the car for Ana"}), mgr))
	assertStatus(t, rec, http.StatusOK)

	got := decodeBody[assistant.ChatResult](t, rec)
	if got.Task == nil {
		t.Fatalf("expected a task, replies %v", got.Replies)
	}
	if got.Task.Title != "Wash car" || len(got.Task.AssignedTo) != 1 || got.Task.AssignedTo[0].ID != "h1" {
		t.Errorf("task = %+v", got.Task)
	}
	tasks, err := f.tasks.ListByHouseholds([]string{mgr.HouseholdID})
	if err != nil || len(tasks) != 1 {
		t.Errorf("stored tasks = %d, %v", len(tasks), err)
	}
}

func TestChatHelperAddRejected(t *testing.T) {
	f := newFixture(t)
	llm := &scriptedLLM{reply: "unused"}
	h := newTestAssistantHandler(f, llm)
	_, code := f.manager(t, "m1", "Maya")
	ana := f.helper(t, "h1", "Ana", code)

	rec := serve(h.Chat, as(jsonRequest(t, "POST", "/api/assistant/chat", chatRequest{Message: "/add dust"}), ana))
	assertStatus(t, rec, http.StatusOK)
	got := decodeBody[assistant.ChatResult](t, rec)
	if len(got.Replies) != 1 || got.Replies[0] != assistant.ReplyHelperAdd || llm.calls != 0 {
		t.Errorf("replies = %v, calls = %d", got.Replies, llm.calls)
	}

	rec = serve(h.Chat, as(jsonRequest(t, "POST", "/api/assistant/chat", chatRequest{Message: "  "}), ana))
	assertStatus(t, rec, http.StatusBadRequest)
}

func TestSuggestRequiresTitle(t *testing.T) {
	f := newFixture(t)
	h := newTestAssistantHandler(f, &scriptedLLM{reply: `{"priority": "low", "category": "Kitchen", "repeat": "none"}`})
	mgr, _ := f.manager(t, "m1", "Maya")

	rec := serve(h.Suggest, as(jsonRequest(t, "POST", "/api/assistant/suggest", map[string]string{"title": ""}), mgr))
	assertStatus(t, rec, http.StatusBadRequest)

	rec = serve(h.Suggest, as(jsonRequest(t, "POST", "/api/assistant/suggest", map[string]string{"title": "Wipe counters"}), mgr))
	assertStatus(t, rec, http.StatusOK)
	if got := decodeBody[assistant.FieldSuggestion](t, rec); !got.OK || got.Category != "Kitchen" {
		t.Errorf("suggestion = %+v", got)
	}
}

func TestAffirmationRespectsSetting(t *testing.T) {
	f := newFixture(t)
	llm := &scriptedLLM{reply: `"You keep the house shining."`}
	h := newTestAssistantHandler(f, llm)
	mgr, _ := f.manager(t, "m1", "Maya")

	rec := serve(h.Affirmation, as(jsonRequest(t, "GET", "/api/assistant/affirmation", nil), mgr))
	assertStatus(t, rec, http.StatusOK)
	got := decodeBody[map[string]any](t, rec)
	if got["enabled"] != true || got["text"] != "You keep the house shining." {
		t.Errorf("affirmation = %v", got)
	}

	if err := f.settings.Set(mgr.HouseholdID, model.SettingAffirmationsEnabled, "false"); err != nil {
		t.Fatalf("disable affirmations: %v", err)
	}
	rec = serve(h.Affirmation, as(jsonRequest(t, "GET", "/api/assistant/affirmation", nil), mgr))
	assertStatus(t, rec, http.StatusOK)
	if got := decodeBody[map[string]any](t, rec); got["enabled"] != false || got["text"] != "" {
		t.Errorf("disabled affirmation = %v", got)
	}
	if llm.calls != 1 {
		t.Errorf("model calls = %d, want 1", llm.calls)
	}
}

func seedSuggestion(t *testing.T, f *fixture, householdID, assignee string) *model.Suggestion {
	t.Helper()
	sg, err := f.suggestions.Create(model.Suggestion{
		HouseholdID:   householdID,
		Title:         "Restock detergent",
		AssignedTo:    assignee,
		SuggestedDate: testNow.Add(48 * time.Hour),
		CreatedBy:     "m1",
	})
	if err != nil {
		t.Fatalf("create suggestion: %v", err)
	}
	return sg
}

func TestAcceptSuggestion(t *testing.T) {
	f := newFixture(t)
	h := newTestAssistantHandler(f, &scriptedLLM{})
	mgr, code := f.manager(t, "m1", "Maya")
	f.helper(t, "h1", "Ana", code)
	sg := seedSuggestion(t, f, mgr.HouseholdID, "ANA")

	rec := serve(h.ListSuggestions, as(jsonRequest(t, "GET", "/api/suggestions", nil), mgr))
	assertStatus(t, rec, http.StatusOK)
	if list := decodeBody[[]model.Suggestion](t, rec); len(list) != 1 {
		t.Fatalf("pending = %+v", list)
	}

	req := withPath(as(jsonRequest(t, "POST", "/", nil), mgr), "id", sg.ID)
	rec = serve(h.AcceptSuggestion, req)
	assertStatus(t, rec, http.StatusCreated)
	taskID := decodeBody[map[string]string](t, rec)["task_id"]

	tk, err := f.tasks.GetByID(taskID)
	if err != nil || tk == nil {
		t.Fatalf("GetByID = %v, %v", tk, err)
	}
	if tk.Category != defaultSuggestionCategory || tk.Priority != model.PriorityLow {
		t.Errorf("task = %+v", tk)
	}
	if len(tk.AssignedTo) != 1 || tk.AssignedTo[0] != (model.Assignee{ID: "h1", Name: "Ana"}) {
		t.Errorf("assignees = %+v", tk.AssignedTo)
	}

	req = withPath(as(jsonRequest(t, "POST", "/", nil), mgr), "id", sg.ID)
	assertStatus(t, serve(h.AcceptSuggestion, req), http.StatusConflict)
}

func TestIgnoreSuggestion(t *testing.T) {
	f := newFixture(t)
	h := newTestAssistantHandler(f, &scriptedLLM{})
	mgr, _ := f.manager(t, "m1", "Maya")
	other, _ := f.manager(t, "m2", "Omar")
	sg := seedSuggestion(t, f, mgr.HouseholdID, "")

	req := withPath(as(jsonRequest(t, "POST", "/", nil), other), "id", sg.ID)
	assertStatus(t, serve(h.IgnoreSuggestion, req), http.StatusNotFound)

	req = withPath(as(jsonRequest(t, "POST", "/", nil), mgr), "id", sg.ID)
	assertStatus(t, serve(h.IgnoreSuggestion, req), http.StatusNoContent)

	pending, err := f.suggestions.ListPending(mgr.HouseholdID)
	if err != nil || len(pending) != 0 {
		t.Errorf("pending = %+v, %v", pending, err)
	}
}

func TestProposeWithoutHistory(t *testing.T) {
	f := newFixture(t)
	llm := &scriptedLLM{reply: "[]"}
	h := newTestAssistantHandler(f, llm)
	mgr, _ := f.manager(t, "m1", "Maya")

	rec := serve(h.Propose, as(jsonRequest(t, "POST", "/api/assistant/propose", nil), mgr))
	assertStatus(t, rec, http.StatusOK)
	if got := decodeBody[[]model.Suggestion](t, rec); len(got) != 0 || llm.calls != 0 {
		t.Errorf("proposals = %+v, calls = %d", got, llm.calls)
	}
}
