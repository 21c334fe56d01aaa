package assistant

import (
	"errors"
	"testing"
	"time"

	"github.com/01001010sedano/TidyTapv1/internal/apperr"
	"github.com/01001010sedano/TidyTapv1/internal/model"
	"github.com/01001010sedano/TidyTapv1/internal/recurrence"
)

var testNow = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

func TestParseTaskCommand(t *testing.T) {
	reply := "Sure thing! 🧽\n```json\n" +
		`{"task": "Wipe counters", "assignee": "ana", "priority": "HIGH", "dueDate": "2026-03-12", "dueTime": "18:30", "repeat": {"frequency": "weekly", "dayOfWeek": "Friday"}}` +
		"\n```"
	cmd, err := parseTaskCommand(reply, testNow, time.UTC)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cmd.Title != "Wipe counters" || cmd.Assignee != "ana" {
		t.Errorf("cmd = %+v", cmd)
	}
	if cmd.Priority != model.PriorityHigh {
		t.Errorf("priority = %q, want high", cmd.Priority)
	}
	if want := time.Date(2026, 3, 12, 18, 30, 0, 0, time.UTC); !cmd.Due.Equal(want) {
		t.Errorf("due = %v, want %v", cmd.Due, want)
	}
	if cmd.Repeat.Freq != recurrence.Weekly || len(cmd.Repeat.Days) != 1 || cmd.Repeat.Days[0] != time.Friday {
		t.Errorf("repeat = %+v", cmd.Repeat)
	}
}

func TestParseTaskCommandDefaults(t *testing.T) {
	cmd, err := parseTaskCommand(`{"title": "Mop", "assignedTo": {"id": "u1", "name": "Ana"}, "priority": "urgent", "repeat": "nonsense"}`, testNow, time.UTC)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cmd.Priority != model.PriorityMedium {
		t.Errorf("priority = %q, want medium", cmd.Priority)
	}
	if !cmd.Due.Equal(testNow) {
		t.Errorf("due = %v, want now", cmd.Due)
	}
	if cmd.Assignee != "u1" {
		t.Errorf("assignee = %q, want u1", cmd.Assignee)
	}
	if !cmd.Repeat.IsZero() {
		t.Errorf("repeat = %+v, want none", cmd.Repeat)
	}
}

func TestParseTaskCommandDateOnly(t *testing.T) {
	cmd, err := parseTaskCommand(`{"title": "Mop", "assignee": "Ana", "dueDate": "2026-04-01"}`, testNow, time.UTC)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if want := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC); !cmd.Due.Equal(want) {
		t.Errorf("due = %v, want midnight %v", cmd.Due, want)
	}
}

func TestParseTaskCommandFailures(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		missing bool
	}{
		{"no json", "I can't help with that", false},
		{"broken json", `{"title": "Mop",`, false},
		{"wrong type", `{"title": 42, "assignee": "Ana"}`, false},
		{"bad date", `{"title": "Mop", "assignee": "Ana", "dueDate": "tomorrow"}`, false},
		{"no title", `{"assignee": "Ana"}`, true},
		{"no assignee", `{"title": "Mop"}`, true},
		{"blank title", `{"title": "  ", "assignee": "Ana"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseTaskCommand(tt.reply, testNow, time.UTC)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, errMissingFields); got != tt.missing {
				t.Errorf("missing = %v, want %v (err %v)", got, tt.missing, err)
			}
			if !tt.missing && !apperr.Is(err, apperr.KindParse) {
				t.Errorf("err = %v, want parse kind", err)
			}
		})
	}
}

func TestResolveAssignee(t *testing.T) {
	members := []model.Member{
		{ID: "u1", Name: "Ana"},
		{ID: "u2", Name: "Ben"},
	}
	if got := resolveAssignee("u2", members); got != (model.Assignee{ID: "u2", Name: "Ben"}) {
		t.Errorf("by id = %+v", got)
	}
	if got := resolveAssignee("ANA", members); got != (model.Assignee{ID: "u1", Name: "Ana"}) {
		t.Errorf("by name = %+v", got)
	}
	if got := resolveAssignee("Zoe", members); got != (model.Assignee{ID: "Zoe", Name: "Zoe"}) {
		t.Errorf("unknown = %+v", got)
	}
}

func TestParseFieldSuggestion(t *testing.T) {
	fs, err := parseFieldSuggestion(`Here you go: {"priority": "Low", "category": "Laundry", "repeat": {"frequency": "monthly", "dayOfMonth": 3}}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !fs.OK || fs.Priority != model.PriorityLow || fs.Category != "Laundry" {
		t.Errorf("suggestion = %+v", fs)
	}
	if fs.Repeat.Freq != recurrence.Monthly || fs.Repeat.DayOfMonth != 3 {
		t.Errorf("repeat = %+v", fs.Repeat)
	}

	for _, bad := range []string{"", "no idea", `{"priority": "whenever"}`, `{"priority": 1}`} {
		if _, err := parseFieldSuggestion(bad); err == nil {
			t.Errorf("parseFieldSuggestion(%q) succeeded", bad)
		}
	}
}

func TestParseProposals(t *testing.T) {
	reply := `[{"title": "Restock sponges", "suggestedDate": "2026-03-14", "reason": "Kitchen was cleaned", "createdFromTaskId": "t1"},
	           {"title": "Descale kettle", "priority": "medium", "suggestedDate": "2026-03-15", "repeat": "monthly"}]`
	got, err := parseProposals(reply, time.UTC)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d proposals, want 2", len(got))
	}
	if got[0].Priority != model.PriorityLow || got[0].CreatedFromTaskID != "t1" {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].Priority != model.PriorityMedium {
		t.Errorf("second priority = %q", got[1].Priority)
	}

	if _, err := parseProposals(`[{"title": "ok", "suggestedDate": "2026-03-14"}, {"title": "", "suggestedDate": "2026-03-14"}]`, time.UTC); err == nil {
		t.Error("expected one bad entry to reject the reply")
	}
	if _, err := parseProposals(`{"title": "not a list"}`, time.UTC); err == nil {
		t.Error("expected object reply to be rejected")
	}
}
