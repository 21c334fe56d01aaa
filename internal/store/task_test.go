package store

import (
	"testing"
	"time"

	"github.com/01001010sedano/TidyTapv1/internal/apperr"
	"github.com/01001010sedano/TidyTapv1/internal/model"
	"github.com/01001010sedano/TidyTapv1/internal/recurrence"
)

func setupTaskTestDB(t *testing.T) (*TaskStore, string) {
	t.Helper()
	db := setupTestDB(t)
	hid, _ := createHousehold(t, NewHouseholdStore(db), "m1", "Alice")
	return NewTaskStore(db), hid
}

func sampleDraft(title string, due time.Time) model.TaskDraft {
	return model.TaskDraft{
		Title:      title,
		Priority:   model.PriorityHigh,
		Category:   "kitchen",
		AssignedTo: []model.Assignee{{ID: "h1", Name: "Bob"}, {ID: "h2", Name: "Cy"}},
		DueTime:    due,
		Repeat:     recurrence.Rule{Freq: recurrence.Weekly, Days: []time.Weekday{time.Monday}},
	}
}

func TestTaskCreate(t *testing.T) {
	ts, hid := setupTaskTestDB(t)
	due := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	task, err := ts.Create(hid, "m1", sampleDraft("Dishes", due))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Status != model.StatusPending {
		t.Errorf("status = %q, want pending", task.Status)
	}
	if len(task.AssignedTo) != 2 || task.AssignedTo[0].Name != "Bob" || task.AssignedTo[1].ID != "h2" {
		t.Errorf("assigned = %+v", task.AssignedTo)
	}
	if !task.DueTime.Equal(due) {
		t.Errorf("due = %v, want %v", task.DueTime, due)
	}
	if task.Repeat.String() != "FREQ=WEEKLY;BYDAY=MO" {
		t.Errorf("repeat = %q", task.Repeat.String())
	}
	if task.CompletedBy != nil || task.CompletedAt != nil {
		t.Error("new task has completion fields")
	}
}

func TestTaskCreateValidation(t *testing.T) {
	ts, hid := setupTaskTestDB(t)
	due := time.Now()

	drafts := []model.TaskDraft{
		{Title: " ", DueTime: due},
		{Title: "x", Priority: "urgent", DueTime: due},
		{Title: "x"},
		{Title: "x", DueTime: due, Repeat: recurrence.Rule{Freq: recurrence.Weekly}},
		{Title: "x", DueTime: due, AssignedTo: []model.Assignee{{Name: "nobody"}}},
	}
	for i, d := range drafts {
		if _, err := ts.Create(hid, "m1", d); !apperr.Is(err, apperr.KindInvalid) {
			t.Errorf("draft %d err = %v, want invalid", i, err)
		}
	}
}

func TestTaskCreateDefaultsPriority(t *testing.T) {
	ts, hid := setupTaskTestDB(t)
	task, err := ts.Create(hid, "m1", model.TaskDraft{Title: "Sweep", DueTime: time.Now()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Priority != model.PriorityMedium {
		t.Errorf("priority = %q, want medium", task.Priority)
	}
	if task.AssignedTo == nil || len(task.AssignedTo) != 0 {
		t.Errorf("assigned = %#v, want empty slice", task.AssignedTo)
	}
}

func TestTaskUpdateReplacesFields(t *testing.T) {
	ts, hid := setupTaskTestDB(t)
	task, _ := ts.Create(hid, "m1", sampleDraft("Dishes", time.Now()))

	newDue := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	updated, err := ts.Update(task.ID, model.TaskDraft{
		Title:       "Dishes and counters",
		Description: "all of them",
		Priority:    model.PriorityLow,
		AssignedTo:  []model.Assignee{{ID: "h2", Name: "Cy"}},
		DueTime:     newDue,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Dishes and counters" || updated.Category != "" || updated.Priority != model.PriorityLow {
		t.Errorf("updated = %+v", updated)
	}
	if len(updated.AssignedTo) != 1 || !updated.Repeat.IsZero() {
		t.Errorf("assigned = %+v repeat = %q", updated.AssignedTo, updated.Repeat.String())
	}
	if !updated.DueTime.Equal(newDue) {
		t.Errorf("due = %v, want %v", updated.DueTime, newDue)
	}
}

func TestTaskSetStatusRoundTrip(t *testing.T) {
	ts, hid := setupTaskTestDB(t)
	task, _ := ts.Create(hid, "m1", sampleDraft("Dishes", time.Now()))

	by := "h1"
	at := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)
	done, err := ts.SetStatus(task.ID, model.StatusCompleted, &by, &at)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.CompletedBy == nil || *done.CompletedBy != "h1" || done.CompletedAt == nil || !done.CompletedAt.Equal(at) {
		t.Errorf("completion = %v %v", done.CompletedBy, done.CompletedAt)
	}

	back, err := ts.SetStatus(task.ID, model.StatusPending, nil, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if back.CompletedBy != nil || back.CompletedAt != nil {
		t.Error("completion fields not cleared")
	}
	if countRows(t, ts.db, `SELECT COUNT(*) FROM tasks WHERE id = ? AND completed_by IS NULL AND completed_at IS NULL`, task.ID) != 1 {
		t.Error("completion columns not NULL")
	}
}

func TestTaskListByHouseholds(t *testing.T) {
	db := setupTestDB(t)
	hs := NewHouseholdStore(db)
	ts := NewTaskStore(db)
	h1, _ := createHousehold(t, hs, "m1", "Alice")
	h2, _ := createHousehold(t, hs, "m2", "Mia")
	h3, _ := createHousehold(t, hs, "m3", "Zed")

	ts.Create(h1, "m1", sampleDraft("a", time.Now()))
	ts.Create(h2, "m2", sampleDraft("b", time.Now()))
	ts.Create(h3, "m3", sampleDraft("c", time.Now()))

	tasks, err := ts.ListByHouseholds([]string{h1, h2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 2 {
		t.Errorf("len = %d, want 2", len(tasks))
	}
	none, err := ts.ListByHouseholds(nil)
	if err != nil || len(none) != 0 {
		t.Errorf("empty list = %v, %v", none, err)
	}
}

func TestTaskListDueBetween(t *testing.T) {
	ts, hid := setupTaskTestDB(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	ts.Create(hid, "m1", sampleDraft("soon", base.Add(10*time.Minute)))
	ts.Create(hid, "m1", sampleDraft("later", base.Add(3*time.Hour)))
	done, _ := ts.Create(hid, "m1", sampleDraft("done", base.Add(5*time.Minute)))
	by := "h1"
	ts.SetStatus(done.ID, model.StatusCompleted, &by, &base)

	tasks, err := ts.ListDueBetween(base, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "soon" {
		t.Errorf("tasks = %+v, want only soon", tasks)
	}
}

func TestTaskDelete(t *testing.T) {
	ts, hid := setupTaskTestDB(t)
	task, _ := ts.Create(hid, "m1", sampleDraft("Dishes", time.Now()))

	if err := ts.Delete(task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := ts.GetByID(task.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}
}

func TestTaskRejectsMalformedStoredAssignees(t *testing.T) {
	ts, hid := setupTaskTestDB(t)
	task, _ := ts.Create(hid, "m1", sampleDraft("Dishes", time.Now()))
	ts.db.Exec(`UPDATE tasks SET assigned_to = '{"oops"' WHERE id = ?`, task.ID)

	if _, err := ts.GetByID(task.ID); err == nil {
		t.Error("expected error for malformed assignees")
	}
}

func TestReminderRecordedOnce(t *testing.T) {
	db := setupTestDB(t)
	hid, _ := createHousehold(t, NewHouseholdStore(db), "m1", "Alice")
	task, _ := NewTaskStore(db).Create(hid, "m1", sampleDraft("Dishes", time.Now()))
	ps := NewPushStore(db)

	if sent, _ := ps.WasReminded(task.ID, model.NotifTaskDue); sent {
		t.Fatal("reminded before sending")
	}
	if err := ps.RecordReminder(task.ID, model.NotifTaskDue); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := ps.RecordReminder(task.ID, model.NotifTaskDue); err != nil {
		t.Fatalf("record again: %v", err)
	}
	if sent, _ := ps.WasReminded(task.ID, model.NotifTaskDue); !sent {
		t.Error("reminder not recorded")
	}
}
