package push

import (
	"testing"
	"time"

	"github.com/01001010sedano/TidyTapv1/internal/model"
)

type fakeDue struct {
	tasks []model.Task
	from  time.Time
	to    time.Time
}

func (f *fakeDue) ListDueBetween(from, to time.Time) ([]model.Task, error) {
	f.from, f.to = from, to
	return f.tasks, nil
}

type fakeReminders map[string]bool

func (f fakeReminders) WasReminded(taskID, kind string) (bool, error) {
	return f[taskID+"/"+kind], nil
}

func (f fakeReminders) RecordReminder(taskID, kind string) error {
	f[taskID+"/"+kind] = true
	return nil
}

func TestSchedulerRemindsOnce(t *testing.T) {
	now := time.Date(2026, 3, 10, 16, 30, 0, 0, time.UTC)
	sender := newFakeSender()
	n := NewNotifier(sender, newFakeSubs(), testLogger(), nil)
	due := &fakeDue{tasks: []model.Task{
		{ID: "t1", Title: "Fold laundry", DueTime: now.Add(30 * time.Minute), AssignedTo: []model.Assignee{{ID: "ana"}}},
		{ID: "t2", Title: "Nobody's job", DueTime: now.Add(10 * time.Minute)},
	}}
	reminders := fakeReminders{}

	s := NewScheduler(n, due, reminders, time.Hour, testLogger(), nil)
	s.now = func() time.Time { return now }

	if got := s.tick(); got != 1 {
		t.Fatalf("first tick sent %d reminders, want 1", got)
	}
	if !due.from.Equal(now) || !due.to.Equal(now.Add(time.Hour)) {
		t.Errorf("window = %v..%v", due.from, due.to)
	}
	if got := sender.sent["ana"]; len(got) != 1 || got[0].Body != "Fold laundry is due in 30 minutes" {
		t.Errorf("ana got %+v", got)
	}

	if got := s.tick(); got != 0 {
		t.Errorf("second tick sent %d reminders, want 0", got)
	}
	if len(sender.sent["ana"]) != 1 {
		t.Errorf("ana got %d reminders, want 1", len(sender.sent["ana"]))
	}
}

func TestSchedulerStartStop(t *testing.T) {
	s := NewScheduler(NewNotifier(nil, newFakeSubs(), testLogger(), nil), &fakeDue{}, fakeReminders{}, 0, testLogger(), nil)
	if s.lead != time.Hour {
		t.Errorf("default lead = %v, want 1h", s.lead)
	}
	s.interval = time.Millisecond
	s.Start(t.Context())

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}
