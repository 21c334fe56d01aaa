package push

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/01001010sedano/TidyTapv1/internal/metrics"
	"github.com/01001010sedano/TidyTapv1/internal/model"
)

type DueTaskLister interface {
	ListDueBetween(from, to time.Time) ([]model.Task, error)
}

type ReminderStore interface {
	WasReminded(taskID, kind string) (bool, error)
	RecordReminder(taskID, kind string) error
}

// Scheduler periodically reminds assignees of tasks that fall due within
// the lead time. Each task is reminded at most once.
type Scheduler struct {
	mu        sync.RWMutex
	notifier  *Notifier
	tasks     DueTaskLister
	reminders ReminderStore
	logger    *slog.Logger
	metrics   *metrics.Metrics
	lead      time.Duration
	interval  time.Duration
	now       func() time.Time
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewScheduler creates a reminder scheduler.
func NewScheduler(n *Notifier, tasks DueTaskLister, reminders ReminderStore, lead time.Duration, logger *slog.Logger, m *metrics.Metrics) *Scheduler {
	if lead <= 0 {
		lead = time.Hour
	}
	return &Scheduler{
		notifier:  n,
		tasks:     tasks,
		reminders: reminders,
		logger:    logger.With("component", "push_scheduler"),
		metrics:   m,
		lead:      lead,
		interval:  60 * time.Second,
		now:       time.Now,
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// tick returns the number of reminders recorded.
func (s *Scheduler) tick() int {
	now := s.now().UTC()
	due, err := s.tasks.ListDueBetween(now, now.Add(s.lead))
	if err != nil {
		s.logger.Error("list due tasks", "error", err)
		return 0
	}

	sent := 0
	for _, t := range due {
		if len(t.AssignedTo) == 0 {
			continue
		}
		done, err := s.reminders.WasReminded(t.ID, model.NotifTaskDue)
		if err != nil {
			s.logger.Error("check reminder", "task_id", t.ID, "error", err)
			continue
		}
		if done {
			continue
		}

		mins := int(t.DueTime.Sub(now).Round(time.Minute).Minutes())
		s.notifier.NotifyUsers(assigneeIDs(t), Payload{
			Title: "Task due soon ⏰",
			Body:  fmt.Sprintf("%s is due in %d minutes", t.Title, mins),
			URL:   "/tasks/" + t.ID,
			Tag:   model.NotifTaskDue + "-" + t.ID,
		})

		if err := s.reminders.RecordReminder(t.ID, model.NotifTaskDue); err != nil {
			s.logger.Error("record reminder", "task_id", t.ID, "error", err)
			continue
		}
		s.metrics.IncReminder()
		sent++
	}
	return sent
}
