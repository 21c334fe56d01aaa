package task

import (
	"slices"
	"strings"
	"time"

	"github.com/01001010sedano/TidyTapv1/internal/model"
)

// Summarize counts tasks by status. CompletionRate is a percentage.
func Summarize(tasks []model.Task) model.TaskSummary {
	var s model.TaskSummary
	s.Total = len(tasks)
	for _, t := range tasks {
		switch t.Status {
		case model.StatusCompleted:
			s.Completed++
		case model.StatusInProgress:
			s.InProgress++
		case model.StatusPending:
			s.Pending++
		}
	}
	if s.Total > 0 {
		s.CompletionRate = float64(s.Completed) / float64(s.Total) * 100
	}
	return s
}

// Day is one calendar cell.
type Day struct {
	Date  string       `json:"date"` // YYYY-MM-DD
	Tasks []model.Task `json:"tasks"`
}

// Calendar groups the tasks due in the month containing month (in loc) by
// local day, earliest first. Days without tasks are omitted.
func Calendar(tasks []model.Task, month time.Time, loc *time.Location) []Day {
	if loc == nil {
		loc = time.UTC
	}
	month = month.In(loc)
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, loc)
	next := first.AddDate(0, 1, 0)

	byDay := make(map[string][]model.Task)
	for _, t := range tasks {
		due := t.DueTime.In(loc)
		if due.Before(first) || !due.Before(next) {
			continue
		}
		key := startOfDay(due).Format(time.DateOnly)
		byDay[key] = append(byDay[key], t)
	}

	days := make([]Day, 0, len(byDay))
	for key, ts := range byDay {
		slices.SortStableFunc(ts, func(a, b model.Task) int {
			return a.DueTime.Compare(b.DueTime)
		})
		days = append(days, Day{Date: key, Tasks: ts})
	}
	slices.SortFunc(days, func(a, b Day) int {
		return strings.Compare(a.Date, b.Date)
	})
	return days
}

// CompletionLog returns the completed tasks, newest completion first, with
// the completer's display name taken from names. Unknown completers keep
// their id as name.
func CompletionLog(tasks []model.Task, names map[string]string) []model.LogEntry {
	entries := []model.LogEntry{}
	for _, t := range tasks {
		if t.Status != model.StatusCompleted || t.CompletedAt == nil {
			continue
		}
		e := model.LogEntry{Task: t}
		if t.CompletedBy != nil {
			e.CompletedByName = *t.CompletedBy
			if n, ok := names[*t.CompletedBy]; ok && n != "" {
				e.CompletedByName = n
			}
		}
		entries = append(entries, e)
	}
	slices.SortStableFunc(entries, func(a, b model.LogEntry) int {
		return b.CompletedAt.Compare(*a.CompletedAt)
	})
	return entries
}

// Completers returns the distinct completer ids of tasks.
func Completers(tasks []model.Task) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, t := range tasks {
		if t.CompletedBy == nil || seen[*t.CompletedBy] {
			continue
		}
		seen[*t.CompletedBy] = true
		ids = append(ids, *t.CompletedBy)
	}
	return ids
}
