package model

import (
	"time"

	"github.com/01001010sedano/TidyTapv1/internal/recurrence"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
)

func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

func ValidStatus(s string) bool {
	return s == StatusPending || s == StatusInProgress || s == StatusCompleted
}

// Assignee is a snapshot of a member at assignment time. Renaming the member
// later does not update it.
type Assignee struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Task struct {
	ID          string          `json:"id"`
	HouseholdID string          `json:"household_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    string          `json:"priority"`
	Category    string          `json:"category"`
	Status      string          `json:"status"`
	AssignedTo  []Assignee      `json:"assigned_to"`
	DueTime     time.Time       `json:"due_time"`
	Repeat      recurrence.Rule `json:"repeat"`
	CreatedBy   string          `json:"created_by"`
	CompletedBy *string         `json:"completed_by"`
	CompletedAt *time.Time      `json:"completed_at"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// IsAssigned reports whether userID is among the task's assignees.
func (t *Task) IsAssigned(userID string) bool {
	for _, a := range t.AssignedTo {
		if a.ID == userID {
			return true
		}
	}
	return false
}

// TaskDraft holds the writable fields of a task.
type TaskDraft struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    string          `json:"priority"`
	Category    string          `json:"category"`
	AssignedTo  []Assignee      `json:"assigned_to"`
	DueTime     time.Time       `json:"due_time"`
	Repeat      recurrence.Rule `json:"repeat"`
}

// LogEntry is a completed task with the completer's display name resolved.
type LogEntry struct {
	Task
	CompletedByName string `json:"completed_by_name"`
}

type TaskSummary struct {
	Total          int     `json:"total"`
	Completed      int     `json:"completed"`
	InProgress     int     `json:"in_progress"`
	Pending        int     `json:"pending"`
	CompletionRate float64 `json:"completion_rate"`
}
